package logparse

import "bytes"

// DefaultMaxPending caps the partial-line buffer.
const DefaultMaxPending = 64 << 20

// Option configures a Parser.
type Option func(*Parser)

// WithMaxPending overrides the partial-line cap.
func WithMaxPending(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxPending = n
		}
	}
}

// Parser assembles arbitrary byte spans into lines and classifies them. It is
// not safe for concurrent use; feed it from one goroutine in file order.
type Parser struct {
	pending    []byte
	maxPending int
	// discarding is set after an overflow and cleared at the next newline.
	discarding bool
	dropped    int
}

// NewParser returns an empty parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxPending: DefaultMaxPending}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed appends chunk to the pending buffer and returns the events of every
// line it completes. The trailing fragment is kept for the next call.
func (p *Parser) Feed(chunk []byte) []Event {
	var events []Event
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			p.buffer(chunk)
			break
		}
		p.buffer(chunk[:i])
		if !p.discarding {
			events = append(events, p.emit()...)
		}
		p.discarding = false
		p.pending = p.pending[:0]
		chunk = chunk[i+1:]
	}
	return events
}

// Flush parses any buffered partial line as if it were complete.
func (p *Parser) Flush() []Event {
	if p.discarding || len(p.pending) == 0 {
		p.discarding = false
		p.pending = p.pending[:0]
		return nil
	}
	events := p.emit()
	p.pending = p.pending[:0]
	return events
}

// Dropped counts lines discarded for exceeding the pending cap.
func (p *Parser) Dropped() int { return p.dropped }

func (p *Parser) buffer(b []byte) {
	if p.discarding {
		return
	}
	if len(p.pending)+len(b) > p.maxPending {
		p.pending = nil
		p.discarding = true
		p.dropped++
		return
	}
	p.pending = append(p.pending, b...)
}

func (p *Parser) emit() []Event {
	line := bytes.TrimSuffix(p.pending, []byte{'\r'})
	return ParseLine(string(line))
}
