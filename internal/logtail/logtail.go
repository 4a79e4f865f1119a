package logtail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/five82/arenaview/internal/logging"
)

// ErrNotFound is returned by Start when the log file does not exist.
var ErrNotFound = errors.New("log file not found")

const defaultPollInterval = 500 * time.Millisecond

// Option configures a Tailer.
type Option func(*Tailer)

// FromStart makes the tailer emit the file's existing contents before
// following new writes. By default it starts at end-of-file.
func FromStart() Option {
	return func(t *Tailer) { t.fromStart = true }
}

// WithPollInterval sets the fallback polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tailer) {
		if d > 0 {
			t.pollInterval = d
		}
	}
}

// Tailer follows a single growing log file and emits each newly appended
// span as one chunk.
type Tailer struct {
	path         string
	pollInterval time.Duration
	fromStart    bool
	logger       zerolog.Logger

	chunks chan []byte
	errs   chan error

	// offset is owned by the run goroutine once Start returns.
	offset int64

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New returns a tailer for path. Nothing is opened until Start.
func New(path string, opts ...Option) *Tailer {
	t := &Tailer{
		path:         path,
		pollInterval: defaultPollInterval,
		logger:       logging.WithComponent("tailer"),
		chunks:       make(chan []byte, 16),
		errs:         make(chan error, 4),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Chunks delivers appended byte spans in file order. It is closed once the
// tailer stops.
func (t *Tailer) Chunks() <-chan []byte { return t.chunks }

// Errors delivers non-fatal tailing errors. Sends never block; errors are
// dropped when nobody is listening.
func (t *Tailer) Errors() <-chan error { return t.errs }

// Path returns the followed file path.
func (t *Tailer) Path() string { return t.path }

// Start begins following the file. It returns ErrNotFound when the file is
// missing; in that case the tailer stays idle and Chunks is closed.
func (t *Tailer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return fmt.Errorf("tailer already started")
	}
	t.started = true

	info, err := os.Stat(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrNotFound, t.path)
		} else {
			err = fmt.Errorf("stat log: %w", err)
		}
		t.report(err)
		close(t.chunks)
		close(t.done)
		return err
	}
	if !t.fromStart {
		t.offset = info.Size()
	}

	watcher, werr := fsnotify.NewWatcher()
	if werr == nil {
		if werr = watcher.Add(filepath.Dir(t.path)); werr != nil {
			_ = watcher.Close()
			watcher = nil
		}
	} else {
		watcher = nil
	}
	if werr != nil {
		t.logger.Warn().Err(werr).Str("path", t.path).Msg("file watch unavailable, polling only")
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.logger.Info().Str("path", t.path).Int64("offset", t.offset).Msg("tailing log")
	go t.run(runCtx, watcher)
	return nil
}

// Stop ends tailing and releases the watcher. It is safe to call more than
// once and before Start.
func (t *Tailer) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		cancel := t.cancel
		started := t.started
		if !started {
			t.started = true
			close(t.chunks)
			close(t.done)
		}
		t.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
	<-t.done
}

func (t *Tailer) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(t.done)
	defer close(t.chunks)

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if watcher != nil {
		defer watcher.Close()
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	if t.fromStart && !t.poll(ctx) {
		return
	}

	target := filepath.Clean(t.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !t.poll(ctx) {
				return
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			t.report(fmt.Errorf("watch log: %w", err))
		case <-ticker.C:
			if !t.poll(ctx) {
				return
			}
		}
	}
}

// poll reads whatever was appended since the last call. It returns false
// when the context ended while delivering a chunk.
func (t *Tailer) poll(ctx context.Context) bool {
	info, err := os.Stat(t.path)
	if err != nil {
		// Rotation can briefly remove the file; the next tick picks it up.
		if !errors.Is(err, os.ErrNotExist) {
			t.report(fmt.Errorf("stat log: %w", err))
		}
		return true
	}

	size := info.Size()
	if size < t.offset {
		t.logger.Debug().Int64("size", size).Int64("offset", t.offset).Msg("log truncated, rewinding")
		t.offset = 0
	}
	if size == t.offset {
		return true
	}

	chunk, err := readSpan(t.path, t.offset, size-t.offset)
	if err != nil {
		t.report(err)
		return true
	}
	if len(chunk) == 0 {
		return true
	}
	t.offset += int64(len(chunk))

	select {
	case t.chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func readSpan(path string, offset, length int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek log: %w", err)
	}
	buf := make([]byte, length)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return buf[:n], nil
}

func (t *Tailer) report(err error) {
	select {
	case t.errs <- err:
	default:
		t.logger.Warn().Err(err).Msg("tailer error dropped")
	}
}
