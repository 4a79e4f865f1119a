package scryfall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/five82/arenaview/internal/card"
	"github.com/five82/arenaview/internal/metrics"
)

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("scryfall circuit open")

// errNotFound marks a 404 inside the breaker; callers see found=false.
var errNotFound = errors.New("not found")

const (
	DefaultBaseURL         = "https://api.scryfall.com"
	DefaultRequestInterval = 100 * time.Millisecond
	defaultUserAgent       = "arenaview/0.1"
	requestTimeout         = 10 * time.Second
	maxBodyBytes           = 8 << 20
	// MaxPrintPages bounds the print search pagination.
	MaxPrintPages = 4
)

// Client talks to the Scryfall REST API. All requests share one limiter, so
// request starts are spaced by at least the configured interval no matter
// how many goroutines call in.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]byte]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRequestInterval sets the minimum spacing between request starts.
// Zero or negative disables spacing.
func WithRequestInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a client for baseURL; empty uses the public API.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		limiter:   rate.NewLimiter(rate.Every(DefaultRequestInterval), 1),
		breaker:   newBreaker(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Lookup resolves an identity. Arena ids are tried first (game id, then
// print id); a name lookup is the last resort. found is false when Scryfall
// has no match.
func (c *Client) Lookup(ctx context.Context, id card.Identity) (card.Metadata, bool, error) {
	if c == nil {
		return card.Metadata{}, false, fmt.Errorf("client is nil")
	}
	for _, arenaID := range []int{id.MtgaID, id.GrpID} {
		if arenaID <= 0 {
			continue
		}
		md, found, err := c.CardByArenaID(ctx, arenaID)
		if err != nil || found {
			return md, found, err
		}
	}
	if strings.TrimSpace(id.Name) != "" {
		return c.CardByName(ctx, id.Name, id.Set)
	}
	return card.Metadata{}, false, nil
}

// CardByArenaID fetches GET /cards/arena/{id}.
func (c *Client) CardByArenaID(ctx context.Context, arenaID int) (card.Metadata, bool, error) {
	rel := &url.URL{Path: "/cards/arena/" + strconv.Itoa(arenaID)}
	return c.fetchCard(ctx, "arena", rel)
}

// CardByName fetches GET /cards/named?fuzzy=name, narrowed to set when given.
func (c *Client) CardByName(ctx context.Context, name, set string) (card.Metadata, bool, error) {
	values := url.Values{}
	values.Set("fuzzy", strings.TrimSpace(name))
	if s := strings.TrimSpace(set); s != "" {
		values.Set("set", strings.ToLower(s))
	}
	rel := &url.URL{Path: "/cards/named", RawQuery: values.Encode()}
	return c.fetchCard(ctx, "named", rel)
}

// PrintImages lists the image URI of every print sharing oracleID, oldest
// release first. Prints without an image are skipped and duplicates removed.
// Pagination stops after MaxPrintPages.
func (c *Client) PrintImages(ctx context.Context, oracleID string) ([]string, error) {
	oracleID = strings.TrimSpace(oracleID)
	if oracleID == "" {
		return nil, fmt.Errorf("oracle id required")
	}
	values := url.Values{}
	values.Set("q", "oracleid:"+oracleID)
	values.Set("unique", "prints")
	values.Set("order", "released")
	next := &url.URL{Path: "/cards/search", RawQuery: values.Encode()}

	var uris []string
	seen := make(map[string]struct{})
	for page := 0; page < MaxPrintPages && next != nil; page++ {
		var list List
		found, err := c.get(ctx, "prints", next, &list)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}
		for _, printing := range list.Data {
			uri := printing.ImageURI()
			if uri == "" {
				continue
			}
			if _, dup := seen[uri]; dup {
				continue
			}
			seen[uri] = struct{}{}
			uris = append(uris, uri)
		}
		next = nil
		if list.HasMore && list.NextPage != "" {
			parsed, err := url.Parse(list.NextPage)
			if err != nil {
				return nil, fmt.Errorf("parse next page: %w", err)
			}
			next = parsed
		}
	}
	return uris, nil
}

func (c *Client) fetchCard(ctx context.Context, op string, rel *url.URL) (card.Metadata, bool, error) {
	var payload Card
	found, err := c.get(ctx, op, rel, &payload)
	if err != nil || !found {
		return card.Metadata{}, false, err
	}
	md := payload.Metadata()
	if md.Name == "" {
		return card.Metadata{}, false, fmt.Errorf("scryfall %s: card without name", op)
	}
	return md, true, nil
}

// get performs a rate-limited, breaker-guarded GET. A 404 reports
// found=false with a nil error.
func (c *Client) get(ctx context.Context, op string, rel *url.URL, dest any) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("wait for rate limit: %w", err)
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doURL(ctx, rel)
	})
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, errNotFound):
		metrics.RecordProviderRequest(op, "not_found", elapsed)
		return false, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordProviderRequest(op, "rejected", elapsed)
		return false, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	case err != nil:
		metrics.RecordProviderRequest(op, "error", elapsed)
		return false, err
	}

	if err := json.Unmarshal(body, dest); err != nil {
		metrics.RecordProviderRequest(op, "error", elapsed)
		return false, fmt.Errorf("decode response: %w", err)
	}
	metrics.RecordProviderRequest(op, "found", elapsed)
	return true, nil
}

func (c *Client) doURL(ctx context.Context, rel *url.URL) ([]byte, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("scryfall %s returned status %d", rel.Path, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse scryfall url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
