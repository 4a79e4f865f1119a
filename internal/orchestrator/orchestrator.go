package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/five82/arenaview/internal/card"
	"github.com/five82/arenaview/internal/logging"
	"github.com/five82/arenaview/internal/logparse"
	"github.com/five82/arenaview/internal/metrics"
	"github.com/five82/arenaview/internal/state"
)

// DefaultMaxInflight caps concurrent provider work.
const DefaultMaxInflight = 8

type resolution uint8

const (
	unresolved resolution = iota
	inflight
	resolved
)

// Deps are the collaborators an Orchestrator coordinates. Stats is optional.
type Deps struct {
	Store    *state.Store
	Cache    MetadataCache
	Ledger   OverrideLedger
	Provider Provider
	Stats    StatsIndex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxInflight sets the concurrent provider call cap.
func WithMaxInflight(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxInflight = n
		}
	}
}

// Orchestrator turns parsed log events into store updates and runs card
// resolution in the background.
type Orchestrator struct {
	store    *state.Store
	cache    MetadataCache
	ledger   OverrideLedger
	provider Provider
	stats    StatsIndex
	logger   zerolog.Logger

	maxInflight int
	sem         *semaphore.Weighted
	flights     singleflight.Group

	mu     sync.Mutex
	status map[card.Key]resolution
	prints map[string]struct{}

	wg sync.WaitGroup
}

// New wires an orchestrator. Store, Cache, Ledger and Provider are required.
func New(deps Deps, opts ...Option) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("orchestrator: store is required")
	case deps.Cache == nil:
		return nil, errors.New("orchestrator: cache is required")
	case deps.Ledger == nil:
		return nil, errors.New("orchestrator: ledger is required")
	case deps.Provider == nil:
		return nil, errors.New("orchestrator: provider is required")
	}
	o := &Orchestrator{
		store:       deps.Store,
		cache:       deps.Cache,
		ledger:      deps.Ledger,
		provider:    deps.Provider,
		stats:       deps.Stats,
		logger:      logging.WithComponent("orchestrator"),
		maxInflight: DefaultMaxInflight,
		status:      make(map[card.Key]resolution),
		prints:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.sem = semaphore.NewWeighted(int64(o.maxInflight))
	return o, nil
}

// Store returns the state store the orchestrator writes to.
func (o *Orchestrator) Store() *state.Store { return o.store }

// Run feeds chunks through a parser and dispatches events in log order until
// ctx ends or chunks closes.
func (o *Orchestrator) Run(ctx context.Context, chunks <-chan []byte) error {
	parser := logparse.NewParser()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				o.dispatch(ctx, parser.Flush())
				return nil
			}
			metrics.LogBytesRead.Add(float64(len(chunk)))
			o.dispatch(ctx, parser.Feed(chunk))
		}
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, events []logparse.Event) {
	for _, ev := range events {
		metrics.EventsParsed.WithLabelValues(ev.Type()).Inc()
		o.HandleEvent(ctx, ev)
	}
}

// HandleEvent applies one event. Resolutions it starts run on their own
// goroutines bounded by ctx.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev logparse.Event) {
	switch ev := ev.(type) {
	case logparse.MatchStarted:
		snap := o.store.Reset()
		o.mu.Lock()
		o.status = make(map[card.Key]resolution)
		o.mu.Unlock()
		o.logger.Info().Uint64("version", snap.UpdateID).Msg("match started")
	case logparse.GameStateChanged:
		hand := card.Keys(ev.Hand)
		battlefield := card.Keys(ev.Battlefield)
		o.store.SetZones(hand, battlefield)

		pending := make(map[card.Key]card.Identity)
		for i, key := range hand {
			pending[key] = ev.Hand[i]
		}
		for i, key := range battlefield {
			if _, ok := pending[key]; !ok {
				pending[key] = ev.Battlefield[i]
			}
		}
		for key, id := range pending {
			if !o.claim(key) {
				continue
			}
			o.wg.Add(1)
			go func(key card.Key, id card.Identity) {
				defer o.wg.Done()
				if _, _, err := o.Resolve(ctx, key, id); err != nil {
					o.logger.Warn().Err(err).Str("key", key.String()).Msg("card resolution failed")
				}
			}(key, id)
		}
	}
}

// Wait blocks until background resolutions and print fetches finish.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// claim marks an unresolved key in flight and reports whether the caller
// should start resolving it.
func (o *Orchestrator) claim(key card.Key) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status[key] != unresolved {
		return false
	}
	o.status[key] = inflight
	return true
}

func (o *Orchestrator) settle(key card.Key, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ok {
		o.status[key] = resolved
		return
	}
	delete(o.status, key)
}

type result struct {
	md    card.Metadata
	found bool
}

// Resolve looks key up in the cache and then the provider, storing the
// result. Concurrent calls for one key share a single resolution.
func (o *Orchestrator) Resolve(ctx context.Context, key card.Key, id card.Identity) (card.Metadata, bool, error) {
	v, err, _ := o.flights.Do(string(key), func() (any, error) {
		return o.resolve(ctx, key, id)
	})
	if err != nil {
		return card.Metadata{}, false, err
	}
	r := v.(result)
	return r.md.Clone(), r.found, nil
}

func (o *Orchestrator) resolve(ctx context.Context, key card.Key, id card.Identity) (res result, err error) {
	o.mu.Lock()
	o.status[key] = inflight
	o.mu.Unlock()
	defer func() { o.settle(key, res.found) }()

	if md, ok := o.cache.Get(key); ok {
		md = o.annotate(md)
		if o.store.UpsertCard(key, md) {
			o.store.Publish()
		}
		metrics.Resolutions.WithLabelValues("cache").Inc()
		o.schedulePrints(ctx, md)
		return result{md: md, found: true}, nil
	}

	if !id.Queryable() {
		metrics.Resolutions.WithLabelValues("skipped").Inc()
		return result{}, nil
	}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return result{}, fmt.Errorf("acquire resolution slot: %w", err)
	}
	metrics.ResolutionsInFlight.Inc()
	md, found, err := o.provider.Lookup(ctx, id)
	metrics.ResolutionsInFlight.Dec()
	o.sem.Release(1)

	switch {
	case err != nil:
		metrics.Resolutions.WithLabelValues("error").Inc()
		return result{}, fmt.Errorf("lookup %s: %w", key, err)
	case !found:
		metrics.Resolutions.WithLabelValues("not_found").Inc()
		o.logger.Debug().Str("key", key.String()).Msg("card not found")
		return result{}, nil
	}

	md = o.annotate(md)
	wrote := o.store.UpsertCard(key, md)
	if err := o.cache.Set(key, md); err != nil {
		o.logger.Warn().Err(err).Str("key", key.String()).Msg("persist card")
	}
	if wrote {
		o.store.Publish()
	}
	metrics.Resolutions.WithLabelValues("provider").Inc()
	o.logger.Debug().Str("key", key.String()).Str("name", md.Name).Msg("card resolved")
	o.schedulePrints(ctx, md)
	return result{md: md, found: true}, nil
}

func (o *Orchestrator) annotate(md card.Metadata) card.Metadata {
	if o.stats == nil || md.DraftStats != nil || md.Name == "" {
		return md
	}
	if ds, ok := o.stats.Lookup(md.Name); ok {
		if ds.OracleID == "" {
			ds.OracleID = md.OracleID
		}
		md = md.Apply(card.Patch{DraftStats: &ds})
	}
	return md
}
