// Package orchestrator coordinates the pipeline between parsed log events,
// card resolution and the state store.
//
// # Events
//
// MatchStarted resets the store (zones and instance overrides) and forgets
// which keys were resolved. Card metadata is kept. GameStateChanged replaces both zones and
// starts a background resolution for every key that is neither resolved nor
// in flight. Events are handled in log order by the goroutine running Run.
//
// # Resolution
//
// Each key moves through unresolved → in flight → resolved. A failed or
// not-found lookup returns the key to unresolved so a later observation can
// retry; nothing retries on a timer. Resolve is deduplicated per key with
// singleflight, and provider calls share a weighted semaphore.
//
//	cache hit   → UpsertCard, Publish, maybe fetch prints
//	cache miss  → provider (by game id, print id, then name)
//	            → UpsertCard, cache.Set, Publish, maybe fetch prints
//
// A MatchStarted does not cancel running resolutions. A result landing after
// a reset still populates the card map and may mark the key resolved, which
// holds because metadata is keyed by card identity rather than by match.
//
// # Prints
//
// The alternate-print list is fetched lazily, at most once at a time per
// oracle id. A non-empty result is patched into every stored card sharing
// the oracle id and written back to the cache. No snapshot is forced.
//
// # Art Commands
//
// CycleArt and ResetArt are the consumer commands. Both update the store in
// a single mutation; cycling a card with an oracle id also persists the
// choice to the override ledger.
package orchestrator
