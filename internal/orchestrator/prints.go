package orchestrator

import (
	"context"

	"github.com/five82/arenaview/internal/card"
)

// schedulePrints starts a background print-list fetch for md's oracle id
// unless the record already has prints or a fetch for that oracle is
// running.
func (o *Orchestrator) schedulePrints(ctx context.Context, md card.Metadata) {
	oracleID := md.OracleID
	if oracleID == "" || len(md.PrintURIs) > 0 {
		return
	}
	o.mu.Lock()
	if _, busy := o.prints[oracleID]; busy {
		o.mu.Unlock()
		return
	}
	o.prints[oracleID] = struct{}{}
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			delete(o.prints, oracleID)
			o.mu.Unlock()
		}()
		o.fetchPrints(ctx, oracleID)
	}()
}

func (o *Orchestrator) fetchPrints(ctx context.Context, oracleID string) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return
	}
	uris, err := o.provider.PrintImages(ctx, oracleID)
	o.sem.Release(1)
	if err != nil {
		o.logger.Warn().Err(err).Str("oracle_id", oracleID).Msg("fetch prints")
		return
	}
	if len(uris) == 0 {
		return
	}

	patch := card.Patch{PrintURIs: uris}
	for _, key := range o.store.KeysWithOracle(oracleID) {
		if !o.store.PatchCard(key, patch) {
			continue
		}
		md, ok := o.store.Card(key)
		if !ok {
			continue
		}
		if err := o.cache.Set(key, md); err != nil {
			o.logger.Warn().Err(err).Str("key", key.String()).Msg("persist prints")
		}
	}
	o.logger.Debug().Str("oracle_id", oracleID).Int("prints", len(uris)).Msg("prints fetched")
}
