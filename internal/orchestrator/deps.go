package orchestrator

import (
	"context"

	"github.com/five82/arenaview/internal/card"
)

// Provider resolves identities into metadata. found is false for a valid
// negative answer; err is reserved for failures.
type Provider interface {
	Lookup(ctx context.Context, id card.Identity) (md card.Metadata, found bool, err error)
	PrintImages(ctx context.Context, oracleID string) ([]string, error)
}

// MetadataCache is the durable key → metadata store.
type MetadataCache interface {
	Get(key card.Key) (card.Metadata, bool)
	Set(key card.Key, md card.Metadata) error
}

// OverrideLedger persists oracle-level art choices.
type OverrideLedger interface {
	Set(oracleID, uri string)
	Delete(oracleID string) bool
	Save() error
}

// StatsIndex annotates cards with draft statistics by name.
type StatsIndex interface {
	Lookup(name string) (card.DraftStats, bool)
}
