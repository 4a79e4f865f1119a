package orchestrator

import (
	"fmt"
	"strings"

	"github.com/five82/arenaview/internal/card"
	"github.com/five82/arenaview/internal/metrics"
	"github.com/five82/arenaview/internal/state"
)

// Direction selects the neighbouring print when cycling art.
type Direction int

const (
	Next Direction = 1
	Prev Direction = -1
)

// ParseDirection accepts next/prev (and a few aliases). Empty means Next.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "next", "forward", "+1", "1":
		return Next, nil
	case "prev", "previous", "back", "-1":
		return Prev, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// CycleArt moves key to the next or previous print. It needs a resolved
// card with more than one print and otherwise changes nothing. The choice is
// applied as an instance override and, for cards with an oracle id, as a
// persisted oracle override.
func (o *Orchestrator) CycleArt(key card.Key, dir Direction) (state.Snapshot, bool) {
	md, ok := o.store.Card(key)
	n := len(md.PrintURIs)
	if !ok || n <= 1 {
		metrics.RecordCommand("cycle_art", false)
		return o.store.Snapshot(), false
	}

	idx := md.PrintIndex(o.store.EffectiveURI(key))
	if idx < 0 {
		idx = md.PrintIndex(md.ImageURI)
	}
	if idx < 0 {
		idx = 0
	}
	step := 1
	if dir == Prev {
		step = -1
	}
	uri := md.PrintURIs[((idx+step)%n+n)%n]

	snap := o.store.SetArtOverride(key, md.OracleID, uri)
	if md.OracleID != "" {
		o.ledger.Set(md.OracleID, uri)
		o.saveLedger()
	}
	metrics.RecordCommand("cycle_art", true)
	o.logger.Debug().Str("key", key.String()).Str("dir", dir.String()).Str("uri", uri).Msg("art cycled")
	return snap, true
}

// ResetArt drops the key's instance override and, when the card has an
// oracle id, its persisted oracle override. It reports whether any override
// was removed.
func (o *Orchestrator) ResetArt(key card.Key) (state.Snapshot, bool) {
	md, _ := o.store.Card(key)
	snap, changed := o.store.ClearArtOverride(key, md.OracleID)
	if md.OracleID != "" && o.ledger.Delete(md.OracleID) {
		changed = true
		o.saveLedger()
	}
	metrics.RecordCommand("reset_art", changed)
	return snap, changed
}

func (o *Orchestrator) saveLedger() {
	if err := o.ledger.Save(); err != nil {
		o.logger.Error().Err(err).Msg("persist art overrides")
	}
}
