package server

import (
	"context"
	"time"

	"github.com/five82/arenaview/internal/state"
)

// DefaultEmitInterval is the forwarding throttle window.
const DefaultEmitInterval = 100 * time.Millisecond

// Forwarder relays store snapshots to the hub. Bursts are coalesced on the
// trailing edge: the first snapshot after a quiet period starts the window
// and the newest snapshot at its end is broadcast.
type Forwarder struct {
	store    *state.Store
	hub      *Hub
	interval time.Duration
}

// NewForwarder wires store to hub. A non-positive interval forwards every
// snapshot immediately.
func NewForwarder(store *state.Store, hub *Hub, interval time.Duration) *Forwarder {
	return &Forwarder{store: store, hub: hub, interval: interval}
}

// Serve forwards until ctx ends.
func (f *Forwarder) Serve(ctx context.Context) error {
	snaps, cancel := f.store.Subscribe()
	defer cancel()

	var (
		pending state.Snapshot
		armed   bool
		timer   = time.NewTimer(time.Hour)
	)
	timer.Stop()
	defer timer.Stop()

	for {
		var fire <-chan time.Time
		if armed {
			fire = timer.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if f.interval <= 0 {
				f.hub.Broadcast(ctx, snapshotMessage(snap))
				continue
			}
			pending = snap
			if !armed {
				timer.Reset(f.interval)
				armed = true
			}
		case <-fire:
			armed = false
			f.hub.Broadcast(ctx, snapshotMessage(pending))
		}
	}
}
