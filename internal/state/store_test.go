package state

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/five82/arenaview/internal/card"
)

func shock() card.Metadata {
	return card.Metadata{Name: "Shock", ScryfallID: "s1", OracleID: "oracle-shock", ImageURI: "base.jpg"}
}

func TestStore_ZeroValueIsUsable(t *testing.T) {
	var s Store
	snap := s.SetZones([]card.Key{"mtga:1"}, nil)
	if snap.UpdateID != 1 {
		t.Fatalf("UpdateID = %d, want 1", snap.UpdateID)
	}
	if !reflect.DeepEqual(snap.Zones.Hand, []card.Key{"mtga:1"}) {
		t.Fatalf("hand = %v", snap.Zones.Hand)
	}
}

func TestStore_EveryMutationBumpsOnce(t *testing.T) {
	s := NewStore(nil)
	steps := []struct {
		name string
		do   func()
		bump uint64
	}{
		{"set zones", func() { s.SetZones([]card.Key{"mtga:1"}, []card.Key{"mtga:2"}) }, 1},
		{"upsert new", func() { s.UpsertCard("mtga:1", shock()) }, 1},
		{"upsert existing", func() { s.UpsertCard("mtga:1", card.Metadata{Name: "Other"}) }, 0},
		{"patch existing", func() { s.PatchCard("mtga:1", card.Patch{PrintURIs: []string{"a", "b"}}) }, 1},
		{"patch missing", func() { s.PatchCard("mtga:9", card.Patch{PrintURIs: []string{"a"}}) }, 0},
		{"empty patch", func() { s.PatchCard("mtga:1", card.Patch{}) }, 0},
		{"set override", func() { s.SetArtOverride("mtga:1", "oracle-shock", "b") }, 1},
		{"clear override", func() { s.ClearArtOverride("mtga:1", "oracle-shock") }, 1},
		{"publish", func() { s.Publish() }, 0},
		{"reset", func() { s.Reset() }, 1},
	}
	for _, step := range steps {
		before := s.Version()
		step.do()
		if got := s.Version() - before; got != step.bump {
			t.Fatalf("%s: version moved by %d, want %d", step.name, got, step.bump)
		}
	}
}

func TestStore_UpsertIsFirstWriteWins(t *testing.T) {
	s := NewStore(nil)
	if !s.UpsertCard("mtga:1", shock()) {
		t.Fatal("first upsert should write")
	}
	if s.UpsertCard("mtga:1", card.Metadata{Name: "Lightning Bolt"}) {
		t.Fatal("second upsert should not write")
	}
	md, _ := s.Card("mtga:1")
	if md.Name != "Shock" {
		t.Fatalf("name = %q, want Shock", md.Name)
	}
}

func TestStore_EffectiveURIPrecedence(t *testing.T) {
	s := NewStore(nil)
	s.SetZones([]card.Key{"mtga:1"}, nil)
	s.UpsertCard("mtga:1", shock())

	if got := s.EffectiveURI("mtga:1"); got != "base.jpg" {
		t.Fatalf("base: %q", got)
	}

	s.SetArtOverride("mtga:1", "", "instance.jpg")
	if got := s.EffectiveURI("mtga:1"); got != "instance.jpg" {
		t.Fatalf("instance: %q", got)
	}

	// Oracle override wins even with an instance override on the same key.
	snap := s.SetArtOverride("mtga:2", "oracle-shock", "oracle.jpg")
	if got := s.EffectiveURI("mtga:1"); got != "oracle.jpg" {
		t.Fatalf("oracle: %q", got)
	}
	if snap.Cards["mtga:1"].ImageURI != "oracle.jpg" {
		t.Fatalf("snapshot image = %q", snap.Cards["mtga:1"].ImageURI)
	}

	// The stored record keeps its base image.
	md, _ := s.Card("mtga:1")
	if md.ImageURI != "base.jpg" {
		t.Fatalf("base image overwritten: %q", md.ImageURI)
	}
}

func TestStore_ResetKeepsOracleOverrides(t *testing.T) {
	s := NewStore(map[string]string{"oracle-shock": "persisted.jpg"})
	s.SetZones([]card.Key{"mtga:1", "mtga:1"}, []card.Key{"mtga:2"})
	s.UpsertCard("mtga:1", shock())
	s.SetArtOverride("mtga:2", "", "instance.jpg")

	snap := s.Reset()
	if len(snap.Zones.Hand) != 0 || len(snap.Zones.Battlefield) != 0 {
		t.Fatalf("zones not cleared: %+v", snap.Zones)
	}
	if len(snap.Cards) != 0 {
		t.Fatalf("unreferenced cards in snapshot: %v", snap.Cards)
	}
	if md, ok := s.Card("mtga:1"); !ok || md.Name != "Shock" {
		t.Fatal("card metadata dropped by reset")
	}
	if got := s.OracleOverrides(); got["oracle-shock"] != "persisted.jpg" {
		t.Fatalf("oracle overrides = %v", got)
	}

	// The instance override is gone: a re-resolved card shows its base.
	s.SetZones([]card.Key{"mtga:1"}, []card.Key{"mtga:2"})
	if _, ok := s.Snapshot().Card("mtga:1"); !ok {
		t.Fatal("retained card missing once referenced again")
	}
	s.UpsertCard("mtga:2", card.Metadata{Name: "Opt", ImageURI: "opt.jpg"})
	if got := s.EffectiveURI("mtga:2"); got != "opt.jpg" {
		t.Fatalf("instance override survived reset: %q", got)
	}
}

func TestStore_SnapshotOnlyReferencedCards(t *testing.T) {
	s := NewStore(nil)
	s.UpsertCard("mtga:1", shock())
	s.UpsertCard("mtga:2", card.Metadata{Name: "Opt"})
	snap := s.SetZones([]card.Key{"mtga:1", "mtga:3"}, nil)

	if _, ok := snap.Card("mtga:2"); ok {
		t.Fatal("unreferenced card in snapshot")
	}
	if _, ok := snap.Card("mtga:3"); ok {
		t.Fatal("unresolved card should be absent")
	}
	if _, ok := snap.Card("mtga:1"); !ok {
		t.Fatal("referenced card missing")
	}

	// Snapshots are independent copies.
	snap.Zones.Hand[0] = "mutated"
	if s.Snapshot().Zones.Hand[0] != "mtga:1" {
		t.Fatal("snapshot shares zone slice")
	}
}

func TestStore_KeysWithOracle(t *testing.T) {
	s := NewStore(nil)
	s.UpsertCard("mtga:1", shock())
	s.UpsertCard("grp:7", shock())
	s.UpsertCard("mtga:2", card.Metadata{Name: "Opt", OracleID: "oracle-opt"})

	keys := s.KeysWithOracle("oracle-shock")
	if len(keys) != 2 {
		t.Fatalf("keys = %v, want two", keys)
	}
	if len(s.KeysWithOracle("")) != 0 {
		t.Fatal("empty oracle id should match nothing")
	}
}

func TestStore_SubscribeLatestWins(t *testing.T) {
	s := NewStore(nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	initial := <-ch
	if initial.UpdateID != 0 {
		t.Fatalf("initial UpdateID = %d", initial.UpdateID)
	}

	for i := 0; i < 5; i++ {
		s.SetZones([]card.Key{"mtga:1"}, nil)
	}
	got := <-ch
	if got.UpdateID != 5 {
		t.Fatalf("slow subscriber got %d, want the newest (5)", got.UpdateID)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected queued snapshot %d", extra.UpdateID)
	default:
	}

	// Non-publishing mutations notify nothing until Publish.
	s.UpsertCard("mtga:1", shock())
	select {
	case extra := <-ch:
		t.Fatalf("upsert published %d", extra.UpdateID)
	default:
	}
	if snap := s.Publish(); snap.UpdateID != 6 {
		t.Fatalf("Publish UpdateID = %d, want 6", snap.UpdateID)
	}
	if got := <-ch; got.UpdateID != 6 || got.Cards["mtga:1"].Name != "Shock" {
		t.Fatalf("after Publish got %+v", got)
	}
}

func TestStore_UnsubscribeClosesChannel(t *testing.T) {
	s := NewStore(nil)
	ch, cancel := s.Subscribe()
	<-ch
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	if s.Subscribers() != 0 {
		t.Fatalf("Subscribers = %d", s.Subscribers())
	}
	s.SetZones(nil, nil)
}

func TestStore_ConcurrentSubscribersSeeMonotonicVersions(t *testing.T) {
	s := NewStore(nil)
	const writers, perWriter = 4, 50

	ch, cancel := s.Subscribe()
	var last uint64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range ch {
			if snap.UpdateID < last {
				t.Errorf("version went backwards: %d after %d", snap.UpdateID, last)
				return
			}
			last = snap.UpdateID
			if last == writers*perWriter {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.SetZones([]card.Key{"mtga:1"}, nil)
			}
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never saw the final version")
	}
	cancel()
	if s.Version() != writers*perWriter {
		t.Fatalf("Version = %d", s.Version())
	}
}
