package state

import (
	"sync"

	"github.com/five82/arenaview/internal/card"
	"github.com/five82/arenaview/internal/metrics"
)

// Zones holds the ordered keys of the two tracked zones. Duplicates are
// allowed.
type Zones struct {
	Hand        []card.Key `json:"hand"`
	Battlefield []card.Key `json:"battlefield"`
}

// Snapshot is an immutable full view of the store. Cards holds every key
// referenced by a zone that has metadata, with the effective image URI in
// ImageURI.
type Snapshot struct {
	UpdateID uint64                     `json:"updateId"`
	Zones    Zones                      `json:"zones"`
	Cards    map[card.Key]card.Metadata `json:"cards"`
}

// Card returns the snapshot's record for key.
func (s Snapshot) Card(key card.Key) (card.Metadata, bool) {
	md, ok := s.Cards[key]
	return md, ok
}

// Store is the in-memory authority for zones, resolved metadata and both
// override layers. Every mutation bumps the version exactly once. The zero
// value is ready to use.
type Store struct {
	mu      sync.Mutex
	version uint64
	zones   Zones
	cards   map[card.Key]card.Metadata

	instanceOverrides map[card.Key]string
	oracleOverrides   map[string]string

	subs    map[int]chan Snapshot
	nextSub int
}

// NewStore returns a store seeded with persisted oracle overrides.
func NewStore(oracleOverrides map[string]string) *Store {
	s := &Store{}
	s.init()
	for oracleID, uri := range oracleOverrides {
		s.oracleOverrides[oracleID] = uri
	}
	return s
}

func (s *Store) init() {
	if s.cards == nil {
		s.cards = make(map[card.Key]card.Metadata)
	}
	if s.instanceOverrides == nil {
		s.instanceOverrides = make(map[card.Key]string)
	}
	if s.oracleOverrides == nil {
		s.oracleOverrides = make(map[string]string)
	}
	if s.subs == nil {
		s.subs = make(map[int]chan Snapshot)
	}
}

// SetZones replaces both zones and publishes.
func (s *Store) SetZones(hand, battlefield []card.Key) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	s.zones = Zones{Hand: cloneKeys(hand), Battlefield: cloneKeys(battlefield)}
	s.bump()
	return s.publishLocked()
}

// Reset clears zones and instance overrides for a new match. Card metadata
// and oracle overrides survive; a snapshot only carries cards referenced by
// the zones, so retained records stay out of the feed until seen again.
func (s *Store) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	s.zones = Zones{}
	s.instanceOverrides = make(map[card.Key]string)
	s.bump()
	return s.publishLocked()
}

// UpsertCard stores md when key has no record yet and reports whether it
// wrote. An existing record is never replaced. It does not publish.
func (s *Store) UpsertCard(key card.Key, md card.Metadata) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	if _, exists := s.cards[key]; exists {
		return false
	}
	s.cards[key] = md.Clone()
	s.bump()
	return true
}

// PatchCard merges p into an existing record. A missing key or empty patch
// is a no-op. It does not publish.
func (s *Store) PatchCard(key card.Key, p card.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, exists := s.cards[key]
	if !exists || p.Empty() {
		return false
	}
	s.cards[key] = md.Apply(p)
	s.bump()
	return true
}

// SetArtOverride sets the instance override for key and, when oracleID is
// not empty, the oracle override, as one mutation.
func (s *Store) SetArtOverride(key card.Key, oracleID, uri string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	s.instanceOverrides[key] = uri
	if oracleID != "" {
		s.oracleOverrides[oracleID] = uri
	}
	s.bump()
	return s.publishLocked()
}

// ClearArtOverride drops the instance override for key and, when oracleID
// is not empty, the oracle override. It reports whether an override was
// removed; the version is bumped either way.
func (s *Store) ClearArtOverride(key card.Key, oracleID string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	_, removed := s.instanceOverrides[key]
	delete(s.instanceOverrides, key)
	if oracleID != "" {
		if _, ok := s.oracleOverrides[oracleID]; ok {
			removed = true
		}
		delete(s.oracleOverrides, oracleID)
	}
	s.bump()
	return s.publishLocked(), removed
}

// Publish emits a snapshot of the current state without bumping.
func (s *Store) Publish() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	return s.publishLocked()
}

// Snapshot returns the current state without notifying subscribers.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Version returns the current update id.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Card returns the stored record for key with its base image.
func (s *Store) Card(key card.Key) (card.Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.cards[key]
	if !ok {
		return card.Metadata{}, false
	}
	return md.Clone(), true
}

// KeysWithOracle lists every stored key whose record carries oracleID.
func (s *Store) KeysWithOracle(oracleID string) []card.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []card.Key
	for key, md := range s.cards {
		if oracleID != "" && md.OracleID == oracleID {
			keys = append(keys, key)
		}
	}
	return keys
}

// EffectiveURI returns the image shown for key: the oracle override, else
// the instance override, else the base image.
func (s *Store) EffectiveURI(key card.Key) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.cards[key]
	if !ok {
		return ""
	}
	return s.effectiveLocked(key, md)
}

// OracleOverrides returns a copy of the oracle override layer.
func (s *Store) OracleOverrides() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.oracleOverrides))
	for k, v := range s.oracleOverrides {
		out[k] = v
	}
	return out
}

func (s *Store) bump() {
	s.version++
	metrics.SnapshotVersion.Set(float64(s.version))
}

func (s *Store) effectiveLocked(key card.Key, md card.Metadata) string {
	if md.OracleID != "" {
		if uri, ok := s.oracleOverrides[md.OracleID]; ok && uri != "" {
			return uri
		}
	}
	if uri, ok := s.instanceOverrides[key]; ok && uri != "" {
		return uri
	}
	return md.ImageURI
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		UpdateID: s.version,
		Zones:    Zones{Hand: cloneKeys(s.zones.Hand), Battlefield: cloneKeys(s.zones.Battlefield)},
		Cards:    make(map[card.Key]card.Metadata),
	}
	for _, zone := range [][]card.Key{s.zones.Hand, s.zones.Battlefield} {
		for _, key := range zone {
			if _, done := snap.Cards[key]; done {
				continue
			}
			md, ok := s.cards[key]
			if !ok {
				continue
			}
			out := md.Clone()
			out.ImageURI = s.effectiveLocked(key, md)
			snap.Cards[key] = out
		}
	}
	return snap
}

func cloneKeys(keys []card.Key) []card.Key {
	if len(keys) == 0 {
		return nil
	}
	dup := make([]card.Key, len(keys))
	copy(dup, keys)
	return dup
}
