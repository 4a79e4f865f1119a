package cache

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/five82/arenaview/internal/fsutil"
	"github.com/five82/arenaview/internal/metrics"
)

// LedgerFile is the override ledger's name inside the cache root.
const LedgerFile = "overrides.json"

// Ledger is the persistent oracle-id → art URI mapping.
type Ledger struct {
	path string

	mu        sync.RWMutex
	overrides map[string]string

	// saveMu orders concurrent saves so the newest state is written last.
	saveMu sync.Mutex
}

// LoadLedger reads the ledger at path. A missing file yields an empty
// ledger. A corrupt file also yields an empty ledger together with an error
// the caller may log.
func LoadLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, overrides: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return l, fmt.Errorf("read ledger: %w", err)
	}
	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return l, fmt.Errorf("parse ledger: %w", err)
	}
	for oracleID, uri := range stored {
		if oracleID != "" && uri != "" {
			l.overrides[oracleID] = uri
		}
	}
	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Get returns the override for oracleID.
func (l *Ledger) Get(oracleID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	uri, ok := l.overrides[oracleID]
	return uri, ok
}

// Set records an override in memory. Call Save to persist.
func (l *Ledger) Set(oracleID, uri string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[oracleID] = uri
}

// Delete removes an override in memory and reports whether one existed.
func (l *Ledger) Delete(oracleID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.overrides[oracleID]
	delete(l.overrides, oracleID)
	return ok
}

// All returns a copy of every override.
func (l *Ledger) All() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.overrides))
	for k, v := range l.overrides {
		out[k] = v
	}
	return out
}

// Save writes the ledger atomically. On failure the in-memory state is
// unchanged and remains authoritative.
func (l *Ledger) Save() error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	data, err := json.MarshalIndent(l.All(), "", "  ")
	if err != nil {
		metrics.LedgerWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := fsutil.WriteFileAtomic(l.path, data, 0o644); err != nil {
		metrics.LedgerWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("save ledger: %w", err)
	}
	metrics.LedgerWrites.WithLabelValues("ok").Inc()
	return nil
}
