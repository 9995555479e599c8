// Package suggest maintains the search suggestion history: a small,
// recency-ordered ledger of past queries and a memoized filter that ranks
// ledger entries against a partial input for autocomplete.
//
// The ledger lives in memory once hydrated; the persistent store is a write
// path only. Flushes are deferred through a scheduler so recording a
// suggestion never blocks the search path, and persistence failures degrade
// to an empty-on-next-start ledger rather than surfacing anywhere.
package suggest

import (
	"encoding/json"
	"fmt"
	"time"

	"sync"

	"github.com/lumenshop/searchkit/pkg/log"
	"github.com/lumenshop/searchkit/pkg/schedule"
	"github.com/lumenshop/searchkit/pkg/search"
	"github.com/lumenshop/searchkit/pkg/storage"
)

const (
	// MaxEntries bounds the ledger; the oldest entries beyond it are dropped.
	MaxEntries = 20

	// ledgerKey is the storage key holding the serialized ledger.
	ledgerKey = "suggestions:v1"
)

var logger = log.ForComponent("suggest")

// Suggestion is one remembered query.
type Suggestion struct {
	Query       string    `json:"query"`
	Timestamp   time.Time `json:"timestamp"`
	ResultCount int       `json:"result_count"`
}

// Ledger is a bounded most-recent-first history of successful queries,
// unique by folded query. It hydrates lazily from the store on first access
// and flushes asynchronously through its scheduler.
type Ledger struct {
	mu        sync.Mutex
	store     storage.Store
	scheduler schedule.Scheduler
	entries   []Suggestion
	hydrated  bool
	version   uint64

	now func() time.Time
}

// NewLedger creates a ledger backed by store, flushing through scheduler.
func NewLedger(store storage.Store, scheduler schedule.Scheduler) *Ledger {
	return &Ledger{
		store:     store,
		scheduler: scheduler,
		now:       time.Now,
	}
}

// Record inserts or refreshes query at the front of the ledger and schedules
// a deferred flush. Empty queries are ignored. The call never blocks on
// persistence.
func (l *Ledger) Record(query string, resultCount int) {
	folded := search.FoldQuery(query)
	if folded == "" {
		return
	}
	if resultCount < 0 {
		resultCount = 0
	}

	l.mu.Lock()
	l.hydrateLocked()

	// Move-to-front: drop any existing occurrence, then reinsert at the head.
	kept := l.entries[:0]
	for _, entry := range l.entries {
		if entry.Query != folded {
			kept = append(kept, entry)
		}
	}
	l.entries = append([]Suggestion{{
		Query:       folded,
		Timestamp:   l.now(),
		ResultCount: resultCount,
	}}, kept...)

	if len(l.entries) > MaxEntries {
		l.entries = l.entries[:MaxEntries]
	}
	l.version++
	l.mu.Unlock()

	l.scheduler.Schedule(l.flush)
}

// List returns a copy of the ledger in most-recent-first order.
func (l *Ledger) List() []Suggestion {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hydrateLocked()

	out := make([]Suggestion, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear drops every entry in memory and in the store.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.hydrated = true
	l.version++
	l.mu.Unlock()

	if err := l.store.Delete(ledgerKey); err != nil {
		logger.Warnf("clearing persisted ledger: %v", err)
	}
}

// Flush persists the ledger immediately, bypassing the scheduler. Intended
// for shutdown, where a deferred flush would never fire.
func (l *Ledger) Flush() {
	l.scheduler.Stop()
	l.flush()
}

// Version increases whenever the ledger contents change. The filter uses it
// to invalidate its memo.
func (l *Ledger) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// hydrateLocked loads the persisted ledger on first access. Corrupt or
// unreadable data degrades to an empty ledger.
func (l *Ledger) hydrateLocked() {
	if l.hydrated {
		return
	}
	l.hydrated = true
	l.version++

	data, ok, err := l.store.Get(ledgerKey)
	if err != nil {
		logger.Warnf("hydrating ledger: %v", err)
		return
	}
	if !ok {
		return
	}

	var entries []Suggestion
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warnf("discarding corrupt ledger: %v", err)
		if err := l.store.Delete(ledgerKey); err != nil {
			logger.Warnf("deleting corrupt ledger: %v", err)
		}
		return
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	l.entries = entries
}

// flush persists the current ledger. Failures are logged and swallowed; the
// ledger simply stays memory-only until the next flush attempt.
func (l *Ledger) flush() {
	l.mu.Lock()
	snapshot := make([]Suggestion, len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		logger.Errorf("marshaling ledger: %v", err)
		return
	}
	if err := l.store.Set(ledgerKey, data); err != nil {
		logger.Warnf("persisting ledger (degrading to memory-only): %v",
			fmt.Errorf("writing %s: %w", ledgerKey, err))
	}
}
