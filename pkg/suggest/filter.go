package suggest

import (
	"strings"
	"sync"

	"github.com/lumenshop/searchkit/pkg/search"
)

const (
	// MaxResults caps the number of suggestions a filter call returns.
	MaxResults = 8

	// narrowFloor is the minimum number of starts-with matches the
	// prefix-narrowing fast path may produce. Narrowing an already-filtered
	// set can never recover "contains" matches the previous pass cut off, so
	// below this floor the filter re-scans the full ledger.
	narrowFloor = 3
)

// Filter ranks ledger entries against a partial query. Results put
// starts-with matches before contains matches, preserving ledger recency
// order within each group.
//
// Calls with an unchanged query return the memoized slice without
// recomputation. A call whose query extends the immediately preceding one
// narrows the previous result directly when that is provably safe.
type Filter struct {
	ledger *Ledger

	mu          sync.Mutex
	memoQuery   string
	memoResult  []Suggestion
	memoVersion uint64
	memoValid   bool
}

// NewFilter creates a filter over ledger.
func NewFilter(ledger *Ledger) *Filter {
	return &Filter{ledger: ledger}
}

// Filter returns at most MaxResults suggestions for the partial query.
// An empty query returns the most recent ledger entries unchanged.
func (f *Filter) Filter(query string) []Suggestion {
	folded := search.FoldQuery(query)
	version := f.ledger.Version()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.memoValid && f.memoVersion == version && f.memoQuery == folded {
		return f.memoResult
	}

	var result []Suggestion
	if f.memoValid && f.memoVersion == version && f.canNarrowLocked(folded) {
		result = narrow(f.memoResult, folded)
	}
	if result == nil {
		result = scan(f.ledger.List(), folded)
	}

	f.memoQuery = folded
	f.memoResult = result
	f.memoVersion = version
	f.memoValid = true
	return result
}

// Invalidate drops the memo. The next call recomputes from the ledger.
func (f *Filter) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memoValid = false
}

// canNarrowLocked reports whether folded extends the memoized query and the
// narrowed set would retain at least narrowFloor starts-with matches.
func (f *Filter) canNarrowLocked(folded string) bool {
	if f.memoQuery == "" || folded == f.memoQuery {
		return false
	}
	if !strings.HasPrefix(folded, f.memoQuery) {
		return false
	}

	startsWith := 0
	for _, s := range f.memoResult {
		if strings.HasPrefix(s.Query, folded) {
			startsWith++
		}
	}
	return startsWith >= narrowFloor
}

// narrow filters the cached result set against the extended query,
// re-partitioning so starts-with matches stay ahead of contains matches.
func narrow(cached []Suggestion, folded string) []Suggestion {
	var prefixed, contained []Suggestion
	for _, s := range cached {
		switch {
		case strings.HasPrefix(s.Query, folded):
			prefixed = append(prefixed, s)
		case strings.Contains(s.Query, folded):
			contained = append(contained, s)
		}
	}
	return rank(prefixed, contained)
}

// scan performs a full pass over the ledger.
func scan(entries []Suggestion, folded string) []Suggestion {
	if folded == "" {
		if len(entries) > MaxResults {
			entries = entries[:MaxResults]
		}
		return entries
	}

	var prefixed, contained []Suggestion
	for _, s := range entries {
		switch {
		case strings.HasPrefix(s.Query, folded):
			prefixed = append(prefixed, s)
		case strings.Contains(s.Query, folded):
			contained = append(contained, s)
		}
	}
	return rank(prefixed, contained)
}

func rank(prefixed, contained []Suggestion) []Suggestion {
	result := make([]Suggestion, 0, len(prefixed)+len(contained))
	result = append(result, prefixed...)
	result = append(result, contained...)
	if len(result) > MaxResults {
		result = result[:MaxResults]
	}
	return result
}
