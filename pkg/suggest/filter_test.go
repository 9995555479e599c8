package suggest

import (
	"fmt"
	"testing"
)

func ledgerWith(entries ...string) *Ledger {
	ledger, _, _ := newTestLedger()
	// Record oldest first so the first argument ends up oldest.
	for i, q := range entries {
		ledger.Record(q, i+1)
	}
	return ledger
}

func TestFilterEmptyQueryReturnsRecent(t *testing.T) {
	ledger := ledgerWith("one", "two", "three")
	filter := NewFilter(ledger)

	got := queries(filter.Filter(""))
	if len(got) != 3 || got[0] != "three" || got[2] != "one" {
		t.Errorf("expected recency order [three two one], got %v", got)
	}
}

func TestFilterEmptyQueryCapped(t *testing.T) {
	ledger, _, _ := newTestLedger()
	for i := 0; i < 12; i++ {
		ledger.Record(fmt.Sprintf("query %d", i), 1)
	}
	filter := NewFilter(ledger)

	got := filter.Filter("")
	if len(got) != MaxResults {
		t.Errorf("expected %d results for empty query, got %d", MaxResults, len(got))
	}
	if got[0].Query != "query 11" {
		t.Errorf("expected most recent first, got %q", got[0].Query)
	}
}

func TestFilterRanksPrefixBeforeContains(t *testing.T) {
	// Ledger recency order: [blue hat, red hat, blue shoes].
	ledger := ledgerWith("blue shoes", "red hat", "blue hat")
	filter := NewFilter(ledger)

	got := queries(filter.Filter("blue"))
	if len(got) != 2 || got[0] != "blue hat" || got[1] != "blue shoes" {
		t.Errorf("filtering on %q: expected [blue hat blue shoes], got %v", "blue", got)
	}

	got = queries(filter.Filter("hat"))
	if len(got) != 2 || got[0] != "blue hat" || got[1] != "red hat" {
		t.Errorf("filtering on %q: expected ledger-order contains [blue hat red hat], got %v", "hat", got)
	}
}

func TestFilterMixedPartition(t *testing.T) {
	// "shoe" starts two entries and appears inside a third.
	ledger := ledgerWith("snowshoe kit", "shoe rack", "shoes")
	filter := NewFilter(ledger)

	got := queries(filter.Filter("shoe"))
	expected := []string{"shoes", "shoe rack", "snowshoe kit"}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("position %d: expected %q, got %q", i, expected[i], got[i])
		}
	}
}

func TestFilterCaseInsensitive(t *testing.T) {
	ledger := ledgerWith("Blue Shoes")
	filter := NewFilter(ledger)

	if got := filter.Filter("BLUE"); len(got) != 1 {
		t.Errorf("expected case-insensitive match, got %v", queries(got))
	}
}

func TestFilterMemoizesIdenticalQuery(t *testing.T) {
	ledger := ledgerWith("blue shoes", "blue hat")
	filter := NewFilter(ledger)

	first := filter.Filter("blue")
	second := filter.Filter("blue")

	if len(first) == 0 || len(second) == 0 {
		t.Fatal("expected non-empty results")
	}
	if &first[0] != &second[0] {
		t.Error("expected repeated calls to return the referentially cached result")
	}
}

func TestFilterMemoInvalidatedByRecord(t *testing.T) {
	ledger := ledgerWith("blue shoes")
	filter := NewFilter(ledger)

	if got := filter.Filter("blue"); len(got) != 1 {
		t.Fatalf("unexpected initial results: %v", queries(got))
	}

	ledger.Record("blue hat", 2)

	got := queries(filter.Filter("blue"))
	if len(got) != 2 || got[0] != "blue hat" {
		t.Errorf("expected memo invalidation after Record, got %v", got)
	}
}

func TestFilterNarrowingFallbackRecoversContainsMatches(t *testing.T) {
	// Oldest entry "xsand" only matches "sand" as a contains match. Seven
	// "salt" entries plus two "sand" entries start with "sa", so filtering
	// on "sa" caps at 8 results and cuts "xsand" from the cached set.
	entries := []string{"xsand"}
	for i := 1; i <= 7; i++ {
		entries = append(entries, fmt.Sprintf("salt %d", i))
	}
	entries = append(entries, "sand a", "sand b")
	ledger := ledgerWith(entries...)
	filter := NewFilter(ledger)

	if got := filter.Filter("sa"); len(got) != MaxResults {
		t.Fatalf("expected capped cached set, got %v", queries(got))
	}

	// Extending to "sand" leaves only two starts-with matches in the cached
	// set, below the narrowing floor, so the filter must re-scan the ledger
	// and recover "xsand".
	got := queries(filter.Filter("sand"))
	expected := map[string]bool{"sand b": true, "sand a": true, "xsand": true}
	if len(got) != 3 {
		t.Fatalf("expected 3 results after rescan, got %v", got)
	}
	for _, q := range got {
		if !expected[q] {
			t.Errorf("unexpected result %q in %v", q, got)
		}
	}
	if got[len(got)-1] != "xsand" {
		t.Errorf("expected contains match ranked last, got %v", got)
	}
}

func TestFilterNarrowingFastPath(t *testing.T) {
	// Three "sand" entries keep the narrowed set at the floor, so the fast
	// path may narrow the cached result directly. "xsand" was cut from the
	// cached set by the cap and stays absent, which is the documented
	// fast-path trade-off.
	entries := []string{"xsand"}
	for i := 1; i <= 6; i++ {
		entries = append(entries, fmt.Sprintf("salt %d", i))
	}
	entries = append(entries, "sand a", "sand b", "sand c")
	ledger := ledgerWith(entries...)
	filter := NewFilter(ledger)

	if got := filter.Filter("sa"); len(got) != MaxResults {
		t.Fatalf("expected capped cached set, got %v", queries(got))
	}

	got := queries(filter.Filter("sand"))
	if len(got) != 3 {
		t.Fatalf("expected the three narrowed entries, got %v", got)
	}
	for _, q := range got {
		if q == "xsand" {
			t.Errorf("narrowing fast path unexpectedly rescanned: %v", got)
		}
	}
}

func TestFilterInvalidate(t *testing.T) {
	ledger := ledgerWith("blue shoes")
	filter := NewFilter(ledger)

	first := filter.Filter("blue")
	filter.Invalidate()
	second := filter.Filter("blue")

	if len(first) != 1 || len(second) != 1 {
		t.Fatal("expected single results")
	}
	if &first[0] == &second[0] {
		t.Error("expected recomputation after Invalidate")
	}
}
