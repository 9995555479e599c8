package suggest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lumenshop/searchkit/pkg/schedule"
	"github.com/lumenshop/searchkit/pkg/storage"
)

func newTestLedger() (*Ledger, *storage.MemoryStore, *schedule.Manual) {
	store := storage.NewMemoryStore(0)
	scheduler := schedule.NewManual()
	return NewLedger(store, scheduler), store, scheduler
}

func queries(entries []Suggestion) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Query
	}
	return out
}

func TestRecordMoveToFront(t *testing.T) {
	ledger, _, _ := newTestLedger()

	ledger.Record("shoes", 10)
	ledger.Record("hats", 5)
	ledger.Record("shoes", 12)

	got := queries(ledger.List())
	if len(got) != 2 {
		t.Fatalf("expected 2 entries (deduplicated), got %v", got)
	}
	if got[0] != "shoes" || got[1] != "hats" {
		t.Errorf("expected [shoes hats], got %v", got)
	}

	if count := ledger.List()[0].ResultCount; count != 12 {
		t.Errorf("expected refreshed result count 12, got %d", count)
	}
}

func TestRecordFoldsIdentity(t *testing.T) {
	ledger, _, _ := newTestLedger()

	ledger.Record("  Blue Shoes ", 3)
	ledger.Record("blue shoes", 4)

	got := queries(ledger.List())
	if len(got) != 1 || got[0] != "blue shoes" {
		t.Errorf("expected case/whitespace variants to collapse, got %v", got)
	}
}

func TestRecordIgnoresEmpty(t *testing.T) {
	ledger, _, _ := newTestLedger()

	ledger.Record("", 1)
	ledger.Record("   ", 1)

	if got := ledger.List(); len(got) != 0 {
		t.Errorf("expected empty ledger, got %v", queries(got))
	}
}

func TestLedgerBounded(t *testing.T) {
	ledger, _, _ := newTestLedger()

	for i := 0; i < MaxEntries+5; i++ {
		ledger.Record(string(rune('a'+i)), i)
	}

	got := ledger.List()
	if len(got) != MaxEntries {
		t.Fatalf("expected ledger bounded to %d, got %d", MaxEntries, len(got))
	}
	// Most recent first; the oldest five were dropped.
	if got[0].Query != string(rune('a'+MaxEntries+4)) {
		t.Errorf("expected newest entry first, got %q", got[0].Query)
	}
	if got[len(got)-1].Query != string(rune('a'+5)) {
		t.Errorf("expected oldest surviving entry last, got %q", got[len(got)-1].Query)
	}
}

func TestFlushIsDeferred(t *testing.T) {
	ledger, store, scheduler := newTestLedger()

	ledger.Record("shoes", 10)

	if _, ok, _ := store.Get("suggestions:v1"); ok {
		t.Fatal("ledger flushed synchronously inside Record")
	}

	scheduler.Fire()

	data, ok, err := store.Get("suggestions:v1")
	if err != nil || !ok {
		t.Fatalf("expected persisted ledger after flush, hit=%v err=%v", ok, err)
	}
	var persisted []Suggestion
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshaling persisted ledger: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Query != "shoes" {
		t.Errorf("unexpected persisted ledger: %+v", persisted)
	}
}

func TestFlushCoalesces(t *testing.T) {
	ledger, store, scheduler := newTestLedger()

	ledger.Record("shoes", 1)
	ledger.Record("hats", 2)
	ledger.Record("socks", 3)
	scheduler.Fire()

	data, ok, _ := store.Get("suggestions:v1")
	if !ok {
		t.Fatal("expected persisted ledger")
	}
	var persisted []Suggestion
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshaling: %v", err)
	}
	if len(persisted) != 3 {
		t.Errorf("expected a single flush to carry all three records, got %v", queries(persisted))
	}
}

func TestFlushImmediate(t *testing.T) {
	ledger, store, scheduler := newTestLedger()

	ledger.Record("shoes", 10)
	ledger.Flush()

	data, ok, err := store.Get("suggestions:v1")
	if err != nil || !ok {
		t.Fatalf("expected persisted ledger after Flush, hit=%v err=%v", ok, err)
	}
	var persisted []Suggestion
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshaling: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Query != "shoes" {
		t.Errorf("unexpected persisted ledger: %+v", persisted)
	}
	if scheduler.Pending() {
		t.Error("Flush should cancel the scheduled deferred flush")
	}
}

func TestHydration(t *testing.T) {
	store := storage.NewMemoryStore(0)
	seed := []Suggestion{
		{Query: "shoes", Timestamp: time.Now(), ResultCount: 4},
		{Query: "hats", Timestamp: time.Now(), ResultCount: 2},
	}
	data, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshaling seed: %v", err)
	}
	if err := store.Set("suggestions:v1", data); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	ledger := NewLedger(store, schedule.NewManual())

	got := queries(ledger.List())
	if len(got) != 2 || got[0] != "shoes" || got[1] != "hats" {
		t.Errorf("expected hydrated ledger [shoes hats], got %v", got)
	}
}

func TestHydrationCorruptDataDegradesToEmpty(t *testing.T) {
	store := storage.NewMemoryStore(0)
	if err := store.Set("suggestions:v1", []byte("{not json")); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	ledger := NewLedger(store, schedule.NewManual())

	if got := ledger.List(); len(got) != 0 {
		t.Errorf("expected empty ledger for corrupt data, got %v", queries(got))
	}
	// Corrupt payload is deleted so the next flush starts clean.
	if _, ok, _ := store.Get("suggestions:v1"); ok {
		t.Error("expected corrupt ledger payload to be deleted")
	}
}

func TestFlushFailureIsSwallowed(t *testing.T) {
	ledger, store, scheduler := newTestLedger()
	store.FailWrites(true)

	ledger.Record("shoes", 1)
	scheduler.Fire()

	// The failed flush must not disturb the in-memory ledger.
	if got := queries(ledger.List()); len(got) != 1 || got[0] != "shoes" {
		t.Errorf("in-memory ledger lost after failed flush: %v", got)
	}
}

func TestClear(t *testing.T) {
	ledger, store, scheduler := newTestLedger()

	ledger.Record("shoes", 1)
	scheduler.Fire()
	ledger.Clear()

	if got := ledger.List(); len(got) != 0 {
		t.Errorf("expected empty ledger after Clear, got %v", queries(got))
	}
	if _, ok, _ := store.Get("suggestions:v1"); ok {
		t.Error("expected persisted ledger removed after Clear")
	}
}
