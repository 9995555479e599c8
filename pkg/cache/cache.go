// Package cache persists completed search responses keyed by normalized
// search parameters, with time-based expiry and capacity-based eviction.
//
// The cache sits on the storage.Store port and treats every persistence
// failure as a degraded cache miss: Save swallows and logs write errors, Get
// deletes and ignores anything that fails to decode. Entries are
// zstd-compressed before hitting the quota-bounded medium.
//
// A successful page-1 save also records the query in the suggestion ledger,
// which is how autocomplete history gets populated.
package cache

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/lumenshop/searchkit/pkg/log"
	"github.com/lumenshop/searchkit/pkg/search"
	"github.com/lumenshop/searchkit/pkg/storage"
)

const (
	// DefaultTTL is how long a cached response stays valid.
	DefaultTTL = 30 * 24 * time.Hour

	// DefaultMaxEntries caps the number of live cache entries; the oldest
	// beyond the cap are evicted after every save.
	DefaultMaxEntries = 100

	// keyPrefix namespaces cache entries within the shared store.
	keyPrefix = "search:"
)

var logger = log.ForComponent("cache")

// Recorder receives the query of every successful page-1 save. The
// suggestion ledger implements it.
type Recorder interface {
	Record(query string, resultCount int)
	Clear()
}

// Entry is the persisted form of one cached search response.
type Entry struct {
	Query     string                `json:"query"`
	Params    search.SearchParams   `json:"params"`
	Response  search.SearchResponse `json:"response"`
	CreatedAt time.Time             `json:"created_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// Valid reports whether the entry is still live at the given time.
func (e *Entry) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Stats describes the cache contents. Best-effort accuracy only.
type Stats struct {
	Entries    int
	TotalBytes int64
	Oldest     time.Time
	Newest     time.Time
}

// QueryCache is the durable, expiring, capacity-bounded response cache.
type QueryCache struct {
	store      storage.Store
	recorder   Recorder
	ttl        time.Duration
	maxEntries int

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	now func() time.Time
}

// New creates a QueryCache over store. recorder may be nil when suggestion
// recording is not wanted. Zero ttl/maxEntries select the defaults.
func New(store storage.Store, recorder Recorder, ttl time.Duration, maxEntries int) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	// Stateless zstd codecs; neither constructor can fail with nil input.
	encoder, _ := zstd.NewWriter(nil)
	decoder, _ := zstd.NewReader(nil)

	return &QueryCache{
		store:      store,
		recorder:   recorder,
		ttl:        ttl,
		maxEntries: maxEntries,
		encoder:    encoder,
		decoder:    decoder,
		now:        time.Now,
	}
}

// Save persists the response under the normalized params key and runs
// cleanup. For page-1 (or unspecified-page) params it also records the query
// in the suggestion ledger. Save never fails: persistence errors are logged
// and the cache degrades to miss behavior.
func (c *QueryCache) Save(params search.SearchParams, response *search.SearchResponse) {
	if response == nil {
		return
	}
	normalized := params.Normalize()

	if c.recorder != nil && params.Page <= 1 {
		c.recorder.Record(normalized.Query, len(response.Data.Products))
	}

	now := c.now()
	entry := Entry{
		Query:     normalized.Query,
		Params:    normalized,
		Response:  *response,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	payload, err := c.encode(&entry)
	if err != nil {
		logger.Errorf("encoding cache entry for %q: %v", normalized.Query, err)
		return
	}
	if err := c.store.Set(keyPrefix+normalized.CacheKey(), payload); err != nil {
		logger.Warnf("persisting cache entry for %q (degrading to miss): %v", normalized.Query, err)
	}

	c.cleanup()
}

// Get returns the cached response for params, or nil on miss, decode failure
// or expiry. Stale and undecodable entries are deleted on the way out.
func (c *QueryCache) Get(params search.SearchParams) *search.SearchResponse {
	key := keyPrefix + params.Normalize().CacheKey()

	payload, ok, err := c.store.Get(key)
	if err != nil {
		logger.Warnf("reading cache entry: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	entry, err := c.decode(payload)
	if err != nil {
		logger.Warnf("discarding undecodable cache entry: %v", err)
		c.deleteQuietly(key)
		return nil
	}
	if !entry.Valid(c.now()) {
		c.deleteQuietly(key)
		return nil
	}

	response := entry.Response
	return &response
}

// Clear deletes every cache entry and the suggestion ledger.
func (c *QueryCache) Clear() {
	keys, err := c.store.Keys(keyPrefix)
	if err != nil {
		logger.Warnf("enumerating cache entries for clear: %v", err)
	}
	for _, key := range keys {
		c.deleteQuietly(key)
	}
	if c.recorder != nil {
		c.recorder.Clear()
	}
}

// Stats reports entry count, approximate serialized size and the age range
// of live entries.
func (c *QueryCache) Stats() Stats {
	var stats Stats
	for _, live := range c.scan() {
		stats.Entries++
		stats.TotalBytes += live.size
		if stats.Oldest.IsZero() || live.createdAt.Before(stats.Oldest) {
			stats.Oldest = live.createdAt
		}
		if live.createdAt.After(stats.Newest) {
			stats.Newest = live.createdAt
		}
	}
	return stats
}

// liveEntry is the cleanup/stats view of one stored entry.
type liveEntry struct {
	key       string
	createdAt time.Time
	size      int64
}

// cleanup deletes expired entries, then evicts oldest-by-creation entries
// until the live count is at or under the cap. Invoked after every save.
func (c *QueryCache) cleanup() {
	live := c.scan()
	if len(live) <= c.maxEntries {
		return
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].createdAt.Before(live[j].createdAt)
	})
	excess := len(live) - c.maxEntries
	for _, victim := range live[:excess] {
		c.deleteQuietly(victim.key)
	}
	logger.Debugf("evicted %d entries over capacity %d", excess, c.maxEntries)
}

// scan walks all stored entries, deleting expired and undecodable ones, and
// returns the live remainder.
func (c *QueryCache) scan() []liveEntry {
	keys, err := c.store.Keys(keyPrefix)
	if err != nil {
		logger.Warnf("enumerating cache entries: %v", err)
		return nil
	}

	now := c.now()
	var live []liveEntry
	for _, key := range keys {
		payload, ok, err := c.store.Get(key)
		if err != nil || !ok {
			continue
		}
		entry, err := c.decode(payload)
		if err != nil {
			c.deleteQuietly(key)
			continue
		}
		if !entry.Valid(now) {
			c.deleteQuietly(key)
			continue
		}
		live = append(live, liveEntry{
			key:       key,
			createdAt: entry.CreatedAt,
			size:      int64(len(payload)),
		})
	}
	return live
}

func (c *QueryCache) encode(entry *Entry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return c.encoder.EncodeAll(data, nil), nil
}

func (c *QueryCache) decode(payload []byte) (*Entry, error) {
	data, err := c.decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *QueryCache) deleteQuietly(key string) {
	if err := c.store.Delete(key); err != nil {
		logger.Warnf("deleting cache entry %q: %v", key, err)
	}
}
