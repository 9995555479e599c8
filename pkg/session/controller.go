// Package session owns the state of "the current search": one controller
// instance tracks loading/loading-more/error state, the accumulated product
// list and pagination, and guarantees that only the most recently initiated
// search can settle into that state.
//
// Supersession uses both layers described by the provider contract: the
// in-flight request's context is cancelled when a newer search starts, and
// regardless of whether the transport honors the cancellation, a generation
// check at settlement time drops stale results on the floor.
package session

import (
	"context"
	"sync"

	"github.com/lumenshop/searchkit/pkg/log"
	"github.com/lumenshop/searchkit/pkg/search"
)

var logger = log.ForComponent("session")

// Provider is the external search backend. SearchProducts must honor
// context cancellation on a best-effort basis.
type Provider interface {
	SearchProducts(ctx context.Context, params search.SearchParams) (*search.SearchResponse, error)
}

// ResponseCache is the subset of the query cache the controller consults.
// Page-1 lookups go through Get before any network call; successful network
// responses are written through with Save.
type ResponseCache interface {
	Get(params search.SearchParams) *search.SearchResponse
	Save(params search.SearchParams, response *search.SearchResponse)
}

// State is the session state exposed to presentation consumers. Products is
// append-only across LoadMore calls and replaced wholesale by a new search.
type State struct {
	IsLoading     bool
	IsLoadingMore bool
	Err           error
	Products      []search.Product
	HasMore       bool
	CurrentPage   int
	TotalPages    int
	TotalResults  int
	LastParams    *search.SearchParams
}

// Listener receives a state snapshot after every state change.
type Listener func(State)

// Controller orchestrates a single logical current search.
type Controller struct {
	provider Provider
	cache    ResponseCache

	mu          sync.Mutex
	state       State
	generation  uint64
	cancel      context.CancelFunc
	loadingMore bool
	listeners   []Listener
}

// New creates a controller. cache may be nil to disable cache consultation.
func New(provider Provider, cache ResponseCache) *Controller {
	return &Controller{
		provider: provider,
		cache:    cache,
	}
}

// Subscribe registers a listener for state snapshots. Listeners are invoked
// synchronously, outside the controller lock, after every change.
func (c *Controller) Subscribe(fn Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.copy()
}

// Search runs a fresh search. Any in-flight request is cancelled and its
// eventual settlement is ignored. On a cache hit the cached response is
// adopted synchronously with no network call. On failure the product list is
// cleared: a failed fresh search shows an error, not stale data.
//
// A superseded search returns nil; being replaced by a newer search is not
// an error.
func (c *Controller) Search(ctx context.Context, params search.SearchParams) error {
	params = params.Normalize()

	c.mu.Lock()
	c.generation++
	generation := c.generation
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loadingMore = false

	paramsCopy := params
	c.state.LastParams = &paramsCopy
	c.state.IsLoading = true
	c.state.IsLoadingMore = false
	c.state.Err = nil
	c.mu.Unlock()
	c.notify()

	if c.cache != nil {
		if cached := c.cache.Get(params); cached != nil {
			c.adopt(generation, params, cached)
			return nil
		}
	}

	reqCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		cancel()
		return nil
	}
	c.cancel = cancel
	c.mu.Unlock()

	response, err := c.provider.SearchProducts(reqCtx, params)
	cancel()

	if err != nil {
		c.mu.Lock()
		if generation != c.generation {
			c.mu.Unlock()
			logger.Debugf("ignoring settlement of superseded search %q", params.Query)
			return nil
		}
		c.state.IsLoading = false
		c.state.Err = err
		c.state.Products = nil
		c.state.HasMore = false
		c.mu.Unlock()
		c.notify()
		return err
	}

	if c.cache != nil && c.stillCurrent(generation) {
		c.cache.Save(params, response)
	}
	c.adopt(generation, params, response)
	return nil
}

// LoadMore fetches the next page and appends it to the current product
// list. It is a no-op when there is nothing more to load or a load-more is
// already in flight. On failure the already-displayed products are retained.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if !c.state.HasMore || c.loadingMore || c.state.LastParams == nil {
		c.mu.Unlock()
		return nil
	}
	generation := c.generation
	c.loadingMore = true
	c.state.IsLoadingMore = true
	c.state.Err = nil
	params := *c.state.LastParams
	params.Page = c.state.CurrentPage + 1
	c.mu.Unlock()
	c.notify()

	// Subsequent pages skip the cache check; only page-1 lookups are
	// guaranteed cache-consulted.
	response, err := c.provider.SearchProducts(ctx, params)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		logger.Debugf("ignoring settlement of superseded load-more %q", params.Query)
		return nil
	}
	c.loadingMore = false

	if err != nil {
		c.state.IsLoadingMore = false
		c.state.Err = err
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.state.IsLoadingMore = false
	c.state.Products = append(c.state.Products, response.Data.Products...)
	c.state.HasMore = response.Data.Pagination.HasNext
	c.state.CurrentPage = response.Data.Pagination.Page
	c.state.TotalPages = response.Data.Pagination.TotalPages
	c.state.TotalResults = response.Data.Pagination.TotalResults
	c.mu.Unlock()
	c.notify()

	if c.cache != nil {
		c.cache.Save(params, response)
	}
	return nil
}

// ClearResults resets the session to idle. The cache and ledger are left
// untouched.
func (c *Controller) ClearResults() {
	c.mu.Lock()
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loadingMore = false
	c.state = State{}
	c.mu.Unlock()
	c.notify()
}

// Retry re-issues the last search. No-op when nothing has been searched yet.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	params := c.state.LastParams
	c.mu.Unlock()

	if params == nil {
		return nil
	}
	return c.Search(ctx, *params)
}

// adopt applies a settled response to the session state, unless a newer
// search has taken over in the meantime.
func (c *Controller) adopt(generation uint64, params search.SearchParams, response *search.SearchResponse) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		logger.Debugf("ignoring settlement of superseded search %q", params.Query)
		return
	}
	c.cancel = nil
	c.state.IsLoading = false
	c.state.Err = nil
	c.state.Products = append([]search.Product(nil), response.Data.Products...)
	c.state.HasMore = response.Data.Pagination.HasNext
	c.state.CurrentPage = response.Data.Pagination.Page
	c.state.TotalPages = response.Data.Pagination.TotalPages
	c.state.TotalResults = response.Data.Pagination.TotalResults
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) stillCurrent(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation == c.generation
}

// notify delivers a snapshot to every listener, outside the lock.
func (c *Controller) notify() {
	c.mu.Lock()
	snapshot := c.state.copy()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (s State) copy() State {
	out := s
	out.Products = append([]search.Product(nil), s.Products...)
	if s.LastParams != nil {
		params := *s.LastParams
		out.LastParams = &params
	}
	return out
}
