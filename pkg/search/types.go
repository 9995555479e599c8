// Package search defines the data model shared by the query cache, the
// request controller and the provider client: search parameters, products,
// pagination and the provider response envelope.
//
// SearchParams carries everything that identifies one logical search.
// Normalized parameters double as cache identity, so two searches that only
// differ in query casing or surrounding whitespace hit the same cache entry.
package search

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// SearchParams represents all parameters for a product search.
type SearchParams struct {
	// Query is the free-text search term.
	Query string `json:"q"`

	// Page is the 1-based result page. Zero means page 1.
	Page int `json:"page"`

	// Retailer selects the upstream retailer catalog to search.
	Retailer string `json:"retailer"`

	// MinPrice and MaxPrice are optional price filters. A nil pointer means
	// the filter is unset, which is distinct from an explicit 0.
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
}

// Product is a single storefront search result.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	URL         string  `json:"url,omitempty"`
	Retailer    string  `json:"retailer,omitempty"`
}

// Pagination describes the position of a response within the full result set.
type Pagination struct {
	Page         int  `json:"page"`
	TotalPages   int  `json:"total_pages"`
	TotalResults int  `json:"total_results"`
	HasNext      bool `json:"has_next"`
}

// SearchData is the payload of a successful provider response.
type SearchData struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
	Query      string     `json:"query"`
	Retailer   string     `json:"retailer"`
}

// ResponseMeta carries diagnostic information about how a response was
// produced. Degraded is set when the provider was unreachable and a
// placeholder result was substituted.
type ResponseMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Degraded  bool      `json:"degraded,omitempty"`
}

// SearchResponse is the provider response envelope.
type SearchResponse struct {
	Success bool         `json:"success"`
	Data    SearchData   `json:"data"`
	Meta    ResponseMeta `json:"meta,omitempty"`
}

// folder lower-cases queries for identity purposes. Unicode case folding
// rather than ASCII lowering so "Straße" and "STRASSE" collapse the same way.
var folder = cases.Fold()

// FoldQuery returns the canonical form of a query for identity comparisons:
// whitespace-trimmed and case-folded.
func FoldQuery(q string) string {
	return folder.String(strings.TrimSpace(q))
}

// Normalize returns a copy of p with the query trimmed and folded and the
// page clamped to at least 1. Cache keys and ledger identities are always
// computed from normalized params.
func (p SearchParams) Normalize() SearchParams {
	p.Query = FoldQuery(p.Query)
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}

// CacheKey returns the cache identity of p. The key is total over the whole
// input domain and injective: every field participates, strings are escaped
// so separators cannot collide, and unset price filters encode as an empty
// field, distinct from an explicit "0".
func (p SearchParams) CacheKey() string {
	n := p.Normalize()
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(url.QueryEscape(n.Query))
	b.WriteString("&page=")
	b.WriteString(strconv.Itoa(n.Page))
	b.WriteString("&retailer=")
	b.WriteString(url.QueryEscape(n.Retailer))
	b.WriteString("&min=")
	b.WriteString(formatPrice(n.MinPrice))
	b.WriteString("&max=")
	b.WriteString(formatPrice(n.MaxPrice))
	return b.String()
}

func formatPrice(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Values encodes p as URL query parameters for the provider wire call.
func (p SearchParams) Values() url.Values {
	n := p.Normalize()
	values := url.Values{}
	values.Set("q", n.Query)
	values.Set("page", strconv.Itoa(n.Page))
	if n.Retailer != "" {
		values.Set("retailer", n.Retailer)
	}
	if n.MinPrice != nil {
		values.Set("min_price", formatPrice(n.MinPrice))
	}
	if n.MaxPrice != nil {
		values.Set("max_price", formatPrice(n.MaxPrice))
	}
	return values
}
