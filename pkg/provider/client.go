// Package provider implements the remote search API client. It is the only
// networked component: the session controller calls it through the
// session.Provider interface and everything else stays local.
//
// Requests are cancellable through their context. A 404 from the provider is
// treated as "provider unavailable" and substituted with a degraded empty
// result set rather than an error, so the storefront can render an empty
// state instead of a failure.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/lumenshop/searchkit/pkg/log"
	"github.com/lumenshop/searchkit/pkg/search"
)

var logger = log.ForComponent("provider")

const defaultTimeout = 30 * time.Second

// Client talks to the remote commerce/search REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL. A non-empty token is
// sent as a bearer token on every request.
func NewClient(baseURL, token string) *Client {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = defaultTimeout
	} else {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SearchProducts runs one search against the provider. The call aborts when
// ctx is cancelled.
func (c *Client) SearchProducts(ctx context.Context, params search.SearchParams) (*search.SearchResponse, error) {
	requestID := uuid.New().String()
	endpoint := c.baseURL + "/search?" + params.Values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", params.Query, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("closing response body: %v", err)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		logger.Warnf("provider unavailable for %q (404), substituting empty result set", params.Query)
		return degradedResponse(params, requestID), nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searching %q: provider returned %s", params.Query, resp.Status)
	}

	var searchResp search.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	if searchResp.Meta.RequestID == "" {
		searchResp.Meta.RequestID = requestID
	}
	return &searchResp, nil
}

// BaseURL returns the configured API root, mainly for diagnostics.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// degradedResponse is the placeholder returned when the provider is
// unreachable: a successful, empty, clearly-marked result set.
func degradedResponse(params search.SearchParams, requestID string) *search.SearchResponse {
	n := params.Normalize()
	return &search.SearchResponse{
		Success: true,
		Data: search.SearchData{
			Products: []search.Product{},
			Pagination: search.Pagination{
				Page:       n.Page,
				TotalPages: n.Page,
			},
			Query:    n.Query,
			Retailer: n.Retailer,
		},
		Meta: search.ResponseMeta{
			RequestID: requestID,
			Timestamp: time.Now(),
			Degraded:  true,
		},
	}
}
