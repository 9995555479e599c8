package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lumenshop/searchkit/pkg/search"
)

func TestSearchProducts(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()

		resp := search.SearchResponse{
			Success: true,
			Data: search.SearchData{
				Products: []search.Product{
					{ID: "p1", Title: "Trail Shoes", Price: 89.99, Retailer: "acme"},
					{ID: "p2", Title: "Road Shoes", Price: 120.00, Retailer: "acme"},
				},
				Pagination: search.Pagination{Page: 1, TotalPages: 3, TotalResults: 25, HasNext: true},
				Query:      "shoes",
				Retailer:   "acme",
			},
			Meta: search.ResponseMeta{RequestID: "server-id-1", Timestamp: time.Now()},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	resp, err := client.SearchProducts(context.Background(), search.SearchParams{
		Query:    "shoes",
		Page:     1,
		Retailer: "acme",
	})
	if err != nil {
		t.Fatalf("SearchProducts failed: %v", err)
	}

	if gotPath != "/search" {
		t.Errorf("expected request path /search, got %q", gotPath)
	}
	if q := gotQuery["q"]; len(q) != 1 || q[0] != "shoes" {
		t.Errorf("expected q=shoes on the wire, got %v", gotQuery["q"])
	}
	if r := gotQuery["retailer"]; len(r) != 1 || r[0] != "acme" {
		t.Errorf("expected retailer=acme on the wire, got %v", gotQuery["retailer"])
	}

	if !resp.Success {
		t.Error("expected successful response")
	}
	if len(resp.Data.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(resp.Data.Products))
	}
	if resp.Data.Products[0].Title != "Trail Shoes" {
		t.Errorf("unexpected first product: %+v", resp.Data.Products[0])
	}
	if !resp.Data.Pagination.HasNext {
		t.Error("expected HasNext to survive decoding")
	}
	if resp.Meta.RequestID != "server-id-1" {
		t.Errorf("expected server request ID to be kept, got %q", resp.Meta.RequestID)
	}
	if resp.Meta.Degraded {
		t.Error("successful response should not be marked degraded")
	}
}

func TestSearchProductsFillsRequestID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No meta at all from this provider.
		if _, err := w.Write([]byte(`{"success":true,"data":{"products":[]}}`)); err != nil {
			t.Errorf("writing response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	resp, err := client.SearchProducts(context.Background(), search.SearchParams{Query: "shoes"})
	if err != nil {
		t.Fatalf("SearchProducts failed: %v", err)
	}
	if resp.Meta.RequestID == "" {
		t.Error("expected client to assign a request ID when the provider omits one")
	}
}

func TestSearchProductsNotFoundDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	resp, err := client.SearchProducts(context.Background(), search.SearchParams{Query: "Shoes ", Page: 2})
	if err != nil {
		t.Fatalf("404 should not be an error, got: %v", err)
	}

	if !resp.Success {
		t.Error("degraded response should still report success")
	}
	if !resp.Meta.Degraded {
		t.Error("expected Degraded flag on 404 placeholder")
	}
	if resp.Meta.RequestID == "" {
		t.Error("degraded response should carry a request ID")
	}
	if len(resp.Data.Products) != 0 {
		t.Errorf("expected empty product list, got %d", len(resp.Data.Products))
	}
	if resp.Data.Query != "shoes" {
		t.Errorf("expected normalized query in placeholder, got %q", resp.Data.Query)
	}
	if resp.Data.Pagination.HasNext {
		t.Error("placeholder must not invite load-more")
	}
}

func TestSearchProductsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.SearchProducts(context.Background(), search.SearchParams{Query: "shoes"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status in error, got: %v", err)
	}
}

func TestSearchProductsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("not json at all")); err != nil {
			t.Errorf("writing response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.SearchProducts(context.Background(), search.SearchParams{Query: "shoes"})
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestSearchProductsCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	client := NewClient(server.URL, "")
	go func() {
		_, err := client.SearchProducts(ctx, search.SearchParams{Query: "slow"})
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error from cancelled request")
		}
		if !strings.Contains(err.Error(), "context canceled") {
			t.Errorf("expected context cancellation, got: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not return")
	}
}

func TestBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if _, err := w.Write([]byte(`{"success":true,"data":{"products":[]}}`)); err != nil {
			t.Errorf("writing response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "sekrit")
	if _, err := client.SearchProducts(context.Background(), search.SearchParams{Query: "shoes"}); err != nil {
		t.Fatalf("SearchProducts failed: %v", err)
	}
	if gotAuth != "Bearer sekrit" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
}

func TestBaseURLTrimsTrailingSlash(t *testing.T) {
	client := NewClient("https://api.example.com/", "")
	if got := client.BaseURL(); got != "https://api.example.com" {
		t.Errorf("expected trimmed base URL, got %q", got)
	}
}
