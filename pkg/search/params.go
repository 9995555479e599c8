package search

import (
	"net/url"
	"strconv"
)

// ParseParams parses URL query parameters into SearchParams. Invalid numeric
// values fall back to defaults rather than erroring: a shared storefront URL
// with a mangled page number should still search.
//
// Supported parameters:
//   - q: search query string
//   - page: page number (positive integer, defaults to 1)
//   - retailer: retailer catalog name
//   - min_price, max_price: optional price filters
func ParseParams(queryParams url.Values) SearchParams {
	params := SearchParams{
		Page: 1,
	}

	params.Query = queryParams.Get("q")
	params.Retailer = queryParams.Get("retailer")

	if pageStr := queryParams.Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			params.Page = parsed
		}
	}

	if minStr := queryParams.Get("min_price"); minStr != "" {
		if parsed, err := strconv.ParseFloat(minStr, 64); err == nil && parsed >= 0 {
			params.MinPrice = &parsed
		}
	}

	if maxStr := queryParams.Get("max_price"); maxStr != "" {
		if parsed, err := strconv.ParseFloat(maxStr, 64); err == nil && parsed >= 0 {
			params.MaxPrice = &parsed
		}
	}

	return params
}

// Float returns a pointer to v. Convenience for building optional price
// filters in literals.
func Float(v float64) *float64 {
	return &v
}
