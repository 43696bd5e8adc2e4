package products

import "errors"

var (
	// ErrNotFound is returned when no product exists for the given id or URL.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateURL is returned when the URL is already being tracked.
	ErrDuplicateURL = errors.New("url is already tracked")
	// ErrScrapeFailed wraps an extractor failure during product creation.
	ErrScrapeFailed = errors.New("could not scrape product data")
)
