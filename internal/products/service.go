package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pricetracker/internal/scraper"
)

// Extractor provides scraped (name, price) for a product page.
type Extractor interface {
	Extract(ctx context.Context, url string) (name string, price float64, err error)
}

// Store is the catalog persistence the service depends on.
type Store interface {
	FindByURL(ctx context.Context, url string) (*Product, error)
	CreateWithPrice(ctx context.Context, p *Product, price float64) (*Product, error)
	GetWithHistory(ctx context.Context, id int) (*Product, error)
	ListWithHistory(ctx context.Context) ([]Product, error)
	Delete(ctx context.Context, id int) error
}

// Service orchestrates product CRUD, including the scrape-on-create flow.
type Service struct {
	store     Store
	extractor Extractor
	logger    *slog.Logger
}

func NewService(store Store, extractor Extractor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, extractor: extractor, logger: logger}
}

// List returns all tracked products with their nested history.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.store.ListWithHistory(ctx)
}

// Get returns one product with its history, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int) (*Product, error) {
	return s.store.GetWithHistory(ctx, id)
}

// Create starts tracking url: it scrapes the page once and stores the
// product with its seed price entry atomically. An already-tracked URL
// yields ErrDuplicateURL; any extraction failure yields ErrScrapeFailed.
// The scrape happens before any transaction is opened.
func (s *Service) Create(ctx context.Context, url string) (*Product, error) {
	if _, err := s.store.FindByURL(ctx, url); err == nil {
		return nil, ErrDuplicateURL
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	name, price, err := s.extractor.Extract(ctx, url)
	if err != nil {
		s.logger.Warn("initial scrape failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}

	domain, err := scraper.Domain(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}

	// The unique index backstops a create racing the pre-check; the insert
	// then surfaces ErrDuplicateURL from the store.
	created, err := s.store.CreateWithPrice(ctx, &Product{URL: url, Name: name, Domain: domain}, price)
	if err != nil {
		return nil, err
	}

	s.logger.Info("product tracked", "id", created.ID, "name", created.Name, "price", price)
	return created, nil
}

// Delete stops tracking the product and drops its entire history.
func (s *Service) Delete(ctx context.Context, id int) error {
	return s.store.Delete(ctx, id)
}
