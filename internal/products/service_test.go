package products

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

// memStore is an in-memory Store for service and handler tests.
type memStore struct {
	byID      map[int]*Product
	nextID    int
	nextEntry int
}

func newMemStore() *memStore {
	return &memStore{byID: map[int]*Product{}}
}

func (m *memStore) FindByURL(_ context.Context, url string) (*Product, error) {
	for _, p := range m.byID {
		if p.URL == url {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) CreateWithPrice(_ context.Context, p *Product, price float64) (*Product, error) {
	for _, existing := range m.byID {
		if existing.URL == p.URL {
			return nil, ErrDuplicateURL
		}
	}
	m.nextID++
	m.nextEntry++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	p.Prices = []PriceHistory{{
		ID:         m.nextEntry,
		ProductID:  p.ID,
		Price:      price,
		RecordedAt: time.Now(),
	}}
	m.byID[p.ID] = p
	return p, nil
}

func (m *memStore) GetWithHistory(_ context.Context, id int) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListWithHistory(_ context.Context) ([]Product, error) {
	var res []Product
	for _, p := range m.byID {
		res = append(res, *p)
	}
	return res, nil
}

func (m *memStore) Delete(_ context.Context, id int) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memStore) historyRows(id int) int {
	p, ok := m.byID[id]
	if !ok {
		return 0
	}
	return len(p.Prices)
}

// fakeExtractor returns canned results and counts invocations.
type fakeExtractor struct {
	name  string
	price float64
	err   error
	calls int
}

func (f *fakeExtractor) Extract(context.Context, string) (string, float64, error) {
	f.calls++
	return f.name, f.price, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := NewService(store, &fakeExtractor{name: "Widget", price: 999.0}, discardLogger())

	p, err := svc.Create(context.Background(), "https://www.ozon.ru/product/x")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if p.Name != "Widget" {
		t.Fatalf("unexpected name: %q", p.Name)
	}
	if p.Domain != "www.ozon.ru" {
		t.Fatalf("unexpected domain: %q", p.Domain)
	}
	if len(p.Prices) != 1 {
		t.Fatalf("expected exactly one seed entry, got %d", len(p.Prices))
	}
	if p.Prices[0].Price != 999.0 {
		t.Fatalf("unexpected seed price: %v", p.Prices[0].Price)
	}
}

func TestCreateDuplicateURL(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ext := &fakeExtractor{name: "Widget", price: 999.0}
	svc := NewService(store, ext, discardLogger())

	url := "https://www.ozon.ru/product/x"
	if _, err := svc.Create(context.Background(), url); err != nil {
		t.Fatalf("first Create error: %v", err)
	}
	rowsBefore := len(store.byID)

	_, err := svc.Create(context.Background(), url)
	if !errors.Is(err, ErrDuplicateURL) {
		t.Fatalf("expected ErrDuplicateURL, got %v", err)
	}
	if len(store.byID) != rowsBefore {
		t.Fatalf("store mutated on duplicate create: %d products", len(store.byID))
	}
	if ext.calls != 1 {
		t.Fatalf("extractor called %d times, duplicate create must not scrape", ext.calls)
	}
}

func TestCreateScrapeFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := NewService(store, &fakeExtractor{err: fmt.Errorf("selector miss")}, discardLogger())

	_, err := svc.Create(context.Background(), "https://www.ozon.ru/product/x")
	if !errors.Is(err, ErrScrapeFailed) {
		t.Fatalf("expected ErrScrapeFailed, got %v", err)
	}
	if len(store.byID) != 0 {
		t.Fatalf("store mutated on scrape failure")
	}
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newMemStore(), &fakeExtractor{}, discardLogger())
	_, err := svc.Get(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := NewService(store, &fakeExtractor{name: "Widget", price: 999.0}, discardLogger())

	p, err := svc.Create(context.Background(), "https://www.ozon.ru/product/x")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if rows := store.historyRows(p.ID); rows != 0 {
		t.Fatalf("expected zero history rows after delete, got %d", rows)
	}
	if err := svc.Delete(context.Background(), p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
