package scheduler

import (
	"context"

	"pricetracker/internal/products"
)

// Store is the slice of the catalog the scheduler needs.
type Store interface {
	ListAll(ctx context.Context) ([]products.Product, error)
	LatestPrice(ctx context.Context, productID int) (float64, bool, error)
	AppendPrice(ctx context.Context, productID int, price float64) error
}

// Outcome classifies one reconciliation attempt.
type Outcome int

const (
	// OutcomeFailed means extraction or storage failed; history is untouched.
	OutcomeFailed Outcome = iota
	// OutcomeSkipped means the observed price equals the last recorded one.
	OutcomeSkipped
	// OutcomeAppended means a new history entry was recorded.
	OutcomeAppended
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAppended:
		return "appended"
	default:
		return "failed"
	}
}

// Reconciler decides whether a freshly observed price becomes a new history
// entry for a product.
type Reconciler struct {
	store     Store
	extractor products.Extractor
}

func NewReconciler(store Store, extractor products.Extractor) *Reconciler {
	return &Reconciler{store: store, extractor: extractor}
}

// Reconcile re-scrapes the product and appends the observed price unless it
// exactly equals the last recorded one. Any fluctuation, however small, is
// recorded; only exact repeats are suppressed. A failure at any step leaves
// the product's history as it was.
func (r *Reconciler) Reconcile(ctx context.Context, p products.Product) (Outcome, error) {
	_, price, err := r.extractor.Extract(ctx, p.URL)
	if err != nil {
		return OutcomeFailed, err
	}

	last, ok, err := r.store.LatestPrice(ctx, p.ID)
	if err != nil {
		return OutcomeFailed, err
	}
	if ok && last == price {
		return OutcomeSkipped, nil
	}

	if err := r.store.AppendPrice(ctx, p.ID, price); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeAppended, nil
}
