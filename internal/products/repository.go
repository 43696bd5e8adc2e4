package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository is the Postgres-backed catalog of products and their price
// history. Every mutation is a single statement or a single transaction.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindByURL returns the product tracked under url, or ErrNotFound.
func (r *Repository) FindByURL(ctx context.Context, url string) (*Product, error) {
	var p Product
	err := r.db.QueryRow(ctx,
		`SELECT id, url, name, domain, created_at FROM products WHERE url = $1`,
		url).Scan(&p.ID, &p.URL, &p.Name, &p.Domain, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateWithPrice inserts the product together with its seed price entry in
// one transaction, so a reader never sees a product without history.
// A duplicate URL surfaces as ErrDuplicateURL without mutating storage.
func (r *Repository) CreateWithPrice(ctx context.Context, p *Product, price float64) (*Product, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO products (url, name, domain) VALUES ($1, $2, $3) RETURNING id, created_at`,
		p.URL, p.Name, p.Domain).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateURL
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}

	seed := PriceHistory{ProductID: p.ID}
	err = tx.QueryRow(ctx,
		`INSERT INTO price_history (product_id, price) VALUES ($1, $2) RETURNING id, price, recorded_at`,
		p.ID, price).Scan(&seed.ID, &seed.Price, &seed.RecordedAt)
	if err != nil {
		return nil, fmt.Errorf("insert seed price: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	p.Prices = []PriceHistory{seed}
	return p, nil
}

// AppendPrice records a new observation for the product.
func (r *Repository) AppendPrice(ctx context.Context, productID int, price float64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO price_history (product_id, price) VALUES ($1, $2)`,
		productID, price)
	return err
}

// LatestPrice returns the most recently recorded price for the product.
// The second result is false when the product has no history.
func (r *Repository) LatestPrice(ctx context.Context, productID int) (float64, bool, error) {
	var price float64
	err := r.db.QueryRow(ctx,
		`SELECT (price::double precision) FROM price_history
		 WHERE product_id = $1 ORDER BY recorded_at DESC, id DESC LIMIT 1`,
		productID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return price, true, nil
}

// Delete removes the product; its history rows cascade through the FK in the
// same statement. Unknown ids surface as ErrNotFound.
func (r *Repository) Delete(ctx context.Context, productID int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetWithHistory loads one product with its full ordered history.
func (r *Repository) GetWithHistory(ctx context.Context, id int) (*Product, error) {
	list, err := r.queryWithHistory(ctx, `WHERE p.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// ListWithHistory loads every product with its full ordered history.
func (r *Repository) ListWithHistory(ctx context.Context) ([]Product, error) {
	return r.queryWithHistory(ctx, ``)
}

// ListAll returns every tracked product without history, for the scheduler.
func (r *Repository) ListAll(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, url, name, domain, created_at FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.URL, &p.Name, &p.Domain, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// queryWithHistory joins products with price_history in one statement, so
// the result is a single snapshot, and folds the rows into nested slices.
func (r *Repository) queryWithHistory(ctx context.Context, where string, args ...any) ([]Product, error) {
	q := fmt.Sprintf(`
SELECT p.id, p.url, p.name, p.domain, p.created_at,
       ph.id, (ph.price::double precision), ph.recorded_at
FROM products p
LEFT JOIN price_history ph ON ph.product_id = p.id
%s
ORDER BY p.id, ph.recorded_at, ph.id`, where)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Product
	for rows.Next() {
		var (
			p          Product
			entryID    sql.NullInt64
			price      sql.NullFloat64
			recordedAt sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.URL, &p.Name, &p.Domain, &p.CreatedAt,
			&entryID, &price, &recordedAt); err != nil {
			return nil, err
		}

		if len(res) == 0 || res[len(res)-1].ID != p.ID {
			p.Prices = []PriceHistory{}
			res = append(res, p)
		}
		if entryID.Valid {
			cur := &res[len(res)-1]
			cur.Prices = append(cur.Prices, PriceHistory{
				ID:         int(entryID.Int64),
				ProductID:  cur.ID,
				Price:      price.Float64,
				RecordedAt: recordedAt.Time,
			})
		}
	}
	return res, rows.Err()
}
