package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchkit/orderflow/internal/catalog"
	"github.com/merchkit/orderflow/internal/order/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Product(ctx context.Context, id string) (catalog.Product, error) {
	var p catalog.Product
	err := r.pool.QueryRow(ctx, `SELECT id, name, sku, price, image_url, active FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.ImageURL, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

// Available reads the current available quantity for a product. The returned
// value is advisory; the authoritative check is the conditional decrement
// inside the order transaction.
func (r *Repository) Available(ctx context.Context, productID string) (int, error) {
	var available int
	err := r.pool.QueryRow(ctx, `SELECT available FROM inventory WHERE product_id=$1`, productID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: no inventory for product %s", domain.ErrValidation, productID)
	}
	if err != nil {
		return 0, err
	}
	return available, nil
}
