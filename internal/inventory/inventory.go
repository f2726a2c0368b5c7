// Package inventory mutates per-product stock rows. Every mutation runs on a
// transaction owned by the caller so the stock change commits or rolls back
// together with the order mutation that triggered it.
package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/merchkit/orderflow/internal/order/domain"
)

// Reserve decrements available stock for one product. The decrement is a
// single conditional UPDATE, so concurrent reservations on the same row
// serialize in the database and available can never go negative.
func Reserve(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE inventory
		SET available = available - $2, reserved = reserved + $2, updated_at = now()
		WHERE product_id = $1 AND available >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM inventory WHERE product_id=$1)`, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: no inventory for product %s", domain.ErrValidation, productID)
	}
	return fmt.Errorf("%w: insufficient stock for product %s", domain.ErrValidation, productID)
}

// Release returns previously reserved stock. Callers invoke it exactly once
// per transition event; the increment itself is not deduplicated.
func Release(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE inventory
		SET available = available + $2, reserved = GREATEST(reserved - $2, 0), updated_at = now()
		WHERE product_id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: no inventory for product %s", domain.ErrValidation, productID)
	}
	return nil
}

// ReserveAll applies Reserve over a list of lines, stopping at the first
// failure so the enclosing transaction rolls back with no partial decrement.
func ReserveAll(ctx context.Context, tx pgx.Tx, lines []domain.ItemQuantity) error {
	for _, l := range lines {
		if err := Reserve(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseAll applies Release over a list of lines.
func ReleaseAll(ctx context.Context, tx pgx.Tx, lines []domain.ItemQuantity) error {
	for _, l := range lines {
		if err := Release(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}
