package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchkit/orderflow/internal/inventory"
	"github.com/merchkit/orderflow/internal/order/application"
	"github.com/merchkit/orderflow/internal/order/domain"
)

// Repository implements application.OrderRepository on postgres. Every
// mutating method opens one transaction covering all its sub-writes,
// including the outbox row, so readers only ever see fully applied
// lifecycle operations.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) CreateWithOutbox(ctx context.Context, o domain.Order, entry domain.HistoryEntry, reserveStock bool, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, user_id, status, payment_status,
			subtotal, tax_amount, shipping_amount, discount_amount, total_amount,
			shipping_address, billing_address, payment_method, notes,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		o.ID, o.Number, o.UserID, o.Status, o.PaymentStatus,
		o.Subtotal, o.TaxAmount, o.ShippingAmount, o.DiscountAmount, o.TotalAmount,
		o.ShippingAddress, o.BillingAddress, o.PaymentMethod, o.Notes,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, product_name, sku, image_url,
				unit_price, quantity, subtotal, tax_amount, discount_amount, total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			o.ID, it.ProductID, it.ProductName, it.SKU, it.ImageURL,
			it.UnitPrice, it.Quantity, it.Subtotal, it.TaxAmount, it.DiscountAmount, it.Total)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	if reserveStock {
		if err := inventory.ReserveAll(ctx, tx, domain.ItemQuantities(o.Items)); err != nil {
			return err
		}
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	if err := insertOutbox(ctx, tx, o.ID, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) TransitionWithOutbox(ctx context.Context, up application.TransitionUpdate, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := r.updateStatus(ctx, tx, up.OrderID, up.From, up.To, "", up.CompletedAt); err != nil {
		return err
	}
	if err := inventory.ReleaseAll(ctx, tx, up.Release); err != nil {
		return err
	}
	if err := inventory.ReserveAll(ctx, tx, up.Reserve); err != nil {
		return err
	}
	if err := insertHistory(ctx, tx, up.Entry); err != nil {
		return err
	}
	if err := insertOutbox(ctx, tx, up.OrderID, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) PaymentWithOutbox(ctx context.Context, up application.PaymentUpdate, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := insertPayment(ctx, tx, up.Payment); err != nil {
		return err
	}
	if up.To != "" {
		if err := r.updateStatus(ctx, tx, up.OrderID, up.From, up.To, up.PaymentStatus, nil); err != nil {
			return err
		}
	} else if up.PaymentStatus != "" {
		if err := updatePaymentStatus(ctx, tx, up.OrderID, up.PaymentStatus); err != nil {
			return err
		}
	}
	if up.Entry != nil {
		if err := insertHistory(ctx, tx, *up.Entry); err != nil {
			return err
		}
	}
	if err := inventory.ReserveAll(ctx, tx, up.Reserve); err != nil {
		return err
	}
	if err := insertOutbox(ctx, tx, up.OrderID, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) RefundWithOutbox(ctx context.Context, up application.RefundUpdate, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := insertPayment(ctx, tx, up.Payment); err != nil {
		return err
	}
	if up.To != "" {
		if err := r.updateStatus(ctx, tx, up.OrderID, up.From, up.To, up.PaymentStatus, nil); err != nil {
			return err
		}
	} else {
		if err := updatePaymentStatus(ctx, tx, up.OrderID, up.PaymentStatus); err != nil {
			return err
		}
	}
	if err := insertHistory(ctx, tx, up.Entry); err != nil {
		return err
	}
	if err := insertOutbox(ctx, tx, up.OrderID, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// updateStatus applies a guarded status change. The WHERE status = from
// clause is what serializes concurrent transitions: the loser of a race
// matches zero rows and the whole transaction rolls back.
func (r *Repository) updateStatus(ctx context.Context, tx pgx.Tx, orderID string, from, to domain.OrderStatus, paymentStatus domain.PaymentStatus, completedAt *time.Time) error {
	q := `UPDATE orders SET status=$3, updated_at=now()`
	args := []any{orderID, from, to}
	if paymentStatus != "" {
		q += fmt.Sprintf(", payment_status=$%d", len(args)+1)
		args = append(args, paymentStatus)
	}
	if completedAt != nil {
		q += fmt.Sprintf(", completed_at=$%d", len(args)+1)
		args = append(args, *completedAt)
	}
	q += ` WHERE id=$1 AND status=$2`

	ct, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var current domain.OrderStatus
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: order %s moved from %s to %s concurrently", domain.ErrConflict, orderID, from, current)
}

func updatePaymentStatus(ctx context.Context, tx pgx.Tx, orderID string, status domain.PaymentStatus) error {
	ct, err := tx.Exec(ctx, `UPDATE orders SET payment_status=$2, updated_at=now() WHERE id=$1`, orderID, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}
	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, e domain.HistoryEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_history (order_id, status, comment, actor_id, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		e.OrderID, e.Status, e.Comment, e.ActorID, e.CreatedAt)
	return err
}

func insertPayment(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO payments (id, order_id, amount, method, provider, transaction_id, status, response, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.OrderID, p.Amount, p.Method, p.Provider, p.TransactionID, p.Status, p.Response, p.CreatedAt)
	return err
}

func insertOutbox(ctx context.Context, tx pgx.Tx, orderID, eventType string, payload []byte, traceparent string) error {
	headers := map[string]string{"source": "orderflow"}
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"order", orderID, eventType, payload, headers, traceparent)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_number, user_id, status, payment_status,
			subtotal, tax_amount, shipping_amount, discount_amount, total_amount,
			shipping_address, billing_address, payment_method, notes,
			created_at, updated_at, completed_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.PaymentStatus,
			&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount, &o.TotalAmount,
			&o.ShippingAddress, &o.BillingAddress, &o.PaymentMethod, &o.Notes,
			&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, sku, image_url,
			unit_price, quantity, subtotal, tax_amount, discount_amount, total
		FROM order_items WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.SKU, &it.ImageURL,
			&it.UnitPrice, &it.Quantity, &it.Subtotal, &it.TaxAmount, &it.DiscountAmount, &it.Total); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_number, user_id, status, payment_status,
			subtotal, tax_amount, shipping_amount, discount_amount, total_amount,
			shipping_address, billing_address, payment_method, notes,
			created_at, updated_at, completed_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.PaymentStatus,
			&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount, &o.TotalAmount,
			&o.ShippingAddress, &o.BillingAddress, &o.PaymentMethod, &o.Notes,
			&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CompletedPayment returns the most recent successful charge for an order.
func (r *Repository) CompletedPayment(ctx context.Context, orderID string) (domain.Payment, error) {
	var p domain.Payment
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_id, amount, method, provider, transaction_id, status, response, created_at
		FROM payments
		WHERE order_id=$1 AND status=$2 AND amount > 0
		ORDER BY created_at DESC LIMIT 1`, orderID, domain.PaymentCompleted).
		Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Provider, &p.TransactionID, &p.Status, &p.Response, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, fmt.Errorf("%w: no completed payment for order %s", domain.ErrNotFound, orderID)
	}
	if err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}
