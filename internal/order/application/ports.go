package application

import (
	"context"
	"time"

	"github.com/merchkit/orderflow/internal/catalog"
	"github.com/merchkit/orderflow/internal/order/domain"
)

// OrderRepository persists lifecycle mutations. Each mutating method is one
// atomic unit of work: every row it touches (order, items, history,
// inventory, payment, outbox) commits or rolls back together.
type OrderRepository interface {
	CreateWithOutbox(ctx context.Context, o domain.Order, entry domain.HistoryEntry, reserveStock bool, eventType string, payload []byte, traceparent string) error
	TransitionWithOutbox(ctx context.Context, up TransitionUpdate, eventType string, payload []byte, traceparent string) error
	PaymentWithOutbox(ctx context.Context, up PaymentUpdate, eventType string, payload []byte, traceparent string) error
	RefundWithOutbox(ctx context.Context, up RefundUpdate, eventType string, payload []byte, traceparent string) error

	Get(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	CompletedPayment(ctx context.Context, orderID string) (domain.Payment, error)
}

// TransitionUpdate is one validated status change plus its side effects.
type TransitionUpdate struct {
	OrderID     string
	From        domain.OrderStatus
	To          domain.OrderStatus
	CompletedAt *time.Time
	Entry       domain.HistoryEntry
	Release     []domain.ItemQuantity
	Reserve     []domain.ItemQuantity
}

// PaymentUpdate records a payment attempt. To == "" leaves the lifecycle
// status untouched (failed attempts); PaymentStatus == "" leaves the order's
// payment status untouched.
type PaymentUpdate struct {
	OrderID       string
	Payment       domain.Payment
	From          domain.OrderStatus
	To            domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	Entry         *domain.HistoryEntry
	Reserve       []domain.ItemQuantity
}

// RefundUpdate records a refund. To is set for full refunds only; partial
// refunds change the payment status without touching the lifecycle status.
type RefundUpdate struct {
	OrderID       string
	Payment       domain.Payment
	From          domain.OrderStatus
	To            domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	Entry         domain.HistoryEntry
}

// ProductCatalog resolves product ids to current product data and advisory
// stock levels.
type ProductCatalog interface {
	Product(ctx context.Context, id string) (catalog.Product, error)
	Available(ctx context.Context, productID string) (int, error)
}

// ChargeRequest is handed to the external payment provider.
type ChargeRequest struct {
	OrderID string
	Amount  float64
	Method  string
	Details map[string]string
}

// RefundRequest reverses a previously completed charge.
type RefundRequest struct {
	OrderID       string
	Amount        float64
	TransactionID string
	Reason        string
}

// ProviderResult is the provider's verdict plus its raw response payload.
type ProviderResult struct {
	TransactionID string
	Approved      bool
	Response      []byte
}

// PaymentProvider is the external payment collaborator, treated as a black
// box. A transport failure is an error; a decline is Approved == false.
type PaymentProvider interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (ProviderResult, error)
	Refund(ctx context.Context, req RefundRequest) (ProviderResult, error)
}
