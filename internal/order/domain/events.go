package domain

import "time"

// Outbox event types emitted after each committed lifecycle mutation.
const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderPaid          = "OrderPaid"
	EventPaymentFailed      = "PaymentFailed"
	EventOrderRefunded      = "OrderRefunded"
)

type OrderCreated struct {
	OrderID     string
	OrderNumber string
	UserID      string
	TotalAmount float64
	Items       []OrderItem
}

type OrderStatusChanged struct {
	OrderID    string
	From       OrderStatus
	To         OrderStatus
	ActorID    string
	OccurredAt time.Time
}

type OrderPaid struct {
	OrderID       string
	Amount        float64
	Provider      string
	TransactionID string
}

type OrderRefunded struct {
	OrderID string
	Amount  float64
	Full    bool
	Reason  string
}
