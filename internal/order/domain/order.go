package domain

import (
	"fmt"
	"math/rand"
	"time"
)

type OrderStatus string

const (
	StatusPending           OrderStatus = "pending"
	StatusProcessing        OrderStatus = "processing"
	StatusOnHold            OrderStatus = "on_hold"
	StatusShipped           OrderStatus = "shipped"
	StatusDelivered         OrderStatus = "delivered"
	StatusReturned          OrderStatus = "returned"
	StatusCancelled         OrderStatus = "cancelled"
	StatusRefunded          OrderStatus = "refunded"
	StatusPartiallyRefunded OrderStatus = "partially_refunded"
	StatusCompleted         OrderStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentRefunded          PaymentStatus = "refunded"
)

type Order struct {
	ID              string
	Number          string
	UserID          string
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	Subtotal        float64
	TaxAmount       float64
	ShippingAmount  float64
	DiscountAmount  float64
	TotalAmount     float64
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	Notes           string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// OrderItem carries a snapshot of the product at order time so later catalog
// edits never alter historical orders.
type OrderItem struct {
	ID             int64
	OrderID        string
	ProductID      string
	ProductName    string
	SKU            string
	ImageURL       string
	UnitPrice      float64
	Quantity       int
	Subtotal       float64
	TaxAmount      float64
	DiscountAmount float64
	Total          float64
}

// HistoryEntry is one append-only audit record; exactly one is written per
// status change, including the initial "Order created" entry.
type HistoryEntry struct {
	ID        int64
	OrderID   string
	Status    OrderStatus
	Comment   string
	ActorID   string
	CreatedAt time.Time
}

// ItemQuantity names a product and a quantity for inventory mutations.
type ItemQuantity struct {
	ProductID string
	Quantity  int
}

// ItemQuantities collapses an order's items into inventory mutation lines.
func ItemQuantities(items []OrderItem) []ItemQuantity {
	out := make([]ItemQuantity, 0, len(items))
	for _, it := range items {
		out = append(out, ItemQuantity{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

// NewOrderNumber produces a human-facing number: ORD-<8 digits from the
// clock>-<4 random digits>. Uniqueness is enforced by the orders table.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%08d-%04d", now.Unix()%100000000, rand.Intn(10000))
}

// Round2 rounds a monetary amount to cents, away from zero.
func Round2(v float64) float64 {
	if v < 0 {
		return -Round2(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
