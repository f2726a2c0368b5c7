package domain

import "time"

// PaymentState is the status of a single payment attempt row, not of the
// order's overall payment.
type PaymentState string

const (
	PaymentCompleted PaymentState = "completed"
	PaymentFailed    PaymentState = "failed"
)

// Payment is one append-only payment record. Refunds are stored as payments
// with a negative amount.
type Payment struct {
	ID            string
	OrderID       string
	Amount        float64
	Method        string
	Provider      string
	TransactionID string
	Status        PaymentState
	Response      []byte
	CreatedAt     time.Time
}
