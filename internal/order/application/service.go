package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/merchkit/orderflow/internal/order/domain"
	"github.com/merchkit/orderflow/pkg/tracing"
)

// ReservationPolicy controls when inventory is decremented.
type ReservationPolicy string

const (
	// ReserveAtCreation decrements stock inside the order creation
	// transaction. This is the default.
	ReserveAtCreation ReservationPolicy = "creation"
	// ReserveAtPayment defers the decrement to the payment success
	// transaction.
	ReserveAtPayment ReservationPolicy = "payment"
)

type Config struct {
	ReserveAt ReservationPolicy
}

// Service owns the order lifecycle: creation, status transitions, payments
// and refunds. All collaborators are passed in; the service holds no global
// state.
type Service struct {
	log      *slog.Logger
	repo     OrderRepository
	catalog  ProductCatalog
	provider PaymentProvider

	reserveAt ReservationPolicy
	now       func() time.Time
	newID     func() string
}

func NewService(log *slog.Logger, repo OrderRepository, catalog ProductCatalog, provider PaymentProvider, cfg Config) *Service {
	reserveAt := cfg.ReserveAt
	if reserveAt == "" {
		reserveAt = ReserveAtCreation
	}
	return &Service{
		log:       log,
		repo:      repo,
		catalog:   catalog,
		provider:  provider,
		reserveAt: reserveAt,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

type CartLine struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	UserID          string
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	ShippingMethod  string
	Notes           string
	Lines           []CartLine
}

// CreateOrder validates the cart, prices it, and persists the order with its
// item snapshots, the initial audit entry and the stock reservation in one
// atomic unit of work.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	switch {
	case in.UserID == "":
		return domain.Order{}, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	case in.ShippingAddress == "":
		return domain.Order{}, fmt.Errorf("%w: shipping address is required", domain.ErrValidation)
	case in.PaymentMethod == "":
		return domain.Order{}, fmt.Errorf("%w: payment method is required", domain.ErrValidation)
	case len(in.Lines) == 0:
		return domain.Order{}, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}

	lines := make([]pricedLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: quantity for product %s must be positive", domain.ErrValidation, l.ProductID)
		}
		p, err := s.catalog.Product(ctx, l.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			// A missing product in a cart is bad input, not a missing
			// resource; 404 is reserved for the order itself.
			return domain.Order{}, fmt.Errorf("%w: unknown product %s", domain.ErrValidation, l.ProductID)
		}
		if err != nil {
			return domain.Order{}, err
		}
		if !p.Active {
			return domain.Order{}, fmt.Errorf("%w: product %s is not available", domain.ErrValidation, l.ProductID)
		}
		available, err := s.catalog.Available(ctx, l.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		if l.Quantity > available {
			return domain.Order{}, fmt.Errorf("%w: insufficient stock for product %s: requested %d, available %d",
				domain.ErrValidation, l.ProductID, l.Quantity, available)
		}
		lines = append(lines, pricedLine{product: p, quantity: l.Quantity})
	}

	// Discounts come from an external engine; none is wired, so 0.
	priced := price(lines, in.ShippingMethod, 0)

	now := s.now()
	billing := in.BillingAddress
	if billing == "" {
		billing = in.ShippingAddress
	}
	o := domain.Order{
		ID:              s.newID(),
		Number:          domain.NewOrderNumber(now),
		UserID:          in.UserID,
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentPending,
		Subtotal:        priced.subtotal,
		TaxAmount:       priced.tax,
		ShippingAmount:  priced.shipping,
		DiscountAmount:  priced.discount,
		TotalAmount:     priced.total,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		PaymentMethod:   in.PaymentMethod,
		Notes:           in.Notes,
		Items:           priced.items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}

	entry := domain.HistoryEntry{
		OrderID:   o.ID,
		Status:    domain.StatusPending,
		Comment:   "Order created",
		ActorID:   in.UserID,
		CreatedAt: now,
	}

	payload, err := json.Marshal(domain.OrderCreated{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Items:       o.Items,
	})
	if err != nil {
		return domain.Order{}, err
	}

	reserve := s.reserveAt == ReserveAtCreation
	if err := s.repo.CreateWithOutbox(ctx, o, entry, reserve, domain.EventOrderCreated, payload, tracing.Traceparent(ctx)); err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order created", "order_id", o.ID, "order_number", o.Number, "total", o.TotalAmount)
	return o, nil
}

type TransitionInput struct {
	OrderID string
	Target  domain.OrderStatus
	ActorID string
	Comment string
}

// Transition validates the requested status change against the transition
// table and applies it with its inventory side effects and audit entry in
// one atomic unit of work.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (domain.Order, error) {
	o, err := s.repo.Get(ctx, in.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !domain.CanTransition(o.Status, in.Target) {
		return domain.Order{}, fmt.Errorf("%w: cannot transition from %s to %s", domain.ErrValidation, o.Status, in.Target)
	}

	now := s.now()
	comment := in.Comment
	if comment == "" {
		comment = fmt.Sprintf("Status changed from %s to %s", o.Status, in.Target)
	}
	up := TransitionUpdate{
		OrderID: o.ID,
		From:    o.Status,
		To:      in.Target,
		Entry: domain.HistoryEntry{
			OrderID:   o.ID,
			Status:    in.Target,
			Comment:   comment,
			ActorID:   in.ActorID,
			CreatedAt: now,
		},
	}
	// Under the deferred policy an unpaid order holds no reservation, so
	// there is nothing to release on cancel and nothing to retake on
	// reactivation; the payment transaction will reserve.
	holdsStock := s.reserveAt == ReserveAtCreation || o.PaymentStatus != domain.PaymentPending
	switch {
	case in.Target == domain.StatusCancelled || in.Target == domain.StatusReturned:
		if holdsStock {
			up.Release = domain.ItemQuantities(o.Items)
		}
	case o.Status == domain.StatusCancelled && in.Target == domain.StatusProcessing:
		// Administrative reactivation: the cancellation released the stock,
		// so it has to be taken again.
		if holdsStock {
			up.Reserve = domain.ItemQuantities(o.Items)
		}
	}
	if in.Target == domain.StatusCompleted {
		up.CompletedAt = &now
	}

	payload, err := json.Marshal(domain.OrderStatusChanged{
		OrderID:    o.ID,
		From:       o.Status,
		To:         in.Target,
		ActorID:    in.ActorID,
		OccurredAt: now,
	})
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.repo.TransitionWithOutbox(ctx, up, domain.EventOrderStatusChanged, payload, tracing.Traceparent(ctx)); err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order status changed", "order_id", o.ID, "from", o.Status, "to", in.Target)

	o.Status = in.Target
	o.UpdatedAt = now
	o.CompletedAt = up.CompletedAt
	return o, nil
}

type PaymentInput struct {
	OrderID string
	Method  string
	ActorID string
	Details map[string]string
}

// ProcessPayment charges the external provider for the order total. A
// successful charge records the payment, marks the order paid and advances
// pending -> processing atomically; a declined charge records a failed
// payment row and leaves the order untouched.
func (s *Service) ProcessPayment(ctx context.Context, in PaymentInput) (domain.Payment, error) {
	o, err := s.repo.Get(ctx, in.OrderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if o.PaymentStatus != domain.PaymentPending {
		return domain.Payment{}, fmt.Errorf("%w: payment status is %s, expected %s", domain.ErrValidation, o.PaymentStatus, domain.PaymentPending)
	}
	if !domain.CanTransition(o.Status, domain.StatusProcessing) {
		return domain.Payment{}, fmt.Errorf("%w: cannot transition from %s to %s", domain.ErrValidation, o.Status, domain.StatusProcessing)
	}

	method := in.Method
	if method == "" {
		method = o.PaymentMethod
	}
	res, err := s.provider.Charge(ctx, ChargeRequest{
		OrderID: o.ID,
		Amount:  o.TotalAmount,
		Method:  method,
		Details: in.Details,
	})
	if err != nil {
		return domain.Payment{}, err
	}

	now := s.now()
	p := domain.Payment{
		ID:            s.newID(),
		OrderID:       o.ID,
		Amount:        o.TotalAmount,
		Method:        method,
		Provider:      s.provider.Name(),
		TransactionID: res.TransactionID,
		Status:        domain.PaymentCompleted,
		Response:      res.Response,
		CreatedAt:     now,
	}

	if !res.Approved {
		p.Status = domain.PaymentFailed
		up := PaymentUpdate{OrderID: o.ID, Payment: p}
		payload, merr := json.Marshal(domain.OrderPaid{OrderID: o.ID, Amount: p.Amount, Provider: p.Provider, TransactionID: p.TransactionID})
		if merr != nil {
			return domain.Payment{}, merr
		}
		if err := s.repo.PaymentWithOutbox(ctx, up, domain.EventPaymentFailed, payload, tracing.Traceparent(ctx)); err != nil {
			return domain.Payment{}, err
		}
		s.log.Info("payment declined", "order_id", o.ID, "transaction_id", p.TransactionID)
		return p, fmt.Errorf("%w: payment declined by provider", domain.ErrValidation)
	}

	up := PaymentUpdate{
		OrderID:       o.ID,
		Payment:       p,
		From:          o.Status,
		To:            domain.StatusProcessing,
		PaymentStatus: domain.PaymentPaid,
		Entry: &domain.HistoryEntry{
			OrderID:   o.ID,
			Status:    domain.StatusProcessing,
			Comment:   "Payment completed",
			ActorID:   in.ActorID,
			CreatedAt: now,
		},
	}
	if s.reserveAt == ReserveAtPayment {
		up.Reserve = domain.ItemQuantities(o.Items)
	}

	payload, err := json.Marshal(domain.OrderPaid{
		OrderID:       o.ID,
		Amount:        p.Amount,
		Provider:      p.Provider,
		TransactionID: p.TransactionID,
	})
	if err != nil {
		return domain.Payment{}, err
	}
	if err := s.repo.PaymentWithOutbox(ctx, up, domain.EventOrderPaid, payload, tracing.Traceparent(ctx)); err != nil {
		return domain.Payment{}, err
	}
	s.log.Info("payment completed", "order_id", o.ID, "amount", p.Amount, "transaction_id", p.TransactionID)
	return p, nil
}

// Statuses a refund may be requested from.
var refundableStatuses = map[domain.OrderStatus]bool{
	domain.StatusCompleted: true,
	domain.StatusDelivered: true,
	domain.StatusShipped:   true,
	domain.StatusReturned:  true,
}

type RefundInput struct {
	OrderID string
	Amount  float64
	Reason  string
	ActorID string
}

// Refund validates eligibility, asks the provider to reverse the charge and
// records the outcome. A full refund (within a cent of the order total)
// moves the order to refunded through the transition table; a partial refund
// only changes the payment status.
func (s *Service) Refund(ctx context.Context, in RefundInput) (domain.Payment, error) {
	o, err := s.repo.Get(ctx, in.OrderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if !refundableStatuses[o.Status] {
		return domain.Payment{}, fmt.Errorf("%w: order in status %s cannot be refunded", domain.ErrValidation, o.Status)
	}
	if o.PaymentStatus != domain.PaymentPaid {
		return domain.Payment{}, fmt.Errorf("%w: payment status is %s, expected %s", domain.ErrValidation, o.PaymentStatus, domain.PaymentPaid)
	}
	if in.Amount <= 0 || in.Amount > o.TotalAmount {
		return domain.Payment{}, fmt.Errorf("%w: refund amount %.2f must be within (0, %.2f]", domain.ErrValidation, in.Amount, o.TotalAmount)
	}

	full := math.Abs(in.Amount-o.TotalAmount) < 0.01
	if full && !domain.CanTransition(o.Status, domain.StatusRefunded) {
		return domain.Payment{}, fmt.Errorf("%w: cannot transition from %s to %s", domain.ErrValidation, o.Status, domain.StatusRefunded)
	}

	orig, err := s.repo.CompletedPayment(ctx, o.ID)
	if err != nil {
		return domain.Payment{}, err
	}
	res, err := s.provider.Refund(ctx, RefundRequest{
		OrderID:       o.ID,
		Amount:        in.Amount,
		TransactionID: orig.TransactionID,
		Reason:        in.Reason,
	})
	if err != nil {
		return domain.Payment{}, err
	}
	if !res.Approved {
		return domain.Payment{}, fmt.Errorf("%w: refund declined by provider", domain.ErrValidation)
	}

	now := s.now()
	p := domain.Payment{
		ID:            s.newID(),
		OrderID:       o.ID,
		Amount:        -in.Amount,
		Method:        o.PaymentMethod,
		Provider:      s.provider.Name(),
		TransactionID: res.TransactionID,
		Status:        domain.PaymentCompleted,
		Response:      res.Response,
		CreatedAt:     now,
	}

	up := RefundUpdate{OrderID: o.ID, Payment: p, From: o.Status}
	if full {
		up.To = domain.StatusRefunded
		up.PaymentStatus = domain.PaymentRefunded
		up.Entry = domain.HistoryEntry{
			OrderID:   o.ID,
			Status:    domain.StatusRefunded,
			Comment:   fmt.Sprintf("Full refund of %.2f: %s", in.Amount, in.Reason),
			ActorID:   in.ActorID,
			CreatedAt: now,
		}
	} else {
		up.PaymentStatus = domain.PaymentPartiallyRefunded
		up.Entry = domain.HistoryEntry{
			OrderID:   o.ID,
			Status:    o.Status,
			Comment:   fmt.Sprintf("Partial refund of %.2f: %s", in.Amount, in.Reason),
			ActorID:   in.ActorID,
			CreatedAt: now,
		}
	}

	payload, err := json.Marshal(domain.OrderRefunded{
		OrderID: o.ID,
		Amount:  in.Amount,
		Full:    full,
		Reason:  in.Reason,
	})
	if err != nil {
		return domain.Payment{}, err
	}
	if err := s.repo.RefundWithOutbox(ctx, up, domain.EventOrderRefunded, payload, tracing.Traceparent(ctx)); err != nil {
		return domain.Payment{}, err
	}
	s.log.Info("refund recorded", "order_id", o.ID, "amount", in.Amount, "full", full)
	return p, nil
}

// GetOrder fetches one order with its items.
func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

// ListOrders returns a user's orders, newest first, without items.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}
