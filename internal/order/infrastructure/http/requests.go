package http

import (
	"time"

	"github.com/merchkit/orderflow/internal/order/domain"
)

type cartLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	UserID          string            `json:"user_id" validate:"required"`
	ShippingAddress string            `json:"shipping_address" validate:"required"`
	BillingAddress  string            `json:"billing_address"`
	PaymentMethod   string            `json:"payment_method" validate:"required"`
	ShippingMethod  string            `json:"shipping_method" validate:"omitempty,oneof=standard express free"`
	Notes           string            `json:"notes"`
	Items           []cartLineRequest `json:"items" validate:"required,min=1,dive"`
}

type transitionRequest struct {
	Status  string `json:"status" validate:"required"`
	ActorID string `json:"actor_id" validate:"required"`
	Comment string `json:"comment"`
}

type paymentRequest struct {
	Method  string            `json:"method"`
	ActorID string            `json:"actor_id" validate:"required"`
	Details map[string]string `json:"details"`
}

type refundRequest struct {
	Amount  float64 `json:"amount" validate:"required,gt=0"`
	Reason  string  `json:"reason" validate:"required"`
	ActorID string  `json:"actor_id" validate:"required"`
}

type orderItemResponse struct {
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	SKU            string  `json:"sku"`
	ImageURL       string  `json:"image_url,omitempty"`
	UnitPrice      float64 `json:"unit_price"`
	Quantity       int     `json:"quantity"`
	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"tax_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	Total          float64 `json:"total"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Number          string              `json:"order_number"`
	UserID          string              `json:"user_id"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	Subtotal        float64             `json:"subtotal"`
	TaxAmount       float64             `json:"tax_amount"`
	ShippingAmount  float64             `json:"shipping_amount"`
	DiscountAmount  float64             `json:"discount_amount"`
	TotalAmount     float64             `json:"total_amount"`
	ShippingAddress string              `json:"shipping_address"`
	BillingAddress  string              `json:"billing_address"`
	PaymentMethod   string              `json:"payment_method"`
	Notes           string              `json:"notes,omitempty"`
	Items           []orderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
}

type paymentResponse struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	Provider      string    `json:"provider"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func toOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		Number:          o.Number,
		UserID:          o.UserID,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		Subtotal:        o.Subtotal,
		TaxAmount:       o.TaxAmount,
		ShippingAmount:  o.ShippingAmount,
		DiscountAmount:  o.DiscountAmount,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		PaymentMethod:   o.PaymentMethod,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		CompletedAt:     o.CompletedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			SKU:            it.SKU,
			ImageURL:       it.ImageURL,
			UnitPrice:      it.UnitPrice,
			Quantity:       it.Quantity,
			Subtotal:       it.Subtotal,
			TaxAmount:      it.TaxAmount,
			DiscountAmount: it.DiscountAmount,
			Total:          it.Total,
		})
	}
	return resp
}

func toPaymentResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Method:        p.Method,
		Provider:      p.Provider,
		TransactionID: p.TransactionID,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
	}
}
