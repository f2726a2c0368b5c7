package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/merchkit/orderflow/internal/order/application"
	"github.com/merchkit/orderflow/internal/order/domain"
)

// IdemStore deduplicates order creation requests by Idempotency-Key.
type IdemStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Bind(ctx context.Context, key, orderID string) error
	OrderID(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key string) error
}

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	idem     IdemStore
	validate *validatorv10.Validate
	tracer   trace.Tracer
}

// NewHandler wires the lifecycle service behind the REST surface. idem may
// be nil, which disables request deduplication.
func NewHandler(log *slog.Logger, service *application.Service, idem IdemStore) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		idem:     idem,
		validate: validatorv10.New(),
		tracer:   otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/users/{userID}/orders", h.listOrders)
	r.Post("/orders/{id}/transitions", h.transition)
	r.Post("/orders/{id}/payments", h.processPayment)
	r.Post("/orders/{id}/refunds", h.refund)
	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderRequest
	if !h.bind(w, r, &req) {
		recordOperation("create", errors.New("bad request"))
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		claimed, err := h.idem.Claim(ctx, idemKey)
		if err != nil {
			h.writeError(ctx, w, err)
			recordOperation("create", err)
			return
		}
		if !claimed {
			orderID, err := h.idem.OrderID(ctx, idemKey)
			if err != nil {
				h.writeError(ctx, w, err)
				recordOperation("create", err)
				return
			}
			h.writeJSON(w, http.StatusConflict, map[string]string{
				"error":    "duplicate request",
				"order_id": orderID,
			})
			recordOperation("create", errors.New("duplicate"))
			return
		}
	}

	in := application.CreateOrderInput{
		UserID:          req.UserID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		ShippingMethod:  req.ShippingMethod,
		Notes:           req.Notes,
	}
	for _, l := range req.Items {
		in.Lines = append(in.Lines, application.CartLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	o, err := h.service.CreateOrder(ctx, in)
	recordOperation("create", err)
	if err != nil {
		if idemKey != "" && h.idem != nil {
			_ = h.idem.Release(ctx, idemKey)
		}
		h.writeError(ctx, w, err)
		return
	}
	if idemKey != "" && h.idem != nil {
		if err := h.idem.Bind(ctx, idemKey, o.ID); err != nil {
			h.log.Error("idempotency bind failed", "key", idemKey, "err", err)
		}
	}
	h.writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.service.ListOrders(ctx, chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TransitionOrder")
	defer span.End()

	var req transitionRequest
	if !h.bind(w, r, &req) {
		recordOperation("transition", errors.New("bad request"))
		return
	}

	o, err := h.service.Transition(ctx, application.TransitionInput{
		OrderID: chi.URLParam(r, "id"),
		Target:  domain.OrderStatus(req.Status),
		ActorID: req.ActorID,
		Comment: req.Comment,
	})
	recordOperation("transition", err)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ProcessPayment")
	defer span.End()

	var req paymentRequest
	if !h.bind(w, r, &req) {
		recordOperation("payment", errors.New("bad request"))
		return
	}

	p, err := h.service.ProcessPayment(ctx, application.PaymentInput{
		OrderID: chi.URLParam(r, "id"),
		Method:  req.Method,
		ActorID: req.ActorID,
		Details: req.Details,
	})
	recordOperation("payment", err)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RefundOrder")
	defer span.End()

	var req refundRequest
	if !h.bind(w, r, &req) {
		recordOperation("refund", errors.New("bad request"))
		return
	}

	p, err := h.service.Refund(ctx, application.RefundInput{
		OrderID: chi.URLParam(r, "id"),
		Amount:  req.Amount,
		Reason:  req.Reason,
		ActorID: req.ActorID,
	})
	recordOperation("refund", err)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

// bind decodes the JSON body into out and validates it, writing a 400
// response on failure.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	if err := h.validate.Struct(out); err != nil {
		fields := map[string]string{}
		var ve validatorv10.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				fields[fe.StructNamespace()] = fe.Tag()
			}
		}
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": fields,
		})
		return false
	}
	return true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.log.ErrorContext(ctx, "request failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("write response failed", "err", err)
	}
}
