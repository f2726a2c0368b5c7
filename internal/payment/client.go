// Package payment is the HTTP adapter for the external payment provider.
// The provider is a black box: the lifecycle only cares about approved /
// declined, a transaction id and the raw response payload.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/merchkit/orderflow/internal/order/application"
)

type Client struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
	name    string
}

func NewClient(log *slog.Logger, baseURL, name string) *Client {
	return &Client{
		log:     log,
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		name:    name,
	}
}

func (c *Client) Name() string { return c.name }

type chargeRequest struct {
	OrderID string            `json:"order_id"`
	Amount  float64           `json:"amount"`
	Method  string            `json:"method"`
	Details map[string]string `json:"details,omitempty"`
}

type refundRequest struct {
	OrderID       string  `json:"order_id"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transaction_id"`
	Reason        string  `json:"reason,omitempty"`
}

type providerResponse struct {
	TransactionID string `json:"transaction_id"`
	Approved      bool   `json:"approved"`
}

func (c *Client) Charge(ctx context.Context, req application.ChargeRequest) (application.ProviderResult, error) {
	return c.post(ctx, "/v1/charges", chargeRequest{
		OrderID: req.OrderID,
		Amount:  req.Amount,
		Method:  req.Method,
		Details: req.Details,
	})
}

func (c *Client) Refund(ctx context.Context, req application.RefundRequest) (application.ProviderResult, error) {
	return c.post(ctx, "/v1/refunds", refundRequest{
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
		Reason:        req.Reason,
	})
}

func (c *Client) post(ctx context.Context, path string, body any) (application.ProviderResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return application.ProviderResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return application.ProviderResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return application.ProviderResult{}, fmt.Errorf("payment provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return application.ProviderResult{}, err
	}
	if resp.StatusCode >= 500 {
		return application.ProviderResult{}, fmt.Errorf("payment provider: status %d", resp.StatusCode)
	}

	var pr providerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return application.ProviderResult{}, fmt.Errorf("payment provider: decode response: %w", err)
	}
	return application.ProviderResult{
		TransactionID: pr.TransactionID,
		Approved:      pr.Approved && resp.StatusCode < 300,
		Response:      raw,
	}, nil
}
