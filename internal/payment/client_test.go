package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merchkit/orderflow/internal/order/application"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(slog.New(slog.DiscardHandler), srv.URL, "testpay")
}

func TestChargeApproved(t *testing.T) {
	var got chargeRequest
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/charges", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(providerResponse{TransactionID: "txn-1", Approved: true})
	})

	res, err := c.Charge(context.Background(), application.ChargeRequest{
		OrderID: "ord-1",
		Amount:  27.59,
		Method:  "card",
	})
	require.NoError(t, err)
	require.True(t, res.Approved)
	require.Equal(t, "txn-1", res.TransactionID)
	require.NotEmpty(t, res.Response, "raw provider response is retained")

	require.Equal(t, "ord-1", got.OrderID)
	require.Equal(t, 27.59, got.Amount)
	require.Equal(t, "card", got.Method)
}

func TestChargeDeclined(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(providerResponse{TransactionID: "txn-2", Approved: false})
	})

	res, err := c.Charge(context.Background(), application.ChargeRequest{OrderID: "ord-1", Amount: 10})
	require.NoError(t, err, "a decline is a result, not an error")
	require.False(t, res.Approved)
	require.Equal(t, "txn-2", res.TransactionID)
}

func TestChargeProviderDown(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Charge(context.Background(), application.ChargeRequest{OrderID: "ord-1", Amount: 10})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 502")
}

func TestRefundReferencesOriginalTransaction(t *testing.T) {
	var got refundRequest
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/refunds", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(providerResponse{TransactionID: "rfn-1", Approved: true})
	})

	res, err := c.Refund(context.Background(), application.RefundRequest{
		OrderID:       "ord-1",
		Amount:        5.00,
		TransactionID: "txn-orig",
		Reason:        "late delivery",
	})
	require.NoError(t, err)
	require.True(t, res.Approved)
	require.Equal(t, "txn-orig", got.TransactionID)
	require.Equal(t, "late delivery", got.Reason)
}

func TestChargeMalformedResponse(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := c.Charge(context.Background(), application.ChargeRequest{OrderID: "ord-1", Amount: 10})
	require.Error(t, err)
}
