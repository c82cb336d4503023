package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_CreatePaymentLink(t *testing.T) {
	var captured map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkout/preferences", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("X-Idempotency-Key"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]string{
			"init_point": "https://pay.example.com/checkout/abc",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-token")

	url, err := client.CreatePaymentLink(context.Background(), LinkRequest{
		Description:       "Monthly",
		AmountCents:       250000,
		PayerEmail:        "ana@example.com",
		ExternalReference: "42",
		NotificationURL:   "https://api.example.com/webhooks/payments",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/checkout/abc", url)
	assert.Equal(t, "42", captured["external_reference"])
	assert.Equal(t, "https://api.example.com/webhooks/payments", captured["notification_url"])
}

func TestHTTPClient_PaymentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/pay-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"id":                 "pay-1",
			"status":             "approved",
			"external_reference": "42",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-token")

	status, err := client.PaymentStatus(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, status)

	ref, err := client.ExternalReference(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "42", ref)
}

func TestHTTPClient_PaymentStatus_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-token")

	_, err := client.PaymentStatus(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestHTTPClient_CollectPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"id":     "pay-2",
			"status": "approved",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-token")

	err := client.CollectPayment(context.Background(), "ext-1", 150000)

	assert.NoError(t, err)
}

func TestHTTPClient_CollectPayment_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"id":     "pay-3",
			"status": "rejected",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-token")

	err := client.CollectPayment(context.Background(), "ext-1", 150000)

	assert.Error(t, err)
}
