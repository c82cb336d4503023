package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
)

var ErrPaymentNotFound = errors.New("payment not found at gateway")

type LinkRequest struct {
	Description       string
	AmountCents       int64
	PayerEmail        string
	ExternalReference string
	NotificationURL   string
}

// Client is the payment-gateway capability the core depends on. The real
// gateway lives behind HTTPClient; tests substitute their own fakes.
type Client interface {
	CreatePaymentLink(ctx context.Context, req LinkRequest) (string, error)
	PaymentStatus(ctx context.Context, paymentID string) (Status, error)
	ExternalReference(ctx context.Context, paymentID string) (string, error)
	CollectPayment(ctx context.Context, externalID string, amountCents int64) error
}

type HTTPClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewHTTPClient(baseURL, accessToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type linkResponse struct {
	InitPoint string `json:"init_point"`
}

type paymentResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

func (c *HTTPClient) CreatePaymentLink(ctx context.Context, req LinkRequest) (string, error) {
	payload := map[string]interface{}{
		"items": []map[string]interface{}{
			{
				"title":      req.Description,
				"quantity":   1,
				"unit_price": float64(req.AmountCents) / 100,
			},
		},
		"payer":              map[string]string{"email": req.PayerEmail},
		"external_reference": req.ExternalReference,
		"notification_url":   req.NotificationURL,
	}

	var resp linkResponse
	if err := c.post(ctx, "/checkout/preferences", payload, &resp); err != nil {
		return "", fmt.Errorf("failed to create payment link: %w", err)
	}

	return resp.InitPoint, nil
}

func (c *HTTPClient) PaymentStatus(ctx context.Context, paymentID string) (Status, error) {
	payment, err := c.getPayment(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return Status(payment.Status), nil
}

func (c *HTTPClient) ExternalReference(ctx context.Context, paymentID string) (string, error) {
	payment, err := c.getPayment(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return payment.ExternalReference, nil
}

func (c *HTTPClient) CollectPayment(ctx context.Context, externalID string, amountCents int64) error {
	payload := map[string]interface{}{
		"external_id":        externalID,
		"transaction_amount": float64(amountCents) / 100,
	}

	var resp paymentResponse
	if err := c.post(ctx, "/v1/payments", payload, &resp); err != nil {
		return fmt.Errorf("failed to collect payment: %w", err)
	}

	if Status(resp.Status) != StatusApproved {
		return fmt.Errorf("payment %s not approved: status %s", externalID, resp.Status)
	}

	return nil
}

func (c *HTTPClient) getPayment(ctx context.Context, paymentID string) (*paymentResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPaymentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var payment paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &payment, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	// The gateway deduplicates retried requests by this key.
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
