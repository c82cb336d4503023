package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SMSSender delivers notifications through an HTTP SMS provider.
type SMSSender struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewSMSSender(endpoint, apiKey string) *SMSSender {
	return &SMSSender{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SMSSender) Send(msg Message) error {
	payload := map[string]interface{}{
		"to":       msg.Phone,
		"template": string(msg.Kind),
		"params":   msg.Params,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}

	return nil
}
