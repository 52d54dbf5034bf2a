/**
 * @description
 * This package provides a client for the university-facing enrollment
 * integration. When an application or scholarship fee settles, the partner
 * university is informed through this API so it can advance the student's
 * enrollment (document requests, I-20 deadlines).
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package universityclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for the university integration API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new university integration client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FeePaidRequest is the payload informing a university that a fee settled.
type FeePaidRequest struct {
	StudentID     string `json:"student_id"`
	ApplicationID string `json:"application_id"`
	FeeCategory   string `json:"fee_category"`
	Amount        int64  `json:"amount"` // in cents
	PaidAt        string `json:"paid_at"`
}

// NotifyFeePaid posts a fee-paid notice for one application. The caller treats
// any error as a non-fatal delivery failure; there is no retry here.
func (c *Client) NotifyFeePaid(ctx context.Context, req FeePaidRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal fee-paid request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/enrollments/fee-paid", c.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to build fee-paid request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fee-paid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("university API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
