// Package api talks to the payments endpoint. It owns the wire format, the
// TLS floor and the mapping of HTTP status classes to typed errors; it knows
// nothing about states or sessions.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/veltapay/checkout/internal/config"
	"github.com/veltapay/checkout/internal/model"
)

// Gateway is the payments call as seen by the orchestrator. The HTTP client
// below is the production implementation; tests and the demo use the mock
// backend.
type Gateway interface {
	Payments(ctx context.Context, req model.PaymentRequest) (model.PaymentResponse, error)
}

// Client is the HTTP payments client. TLS is floored at 1.2 and every call
// carries a bounded timeout; a timeout surfaces as a plain error that the
// session maps to an error trigger.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a payments client for the given endpoint base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

// Payments POSTs the payment payload and classifies the response.
func (c *Client) Payments(ctx context.Context, req model.PaymentRequest) (model.PaymentResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.PaymentResponse{}, fmt.Errorf("api: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return model.PaymentResponse{}, fmt.Errorf("api: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return model.PaymentResponse{}, fmt.Errorf("api: payments call: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, config.MaxDetailBytes))
	if err != nil {
		return model.PaymentResponse{}, fmt.Errorf("api: read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return model.PaymentResponse{}, classifyStatus(httpResp.StatusCode, respBody)
	}

	var resp model.PaymentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return model.PaymentResponse{}, fmt.Errorf("api: malformed response: %w", err)
	}
	return resp, ValidateResponse(resp)
}

// ValidateResponse checks the response against the wire contract: a known
// type discriminator, and a URL when the type is redirect.
func ValidateResponse(resp model.PaymentResponse) error {
	switch resp.Type {
	case model.ResponseComplete, model.ResponseError:
		return nil
	case model.ResponseRedirect:
		if resp.URL == "" {
			return fmt.Errorf("api: redirect response without url")
		}
		return nil
	default:
		return fmt.Errorf("api: unknown response type %q", resp.Type)
	}
}
