package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPMobileMoney talks to the mobile-money rail over its HTTP API.
type HTTPMobileMoney struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPMobileMoney builds a client for the given rail endpoint.
func NewHTTPMobileMoney(baseURL, apiKey string) *HTTPMobileMoney {
	return &HTTPMobileMoney{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type mobileMoneyPaymentRequest struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	Provider  string `json:"provider"`
	Country   string `json:"country"`
}

type mobileMoneyPaymentResponse struct {
	Accepted      bool   `json:"accepted"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

type mobileMoneyStatusResponse struct {
	Status string `json:"status"`
}

// InitiateTransfer POSTs the payout request and maps the rail's answer to a
// TransferDecision. Called at most once per user submission.
func (c *HTTPMobileMoney) InitiateTransfer(ctx context.Context, req TransferRequest) (TransferDecision, error) {
	payload := mobileMoneyPaymentRequest{
		Amount:    req.Amount,
		Recipient: req.Phone,
		Provider:  req.Provider,
		Country:   req.Country,
	}

	var resp mobileMoneyPaymentResponse
	if err := c.do(ctx, http.MethodPost, "/payments", payload, &resp); err != nil {
		return TransferDecision{}, err
	}

	return TransferDecision{
		Accepted:      resp.Accepted,
		Reference:     resp.Reference,
		Status:        parseRailStatus(resp.Status),
		FailureReason: resp.FailureReason,
	}, nil
}

// PollStatus fetches the current status for a previously accepted payout.
func (c *HTTPMobileMoney) PollStatus(ctx context.Context, reference string) (Status, error) {
	var resp mobileMoneyStatusResponse
	path := "/payments/" + url.PathEscape(reference) + "/status"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return parseRailStatus(resp.Status), nil
}

func (c *HTTPMobileMoney) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("mobile money rail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mobile money rail: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseRailStatus maps provider status strings (PENDING, COMPLETED, FAILED)
// onto the internal Status values.
func parseRailStatus(s string) Status {
	switch strings.ToUpper(s) {
	case "COMPLETED", "SUCCEEDED", "SUCCESS":
		return StatusSucceeded
	case "FAILED", "REJECTED":
		return StatusFailed
	default:
		return StatusPending
	}
}
