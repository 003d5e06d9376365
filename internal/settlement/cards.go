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

// HTTPCardIssuer talks to the card-issuing rail over its HTTP API.
type HTTPCardIssuer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPCardIssuer builds a client for the given issuing endpoint.
func NewHTTPCardIssuer(baseURL, apiKey string) *HTTPCardIssuer {
	return &HTTPCardIssuer{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type cardIssueRequest struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
	Owner  string `json:"owner"`
}

type cardIssueResponse struct {
	Accepted bool `json:"accepted"`
	Card     struct {
		Last4    string `json:"last4"`
		ExpMonth string `json:"exp_month"`
		ExpYear  string `json:"exp_year"`
	} `json:"card"`
	Reference     string `json:"reference"`
	FailureReason string `json:"failure_reason"`
}

type cardToggleRequest struct {
	Active bool `json:"active"`
}

type cardToggleResponse struct {
	Accepted      bool   `json:"accepted"`
	FailureReason string `json:"failure_reason"`
}

type cardStatusResponse struct {
	Status string `json:"status"`
}

// IssueCard POSTs the issuance request and maps the rail's answer.
func (c *HTTPCardIssuer) IssueCard(ctx context.Context, req CardRequest) (CardDecision, error) {
	payload := cardIssueRequest{Label: req.Label, Amount: req.Amount, Owner: req.Owner}

	var resp cardIssueResponse
	if err := c.do(ctx, http.MethodPost, "/cards", payload, &resp); err != nil {
		return CardDecision{}, err
	}

	return CardDecision{
		Accepted: resp.Accepted,
		Card: CardDetails{
			Last4:    resp.Card.Last4,
			ExpMonth: resp.Card.ExpMonth,
			ExpYear:  resp.Card.ExpYear,
		},
		Reference:     resp.Reference,
		FailureReason: resp.FailureReason,
	}, nil
}

// SetCardActive PATCHes the desired active flag and fails unless the rail
// confirms the toggle.
func (c *HTTPCardIssuer) SetCardActive(ctx context.Context, cardID string, active bool) error {
	var resp cardToggleResponse
	path := "/cards/" + url.PathEscape(cardID)
	if err := c.do(ctx, http.MethodPatch, path, cardToggleRequest{Active: active}, &resp); err != nil {
		return err
	}
	if !resp.Accepted {
		return fmt.Errorf("%w: %s", ErrRejected, resp.FailureReason)
	}
	return nil
}

// PollStatus fetches the current status for a previously accepted issuance.
func (c *HTTPCardIssuer) PollStatus(ctx context.Context, reference string) (Status, error) {
	var resp cardStatusResponse
	path := "/cards/" + url.PathEscape(reference) + "/status"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return parseRailStatus(resp.Status), nil
}

func (c *HTTPCardIssuer) do(ctx context.Context, method, path string, in, out any) error {
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
		return fmt.Errorf("card rail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("card rail: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
