package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"officiating-platform/internal/config"
)

// Client talks to the external Policy Decision Point over HTTP JSON.
//
// A policy deny is a successful call returning Allowed=false; only
// transport/protocol failures surface as errors. Callers must not collapse
// the two.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

func NewClient(cfg config.PDPConfig) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		token:    cfg.Token,
		http:     &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type checkRequest struct {
	Principal Principal `json:"principal"`
	Resource  Resource  `json:"resource"`
	Action    string    `json:"action"`
}

type checkResponse struct {
	Allowed          bool     `json:"allowed"`
	ValidationErrors []string `json:"validationErrors"`
	MatchedRule      string   `json:"matchedRule"`
}

// Check evaluates one {principal, resource, action} triple.
func (c *Client) Check(ctx context.Context, p Principal, r Resource, action string) (Decision, error) {
	body, err := json.Marshal(checkRequest{Principal: p, Resource: r, Action: action})
	if err != nil {
		return Decision{}, fmt.Errorf("pdp: encode check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/check", bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("pdp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("pdp: check call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a little for the server-side log; never forwarded to clients.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Decision{}, fmt.Errorf("pdp: check returned status %d: %s", resp.StatusCode, snippet)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Decision{}, fmt.Errorf("pdp: decode check response: %w", err)
	}

	return Decision{
		Allowed:          out.Allowed,
		ValidationErrors: out.ValidationErrors,
		MatchedRule:      out.MatchedRule,
	}, nil
}

// Healthy probes the PDP health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("pdp: build health request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pdp: health probe: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pdp: health returned status %d", resp.StatusCode)
	}
	return nil
}
