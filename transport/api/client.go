// Copyright 2025 AK Software GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api is the control-plane client shared by all upload transports:
// bearer-token authentication, the health check, and share-link resolution.
// Bulk byte transfer stays in the transport variants.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"aeromedia/transport"

	"go.uber.org/zap"
)

const (
	userAgent      = "aeromedia/1.0"
	healthTimeout  = 10 * time.Second
	controlTimeout = 30 * time.Second
	maxErrorBody   = 4 * 1024
)

var (
	ErrMissingCredentials = errors.New("api: url or bearer token not configured")
	ErrInvalidToken       = errors.New("api: invalid token format, expected key_xxxxx.secret")
	ErrUnauthorized       = errors.New("api: token rejected by server")
	ErrNoOrder            = errors.New("api: no order id available, upload first")
)

type Client struct {
	baseURL string
	token   string
	httpc   *http.Client

	mu        sync.Mutex
	connected bool
	tenantID  string
	orderID   string
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: controlTimeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// ValidToken checks the key_xxxxx.secret format before any request is made.
func (c *Client) ValidToken() bool {
	return strings.HasPrefix(c.token, "key_") && strings.Contains(c.token, ".")
}

// NewRequest builds a request against the API with the standard headers set.
// path must start with a slash.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// Do performs req and converts any non-2xx response into a StatusError for
// op. The response is returned with its body open only on success.
func (c *Client) Do(op string, req *http.Request) (*http.Response, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, NewStatusError(op, resp)
	}
	return resp, nil
}

// NewStatusError reads a bounded amount of the response body into the error.
func NewStatusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &transport.StatusError{
		Op:   op,
		Code: resp.StatusCode,
		Body: strings.TrimSpace(string(body)),
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	TenantID string `json:"tenant_id"`
}

// Connect validates the configured credentials against the health endpoint.
func (c *Client) Connect(ctx context.Context) error {
	lgr := zap.S()

	if c.baseURL == "" || c.token == "" {
		return ErrMissingCredentials
	}
	if !c.ValidToken() {
		return ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	req, err := c.NewRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.Do("health", req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("health: %w", err)
	}

	switch health.Status {
	case "healthy":
		c.mu.Lock()
		c.connected = true
		c.tenantID = health.TenantID
		c.mu.Unlock()
		lgr.Infow("api_connected", "tenant", health.TenantID)
		return nil
	case "unauthorized":
		return ErrUnauthorized
	default:
		return fmt.Errorf("health: unexpected status %q", health.Status)
	}
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	c.connected = false
	c.tenantID = ""
	c.orderID = ""
	c.mu.Unlock()
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) TenantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tenantID
}

func (c *Client) ConnectionStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		if c.tenantID != "" {
			return fmt.Sprintf("verbunden (tenant %s)", c.tenantID)
		}
		return "verbunden"
	}
	return "nicht verbunden"
}

// SetOrderID records the order issued by the most recent upload so the share
// link can be resolved afterwards.
func (c *Client) SetOrderID(id string) {
	c.mu.Lock()
	c.orderID = id
	c.mu.Unlock()
}

func (c *Client) OrderID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orderID
}

type shareLinkResponse struct {
	ShareURL    string `json:"share_url"`
	CustomerURL string `json:"customer_url"`
	URL         string `json:"url"`
}

// ShareLink resolves the customer-facing link for the last uploaded order.
// When the endpoint misbehaves, the link is constructed manually; only a
// missing order id is an error.
func (c *Client) ShareLink(ctx context.Context) (string, error) {
	lgr := zap.S()

	orderID := c.OrderID()
	if orderID == "" {
		return "", ErrNoOrder
	}

	req, err := c.NewRequest(ctx, http.MethodGet, "/get-share-link/"+orderID, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.Do("get_share_link", req)
	if err != nil {
		lgr.Warnw("share_link_error", "order_id", orderID, "err", err)
		return c.fallbackLink(orderID), nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var link shareLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		lgr.Warnw("share_link_decode_error", "order_id", orderID, "err", err)
		return c.fallbackLink(orderID), nil
	}
	for _, candidate := range []string{link.ShareURL, link.CustomerURL, link.URL} {
		if candidate != "" {
			return candidate, nil
		}
	}
	lgr.Warnw("share_link_missing_in_response", "order_id", orderID)
	return c.fallbackLink(orderID), nil
}

// fallbackLink builds the customer URL by hand, mirroring how the web UI
// addresses an order.
func (c *Client) fallbackLink(orderID string) string {
	base := strings.Replace(c.baseURL, "/api", "", 1)
	return base + "/content/" + orderID
}
