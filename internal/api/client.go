// Package api implements the control-plane client: a thin typed wrapper
// over the cluster's HTTP API, plus the repository, task-poller and
// resolver implementations the services depend on.
package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pwojcieszonek/pvectl/internal/config"
	"github.com/pwojcieszonek/pvectl/internal/configmap"
	"github.com/pwojcieszonek/pvectl/internal/pve"
)

// apiPrefix is the JSON API root on every cluster node.
const apiPrefix = "/api2/json"

// StatusError is a non-2xx response from the control plane. The body's
// message is passed through verbatim.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Code)
}

// Unwrap maps 404 onto pve.ErrNotFound so callers can detect missing
// resources with errors.Is.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return pve.ErrNotFound
	}
	return nil
}

// Client talks to the cluster API using token authentication.
type Client struct {
	base *url.URL
	http *http.Client
	auth string
}

// NewClient creates a client from a validated configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	base, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	transport := http.DefaultTransport
	if cfg.InsecureTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		base: base,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout(),
		},
		auth: fmt.Sprintf("PVEAPIToken=%s=%s", cfg.TokenID, cfg.Secret),
	}, nil
}

// Get performs a GET request and decodes the data envelope into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with form-encoded params.
func (c *Client) Post(ctx context.Context, path string, params map[string]any, out any) error {
	return c.do(ctx, http.MethodPost, path, params, out)
}

// Put performs a PUT request with form-encoded params.
func (c *Client) Put(ctx context.Context, path string, params map[string]any, out any) error {
	return c.do(ctx, http.MethodPut, path, params, out)
}

// Delete performs a DELETE request; params are sent as query values.
func (c *Client) Delete(ctx context.Context, path string, params map[string]any, out any) error {
	return c.do(ctx, http.MethodDelete, path, params, out)
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]any, out any) error {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + apiPrefix + path

	var body io.Reader
	if params != nil {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, configmap.Canonical(v))
		}
		if method == http.MethodDelete {
			u.RawQuery = values.Encode()
		} else {
			body = strings.NewReader(values.Encode())
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", c.auth)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(resp, data)}
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// errorMessage extracts the server's reason from an error response:
// the trimmed body when present, otherwise the HTTP status line.
func errorMessage(resp *http.Response, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" || strings.HasPrefix(msg, "{") {
		// JSON error bodies repeat per-field validation errors; the
		// status text carries the server's summary.
		if msg != "" {
			var parsed struct {
				Errors map[string]string `json:"errors"`
			}
			if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
				var parts []string
				for field, reason := range parsed.Errors {
					parts = append(parts, fmt.Sprintf("%s: %s", field, reason))
				}
				return strings.Join(parts, "; ")
			}
		}
		return resp.Status
	}
	return msg
}
