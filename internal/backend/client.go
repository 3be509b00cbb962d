// Package backend is the request/response client for the chat backend: the fallback send
// endpoint and the widget configuration endpoint.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/livechat/internal/domain"
)

const (
	// DefaultTimeout bounds a single backend call.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// SendRequest is the body of POST /sendmessage.
type SendRequest struct {
	SellerID  string              `json:"sellerId"`
	WidgetID  string              `json:"widgetId"`
	Message   string              `json:"message"`
	UserInfo  *domain.VisitorInfo `json:"userInfo,omitempty"`
	Timestamp string              `json:"timestamp"`
}

// Client calls the chat backend. Every call is a single attempt.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(timeout),
		logger:  logger,
	}
}

// NewClientWithHTTP creates a client using an existing http.Client.
func NewClientWithHTTP(baseURL string, hc *http.Client, logger *slog.Logger) *Client {
	c := NewClient(baseURL, DefaultTimeout, logger)
	if hc != nil {
		c.http = hc
	}
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
}

// SendMessage posts a visitor message to the fallback endpoint. Any transport error or
// non-2xx status is returned as an error.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendmessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Failed to close response body", "error", closeErr)
		}
	}()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return nil
}

// FetchWidgetConfig returns the raw partial configuration for widgetID.
func (c *Client) FetchWidgetConfig(ctx context.Context, widgetID string) ([]byte, error) {
	endpoint := c.baseURL + "/config/widget/?" + url.Values{"widgetId": {widgetID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build config request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch widget config: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Failed to close response body", "error", closeErr)
		}
	}()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch widget config: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read widget config: %w", err)
	}
	return data, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
