package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

const maxResponseBytes = 1 << 20

// Client talks to a running daemon's bridge. The CLI uses it for every
// command that acts on the live browser.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client. addr is either a host:port listen address or
// a full http:// base URL.
func NewClient(addr string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}

	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Send posts one protocol message and decodes the response. A non-2xx
// answer is returned as *Error wrapping the matching sentinel.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("bridge: encoding request: %w", err)
	}

	var resp Response
	if err := c.do(ctx, http.MethodPost, "/message", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Status fetches the daemon's ledger view.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.do(ctx, http.MethodGet, "/status", nil, &st); err != nil {
		return nil, err
	}

	return &st, nil
}

// Sessions lists up to limit saved sessions, newest first.
func (c *Client) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	var out []SessionSummary
	if err := c.do(ctx, http.MethodGet, "/sessions?limit="+strconv.Itoa(limit), nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// OpenGroups returns the open tabs partitioned by group name.
func (c *Client) OpenGroups(ctx context.Context) ([]OpenGroup, error) {
	var out []OpenGroup
	if err := c.do(ctx, http.MethodGet, "/groups", nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Health reports whether a daemon is answering at the configured address.
func (c *Client) Health(ctx context.Context) error {
	var resp Response
	return c.do(ctx, http.MethodGet, "/healthz", nil, &resp)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("bridge: creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: daemon not reachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("bridge: reading response: %w", err)
	}

	c.logger.Debug("bridge request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("bridge: decoding response: %w", err)
		}

		return nil
	}

	msg := strings.TrimSpace(string(data))

	var failed Response
	if json.Unmarshal(data, &failed) == nil && failed.Error != "" {
		msg = failed.Error
	}

	return &Error{StatusCode: resp.StatusCode, Message: msg, Err: sentinelFor(resp.StatusCode)}
}
