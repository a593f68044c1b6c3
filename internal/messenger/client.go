package messenger

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

	"github.com/phinze/wallpanel/internal/windowing"
)

// Client talks to a running messenger server.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
}

// NewClient creates a client for the server listening on addr, which is
// either a host:port or a URL.
func NewClient(addr, apiToken string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL:  strings.TrimSuffix(addr, "/"),
		apiToken: apiToken,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// FullStatus fetches the full status of a device.
func (c *Client) FullStatus(ctx context.Context, device string) (windowing.Status, error) {
	var st windowing.Status
	err := c.do(ctx, http.MethodGet, "/device/"+url.PathEscape(device)+"/fullStatus", nil, &st)
	return st, err
}

// Screen fetches the layout selection of one screen.
func (c *Client) Screen(ctx context.Context, device string, screen uint) (ScreenSelection, error) {
	var sel ScreenSelection
	err := c.do(ctx, http.MethodGet, screenPath(device, screen), nil, &sel)
	return sel, err
}

// Select selects a layout item of one screen.
func (c *Client) Select(ctx context.Context, device string, screen uint, key string) (ScreenSelection, error) {
	var sel ScreenSelection
	err := c.do(ctx, http.MethodPost, screenPath(device, screen)+"/select", SelectRequest{Key: key}, &sel)
	return sel, err
}

// SetLayout recalls a layout by value.
func (c *Client) SetLayout(ctx context.Context, device string, layout int) (windowing.Status, error) {
	var st windowing.Status
	err := c.do(ctx, http.MethodPost, "/device/"+url.PathEscape(device)+"/layout", LayoutRequest{Layout: layout}, &st)
	return st, err
}

// Route routes an input to a window.
func (c *Client) Route(ctx context.Context, device string, req RouteRequest) (windowing.Status, error) {
	var st windowing.Status
	err := c.do(ctx, http.MethodPost, "/device/"+url.PathEscape(device)+"/route", req, &st)
	return st, err
}

func screenPath(device string, screen uint) string {
	return fmt.Sprintf("/device/%s-screen-%d", url.PathEscape(device), screen)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, errResp.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
