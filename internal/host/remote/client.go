package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the HTTP connection to the browser-side bridge. Every host
// primitive is one POST with a JSON body, mirroring the bridge's
// message-passing surface.
type Client struct {
	rest *resty.Client
}

// NewClient creates a bridge client.
func NewClient(address string, timeout time.Duration) *Client {
	rest := resty.New().
		SetBaseURL(address).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{rest: rest}
}

// Storage returns the bridge-backed key-value store.
func (c *Client) Storage() *Storage { return &Storage{client: c} }

// Bookmarks returns the bridge-backed bookmark tree.
func (c *Client) Bookmarks() *Bookmarks { return &Bookmarks{client: c} }

// Tabs returns the bridge-backed tab surface.
func (c *Client) Tabs() *Tabs { return &Tabs{client: c} }

type bridgeError struct {
	Error string `json:"error"`
}

// call posts body to path and decodes the response into out. Operations
// are attempted exactly once; the engine layers above never retry.
func (c *Client) call(ctx context.Context, path string, body, out any) error {
	var apiErr bridgeError
	req := c.rest.R().SetContext(ctx).SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("bridge call %s failed: %w", path, err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return fmt.Errorf("bridge call %s rejected: %s", path, apiErr.Error)
		}
		return fmt.Errorf("bridge call %s rejected with status %s", path, resp.Status())
	}
	return nil
}
