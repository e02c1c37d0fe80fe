// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodySize caps downloaded attachments and echoed responses.
const maxBodySize = 25 << 20

// ErrBodyTooLarge reports a response body over the size cap. The body is
// never returned truncated.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

type Client struct {
	httpClient *http.Client
	maxBody    int64
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBody: maxBodySize,
	}
}

// Get downloads url and fails on any non-2xx status.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.read(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp, nil
}

// PostJSON sends payload as JSON. Non-2xx statuses are returned, not treated as errors.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload interface{}) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.read(req)
}

func (c *Client) read(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("%s %s: %w (%d bytes)", req.Method, req.URL, ErrBodyTooLarge, c.maxBody)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
