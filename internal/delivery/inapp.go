// internal/delivery/inapp.go
package delivery

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"

	"notification-queue/internal/common/http"
)

var ErrInAppRejected = errors.New("in-app message rejected")

type InAppMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// InAppClient posts messages to the internal message API.
type InAppClient struct {
	client  *http.Client
	url     string
	headers map[string]string
}

func NewInAppClient(client *http.Client, url string, headers map[string]string) *InAppClient {
	return &InAppClient{client: client, url: url, headers: headers}
}

// Send succeeds only on HTTP 200.
func (c *InAppClient) Send(ctx context.Context, msg InAppMessage) (map[string]interface{}, error) {
	if c.url == "" {
		return nil, fmt.Errorf("%w: in-app url is not configured", ErrInAppRejected)
	}
	resp, err := c.client.PostJSON(ctx, c.url, c.headers, msg)
	if err != nil {
		return nil, fmt.Errorf("post in-app message: %w", err)
	}
	result := map[string]interface{}{
		"status": resp.StatusCode,
		"body":   string(resp.Body),
	}
	if resp.StatusCode != nethttp.StatusOK {
		return result, fmt.Errorf("%w: status %d: %s", ErrInAppRejected, resp.StatusCode, string(resp.Body))
	}
	return result, nil
}
