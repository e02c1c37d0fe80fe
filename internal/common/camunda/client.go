// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notification-queue/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client owns the gateway connection shared by every queue worker.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	// RequestTimeout bounds each attempt of a retried gateway call.
	RequestTimeout time.Duration
	RetryConfig    *RetryConfig
}

// RetryConfig defines backoff for transient gateway failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClientWithConfig connects to the gateway and fails unless it answers a
// topology request within ConnectionTimeout.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()
	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return &Client{client: zeebeClient, config: config}, nil
}

// GetClient returns the raw client the job workers poll with.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck backs the /ready endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	err := retry(ctx, c.config.RetryConfig, c.config.RequestTimeout, "topology", func(ctx context.Context) error {
		_, err := c.client.NewTopologyCommand().Send(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// retry runs call until it succeeds, fails permanently or runs out of
// attempts. attemptTimeout of zero leaves each attempt bounded by ctx only.
func retry(ctx context.Context, cfg *RetryConfig, attemptTimeout time.Duration, operation string, call func(context.Context) error) error {
	if cfg == nil {
		cfg = DefaultRetryConfig
	}

	delay := cfg.BaseDelay
	for attempt := 0; ; attempt++ {
		err := attemptOnce(ctx, attemptTimeout, call)
		if err == nil {
			return nil
		}
		if !isRetryableZeebeError(err) || attempt == cfg.MaxRetries {
			return classifyZeebeError(err, operation, attempt+1)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

func attemptOnce(ctx context.Context, timeout time.Duration, call func(context.Context) error) error {
	if timeout <= 0 {
		return call(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(ctx)
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// classifyZeebeError maps a final gateway failure onto the service error codes.
func classifyZeebeError(err error, operation string, attempts int) error {
	cause := fmt.Errorf("zeebe %s failed after %d attempt(s): %w", operation, attempts, err)
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return errors.NewTimeoutError("zeebe", cause)
	case strings.Contains(msg, "not found"):
		return errors.NewInvalidRequestError(cause.Error())
	default:
		return errors.NewExternalServiceError("zeebe", cause)
	}
}
