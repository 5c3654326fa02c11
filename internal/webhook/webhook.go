// Package webhook is C4: a single outbound operation, trigger(event_name),
// fired at the hardware-actuation gateway. Grounded on the teacher's
// NaverWeatherCrawler.Fetch retry shape, adapted to a bare success/failure
// webhook call instead of a scraped-and-parsed document.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Client is C4's interface: live and stub variants both satisfy it so
// composition root can select one from Config.ExternalAPIMode.
type Client interface {
	Trigger(ctx context.Context, eventName string) error
}

// HTTPDoer is the subset of *http.Client Client needs, so tests can inject
// a fake transport without a real listener.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LiveClient dispatches events as HTTP POSTs to baseURL/<event_name>.
type LiveClient struct {
	client  HTTPDoer
	baseURL string
	key     string
	logger  *zap.Logger
}

func NewLiveClient(client HTTPDoer, baseURL, key string, logger *zap.Logger) *LiveClient {
	return &LiveClient{client: client, baseURL: baseURL, key: key, logger: logger}
}

// Trigger retries up to maxAttempts times with exponentially increasing
// delay, starting at initialBackoff, logging every attempt. It returns
// success iff any attempt observed an HTTP 2xx.
func (c *LiveClient) Trigger(ctx context.Context, eventName string) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.logger.Info("dispatching webhook event",
			zap.String("event", eventName),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
		)

		err := c.attempt(ctx, eventName)
		if err == nil {
			c.logger.Info("webhook event dispatched", zap.String("event", eventName), zap.Int("attempt", attempt))
			return nil
		}

		lastErr = err
		c.logger.Warn("webhook attempt failed",
			zap.String("event", eventName),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return fmt.Errorf("webhook %q failed after %d attempts: %w", eventName, maxAttempts, lastErr)
}

func (c *LiveClient) attempt(ctx context.Context, eventName string) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, eventName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// StubClient short-circuits the network call for development/test,
// per spec.md §4.4's stub-mode requirement.
type StubClient struct {
	logger *zap.Logger
}

func NewStubClient(logger *zap.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Trigger(_ context.Context, eventName string) error {
	c.logger.Info("stub webhook trigger", zap.String("event", eventName))
	return nil
}
