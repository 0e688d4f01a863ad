package batches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout              = 10 * time.Second
	defaultMaxRetries           = 2
	defaultRetryInitialInterval = 200 * time.Millisecond

	// maxBodySize bounds what we read from the batch service.
	maxBodySize = 4 << 20
)

var errNotFound = errors.New("batch not found")

// Client is the HTTP client for the test batch service.
type Client struct {
	baseURL         string
	credentials     string
	maxRetries      uint64
	initialInterval time.Duration
	httpClient      *http.Client
}

// NewClient creates a new batch service client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	interval := cfg.RetryInitialInterval
	if interval <= 0 {
		interval = defaultRetryInitialInterval
	}
	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		credentials:     strings.TrimPrefix(cfg.Credentials, "&"),
		maxRetries:      maxRetries,
		initialInterval: interval,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// GetBatchID resolves the batch id started for a commit reference.
func (c *Client) GetBatchID(ctx context.Context, ref string) (string, bool, error) {
	endpoint := fmt.Sprintf("%s/api/sessions/batches/batchId/%s?format=json", c.baseURL, url.PathEscape(ref))

	var resp *batchIDResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get batch id for %s: %w", ref, err)
	}
	if resp == nil || resp.BatchID == "" {
		return "", false, nil
	}
	return resp.BatchID, true, nil
}

// GetBatchSummary fetches the result summary of a batch.
func (c *Client) GetBatchSummary(ctx context.Context, batchID string) (BatchSummary, bool, error) {
	endpoint := fmt.Sprintf("%s/api/sessions/batches?format=json&count=1&limit=%s",
		c.baseURL, url.QueryEscape("== "+batchID))

	var resp *batchListResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return BatchSummary{}, false, nil
		}
		return BatchSummary{}, false, fmt.Errorf("failed to get batch summary for %s: %w", batchID, err)
	}
	if resp == nil || len(resp.Batches) == 0 {
		return BatchSummary{}, false, nil
	}
	return resp.Batches[0], true, nil
}

// getJSON performs a GET with retries on transport errors, 429 and 5xx.
// 404 yields errNotFound; other 4xx fail without retry.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	if c.credentials != "" {
		endpoint += "&" + c.credentials
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx)

	return backoff.Retry(func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		httpReq.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("failed to call batch service: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return fmt.Errorf("failed to read batch service response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(errNotFound)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("batch service error %d: %s", resp.StatusCode, string(body))
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("batch service error %d: %s", resp.StatusCode, string(body)))
		}

		if len(strings.TrimSpace(string(body))) == 0 {
			return backoff.Permanent(errNotFound)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode batch service response: %w", err))
		}
		return nil
	}, b)
}
