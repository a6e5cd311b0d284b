// ABOUTME: HTTP client for the upstream company-register extract API
// ABOUTME: Applies a hard per-call timeout and maps status codes onto the error taxonomy

package registre

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// maxResponseBody caps how much of an upstream response is read (4MB).
const maxResponseBody = 4 << 20

// ClientConfig holds configuration for the register client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	// Timeout is the hard per-call deadline. Calls exceeding it fail with
	// ErrUnavailable; there is no retry.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client fetches raw extracts from the register API.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a register client from the given configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger.With("component", "registre-client"),
	}, nil
}

// FetchExtract retrieves the raw extract for a SIREN in the given variant.
// The call is abandoned once the configured timeout elapses.
func (c *Client) FetchExtract(ctx context.Context, siren string, variant Variant) (*RawExtract, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/companies/%s/extract?type=%s",
		c.baseURL, url.PathEscape(siren), url.QueryEscape(string(variant)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building register request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("register call timed out", "siren", siren, "variant", variant, "timeout", c.timeout)
			return nil, fmt.Errorf("%w: deadline exceeded", ErrUnavailable)
		}
		c.logger.Warn("register call failed", "siren", siren, "variant", variant, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("register call complete",
		"siren", siren,
		"variant", variant,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decoding
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, siren)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: siren %q variant %q", ErrInvalidInput, siren, variant)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnknown, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	var raw RawExtract
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrUnknown, err)
	}

	return &raw, nil
}
