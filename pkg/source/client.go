// Package source is a minimal client for cursor-paginated record APIs. It
// maps HTTP failures to typed errors so callers can tell rate limits from
// permanent failures, and adapts list endpoints to the importer's page
// fetcher. Retrying is deliberately left to the scheduler.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tqviet/extraq/pkg/importer"
)

const (
	DefaultBaseURL = "https://api.constitutional.io"
	DefaultTimeout = 30 * time.Second
)

type Options struct {
	// APIKey is required and sent as a bearer token.
	APIKey string

	// BaseURL overrides the default API host.
	BaseURL string

	// Region, when set, targets a regional API host.
	Region string

	Timeout time.Duration

	Logger *slog.Logger

	// HTTPClient overrides the default client, e.g. for tests.
	HTTPClient *http.Client
}

type Client struct {
	apiKey  string
	baseURL string
	logger  *slog.Logger
	hc      *http.Client
}

func NewClient(opts *Options) (*Client, error) {
	if opts == nil || len(opts.APIKey) == 0 {
		return nil, fmt.Errorf("api key is required")
	}

	baseURL := DefaultBaseURL
	if len(opts.BaseURL) > 0 {
		baseURL = opts.BaseURL
	} else if len(opts.Region) > 0 {
		baseURL = fmt.Sprintf("https://%s.api.constitutional.io", opts.Region)
	}

	timeout := DefaultTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		logger:  logger,
		hc:      hc,
	}, nil
}

// Get performs one GET against an API path and decodes the JSON body.
// Non-2xx responses come back as typed errors.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	u := c.baseURL + "/api" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		c.logger.
			With("err", err).
			With("path", path).
			Error("request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return map[string]any{}, nil
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return body, nil
	}

	return nil, c.errorFrom(resp, path)
}

func (c *Client) errorFrom(resp *http.Response, path string) error {
	requestID := resp.Header.Get("x-request-id")

	message := "request failed"
	code := "ERROR"

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if e, ok := body["error"].(map[string]any); ok {
			if m, ok := e["message"].(string); ok {
				message = m
			}
			if cd, ok := e["code"].(string); ok {
				code = cd
			}
		}
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		retryAfter := 60 * time.Second
		if v := resp.Header.Get("retry-after"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{
			Message:    message,
			RetryAfter: retryAfter,
			RequestID:  requestID,
		}
	case http.StatusUnauthorized:
		return &AuthError{
			Message:   message,
			RequestID: requestID,
		}
	case http.StatusNotFound:
		return &NotFoundError{
			Resource:  path,
			RequestID: requestID,
		}
	default:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       code,
			Message:    message,
			RequestID:  requestID,
		}
	}
}

// FetchPage adapts a list endpoint with a {data, pagination} envelope to the
// importer's page fetcher. filters are copied on every call; the cursor is
// appended by the paginator.
func (c *Client) FetchPage(path string, filters url.Values) importer.FetchFunc[map[string]any] {
	return func(ctx context.Context, cursor string) (importer.Page[map[string]any], error) {
		params := url.Values{}
		for k, vs := range filters {
			for _, v := range vs {
				params.Add(k, v)
			}
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		body, err := c.Get(ctx, path, params)
		if err != nil {
			return importer.Page[map[string]any]{}, err
		}

		page := importer.Page[map[string]any]{Total: -1}

		if data, ok := body["data"].([]any); ok {
			page.Items = make([]map[string]any, 0, len(data))
			for _, it := range data {
				if m, ok := it.(map[string]any); ok {
					page.Items = append(page.Items, m)
				}
			}
		}

		if pag, ok := body["pagination"].(map[string]any); ok {
			if hasMore, ok := pag["has_more"].(bool); ok {
				page.HasMore = hasMore
			}
			if cur, ok := pag["cursor"].(string); ok {
				page.Cursor = cur
			}
			if total, ok := pag["total"].(float64); ok {
				page.Total = int(total)
			}
		}

		return page, nil
	}
}
