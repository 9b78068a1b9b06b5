package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeajar/scruffy/pkg/config"
	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/telemetry/tracing"
)

const (
	// defaultMaxRetries bounds retries of idempotent reads.
	defaultMaxRetries = 2

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 512
)

// StatusError is a non-2xx answer from a media service.
type StatusError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s %s: status %d", e.Service, e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client is the HTTP transport shared by the Overseerr, Radarr and Sonarr
// clients. All three authenticate with an X-Api-Key header and speak JSON.
type Client struct {
	service    string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// NewClient creates a client for service using cfg.
func NewClient(service string, cfg config.ServiceConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultServiceTimeout
	}

	return &Client{
		service: service,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: timeout,
		},
		maxRetries: defaultMaxRetries,
		backoff:    500 * time.Millisecond,
		logger:     slog.Default().With("component", "catalog", "service", service),
	}
}

// Service returns the service name used in errors and logs.
func (c *Client) Service() string {
	return c.service
}

// get decodes the JSON answer of a GET into out. Transport errors and 5xx
// answers are retried with exponential backoff.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff << (attempt - 1)
			c.logger.DebugContext(ctx, "retrying request",
				"path", path,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := c.do(ctx, http.MethodGet, path, query, nil, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			return err
		}
	}
	return lastErr
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return true
}

// do performs one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded answer.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	tracing.Inject(ctx, req.Header)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.DebugContext(ctx, "sending request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Service:    c.service,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// wrap converts a transport error into the loans error taxonomy.
func (c *Client) wrap(operation, resource string, id any, err error) error {
	if err == nil {
		return nil
	}
	if IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%s: %w", c.service, loans.NewNotFoundError(resource, id))
	}
	return loans.NewUnavailableError(c.service, operation, err)
}

// ping checks the service's status endpoint.
func (c *Client) ping(ctx context.Context, path string) error {
	return c.wrap("ping", "status", path, c.do(ctx, http.MethodGet, path, nil, nil, nil))
}

// image is a poster or fanart entry of Radarr and Sonarr.
type image struct {
	CoverType string `json:"coverType"`
	RemoteURL string `json:"remoteUrl"`
}

func posterURL(images []image) string {
	for _, img := range images {
		if img.CoverType == "poster" {
			return img.RemoteURL
		}
	}
	return ""
}
