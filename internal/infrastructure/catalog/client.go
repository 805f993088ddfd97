package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pricecheck/backend/internal/domain"
	"github.com/pricecheck/backend/internal/logging"
	"golang.org/x/time/rate"
)

const (
	cartPath   = "/api/cart/v1/carts/active"
	searchPath = "/api/v6/products/search"

	// credentialCookie carries the opaque upstream session credential
	credentialCookie = "global_sid"
)

// ClientConfig configures the catalog client. Zero values fall back to
// conservative defaults.
type ClientConfig struct {
	BaseURL            string
	CartRouteID        string
	SearchRouteID      string
	UserAgent          string
	RequestTimeout     time.Duration
	RegionTimeout      time.Duration
	RequestsPerMinute  int
	MinRequestInterval time.Duration
	MaxResponseBytes   int64
	MaxDepth           int
}

// Client handles communication with the upstream catalog service. It is
// safe for concurrent use; all workers share one rate limiter.
type Client struct {
	httpClient  *http.Client
	cfg         ClientConfig
	rateLimiter *rate.Limiter
	extractor   extractor
	logger      *slog.Logger
}

// NewClient creates a new catalog client
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.RegionTimeout <= 0 {
		cfg.RegionTimeout = 15 * time.Second
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = 16 << 20
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}

	return &Client{
		// per-request deadlines come from the context
		httpClient:  &http.Client{},
		cfg:         cfg,
		rateLimiter: newLimiter(cfg.RequestsPerMinute, cfg.MinRequestInterval),
		extractor:   extractor{maxDepth: cfg.MaxDepth},
		logger:      logging.OrDefault(logger).With("component", "catalog"),
	}
}

// newLimiter picks the stricter of the per-minute budget and the minimum spacing.
// With neither set the limiter never blocks.
func newLimiter(perMinute int, minInterval time.Duration) *rate.Limiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	if minInterval > 0 {
		if spaced := rate.Every(minInterval); spaced < limit {
			limit = spaced
		}
	}
	return rate.NewLimiter(limit, 1)
}

// response is a fully-read upstream reply
type response struct {
	status int
	body   string
}

// get performs one rate-limited GET with the credential cookie and a bounded timeout.
func (c *Client) get(ctx context.Context, path string, params url.Values, routeID, credential string, timeout time.Duration) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrUpstreamFailure, err)
	}

	reqURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json; charset=utf-8")
	if routeID != "" {
		req.Header.Set("client-route-id", routeID)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.AddCookie(&http.Cookie{Name: credentialCookie, Value: credential})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrUpstreamFailure, err)
	}
	if int64(len(body)) > c.cfg.MaxResponseBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", domain.ErrResponseTooLarge, c.cfg.MaxResponseBytes)
	}

	return &response{status: resp.StatusCode, body: string(body)}, nil
}

// isTimeout reports whether err came from an elapsed deadline
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
