package woocommerce

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"headless-checkout/internal/adapter"
	"headless-checkout/internal/metrics"
	"headless-checkout/internal/model"
	"headless-checkout/internal/transport"
)

// =============================================================================
// AUTHENTICATION STRATEGY
// =============================================================================
//
// The WooCommerce REST API (wc/v3) accepts consumer key/secret either as HTTP
// Basic credentials or as consumer_key/consumer_secret query parameters.
//
// We always try Basic first. Some hosts (CGI/FastCGI PHP, certain reverse
// proxies) strip the Authorization header before it reaches WordPress, which
// shows up as a 401. Only on 401, and only once, the order POST is repeated
// with the credentials moved into the query string.
//
//   create order:  POST /orders (Basic) ── 401 ──> POST /orders?consumer_key=..  (1-2 calls)
//   slug lookup:   GET /products?slug=.. (Basic)                                 (1 call)
//
// Other error statuses are returned as-is. Transport errors are never retried:
// the first POST may have created an order even if the response was lost.
// =============================================================================

// restAPIPath is the base path for WooCommerce REST API v3 endpoints.
const restAPIPath = "/wp-json/wc/v3"

// userAgent identifies this client to upstream servers.
// Required: WooCommerce CDN/WAF rate-limits requests without User-Agent.
const userAgent = "Headless-Checkout/1.0"

// Environment variable names reported in configuration errors.
const (
	envSiteURL        = "WOOCOMMERCE_SITE_URL"
	envConsumerKey    = "WOOCOMMERCE_CONSUMER_KEY"
	envConsumerSecret = "WOOCOMMERCE_CONSUMER_SECRET"
	envSharedSecret   = "WOO_SHARED_SECRET"
)

// Defaults applied by New.
const (
	defaultTimeout            = 30 * time.Second
	defaultResolveConcurrency = 4
)

// Config holds WooCommerce-specific adapter configuration.
// Missing values are not rejected here; each flow validates what it needs
// when it is called.
type Config struct {
	SiteURL        string
	ConsumerKey    string
	ConsumerSecret string
	SharedSecret   string

	// Timeout bounds each outbound request. Default: 30s.
	Timeout time.Duration

	// AllowInsecureTLS skips certificate verification for this client only.
	AllowInsecureTLS bool

	// ResolveConcurrency bounds parallel slug lookups per cart. Default: 4.
	ResolveConcurrency int

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// HTTPClient overrides the default Chrome-fingerprint client.
	HTTPClient *http.Client
}

// Client implements the adapter interface for WooCommerce stores.
type Client struct {
	httpClient         *http.Client
	siteURL            string
	consumerKey        string
	consumerSecret     string
	sharedSecret       string
	resolveConcurrency int
	logger             *slog.Logger
	metrics            *metrics.Metrics
}

// Verify Client implements Adapter interface at compile time.
var _ adapter.Adapter = (*Client)(nil)

// New creates a WooCommerce client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.SiteURL != "" {
		u, err := url.Parse(cfg.SiteURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid site URL %q", cfg.SiteURL)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	concurrency := cfg.ResolveConcurrency
	if concurrency <= 0 {
		concurrency = defaultResolveConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Use Chrome TLS fingerprint transport to avoid JA3-based rate limiting.
	// See internal/transport for rationale.
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: transport.NewChromeTransport(transport.Options{
				DialTimeout:      timeout,
				AllowInsecureTLS: cfg.AllowInsecureTLS,
			}),
		}
	}

	return &Client{
		httpClient:         httpClient,
		siteURL:            strings.TrimSuffix(cfg.SiteURL, "/"),
		consumerKey:        cfg.ConsumerKey,
		consumerSecret:     cfg.ConsumerSecret,
		sharedSecret:       cfg.SharedSecret,
		resolveConcurrency: concurrency,
		logger:             logger,
		metrics:            cfg.Metrics,
	}, nil
}

// hasRESTCredentials reports whether both consumer key and secret are set.
func (c *Client) hasRESTCredentials() bool {
	return c.consumerKey != "" && c.consumerSecret != ""
}

// requireDirectConfig checks settings needed by the direct order flow.
func (c *Client) requireDirectConfig() error {
	var missing []string
	if c.siteURL == "" {
		missing = append(missing, envSiteURL)
	}
	if c.consumerKey == "" {
		missing = append(missing, envConsumerKey)
	}
	if c.consumerSecret == "" {
		missing = append(missing, envConsumerSecret)
	}
	if len(missing) > 0 {
		return model.NewConfigurationError(missing...)
	}
	return nil
}

// requireCartImportConfig checks settings needed by the signed cart-import flow.
func (c *Client) requireCartImportConfig() error {
	var missing []string
	if c.siteURL == "" {
		missing = append(missing, envSiteURL)
	}
	if c.sharedSecret == "" {
		missing = append(missing, envSharedSecret)
	}
	if len(missing) > 0 {
		return model.NewConfigurationError(missing...)
	}
	return nil
}

// === HTTP Helpers ===

// restResponse is a fully read REST response.
type restResponse struct {
	status int
	body   []byte
}

func (r *restResponse) ok() bool {
	return r.status >= 200 && r.status < 300
}

// authMode selects where REST credentials are sent.
type authMode int

const (
	authHeader authMode = iota // Authorization: Basic
	authQuery                  // ?consumer_key=..&consumer_secret=..
)

// doREST executes a request against the REST API and reads the whole body.
// Transport errors are returned as UpstreamError; HTTP error statuses are not
// errors here and are left for the caller to interpret.
func (c *Client) doREST(ctx context.Context, operation, method, path string, query url.Values, body []byte, mode authMode) (*restResponse, error) {
	if query == nil {
		query = url.Values{}
	}
	if mode == authQuery {
		query.Set("consumer_key", c.consumerKey)
		query.Set("consumer_secret", c.consumerSecret)
	}

	fullURL := c.siteURL + restAPIPath + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", operation, err)
	}

	c.setRESTHeaders(req, mode)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(operation, 0)
		return nil, model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveUpstream(operation, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewUpstreamError("WooCommerce", fmt.Errorf("reading %s response: %w", operation, err))
	}

	return &restResponse{status: resp.StatusCode, body: respBody}, nil
}

// setRESTHeaders sets headers for WooCommerce REST API requests.
// With authQuery the Authorization header is deliberately absent.
func (c *Client) setRESTHeaders(req *http.Request, mode authMode) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	if mode == authHeader {
		req.Header.Set("Authorization", "Basic "+c.basicAuth())
	}
}

// basicAuth returns the base64 "key:secret" credential.
func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.consumerKey + ":" + c.consumerSecret))
}
