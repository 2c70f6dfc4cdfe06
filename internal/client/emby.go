// Package client provides the upstream HTTP client for the Emby server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/narapeka/emby.plugin.strmx/internal/config"
	"github.com/narapeka/emby.plugin.strmx/internal/metrics"
	"github.com/narapeka/emby.plugin.strmx/internal/model"
)

// EmbyClient sends requests to the Emby server over a pooled transport.
// It is created once at startup and shared by all request handlers.
type EmbyClient struct {
	httpClient      *http.Client
	baseURL         string
	apiKey          string
	metadataTimeout time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

// NewEmbyClient creates an EmbyClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewEmbyClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *EmbyClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		// Compressed responses must reach the client exactly as the server
		// sent them, so the transport is not allowed to negotiate and
		// transparently decode its own Accept-Encoding.
		DisableCompression: true,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &EmbyClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.ForwardTimeoutSeconds) * time.Second,
		},
		baseURL:         strings.TrimRight(cfg.Emby.BaseURL, "/"),
		apiKey:          cfg.Emby.APIKey,
		metadataTimeout: time.Duration(cfg.Upstream.MetadataTimeoutSeconds) * time.Second,
		logger:          logger.With("component", "emby_client"),
		metrics:         m,
	}
}

// BaseURL returns the configured Emby server base URL without a trailing slash.
func (c *EmbyClient) BaseURL() string {
	return c.baseURL
}

// Close releases pooled upstream connections. Called on shutdown.
func (c *EmbyClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// Do executes an HTTP request against the Emby server and returns the raw
// response. The caller is responsible for closing the response body.
func (c *EmbyClient) Do(req *http.Request) (*model.UpstreamResponse, error) {
	c.logger.Debug("upstream request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via UpstreamResponse
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// DoStream executes a request and returns the response body as a stream.
// The caller is responsible for closing the returned body. The provided
// context controls the lifetime of the upstream request: when the context
// is canceled (e.g. client disconnects), the upstream request is also
// canceled.
func (c *EmbyClient) DoStream(ctx context.Context, method, url string, header http.Header, body io.Reader) (*model.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header

	return c.Do(req)
}

// Item fetches item metadata by id. A non-200 response means the item is
// unknown to the server and is reported as absence (nil, nil); only
// transport-level failures return an error. The call is bounded by the
// metadata timeout so a stalled server cannot hold up a bypass decision.
func (c *EmbyClient) Item(ctx context.Context, itemID string) (*model.ItemMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	defer cancel()

	resp, err := c.getEndpoint(ctx, itemID, "")
	if err != nil {
		return nil, fmt.Errorf("item %s lookup: %w", itemID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var item model.ItemMetadata
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode item %s: %w", itemID, err)
	}
	return &item, nil
}

// ResolveStreamURL reads the stream URL stored in an item's strm file via
// the server's Download endpoint. The trimmed file content is the URL.
// A non-200 response yields an empty string with no error; there is no
// filesystem fallback.
func (c *EmbyClient) ResolveStreamURL(ctx context.Context, itemID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	defer cancel()

	resp, err := c.getEndpoint(ctx, itemID, "/Download")
	if err != nil {
		return "", fmt.Errorf("item %s download: %w", itemID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read item %s download: %w", itemID, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// getEndpoint issues an authenticated GET against /Items/{id}{suffix}.
func (c *EmbyClient) getEndpoint(ctx context.Context, itemID, suffix string) (*model.UpstreamResponse, error) {
	u := fmt.Sprintf("%s/Items/%s%s?api_key=%s",
		c.baseURL, url.PathEscape(itemID), suffix, url.QueryEscape(c.apiKey))
	return c.DoStream(ctx, http.MethodGet, u, make(http.Header), nil)
}
