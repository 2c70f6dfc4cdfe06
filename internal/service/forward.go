// Package service implements the interception decision and the transparent
// forwarding logic.
package service

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/narapeka/emby.plugin.strmx/internal/client"
	"github.com/narapeka/emby.plugin.strmx/internal/model"
)

// strippedRequestHeaders are removed before forwarding a client request.
// Connection is hop-by-hop; Host is wrong for the new destination and is
// recomputed by the transport. Everything else, including authentication
// headers, passes through unchanged.
var strippedRequestHeaders = []string{
	"Connection",
	"Host",
}

// strippedResponseHeaders are removed from upstream responses before they
// are relayed. Content-Length is recomputed from the buffered body;
// Content-Encoding is deliberately kept so the original compression reaches
// the client untouched.
var strippedResponseHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Transfer-Encoding",
	"Content-Length",
}

// ForwardService relays requests to the Emby server byte-for-byte, modulo
// the fixed header stripping policy.
type ForwardService struct {
	client *client.EmbyClient
	logger *slog.Logger
}

// NewForwardService creates a ForwardService.
func NewForwardService(c *client.EmbyClient, logger *slog.Logger) *ForwardService {
	return &ForwardService{
		client: c,
		logger: logger.With("component", "forward_service"),
	}
}

// Forward relays pr to the Emby server and returns the fully buffered
// response with hop-by-hop headers stripped. The destination is the base
// URL plus the original path and query, unchanged. Any connection failure
// is returned as an error for the handler to convert into the gateway
// failure response.
func (s *ForwardService) Forward(pr *model.ProxyRequest) (*model.ForwardResponse, error) {
	dest := s.client.BaseURL() + pr.RequestURI
	header := stripRequestHeaders(pr.Header)

	var body io.Reader
	if len(pr.Body) > 0 {
		body = bytes.NewReader(pr.Body)
	}

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"uri", pr.RequestURI,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, dest, header, body)
	if err != nil {
		return nil, fmt.Errorf("forward to emby: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read emby response: %w", err)
	}

	return &model.ForwardResponse{
		StatusCode: resp.StatusCode,
		Header:     stripResponseHeaders(resp.Header),
		Body:       respBody,
	}, nil
}

// stripRequestHeaders clones src and removes the request strip list.
// Stripping a header that is not present is a no-op.
func stripRequestHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	for _, h := range strippedRequestHeaders {
		dst.Del(h)
	}
	return dst
}

// stripResponseHeaders clones src and removes the response strip list.
func stripResponseHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	for _, h := range strippedResponseHeaders {
		dst.Del(h)
	}
	return dst
}
