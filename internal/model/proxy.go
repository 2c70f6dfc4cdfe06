// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents a client request to be relayed to the Emby server.
// RequestURI carries the original path plus raw query and is forwarded
// opaquely, never re-encoded. Body is nil when the client declared no body.
type ProxyRequest struct {
	Ctx        context.Context
	Method     string
	RequestURI string
	Header     http.Header
	Body       []byte
}

// UpstreamResponse is a raw upstream response whose body has not been read
// yet. Ownership of the body transfers to the receiver, which must close it.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// ForwardResponse is the fully buffered upstream response relayed back to
// the client after response-header stripping.
type ForwardResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
