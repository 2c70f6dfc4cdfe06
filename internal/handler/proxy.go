package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"github.com/narapeka/emby.plugin.strmx/internal/config"
	"github.com/narapeka/emby.plugin.strmx/internal/model"
	"github.com/narapeka/emby.plugin.strmx/internal/service"
)

// apiKeyPattern matches api_key query parameter values in URLs embedded in error messages.
var apiKeyPattern = regexp.MustCompile(`(?i)(api_key=)[^&\s"]+`)

// ProxyHandler dispatches every inbound request through the decision engine
// and either answers with a synthesized PlaybackInfo payload or relays the
// request to the Emby server.
type ProxyHandler struct {
	engine  *service.DecisionEngine
	forward *service.ForwardService
	cfg     *config.Config
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(engine *service.DecisionEngine, fwd *service.ForwardService, cfg *config.Config, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		engine:  engine,
		forward: fwd,
		cfg:     cfg,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle produces exactly one of three responses: the bypass payload, the
// relayed Emby response, or the gateway failure text.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	outcome := h.engine.Decide(req.Context(), req.URL.Path)
	if outcome.Kind == service.OutcomeBypass {
		return c.JSON(http.StatusOK, outcome.Payload)
	}

	pr, err := buildProxyRequest(req)
	if err != nil {
		h.logger.Error("reading request body", "err", err, "path", req.URL.Path)
		return echo.NewHTTPError(http.StatusBadRequest, "could not read request body")
	}

	resp, err := h.forward.Forward(pr)
	if err != nil {
		return h.gatewayFailure(c, err)
	}

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)
	if _, err := c.Response().Write(resp.Body); err != nil {
		h.logger.Error("writing response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

// buildProxyRequest snapshots the parts of the inbound request the
// forwarder needs. The body is read only when the client declared a
// positive Content-Length; requests without a body are forwarded with none.
func buildProxyRequest(req *http.Request) (*model.ProxyRequest, error) {
	var body []byte
	if req.ContentLength > 0 {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = b
	}

	return &model.ProxyRequest{
		Ctx:        req.Context(),
		Method:     req.Method,
		RequestURI: req.URL.RequestURI(),
		Header:     req.Header,
		Body:       body,
	}, nil
}

// gatewayFailure renders the one user-visible forwarding failure: a plain
// text 503 naming the unreachable server. Nothing from the bypass path ever
// reaches here.
func (h *ProxyHandler) gatewayFailure(c echo.Context, err error) error {
	h.logger.Error("forwarding failed",
		"err", sanitizeError(err),
		"path", c.Request().URL.Path,
	)

	msg := fmt.Sprintf("Proxy error: could not connect to Emby server at %s\n\nCheck that the server is running and the URL is correct.",
		h.cfg.Emby.BaseURL)
	return c.String(http.StatusServiceUnavailable, msg)
}

// sanitizeError redacts API keys from error messages that may contain upstream URLs.
func sanitizeError(err error) string {
	return apiKeyPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}
