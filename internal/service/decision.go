package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/narapeka/emby.plugin.strmx/internal/client"
	"github.com/narapeka/emby.plugin.strmx/internal/intercept"
	"github.com/narapeka/emby.plugin.strmx/internal/metrics"
	"github.com/narapeka/emby.plugin.strmx/internal/model"
)

// strmExt marks indirection files whose content is the real stream URL
// rather than playable media.
const strmExt = ".strm"

// OutcomeKind enumerates the two ways the engine can answer a request.
type OutcomeKind int

const (
	// OutcomeForward relays the request to the Emby server.
	OutcomeForward OutcomeKind = iota
	// OutcomeBypass answers with a synthesized PlaybackInfo payload.
	OutcomeBypass
)

// Outcome is the decision for a single request. Payload is set only when
// Kind is OutcomeBypass.
type Outcome struct {
	Kind    OutcomeKind
	ItemID  string
	Payload *model.PlaybackInfo
}

// DecisionEngine decides per request whether to bypass server-side probing
// for strm items or fall through to transparent forwarding.
type DecisionEngine struct {
	client  *client.EmbyClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewDecisionEngine creates a DecisionEngine. The metrics parameter is
// optional; pass nil to disable decision counters.
func NewDecisionEngine(c *client.EmbyClient, logger *slog.Logger, m *metrics.Metrics) *DecisionEngine {
	return &DecisionEngine{
		client:  c,
		logger:  logger.With("component", "decision_engine"),
		metrics: m,
	}
}

// Decide classifies the request path and determines whether to answer with
// a synthesized PlaybackInfo payload. Decide never fails: metadata lookup
// problems, ineligible items and unresolvable strm files all degrade to a
// forward outcome, so a bypass-path defect can at worst cost the
// optimization, never the request. No upstream call is made for paths that
// do not match the PlaybackInfo pattern.
func (e *DecisionEngine) Decide(ctx context.Context, path string) Outcome {
	itemID, ok := intercept.Classify(path)
	if !ok {
		return Outcome{Kind: OutcomeForward}
	}

	item, err := e.client.Item(ctx, itemID)
	if err != nil {
		e.logger.Debug("item lookup failed, forwarding",
			"item_id", itemID,
			"err", err,
		)
		return e.fallback(itemID, metrics.DecisionLookupError)
	}
	if item == nil {
		return e.fallback(itemID, metrics.DecisionNoMetadata)
	}

	if !isStrmItem(item) {
		return e.fallback(itemID, metrics.DecisionNotStrm)
	}

	streamURL, err := e.client.ResolveStreamURL(ctx, itemID)
	if err != nil {
		e.logger.Debug("strm resolution failed, forwarding",
			"item_id", itemID,
			"err", err,
		)
		return e.fallback(itemID, metrics.DecisionResolutionError)
	}
	if streamURL == "" {
		e.logger.Warn("strm file has no content, forwarding",
			"item_id", itemID,
			"name", item.Name,
		)
		return e.fallback(itemID, metrics.DecisionEmptyStrm)
	}

	e.logger.Info("bypassing probe for strm item",
		"item_id", itemID,
		"name", item.Name,
	)
	e.record(metrics.DecisionBypass)

	id := item.ID
	if id == "" {
		id = itemID
	}
	return Outcome{
		Kind:    OutcomeBypass,
		ItemID:  itemID,
		Payload: NewPlaybackInfo(id, streamURL),
	}
}

// fallback records the reason a candidate fell back to forwarding.
func (e *DecisionEngine) fallback(itemID, reason string) Outcome {
	e.record(reason)
	return Outcome{Kind: OutcomeForward, ItemID: itemID}
}

func (e *DecisionEngine) record(outcome string) {
	if e.metrics != nil {
		e.metrics.PlaybackDecisions.WithLabelValues(outcome).Inc()
	}
}

// isStrmItem reports whether the item's source path names an strm
// indirection file. The check is case-insensitive.
func isStrmItem(item *model.ItemMetadata) bool {
	return strings.HasSuffix(strings.ToLower(item.Path), strmExt)
}
