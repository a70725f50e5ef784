package policy

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/lattice-run/warden/internal/telemetry"
)

// overrideRequest is the inbound override envelope. Fields are pointers so a
// missing field is distinguishable from a zero value.
type overrideRequest struct {
	RequestID *string `json:"requestId"`
	Permitted *bool   `json:"permitted"`
	Message   *string `json:"message"`
}

// OverrideHandler applies retroactive decision overrides delivered on the
// override topic. An override names the correlation id of an earlier remote
// evaluation; the handler resolves it through the cache index and replaces
// the decision for that triple. The id stays indexed afterwards, so the same
// id can be overridden again.
type OverrideHandler struct {
	cache   *DecisionCache
	metrics *telemetry.PolicyMetrics
	logger  zerolog.Logger
}

// NewOverrideHandler creates a handler writing into cache.
func NewOverrideHandler(cache *DecisionCache, metrics *telemetry.PolicyMetrics, logger zerolog.Logger) *OverrideHandler {
	return &OverrideHandler{
		cache:   cache,
		metrics: metrics,
		logger:  logger.With().Str("component", "policy-override").Logger(),
	}
}

// Handle processes one inbound override payload and returns the
// acknowledgement to send back. Malformed payloads and unknown ids are
// acknowledged as failure but never raise locally; no partial application
// occurs.
func (h *OverrideHandler) Handle(ctx context.Context, payload []byte) []byte {
	var req overrideRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.logger.Warn().Err(err).Msg("discarding malformed policy override")
		h.metrics.RecordOverride(telemetry.OverrideMalformed)
		return h.ack(false)
	}
	if req.RequestID == nil || req.Permitted == nil || req.Message == nil {
		h.logger.Warn().Msg("discarding policy override with missing fields")
		h.metrics.RecordOverride(telemetry.OverrideMalformed)
		return h.ack(false)
	}

	key, ok := h.cache.LookupIndex(*req.RequestID)
	if !ok {
		h.logger.Debug().
			Str("request_id", *req.RequestID).
			Msg("policy override references unknown request id")
		h.metrics.RecordOverride(telemetry.OverrideUnknownID)
		return h.ack(false)
	}

	h.cache.Put(key, Decision{
		Permitted: *req.Permitted,
		Message:   *req.Message,
		RequestID: *req.RequestID,
	})

	h.logger.Info().
		Str("request_id", *req.RequestID).
		Str("source_id", key.SourceID).
		Str("target_id", key.TargetID).
		Str("action", key.Action).
		Bool("permitted", *req.Permitted).
		Msg("policy decision overridden")
	h.metrics.RecordOverride(telemetry.OverrideApplied)

	return h.ack(true)
}

func (h *OverrideHandler) ack(success bool) []byte {
	data, err := json.Marshal(OverrideAck{Success: success})
	if err != nil {
		// OverrideAck cannot fail to marshal.
		return []byte(`{"success":false}`)
	}
	return data
}
