package policy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/lattice-run/warden/internal/telemetry"
)

// Settings is the per-evaluation configuration snapshot. An empty Topic
// disables remote evaluation entirely and every action is allowed.
type Settings struct {
	Topic   string
	Timeout time.Duration
}

// ConfigResolver supplies the evaluation settings. It is consulted on every
// call, so externally reloaded configuration takes effect on the next
// evaluation without engine involvement.
type ConfigResolver interface {
	Policy() Settings
}

// HostInfoProvider supplies the host metadata attached to outbound requests.
type HostInfoProvider interface {
	HostInfo() HostInfo
}

// EngineConfig carries the collaborators an Engine needs. Cache, Resolver,
// Transport and Host are required; Metrics and NewRequestID default when nil.
type EngineConfig struct {
	Cache     *DecisionCache
	Resolver  ConfigResolver
	Transport Transport
	Host      HostInfoProvider
	Metrics   *telemetry.PolicyMetrics
	Logger    zerolog.Logger

	// NewRequestID generates correlation ids for outbound requests.
	// Defaults to uuid-v4. Injectable so tests can use deterministic ids.
	NewRequestID func() string
}

// Engine is the decision gate for capability invocations. It is safe for
// concurrent use; the decision cache is its only shared mutable state.
type Engine struct {
	cache     *DecisionCache
	resolver  ConfigResolver
	evaluator *Evaluator
	host      HostInfoProvider
	metrics   *telemetry.PolicyMetrics
	logger    zerolog.Logger
	newID     func() string
}

// NewEngine creates a decision engine from cfg.
func NewEngine(cfg EngineConfig) *Engine {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewPolicyMetrics(prometheus.NewRegistry())
	}

	newID := cfg.NewRequestID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	return &Engine{
		cache:     cfg.Cache,
		resolver:  cfg.Resolver,
		evaluator: NewEvaluator(cfg.Transport, cfg.Logger),
		host:      cfg.Host,
		metrics:   metrics,
		logger:    cfg.Logger.With().Str("component", "policy-engine").Logger(),
		newID:     newID,
	}
}

// EvaluateAction decides whether source may perform action against target.
// It never returns an error: validation failures, transport timeouts and
// malformed replies all collapse to a deny decision.
//
// Two concurrent calls that both miss the cache for the same triple each
// issue their own remote request; whichever response is cached last wins.
// There is deliberately no single-flight suppression.
func (e *Engine) EvaluateAction(ctx context.Context, source, target map[string]any, action any) Decision {
	start := time.Now()
	defer func() { e.metrics.ObserveEvaluationDuration(time.Since(start)) }()

	cfg := e.resolver.Policy()
	if cfg.Topic == "" {
		e.metrics.RecordEvaluation(telemetry.OutcomeDisabled)
		return Decision{Permitted: true, Message: msgEvaluationDisabled, RequestID: ""}
	}

	actionName, _ := action.(string)

	// Descriptor values are opaque beyond field presence, so an identity
	// field may legitimately hold a non-string value. Such triples get no
	// cache key at all: collapsing them to a string would let two distinct
	// identities share one entry. They are a permanent miss on both the
	// lookup and the store path, and validation and remote evaluation
	// still govern every call.
	key, keyed := cacheKeyFor(source, target, action)

	if keyed {
		if decision, ok := e.cache.Get(key); ok {
			e.metrics.RecordEvaluation(telemetry.OutcomeCacheHit)
			return decision
		}
	}

	if err := e.validate(source, target, action); err != nil {
		e.logger.Error().
			Err(err).
			Str("source_id", key.SourceID).
			Str("target_id", key.TargetID).
			Str("action", actionName).
			Msg("policy evaluation rejected invalid arguments")
		e.metrics.RecordEvaluation(telemetry.OutcomeValidationError)
		return Decision{Permitted: false, Message: err.Error(), RequestID: ""}
	}

	req := &Request{
		RequestID: e.newID(),
		Source:    source,
		Target:    target,
		Action:    actionName,
		Host:      e.host.HostInfo(),
	}

	decision, outcome := e.evaluator.Evaluate(ctx, req, cfg.Topic, cfg.Timeout)
	if outcome.Cacheable() {
		if keyed {
			e.cache.Put(key, decision)
			e.cache.PutIndex(req.RequestID, key)
		}
		if decision.Permitted {
			e.metrics.RecordEvaluation(telemetry.OutcomeAllowed)
		} else {
			e.metrics.RecordEvaluation(telemetry.OutcomeDenied)
		}
	} else {
		e.metrics.RecordEvaluation(outcome.String())
	}

	return decision
}

// validate runs the argument checks in order, stopping at the first failure.
func (e *Engine) validate(source, target map[string]any, action any) error {
	if err := ValidateSource(source); err != nil {
		return err
	}
	if err := ValidateTarget(target); err != nil {
		return err
	}
	return ValidateAction(action)
}

// cacheKeyFor derives the cache key from the identity fields of the
// descriptors. It reports false when any identity field is not a string, in
// which case the triple must never touch the cache.
func cacheKeyFor(source, target map[string]any, action any) (CacheKey, bool) {
	sourceID, ok := stringField(source, "publicKey")
	if !ok {
		return CacheKey{}, false
	}
	targetID, ok := stringField(target, "publicKey")
	if !ok {
		return CacheKey{}, false
	}
	actionName, ok := action.(string)
	if !ok {
		return CacheKey{}, false
	}
	return CacheKey{SourceID: sourceID, TargetID: targetID, Action: actionName}, true
}

func stringField(m map[string]any, field string) (string, bool) {
	s, ok := m[field].(string)
	return s, ok
}
