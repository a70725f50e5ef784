// Package runtime wires the decision engine into a running host: it owns the
// message bus, the decision cache, the override subscription and the host
// identity forwarded to the remote evaluator.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/lattice-run/warden/internal/bus"
	"github.com/lattice-run/warden/internal/config"
	"github.com/lattice-run/warden/internal/policy"
	"github.com/lattice-run/warden/internal/telemetry"
)

// Runtime hosts the policy decision engine and its collaborators.
type Runtime struct {
	resolver *config.Resolver

	// bus is the lattice control-interface transport
	bus *bus.GoAktBus

	engine   *policy.Engine
	override *policy.OverrideHandler
	registry *prometheus.Registry

	// hostPublicKey is generated at start when the config does not pin one
	hostPublicKey string

	logger zerolog.Logger

	started bool
	mu      sync.RWMutex
}

// NewRuntime creates a runtime reading its configuration through resolver.
func NewRuntime(resolver *config.Resolver, logger zerolog.Logger) *Runtime {
	return &Runtime{
		resolver: resolver,
		registry: prometheus.NewRegistry(),
		logger:   logger.With().Str("component", "runtime").Logger(),
	}
}

// Start brings up the bus, builds the engine and subscribes the override
// handler on its configured topic.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("runtime already started")
	}

	cfg := r.resolver.Snapshot()

	r.hostPublicKey = cfg.HostPublicKey
	if r.hostPublicKey == "" {
		r.hostPublicKey = uuid.New().String()
	}

	b, err := bus.NewGoAktBus(ctx, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start bus: %w", err)
	}
	r.bus = b

	metrics := telemetry.NewPolicyMetrics(r.registry)
	cache := policy.NewDecisionCache()

	r.engine = policy.NewEngine(policy.EngineConfig{
		Cache:     cache,
		Resolver:  &policyResolver{resolver: r.resolver},
		Transport: b,
		Host:      &hostInfoResolver{resolver: r.resolver, publicKey: r.hostPublicKey},
		Metrics:   metrics,
		Logger:    r.logger,
	})
	r.override = policy.NewOverrideHandler(cache, metrics, r.logger)

	if cfg.OverrideTopic != "" {
		if err := b.Subscribe(cfg.OverrideTopic, r.override.Handle); err != nil {
			return fmt.Errorf("failed to subscribe override topic: %w", err)
		}
	}

	r.started = true

	r.logger.Info().
		Str("host_public_key", r.hostPublicKey).
		Str("lattice_id", cfg.LatticeID).
		Str("policy_topic", cfg.PolicyTopic).
		Str("override_topic", cfg.OverrideTopic).
		Msg("runtime started successfully")
	return nil
}

// Engine returns the decision engine. It is nil before Start.
func (r *Runtime) Engine() *policy.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.engine
}

// Registry returns the metrics registry the engine reports into.
func (r *Runtime) Registry() *prometheus.Registry {
	return r.registry
}

// Bus returns the control-interface transport. It is nil before Start.
func (r *Runtime) Bus() *bus.GoAktBus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.bus
}

// Shutdown gracefully stops the bus and all topic subscribers.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return fmt.Errorf("runtime not started")
	}

	if err := r.bus.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop bus: %w", err)
	}

	r.started = false
	r.logger.Info().Msg("runtime shutdown complete")
	return nil
}

// policyResolver adapts the config resolver to the engine's per-call
// settings snapshot.
type policyResolver struct {
	resolver *config.Resolver
}

func (p *policyResolver) Policy() policy.Settings {
	cfg := p.resolver.Snapshot()
	return policy.Settings{
		Topic:   cfg.PolicyTopic,
		Timeout: time.Duration(cfg.PolicyTimeoutMs) * time.Millisecond,
	}
}

// hostInfoResolver builds the host metadata block from the live
// configuration, so relabeled hosts are reported correctly on the next
// evaluation.
type hostInfoResolver struct {
	resolver  *config.Resolver
	publicKey string
}

func (h *hostInfoResolver) HostInfo() policy.HostInfo {
	cfg := h.resolver.Snapshot()

	publicKey := cfg.HostPublicKey
	if publicKey == "" {
		publicKey = h.publicKey
	}

	return policy.HostInfo{
		PublicKey:      publicKey,
		LatticeID:      cfg.LatticeID,
		Labels:         cfg.HostLabels,
		ClusterIssuers: cfg.ClusterIssuers,
	}
}
