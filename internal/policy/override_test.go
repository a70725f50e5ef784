package policy

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-run/warden/internal/telemetry"
)

// Test Plan:
// 1. Test malformed payloads are acked as failure without side effects
// 2. Test each required field is enforced
// 3. Test a known id replaces the cached decision
// 4. Test ack payloads are well-formed JSON

func newTestOverrideHandler() (*OverrideHandler, *DecisionCache) {
	cache := NewDecisionCache()
	metrics := telemetry.NewPolicyMetrics(prometheus.NewRegistry())
	return NewOverrideHandler(cache, metrics, zerolog.Nop()), cache
}

// Test: malformed payloads ack failure and change nothing
func TestOverrideHandler_MalformedPayload(t *testing.T) {
	handler, cache := newTestOverrideHandler()

	for _, payload := range []string{"", "not json", "[]", `"string"`} {
		ack := handler.Handle(context.Background(), []byte(payload))
		assert.JSONEq(t, `{"success":false}`, string(ack))
	}
	assert.Equal(t, 0, cache.Len())
}

// Test: every field of the override envelope is required
func TestOverrideHandler_MissingFields(t *testing.T) {
	handler, cache := newTestOverrideHandler()

	key := CacheKey{SourceID: "A", TargetID: "B", Action: "invoke"}
	cache.Put(key, Decision{Permitted: true, RequestID: "R1"})
	cache.PutIndex("R1", key)

	payloads := []string{
		`{}`,
		`{"permitted":false,"message":"m"}`,
		`{"requestId":"R1","message":"m"}`,
		`{"requestId":"R1","permitted":false}`,
	}
	for _, payload := range payloads {
		ack := handler.Handle(context.Background(), []byte(payload))
		assert.JSONEq(t, `{"success":false}`, string(ack), "payload: %s", payload)
	}

	// No partial application occurred
	decision, ok := cache.Get(key)
	require.True(t, ok)
	assert.True(t, decision.Permitted)
}

// Test: a known id replaces the decision, reusing the stale id
func TestOverrideHandler_AppliesOverride(t *testing.T) {
	handler, cache := newTestOverrideHandler()

	key := CacheKey{SourceID: "A", TargetID: "B", Action: "invoke"}
	cache.Put(key, Decision{Permitted: true, Message: "", RequestID: "R1"})
	cache.PutIndex("R1", key)

	ack := handler.Handle(context.Background(), []byte(`{"requestId":"R1","permitted":false,"message":"revoked"}`))
	assert.JSONEq(t, `{"success":true}`, string(ack))

	decision, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, Decision{Permitted: false, Message: "revoked", RequestID: "R1"}, decision)

	// Zero values are legitimate: permitted false with an empty message
	ack = handler.Handle(context.Background(), []byte(`{"requestId":"R1","permitted":false,"message":""}`))
	assert.JSONEq(t, `{"success":true}`, string(ack))

	decision, _ = cache.Get(key)
	assert.Equal(t, Decision{Permitted: false, Message: "", RequestID: "R1"}, decision)
}
