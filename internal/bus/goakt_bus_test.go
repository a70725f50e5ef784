package bus

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan:
// 1. Test request/reply round trip through a subscribed topic
// 2. Test requests to unsubscribed topics fail
// 3. Test duplicate subscriptions are rejected
// 4. Test shutdown stops the bus

func newTestBus(t *testing.T) *GoAktBus {
	t.Helper()

	b, err := NewGoAktBus(context.Background(), zerolog.Nop())
	require.NoError(t, err)

	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = b.Shutdown(shutdownCtx)
	})

	return b
}

// Test: request/reply round trip
func TestGoAktBus_RequestReply(t *testing.T) {
	b := newTestBus(t)

	err := b.Subscribe("test.echo", func(ctx context.Context, payload []byte) []byte {
		return append([]byte("echo:"), payload...)
	})
	require.NoError(t, err)

	reply, err := b.Request(context.Background(), "test.echo", []byte("hello"), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("echo:hello"), reply)
}

// Test: unknown topics fail fast
func TestGoAktBus_UnknownTopic(t *testing.T) {
	b := newTestBus(t)

	_, err := b.Request(context.Background(), "test.nowhere", []byte("hello"), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no subscriber for topic test.nowhere")
}

// Test: a topic has at most one subscriber
func TestGoAktBus_DuplicateSubscription(t *testing.T) {
	b := newTestBus(t)

	handler := func(ctx context.Context, payload []byte) []byte { return payload }

	require.NoError(t, b.Subscribe("test.once", handler))
	err := b.Subscribe("test.once", handler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already subscribed")
}

// Test: handlers run per request, not once
func TestGoAktBus_MultipleRequests(t *testing.T) {
	b := newTestBus(t)

	count := 0
	err := b.Subscribe("test.count", func(ctx context.Context, payload []byte) []byte {
		count++
		return []byte{byte(count)}
	})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		reply, err := b.Request(context.Background(), "test.count", nil, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, reply)
	}
}
