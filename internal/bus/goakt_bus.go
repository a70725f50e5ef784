package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tochemey/goakt/v2/actors"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GoAktBus implements Bus on top of a GoAKT actor system. Each subscribed
// topic is backed by its own actor; Request uses the ask pattern with the
// caller's timeout. A reply that arrives after the ask deadline is dropped
// by the actor framework and never reaches the requester.
type GoAktBus struct {
	actorSystem actors.ActorSystem

	topics map[string]*actors.PID
	mu     sync.RWMutex

	logger zerolog.Logger
}

// NewGoAktBus creates and starts a bus backed by a fresh actor system.
func NewGoAktBus(ctx context.Context, logger zerolog.Logger) (*GoAktBus, error) {
	// Note: GoAKT uses its default logger. We track operations separately
	// with zerolog.
	actorSystem, err := actors.NewActorSystem("warden-bus")
	if err != nil {
		return nil, fmt.Errorf("failed to create actor system: %w", err)
	}

	if err := actorSystem.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start actor system: %w", err)
	}

	return &GoAktBus{
		actorSystem: actorSystem,
		topics:      make(map[string]*actors.PID),
		logger:      logger.With().Str("component", "bus").Logger(),
	}, nil
}

// Subscribe spawns a responder actor for topic. A topic can have at most one
// subscriber.
func (b *GoAktBus) Subscribe(topic string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.topics[topic]; exists {
		return fmt.Errorf("topic %s already subscribed", topic)
	}

	pid, err := b.actorSystem.Spawn(context.Background(), topic, &topicActor{handler: h})
	if err != nil {
		return fmt.Errorf("failed to spawn subscriber for topic %s: %w", topic, err)
	}

	b.topics[topic] = pid
	b.logger.Info().Str("topic", topic).Msg("topic subscribed")
	return nil
}

// Request sends payload to the subscriber of topic and waits for its reply.
func (b *GoAktBus) Request(ctx context.Context, topic string, payload []byte, timeout time.Duration) ([]byte, error) {
	b.mu.RLock()
	pid, ok := b.topics[topic]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no subscriber for topic %s", topic)
	}

	reply, err := actors.Ask(ctx, pid, wrapperspb.Bytes(payload), timeout)
	if err != nil {
		return nil, fmt.Errorf("request to topic %s failed: %w", topic, err)
	}

	data, ok := reply.(*wrapperspb.BytesValue)
	if !ok {
		return nil, fmt.Errorf("unexpected reply type %T from topic %s", reply, topic)
	}

	return data.GetValue(), nil
}

// Shutdown stops the actor system and all topic subscribers.
func (b *GoAktBus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.topics = make(map[string]*actors.PID)
	b.mu.Unlock()

	if err := b.actorSystem.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop actor system: %w", err)
	}
	return nil
}

// topicActor bridges one subscribed topic to its Handler.
type topicActor struct {
	handler Handler
}

func (a *topicActor) PreStart(ctx context.Context) error { return nil }

func (a *topicActor) Receive(ctx *actors.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *wrapperspb.BytesValue:
		reply := a.handler(ctx.Context(), msg.GetValue())
		ctx.Response(wrapperspb.Bytes(reply))

	default:
		ctx.Unhandled()
	}
}

func (a *topicActor) PostStop(ctx context.Context) error { return nil }

// Ensure the interfaces are satisfied.
var (
	_ Bus          = (*GoAktBus)(nil)
	_ actors.Actor = (*topicActor)(nil)
)
