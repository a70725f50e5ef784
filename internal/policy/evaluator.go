package policy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Transport sends one request over the lattice control interface and waits
// for a single reply. Implementations must respect the timeout and return an
// error when no reply arrives in time.
type Transport interface {
	Request(ctx context.Context, topic string, payload []byte, timeout time.Duration) ([]byte, error)
}

// Evaluator performs a single remote evaluation round trip: encode, send,
// decode, classify.
type Evaluator struct {
	transport Transport
	logger    zerolog.Logger
}

// NewEvaluator creates an evaluator that sends requests over transport.
func NewEvaluator(transport Transport, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		transport: transport,
		logger:    logger.With().Str("component", "policy-evaluator").Logger(),
	}
}

// Evaluate submits req to the evaluator topic and classifies the result.
// Every failure mode yields a deny decision; only EvalSuccess decisions are
// genuine remote answers and safe to cache. Timeouts and malformed replies
// are expected degraded operation, so they log at info rather than error.
func (e *Evaluator) Evaluate(ctx context.Context, req *Request, topic string, timeout time.Duration) (Decision, EvalOutcome) {
	payload, err := json.Marshal(req)
	if err != nil {
		e.logger.Info().
			Err(err).
			Str("request_id", req.RequestID).
			Msg("failed to encode policy request")
		return Decision{Permitted: false, Message: "", RequestID: req.RequestID}, EvalEncodeError
	}

	reply, err := e.transport.Request(ctx, topic, payload, timeout)
	if err != nil {
		e.logger.Info().
			Err(err).
			Str("request_id", req.RequestID).
			Str("topic", topic).
			Dur("timeout", timeout).
			Msg("policy request timed out")
		return Decision{Permitted: false, Message: msgRequestTimedOut, RequestID: req.RequestID}, EvalTimeout
	}

	var resp Response
	if err := json.Unmarshal(reply, &resp); err != nil {
		e.logger.Info().
			Err(err).
			Str("request_id", req.RequestID).
			Msg("policy response failed to decode")
		return Decision{Permitted: false, Message: msgResponseDecode, RequestID: req.RequestID}, EvalDecodeError
	}

	return Decision{Permitted: resp.Permitted, Message: resp.Message, RequestID: resp.RequestID}, EvalSuccess
}
