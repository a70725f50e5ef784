// Package policy implements the host's capability-invocation decision engine.
//
// Every invocation a hosted actor attempts is submitted to the Engine, which
// answers from its decision cache when possible and otherwise delegates to a
// remote policy evaluator over the lattice control interface. Evaluation
// failures of any kind collapse to a deny decision; the caller always
// receives a well-formed Decision and never an error.
package policy

// Decision is the verdict for a single (source, target, action) triple.
// Decisions are immutable values; the cache replaces them, never mutates them.
type Decision struct {
	Permitted bool   `json:"permitted"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// CacheKey identifies at most one current Decision. It is derived from the
// identity fields of the source and target descriptors, not the full claims.
type CacheKey struct {
	SourceID string
	TargetID string
	Action   string
}

// HostInfo is the host metadata attached to every outbound policy request.
type HostInfo struct {
	PublicKey      string            `json:"publicKey"`
	LatticeID      string            `json:"latticeId"`
	Labels         map[string]string `json:"labels"`
	ClusterIssuers []string          `json:"clusterIssuers"`
}

// Request is the envelope sent to the remote policy evaluator.
//
// Source and target descriptors are opaque to the engine beyond field
// presence; they are forwarded to the evaluator exactly as received.
type Request struct {
	RequestID string         `json:"requestId"`
	Source    map[string]any `json:"source"`
	Target    map[string]any `json:"target"`
	Action    string         `json:"action"`
	Host      HostInfo       `json:"host"`
}

// Response is the envelope the remote evaluator replies with.
type Response struct {
	Permitted bool   `json:"permitted"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// OverrideAck acknowledges an inbound override message. Success is false
// whenever the message failed to parse, lacked required fields, or named a
// request id the engine never issued.
type OverrideAck struct {
	Success bool `json:"success"`
}
