package policy

import (
	"fmt"
	"strings"
)

// Messages carried by locally synthesized deny decisions. These are part of
// the wire-visible behavior and must stay stable.
const (
	msgEvaluationDisabled = "Policy evaluation disabled, allowing action"
	msgRequestTimedOut    = "Policy request timed out"
	msgResponseDecode     = "Policy response failed to decode"
)

// EvalOutcome classifies a single remote evaluation attempt. Only
// EvalSuccess results may be written to the decision cache; every other
// outcome is a locally synthesized fallback that must not poison it.
type EvalOutcome int

const (
	// EvalSuccess means the evaluator replied with a well-formed decision.
	EvalSuccess EvalOutcome = iota

	// EvalEncodeError means the outbound request could not be serialized;
	// nothing was sent.
	EvalEncodeError

	// EvalTimeout means no reply arrived within the configured deadline.
	EvalTimeout

	// EvalDecodeError means a reply arrived but was not a valid response
	// envelope.
	EvalDecodeError
)

// Cacheable reports whether a decision produced under this outcome may be
// memorized.
func (o EvalOutcome) Cacheable() bool { return o == EvalSuccess }

func (o EvalOutcome) String() string {
	switch o {
	case EvalSuccess:
		return "success"
	case EvalEncodeError:
		return "encode_error"
	case EvalTimeout:
		return "timeout"
	case EvalDecodeError:
		return "decode_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// ValidationError reports required fields missing from a source or target
// descriptor, or a non-string action. Its message becomes the Message of the
// resulting deny decision, so the wording is stable and the field list keeps
// declared order.
type ValidationError struct {
	Subject string   // "source", "target" or "action"
	Missing []string // missing field names, declared order
}

func (e *ValidationError) Error() string {
	if e.Subject == "action" {
		return "Invalid action argument, action must be a string"
	}
	return fmt.Sprintf("Invalid %s argument, missing required fields: %s",
		e.Subject, strings.Join(e.Missing, ", "))
}
