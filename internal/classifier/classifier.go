// Package classifier judges the relationship between two papers using an
// external LLM.
package classifier

import (
	"context"

	"github.com/calloway/papergraph/internal/paper"
)

// Relationship outcomes a classifier can return. "none" means no meaningful
// relationship; it is a valid outcome but is never persisted.
const OutcomeNone = "none"

// Judgment is a successfully parsed classification.
type Judgment struct {
	Type       string  `json:"relationship_type"` // supports, contradicts, extends, none
	Confidence float64 `json:"confidence"`        // clamped to [0, 1]
	Evidence   string  `json:"evidence"`
}

// Outcome is the tagged result of a classification attempt. Exactly one of
// Ok or ParseFailure holds: a malformed model response is data, not an error,
// and callers map it to the none path explicitly.
type Outcome struct {
	Ok           *Judgment
	ParseFailure *ParseFailure
}

// ParseFailure records a model response that could not be interpreted.
type ParseFailure struct {
	Raw string // The raw response text, kept for operator inspection
}

// IsNone reports whether the outcome carries no persistable relationship,
// either because the model said none or because its response was unusable.
func (o Outcome) IsNone() bool {
	return o.Ok == nil || o.Ok.Type == OutcomeNone
}

// PairClassifier judges the relationship between two papers. Source is the
// paper making the prospective claim (the newer one, when dates are known).
//
// Classify returns a transport-level error only when the call itself failed
// (network, auth, timeout). A response the model produced but that cannot be
// parsed is reported as a ParseFailure outcome, not an error.
type PairClassifier interface {
	Classify(ctx context.Context, source, target *paper.Paper) (Outcome, error)
}
