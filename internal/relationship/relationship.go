// Package relationship defines the core domain types for typed, directed
// relationship edges between papers.
package relationship

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Relationship types a classifier can assign. The fourth classifier outcome,
// "none", is never persisted and so has no constant here.
const (
	TypeSupports    = "supports"
	TypeContradicts = "contradicts"
	TypeExtends     = "extends"
)

// Types lists all persistable relationship types.
var Types = []string{TypeSupports, TypeContradicts, TypeExtends}

// Relationship represents a directed edge between two papers. Direction is
// newer -> older for papers with resolvable publication dates: the newer
// paper is the one making the comparative claim.
type Relationship struct {
	// Identity: deterministic hash of (source, target, type), so repeated
	// detection of the same pair upserts instead of duplicating.
	ID string `json:"relationship_id"`

	SourceID string `json:"source_paper_id"`
	TargetID string `json:"target_paper_id"`
	Type     string `json:"relationship_type"`

	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
	DetectedAt string  `json:"detected_at,omitempty"`

	// SimilarityScore is the embedding similarity recorded when the pair was
	// selected by the similarity-filtered strategy. Zero when unfiltered.
	SimilarityScore float64 `json:"similarity_score,omitempty"`
}

// Validation errors.
var (
	ErrEmptySourceID = errors.New("source_paper_id is required")
	ErrEmptyTargetID = errors.New("target_paper_id is required")
	ErrInvalidType   = errors.New("relationship_type must be supports, contradicts, or extends")
	ErrSelfEdge      = errors.New("source and target cannot be the same paper")
	ErrBadConfidence = errors.New("confidence must be in [0, 1]")
)

// idHexLen is the number of hex characters kept from the identity hash.
const idHexLen = 16

// ValidType reports whether t is a persistable relationship type.
func ValidType(t string) bool {
	switch t {
	case TypeSupports, TypeContradicts, TypeExtends:
		return true
	}
	return false
}

// DeriveID computes the stable identifier for an edge from its identity
// tuple (source, target, type).
func DeriveID(sourceID, targetID, relType string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%s_%s", sourceID, targetID, relType)))
	return hex.EncodeToString(sum[:])[:idHexLen]
}

// ValidateForCreate validates a relationship for persistence.
func (r *Relationship) ValidateForCreate() error {
	if r.SourceID == "" {
		return ErrEmptySourceID
	}
	if r.TargetID == "" {
		return ErrEmptyTargetID
	}
	if !ValidType(r.Type) {
		return ErrInvalidType
	}
	if r.SourceID == r.TargetID {
		return ErrSelfEdge
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return ErrBadConfidence
	}
	return nil
}

// EnsureID populates ID from the identity tuple if unset.
func (r *Relationship) EnsureID() {
	if r.ID == "" {
		r.ID = DeriveID(r.SourceID, r.TargetID, r.Type)
	}
}

// SetDetectedAt sets the DetectedAt timestamp to the current time if unset.
func (r *Relationship) SetDetectedAt() {
	if r.DetectedAt == "" {
		r.DetectedAt = time.Now().UTC().Format(time.RFC3339)
	}
}

// Reversed returns a copy with source and target swapped, preserving type,
// confidence, and evidence. The ID is re-derived for the new direction and
// DetectedAt is cleared so the repair write records its own timestamp.
func (r Relationship) Reversed() Relationship {
	rev := r
	rev.SourceID, rev.TargetID = r.TargetID, r.SourceID
	rev.ID = DeriveID(rev.SourceID, rev.TargetID, rev.Type)
	rev.DetectedAt = ""
	return rev
}

// PairKey is the unordered pair identity of an edge, used for
// direction-agnostic grouping and deduplication.
type PairKey struct {
	A, B string // A < B lexically
}

// UnorderedKey returns the normalized pair key for two paper IDs.
func UnorderedKey(idA, idB string) PairKey {
	if idA > idB {
		idA, idB = idB, idA
	}
	return PairKey{A: idA, B: idB}
}

// Key returns the unordered pair key for this edge.
func (r *Relationship) Key() PairKey {
	return UnorderedKey(r.SourceID, r.TargetID)
}

// FindDuplicateContradictions groups contradicts edges by unordered pair and
// returns, for each pair with more than one edge, the extras to delete. The
// edge with the earliest DetectedAt is kept; ties fall back to relationship
// ID so repeated audits are deterministic.
func FindDuplicateContradictions(rels []Relationship) []Relationship {
	groups := make(map[PairKey][]Relationship)
	for _, r := range rels {
		if r.Type != TypeContradicts {
			continue
		}
		k := r.Key()
		groups[k] = append(groups[k], r)
	}

	var extras []Relationship
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		keep := 0
		for i := 1; i < len(group); i++ {
			if earlier(group[i], group[keep]) {
				keep = i
			}
		}
		for i, r := range group {
			if i != keep {
				extras = append(extras, r)
			}
		}
	}
	return extras
}

// earlier reports whether a should be kept over b: oldest DetectedAt wins,
// with relationship ID as the deterministic tie-break.
func earlier(a, b Relationship) bool {
	if a.DetectedAt != b.DetectedAt {
		return a.DetectedAt < b.DetectedAt
	}
	return a.ID < b.ID
}
