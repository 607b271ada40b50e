// Package audit checks the relationship graph against the temporal-ordering
// rule and flags duplicate contradiction edges, with optional repair.
package audit

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/calloway/papergraph/internal/paper"
	"github.com/calloway/papergraph/internal/relationship"
	"github.com/calloway/papergraph/internal/temporal"
)

// Strategy selects how temporal violations are repaired.
type Strategy string

const (
	// StrategyReverse flips a violating edge so the newer paper becomes the
	// source. The classification itself is kept.
	StrategyReverse Strategy = "reverse"

	// StrategyDelete removes violating edges outright.
	StrategyDelete Strategy = "delete"
)

// ParseStrategy validates a user-supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyReverse, StrategyDelete:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown repair strategy %q (want reverse or delete)", s)
}

// Violation is an edge whose source paper predates its target.
type Violation struct {
	Relationship relationship.Relationship `json:"relationship"`
	SourceDate   string                    `json:"source_date"`
	TargetDate   string                    `json:"target_date"`
}

// Report is the outcome of a graph audit. A clean graph has empty
// Violations and Duplicates.
type Report struct {
	RelationshipCount int `json:"relationship_count"`

	// Violations are edges pointing from an older paper to a newer one.
	Violations []Violation `json:"violations"`

	// Duplicates are redundant contradiction edges between pairs already
	// connected by another contradiction; the earliest-detected edge per
	// pair is not listed.
	Duplicates []relationship.Relationship `json:"duplicates"`

	// Unorderable counts edges exempt from the temporal check because at
	// least one endpoint has no parseable date or is missing from the
	// corpus.
	Unorderable int `json:"unorderable"`
}

// Clean reports whether the audit found nothing to repair.
func (r Report) Clean() bool {
	return len(r.Violations) == 0 && len(r.Duplicates) == 0
}

// RepairSummary counts the changes a repair pass made.
type RepairSummary struct {
	Reversed          int `json:"reversed"`
	Deleted           int `json:"deleted"`
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// PaperSource supplies the corpus the auditor resolves dates against.
type PaperSource interface {
	GetAllPapers() ([]paper.Paper, error)
}

// RelationshipStore is the read/write access a repair needs.
type RelationshipStore interface {
	GetAllRelationships(limit int) ([]relationship.Relationship, error)
	UpsertRelationship(r relationship.Relationship) error
	DeleteRelationship(id string) error
}

// Auditor inspects and repairs the relationship graph.
type Auditor struct {
	papers PaperSource
	rels   RelationshipStore
	log    *zap.Logger
}

// NewAuditor creates an auditor over the given stores.
func NewAuditor(papers PaperSource, rels RelationshipStore, log *zap.Logger) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{papers: papers, rels: rels, log: log}
}

// Audit scans every persisted relationship for temporal violations and
// duplicate contradictions. It reads only; nothing is modified.
func (a *Auditor) Audit() (Report, error) {
	papers, err := a.papers.GetAllPapers()
	if err != nil {
		return Report{}, fmt.Errorf("loading papers: %w", err)
	}
	dates := make(map[string]string, len(papers))
	for i := range papers {
		p := &papers[i]
		if d, ok := temporal.ResolveDate(p); ok {
			dates[p.ID] = d.Format("2006-01-02")
		}
	}

	rels, err := a.rels.GetAllRelationships(0)
	if err != nil {
		return Report{}, fmt.Errorf("loading relationships: %w", err)
	}

	report := Report{RelationshipCount: len(rels)}
	for _, r := range rels {
		sd, sok := dates[r.SourceID]
		td, tok := dates[r.TargetID]
		if !sok || !tok {
			report.Unorderable++
			continue
		}
		if sd < td {
			report.Violations = append(report.Violations, Violation{
				Relationship: r,
				SourceDate:   sd,
				TargetDate:   td,
			})
		}
	}

	report.Duplicates = relationship.FindDuplicateContradictions(rels)

	a.log.Info("audit complete",
		zap.Int("relationships", report.RelationshipCount),
		zap.Int("violations", len(report.Violations)),
		zap.Int("duplicates", len(report.Duplicates)),
		zap.Int("unorderable", report.Unorderable))
	return report, nil
}

// Repair applies the given strategy to a report's violations and removes its
// duplicate contradictions. Repairing an already-clean report changes
// nothing, and re-auditing after a successful repair yields a clean report.
func (a *Auditor) Repair(report Report, strategy Strategy) (RepairSummary, error) {
	var sum RepairSummary

	// IDs written by the reversal pass. A reversal can land on the ID of a
	// flagged duplicate (the violating edge was the earlier-detected keeper of
	// its pair); deleting that ID afterwards would drop the pair's only
	// remaining contradiction.
	reversedTo := make(map[string]bool)

	for _, v := range report.Violations {
		r := v.Relationship
		switch strategy {
		case StrategyReverse:
			rev := r.Reversed()
			rev.SetDetectedAt()
			if err := a.rels.UpsertRelationship(rev); err != nil {
				return sum, fmt.Errorf("writing reversed edge %s: %w", rev.ID, err)
			}
			reversedTo[rev.ID] = true
			if err := a.rels.DeleteRelationship(r.ID); err != nil {
				return sum, fmt.Errorf("removing violating edge %s: %w", r.ID, err)
			}
			sum.Reversed++
			a.log.Info("reversed edge",
				zap.String("old_id", r.ID),
				zap.String("new_id", rev.ID),
				zap.String("type", r.Type))
		case StrategyDelete:
			if err := a.rels.DeleteRelationship(r.ID); err != nil {
				return sum, fmt.Errorf("removing violating edge %s: %w", r.ID, err)
			}
			sum.Deleted++
			a.log.Info("deleted edge",
				zap.String("id", r.ID),
				zap.String("type", r.Type))
		default:
			return sum, fmt.Errorf("unknown repair strategy %q", strategy)
		}
	}

	for _, d := range report.Duplicates {
		if reversedTo[d.ID] {
			a.log.Info("kept duplicate absorbed by reversal",
				zap.String("id", d.ID),
				zap.String("source", d.SourceID),
				zap.String("target", d.TargetID))
			continue
		}
		if err := a.rels.DeleteRelationship(d.ID); err != nil {
			return sum, fmt.Errorf("removing duplicate edge %s: %w", d.ID, err)
		}
		sum.DuplicatesRemoved++
		a.log.Info("removed duplicate contradiction",
			zap.String("id", d.ID),
			zap.String("source", d.SourceID),
			zap.String("target", d.TargetID))
	}

	return sum, nil
}
