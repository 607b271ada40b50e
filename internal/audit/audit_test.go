package audit

import (
	"errors"
	"testing"

	"github.com/calloway/papergraph/internal/paper"
	"github.com/calloway/papergraph/internal/relationship"
)

type memStore struct {
	papers []paper.Paper
	rels   map[string]relationship.Relationship

	papersErr error
}

func newMemStore(papers []paper.Paper, rels ...relationship.Relationship) *memStore {
	s := &memStore{papers: papers, rels: make(map[string]relationship.Relationship)}
	for _, r := range rels {
		s.rels[r.ID] = r
	}
	return s
}

func (s *memStore) GetAllPapers() ([]paper.Paper, error) {
	if s.papersErr != nil {
		return nil, s.papersErr
	}
	return s.papers, nil
}

func (s *memStore) GetAllRelationships(limit int) ([]relationship.Relationship, error) {
	var out []relationship.Relationship
	for _, r := range s.rels {
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) UpsertRelationship(r relationship.Relationship) error {
	s.rels[r.ID] = r
	return nil
}

func (s *memStore) DeleteRelationship(id string) error {
	delete(s.rels, id)
	return nil
}

func testPaper(id, published string) paper.Paper {
	return paper.Paper{
		ID:        id,
		Title:     "Paper " + id,
		Authors:   []string{"Author"},
		Published: published,
	}
}

func edge(source, target, relType, detectedAt string) relationship.Relationship {
	r := relationship.Relationship{
		SourceID:   source,
		TargetID:   target,
		Type:       relType,
		Confidence: 0.8,
		Evidence:   "ev",
		DetectedAt: detectedAt,
	}
	r.EnsureID()
	return r
}

func TestAuditCleanGraph(t *testing.T) {
	papers := []paper.Paper{
		testPaper("new", "2024-01-01"),
		testPaper("old", "2020-01-01"),
	}
	store := newMemStore(papers, edge("new", "old", relationship.TypeSupports, "2025-01-01T00:00:00Z"))

	report, err := NewAuditor(store, store, nil).Audit()
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if !report.Clean() {
		t.Errorf("Clean() = false: %+v", report)
	}
	if report.RelationshipCount != 1 {
		t.Errorf("RelationshipCount = %d, want 1", report.RelationshipCount)
	}
}

func TestAuditFlagsTemporalViolation(t *testing.T) {
	papers := []paper.Paper{
		testPaper("new", "2024-01-01"),
		testPaper("old", "2020-01-01"),
	}
	store := newMemStore(papers, edge("old", "new", relationship.TypeExtends, "2025-01-01T00:00:00Z"))

	report, err := NewAuditor(store, store, nil).Audit()
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if len(report.Violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(report.Violations))
	}
	v := report.Violations[0]
	if v.Relationship.SourceID != "old" || v.Relationship.TargetID != "new" {
		t.Errorf("violation edge %s -> %s, want old -> new", v.Relationship.SourceID, v.Relationship.TargetID)
	}
	if v.SourceDate != "2020-01-01" || v.TargetDate != "2024-01-01" {
		t.Errorf("dates %s / %s not carried into violation", v.SourceDate, v.TargetDate)
	}
}

func TestAuditExemptsUndatedEndpoints(t *testing.T) {
	papers := []paper.Paper{
		testPaper("dated", "2024-01-01"),
		{ID: "undated", Title: "No date", Authors: []string{"A"}},
	}
	store := newMemStore(papers, edge("undated", "dated", relationship.TypeSupports, "2025-01-01T00:00:00Z"))

	report, err := NewAuditor(store, store, nil).Audit()
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if len(report.Violations) != 0 {
		t.Errorf("got %d violations for undated endpoint, want 0", len(report.Violations))
	}
	if report.Unorderable != 1 {
		t.Errorf("Unorderable = %d, want 1", report.Unorderable)
	}
}

func TestAuditFlagsDuplicateContradictions(t *testing.T) {
	papers := []paper.Paper{
		testPaper("new", "2024-01-01"),
		testPaper("old", "2020-01-01"),
	}
	first := edge("new", "old", relationship.TypeContradicts, "2025-01-01T00:00:00Z")
	second := edge("old", "new", relationship.TypeContradicts, "2025-02-01T00:00:00Z")
	store := newMemStore(papers, first, second)

	report, err := NewAuditor(store, store, nil).Audit()
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if len(report.Duplicates) != 1 {
		t.Fatalf("got %d duplicates, want 1", len(report.Duplicates))
	}
	// The later-detected edge is the redundant one.
	if report.Duplicates[0].ID != second.ID {
		t.Errorf("duplicate = %s, want the later edge %s", report.Duplicates[0].ID, second.ID)
	}
}

func TestRepairReverseStrategy(t *testing.T) {
	papers := []paper.Paper{
		testPaper("new", "2024-01-01"),
		testPaper("old", "2020-01-01"),
	}
	bad := edge("old", "new", relationship.TypeExtends, "2025-01-01T00:00:00Z")
	store := newMemStore(papers, bad)
	auditor := NewAuditor(store, store, nil)

	report, err := auditor.Audit()
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	sum, err := auditor.Repair(report, StrategyReverse)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if sum.Reversed != 1 {
		t.Errorf("Reversed = %d, want 1", sum.Reversed)
	}

	if _, stillThere := store.rels[bad.ID]; stillThere {
		t.Error("violating edge still present after reverse repair")
	}
	var found bool
	for _, r := range store.rels {
		if r.SourceID == "new" && r.TargetID == "old" {
			found = true
			if r.Type != relationship.TypeExtends || r.Confidence != bad.Confidence {
				t.Error("reversed edge lost its classification")
			}
		}
	}
	if !found {
		t.Fatal("no reversed edge persisted")
	}

	// A second audit sees a clean graph; repairing it changes nothing.
	report2, err := auditor.Audit()
	if err != nil {
		t.Fatalf("re-audit: %v", err)
	}
	if !report2.Clean() {
		t.Errorf("graph not clean after repair: %+v", report2)
	}
	sum2, err := auditor.Repair(report2, StrategyReverse)
	if err != nil {
		t.Fatalf("second Repair: %v", err)
	}
	if sum2.Reversed != 0 || sum2.Deleted != 0 || sum2.DuplicatesRemoved != 0 {
		t.Errorf("second repair made changes: %+v", sum2)
	}
}

func TestRepairDeleteStrategy(t *testing.T) {
	papers := []paper.Paper{
		testPaper("new", "2024-01-01"),
		testPaper("old", "2020-01-01"),
	}
	bad := edge("old", "new", relationship.TypeSupports, "2025-01-01T00:00:00Z")
	keep := edge("new", "old", relationship.TypeContradicts, "2025-01-01T00:00:00Z")
	store := newMemStore(papers, bad, keep)
	auditor := NewAuditor(store, store, nil)

	report, err := auditor.Audit()
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	sum, err := auditor.Repair(report, StrategyDelete)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if sum.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", sum.Deleted)
	}
	if _, ok := store.rels[keep.ID]; !ok {
		t.Error("legal edge removed by delete repair")
	}
	if _, ok := store.rels[bad.ID]; ok {
		t.Error("violating edge survived delete repair")
	}
}

func TestRepairRemovesDuplicates(t *testing.T) {
	papers := []paper.Paper{
		testPaper("new", "2024-01-01"),
		testPaper("old", "2020-01-01"),
	}
	first := edge("new", "old", relationship.TypeContradicts, "2025-01-01T00:00:00Z")
	second := edge("old", "new", relationship.TypeContradicts, "2025-02-01T00:00:00Z")
	store := newMemStore(papers, first, second)
	auditor := NewAuditor(store, store, nil)

	report, err := auditor.Audit()
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	// The reversed duplicate is also a temporal violation; delete-repair
	// removes it once, and the duplicate pass finds nothing left to do.
	sum, err := auditor.Repair(report, StrategyDelete)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if got := sum.Deleted + sum.DuplicatesRemoved; got < 1 {
		t.Fatalf("no edges removed, want at least the duplicate")
	}
	if _, ok := store.rels[first.ID]; !ok {
		t.Error("earliest contradiction edge removed, want kept")
	}
	if _, ok := store.rels[second.ID]; ok {
		t.Error("duplicate contradiction survived repair")
	}
}

func TestRepairReverseKeepsContradictionWhenKeeperViolates(t *testing.T) {
	papers := []paper.Paper{
		testPaper("new", "2024-01-01"),
		testPaper("old", "2020-01-01"),
	}
	// The backwards edge was detected first, so it is both a temporal
	// violation and the duplicate-keeper; the legal edge is the flagged
	// extra. Reversing the keeper writes onto the extra's ID, which must
	// survive the duplicate pass.
	keeper := edge("old", "new", relationship.TypeContradicts, "2025-01-01T00:00:00Z")
	extra := edge("new", "old", relationship.TypeContradicts, "2025-02-01T00:00:00Z")
	store := newMemStore(papers, keeper, extra)
	auditor := NewAuditor(store, store, nil)

	report, err := auditor.Audit()
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if len(report.Violations) != 1 || len(report.Duplicates) != 1 {
		t.Fatalf("report = %d violations, %d duplicates, want 1 and 1",
			len(report.Violations), len(report.Duplicates))
	}

	sum, err := auditor.Repair(report, StrategyReverse)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if sum.Reversed != 1 {
		t.Errorf("Reversed = %d, want 1", sum.Reversed)
	}
	if sum.DuplicatesRemoved != 0 {
		t.Errorf("DuplicatesRemoved = %d, want 0: the only remaining edge was deleted", sum.DuplicatesRemoved)
	}

	if len(store.rels) != 1 {
		t.Fatalf("%d edges after repair, want exactly 1", len(store.rels))
	}
	kept, ok := store.rels[extra.ID]
	if !ok {
		t.Fatal("contradiction between the pair was lost entirely")
	}
	if kept.SourceID != "new" || kept.TargetID != "old" || kept.Type != relationship.TypeContradicts {
		t.Errorf("kept edge = %s -> %s (%s), want new -> old (contradicts)",
			kept.SourceID, kept.TargetID, kept.Type)
	}

	report2, err := auditor.Audit()
	if err != nil {
		t.Fatalf("re-audit: %v", err)
	}
	if !report2.Clean() {
		t.Errorf("graph not clean after repair: %+v", report2)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"reverse", StrategyReverse, false},
		{"delete", StrategyDelete, false},
		{"merge", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAuditPropagatesStoreError(t *testing.T) {
	store := newMemStore(nil)
	store.papersErr = errors.New("db closed")
	if _, err := NewAuditor(store, store, nil).Audit(); err == nil {
		t.Fatal("Audit returned nil error with failing paper store")
	}
}
