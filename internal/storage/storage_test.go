package storage

import (
	"path/filepath"
	"testing"

	"github.com/calloway/papergraph/internal/paper"
	"github.com/calloway/papergraph/internal/relationship"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPaperRoundTrip(t *testing.T) {
	db := openTestDB(t)

	p := paper.Paper{
		Title:     "Attention Is All You Need",
		Authors:   []string{"Vaswani", "Shazeer"},
		Abstract:  "We propose the Transformer.",
		Published: "2017-06-12",
		PageCount: 15,
	}
	p.EnsureID()

	if err := db.UpsertPaper(p); err != nil {
		t.Fatalf("UpsertPaper() error: %v", err)
	}

	got, err := db.GetPaper(p.ID)
	if err != nil {
		t.Fatalf("GetPaper() error: %v", err)
	}
	if got == nil {
		t.Fatal("GetPaper() returned nil for stored paper")
	}
	if got.Title != p.Title || got.Published != p.Published || got.PageCount != 15 {
		t.Errorf("GetPaper() = %+v, want %+v", got, p)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "Vaswani" {
		t.Errorf("GetPaper() authors = %v", got.Authors)
	}
}

func TestGetPaper_NotFound(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetPaper("missing")
	if err != nil {
		t.Fatalf("GetPaper() error: %v", err)
	}
	if got != nil {
		t.Errorf("GetPaper() = %+v, want nil", got)
	}
}

func TestUpsertPaper_Idempotent(t *testing.T) {
	db := openTestDB(t)

	p := paper.Paper{Title: "BERT", Authors: []string{"Devlin"}}
	p.EnsureID()

	for i := 0; i < 3; i++ {
		if err := db.UpsertPaper(p); err != nil {
			t.Fatalf("UpsertPaper() error: %v", err)
		}
	}

	count, err := db.CountPapers()
	if err != nil {
		t.Fatalf("CountPapers() error: %v", err)
	}
	if count != 1 {
		t.Errorf("CountPapers() = %d after repeated upsert, want 1", count)
	}
}

func TestRelationshipRoundTrip(t *testing.T) {
	db := openTestDB(t)

	r := relationship.Relationship{
		SourceID:   "newer",
		TargetID:   "older",
		Type:       relationship.TypeExtends,
		Confidence: 0.85,
		Evidence:   "builds on the attention mechanism",
	}
	r.EnsureID()
	r.SetDetectedAt()

	if err := db.UpsertRelationship(r); err != nil {
		t.Fatalf("UpsertRelationship() error: %v", err)
	}

	rels, err := db.GetAllRelationships(0)
	if err != nil {
		t.Fatalf("GetAllRelationships() error: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("GetAllRelationships() returned %d, want 1", len(rels))
	}
	if rels[0].ID != r.ID || rels[0].Confidence != 0.85 || rels[0].Evidence != r.Evidence {
		t.Errorf("round trip = %+v, want %+v", rels[0], r)
	}
}

func TestUpsertRelationship_IdempotentKey(t *testing.T) {
	db := openTestDB(t)

	r := relationship.Relationship{
		SourceID:   "a",
		TargetID:   "b",
		Type:       relationship.TypeSupports,
		Confidence: 0.6,
	}
	r.EnsureID()

	// A racing duplicate write with the same identity tuple overwrites.
	if err := db.UpsertRelationship(r); err != nil {
		t.Fatal(err)
	}
	r.Confidence = 0.7
	if err := db.UpsertRelationship(r); err != nil {
		t.Fatal(err)
	}

	count, _ := db.CountRelationships()
	if count != 1 {
		t.Errorf("CountRelationships() = %d, want 1", count)
	}
	rels, _ := db.GetAllRelationships(0)
	if rels[0].Confidence != 0.7 {
		t.Errorf("confidence = %v after overwrite, want 0.7", rels[0].Confidence)
	}
}

func TestExistsBetween(t *testing.T) {
	db := openTestDB(t)

	r := relationship.Relationship{
		SourceID:   "a",
		TargetID:   "b",
		Type:       relationship.TypeContradicts,
		Confidence: 0.8,
	}
	r.EnsureID()
	if err := db.UpsertRelationship(r); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		idA, idB string
		want     bool
	}{
		{"stored direction", "a", "b", true},
		{"reverse direction", "b", "a", true},
		{"unrelated pair", "a", "c", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ExistsBetween(tt.idA, tt.idB)
			if err != nil {
				t.Fatalf("ExistsBetween() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExistsBetween(%s, %s) = %v, want %v", tt.idA, tt.idB, got, tt.want)
			}
		})
	}
}

func TestGetRelationshipsTouching(t *testing.T) {
	db := openTestDB(t)

	for _, r := range []relationship.Relationship{
		{SourceID: "a", TargetID: "b", Type: relationship.TypeExtends, Confidence: 0.5},
		{SourceID: "c", TargetID: "a", Type: relationship.TypeSupports, Confidence: 0.5},
		{SourceID: "c", TargetID: "d", Type: relationship.TypeSupports, Confidence: 0.5},
	} {
		r.EnsureID()
		if err := db.UpsertRelationship(r); err != nil {
			t.Fatal(err)
		}
	}

	rels, err := db.GetRelationshipsTouching("a")
	if err != nil {
		t.Fatalf("GetRelationshipsTouching() error: %v", err)
	}
	if len(rels) != 2 {
		t.Errorf("GetRelationshipsTouching(a) returned %d edges, want 2", len(rels))
	}
}

func TestDeleteRelationship(t *testing.T) {
	db := openTestDB(t)

	r := relationship.Relationship{SourceID: "a", TargetID: "b", Type: relationship.TypeExtends, Confidence: 0.5}
	r.EnsureID()
	if err := db.UpsertRelationship(r); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteRelationship(r.ID); err != nil {
		t.Fatalf("DeleteRelationship() error: %v", err)
	}
	count, _ := db.CountRelationships()
	if count != 0 {
		t.Errorf("CountRelationships() = %d after delete, want 0", count)
	}
}

func TestDeleteAllRelationships(t *testing.T) {
	db := openTestDB(t)

	for _, r := range []relationship.Relationship{
		{SourceID: "a", TargetID: "b", Type: relationship.TypeExtends, Confidence: 0.5},
		{SourceID: "c", TargetID: "d", Type: relationship.TypeSupports, Confidence: 0.6},
	} {
		r.EnsureID()
		if err := db.UpsertRelationship(r); err != nil {
			t.Fatal(err)
		}
	}

	count, err := db.CountRelationships()
	if err != nil {
		t.Fatalf("CountRelationships() error: %v", err)
	}
	if count != 2 {
		t.Fatalf("CountRelationships() = %d before clear, want 2", count)
	}

	if err := db.DeleteAllRelationships(); err != nil {
		t.Fatalf("DeleteAllRelationships() error: %v", err)
	}
	count, _ = db.CountRelationships()
	if count != 0 {
		t.Errorf("CountRelationships() = %d after clear, want 0", count)
	}
}

func TestJSONLBackupRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relationships.jsonl")

	rels := []relationship.Relationship{
		{SourceID: "a", TargetID: "b", Type: relationship.TypeExtends, Confidence: 0.8, Evidence: "x"},
		{SourceID: "c", TargetID: "d", Type: relationship.TypeContradicts, Confidence: 0.9, Evidence: "y"},
	}
	for i := range rels {
		rels[i].EnsureID()
	}

	if err := WriteAllRelationships(path, rels); err != nil {
		t.Fatalf("WriteAllRelationships() error: %v", err)
	}

	got, err := ReadAllRelationships(path)
	if err != nil {
		t.Fatalf("ReadAllRelationships() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadAllRelationships() returned %d, want 2", len(got))
	}
	if got[0].ID != rels[0].ID || got[1].Evidence != "y" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestReadAllRelationships_Missing(t *testing.T) {
	got, err := ReadAllRelationships(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("ReadAllRelationships() error for missing file: %v", err)
	}
	if got != nil {
		t.Errorf("ReadAllRelationships() = %v for missing file, want nil", got)
	}
}
