package storage

import (
	"database/sql"
	"fmt"

	"github.com/calloway/papergraph/internal/relationship"
)

// selectRelFields is the standard field list for relationship SELECT queries.
const selectRelFields = `relationship_id, source_paper_id, target_paper_id,
	relationship_type, confidence, evidence, detected_at, similarity_score`

// UpsertRelationship inserts or replaces an edge keyed by its deterministic
// ID, so a racing duplicate write degenerates to an idempotent overwrite.
func (d *DB) UpsertRelationship(r relationship.Relationship) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO relationships
			(relationship_id, source_paper_id, target_paper_id,
			 relationship_type, confidence, evidence, detected_at, similarity_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.SourceID, r.TargetID, r.Type, r.Confidence, r.Evidence,
		r.DetectedAt, r.SimilarityScore)
	if err != nil {
		return fmt.Errorf("upserting relationship: %w", err)
	}
	return nil
}

// DeleteRelationship removes an edge by ID.
func (d *DB) DeleteRelationship(id string) error {
	_, err := d.db.Exec("DELETE FROM relationships WHERE relationship_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting relationship: %w", err)
	}
	return nil
}

// GetAllRelationships returns up to limit edges (all of them when limit <= 0).
func (d *DB) GetAllRelationships(limit int) ([]relationship.Relationship, error) {
	q := `
		SELECT ` + selectRelFields + `
		FROM relationships
		ORDER BY source_paper_id, target_paper_id, relationship_type
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = d.db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = d.db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// GetRelationshipsTouching returns all edges where the paper is source or
// target.
func (d *DB) GetRelationshipsTouching(paperID string) ([]relationship.Relationship, error) {
	rows, err := d.db.Query(`
		SELECT `+selectRelFields+`
		FROM relationships
		WHERE source_paper_id = ? OR target_paper_id = ?
		ORDER BY source_paper_id, target_paper_id, relationship_type
	`, paperID, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying relationships by paper: %w", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// ExistsBetween reports whether any edge of any type exists between two
// papers, in either direction. Used by the skip-existing dedup check.
func (d *DB) ExistsBetween(idA, idB string) (bool, error) {
	var count int
	err := d.db.QueryRow(`
		SELECT COUNT(*) FROM relationships
		WHERE (source_paper_id = ? AND target_paper_id = ?)
		   OR (source_paper_id = ? AND target_paper_id = ?)
	`, idA, idB, idB, idA).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking pair existence: %w", err)
	}
	return count > 0, nil
}

// CountRelationships returns the total number of edges.
func (d *DB) CountRelationships() (int, error) {
	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM relationships").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteAllRelationships clears the relationships table. Used by
// replace-mode restore.
func (d *DB) DeleteAllRelationships() error {
	_, err := d.db.Exec("DELETE FROM relationships")
	return err
}

func scanRelationships(rows *sql.Rows) ([]relationship.Relationship, error) {
	var rels []relationship.Relationship
	for rows.Next() {
		var r relationship.Relationship
		var evidence, detectedAt sql.NullString
		var simScore sql.NullFloat64
		err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Type,
			&r.Confidence, &evidence, &detectedAt, &simScore)
		if err != nil {
			return nil, err
		}
		r.Evidence = evidence.String
		r.DetectedAt = detectedAt.String
		r.SimilarityScore = simScore.Float64
		rels = append(rels, r)
	}
	return rels, rows.Err()
}
