// Package paper defines the core domain type for research papers.
package paper

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Paper represents an ingested research paper.
type Paper struct {
	// Identity: deterministic hash of (title, first author), so re-ingesting
	// the same paper resolves to the same record.
	ID string `json:"paper_id"`

	// Metadata
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract,omitempty"`

	// KeyFinding is the distilled claim used as classification input when
	// the abstract is missing or too long.
	KeyFinding string `json:"key_finding,omitempty"`

	// Publication timestamps as stored (ISO-8601, bare date, or bare year).
	// Empty means unknown; such papers are temporally unorderable.
	Published string `json:"published,omitempty"`
	Updated   string `json:"updated,omitempty"`

	// Source tracking
	PDFPath   string `json:"pdf_path,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
	ArXivID   string `json:"arxiv_id,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
}

// Validation errors.
var (
	ErrEmptyTitle   = errors.New("title is required")
	ErrEmptyAuthors = errors.New("at least one author is required")
)

// idHexLen is the number of hex characters kept from the identity hash.
const idHexLen = 16

// DeriveID computes the stable identifier for a paper from its title and
// first author. The same (title, first author) always maps to the same ID.
func DeriveID(title string, authors []string) string {
	first := "unknown"
	if len(authors) > 0 {
		first = authors[0]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%s", title, first)))
	return hex.EncodeToString(sum[:])[:idHexLen]
}

// ValidateForCreate validates a paper for creation.
func (p *Paper) ValidateForCreate() error {
	if p.Title == "" {
		return ErrEmptyTitle
	}
	if len(p.Authors) == 0 {
		return ErrEmptyAuthors
	}
	return nil
}

// EnsureID populates ID from the title and authors if unset.
func (p *Paper) EnsureID() {
	if p.ID == "" {
		p.ID = DeriveID(p.Title, p.Authors)
	}
}

// ClassificationText returns the text used as classifier input: the abstract
// when present, otherwise the key finding.
func (p *Paper) ClassificationText() string {
	if p.Abstract != "" {
		return p.Abstract
	}
	return p.KeyFinding
}
