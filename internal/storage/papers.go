package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/calloway/papergraph/internal/paper"
)

// selectPaperFields is the standard field list for paper SELECT queries.
const selectPaperFields = `paper_id, title, authors_json, abstract, key_finding,
	published, updated, pdf_path, page_count, arxiv_id, created_at`

// UpsertPaper inserts or replaces a paper keyed by its ID.
func (d *DB) UpsertPaper(p paper.Paper) error {
	authorsJSON, err := json.Marshal(p.Authors)
	if err != nil {
		return fmt.Errorf("encoding authors: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT OR REPLACE INTO papers
			(paper_id, title, authors_json, abstract, key_finding,
			 published, updated, pdf_path, page_count, arxiv_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, string(authorsJSON), p.Abstract, p.KeyFinding,
		p.Published, p.Updated, p.PDFPath, p.PageCount, p.ArXivID, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting paper: %w", err)
	}
	return nil
}

// GetPaper returns the paper with the given ID, or nil if not found.
func (d *DB) GetPaper(id string) (*paper.Paper, error) {
	row := d.db.QueryRow(`
		SELECT `+selectPaperFields+`
		FROM papers WHERE paper_id = ?
	`, id)

	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying paper: %w", err)
	}
	return p, nil
}

// GetAllPapers returns all papers ordered by ID.
func (d *DB) GetAllPapers() ([]paper.Paper, error) {
	rows, err := d.db.Query(`
		SELECT ` + selectPaperFields + `
		FROM papers ORDER BY paper_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []paper.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, *p)
	}
	return papers, rows.Err()
}

// CountPapers returns the total number of papers.
func (d *DB) CountPapers() (int, error) {
	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM papers").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeletePaper removes a paper by ID. Relationships touching it are left in
// place; callers that want them gone delete them first ('pg paper remove'
// does), and the auditor counts any leftovers as unorderable.
func (d *DB) DeletePaper(id string) error {
	_, err := d.db.Exec("DELETE FROM papers WHERE paper_id = ?", id)
	return err
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (*paper.Paper, error) {
	var p paper.Paper
	var authorsJSON string
	var abstract, keyFinding, published, updated, pdfPath, arxivID, createdAt sql.NullString
	var pageCount sql.NullInt64

	err := row.Scan(&p.ID, &p.Title, &authorsJSON, &abstract, &keyFinding,
		&published, &updated, &pdfPath, &pageCount, &arxivID, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
		return nil, fmt.Errorf("decoding authors for %s: %w", p.ID, err)
	}

	p.Abstract = abstract.String
	p.KeyFinding = keyFinding.String
	p.Published = published.String
	p.Updated = updated.String
	p.PDFPath = pdfPath.String
	p.PageCount = int(pageCount.Int64)
	p.ArXivID = arxivID.String
	p.CreatedAt = createdAt.String
	return &p, nil
}
