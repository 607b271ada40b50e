package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/calloway/papergraph/internal/relationship"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines
// (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ReadAllRelationships reads all relationships from a JSONL backup file.
// Returns an error if any record fails structural validation (fail-fast).
func ReadAllRelationships(path string) ([]relationship.Relationship, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Empty file returns empty slice
		}
		return nil, fmt.Errorf("opening backup file: %w", err)
	}
	defer f.Close()

	var rels []relationship.Relationship
	scanner := bufio.NewScanner(f)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var r relationship.Relationship
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}

		if err := r.ValidateForCreate(); err != nil {
			return nil, fmt.Errorf("invalid relationship at line %d: %w", lineNum, err)
		}

		rels = append(rels, r)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading backup file: %w", err)
	}

	return rels, nil
}

// WriteAllRelationships writes all relationships to a JSONL backup file,
// replacing existing content.
func WriteAllRelationships(path string, rels []relationship.Relationship) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating backup file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range rels {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding relationship %s: %w", r.ID, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing relationship: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return w.Flush()
}
