// Package semantic provides embedding-based similarity over paper abstracts,
// used to pre-filter classifier candidates.
package semantic

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"time"
)

// Errors returned by semantic index operations.
var (
	ErrIndexNotFound      = errors.New("semantic index not found")
	ErrPaperNotIndexed    = errors.New("paper not in semantic index")
	ErrUnsupportedVersion = errors.New("unsupported index version")
)

const (
	// MinAbstractLength is the minimum abstract length (in characters) to
	// index. Shorter abstracts lack the content for reliable similarity.
	MinAbstractLength = 50

	// MaxAbstractLength caps the text sent to the embedding model.
	MaxAbstractLength = 8000

	// CurrentIndexVersion is the format version for compatibility checking.
	CurrentIndexVersion = 1
)

// Index holds embeddings for all indexed papers.
type Index struct {
	Version int

	ModelName       string
	Dimensions      int
	CreatedAt       time.Time
	PaperCount      int
	SkippedCount    int
	BuildDurationMs int64

	// Embeddings maps paper IDs to their vectors.
	Embeddings map[string][]float32
}

// NewIndex creates a new empty index for the given model.
func NewIndex(modelName string, dimensions int) *Index {
	return &Index{
		Version:    CurrentIndexVersion,
		ModelName:  modelName,
		Dimensions: dimensions,
		CreatedAt:  time.Now(),
		Embeddings: make(map[string][]float32),
	}
}

// Add records a paper embedding.
func (idx *Index) Add(paperID string, vec []float32) error {
	if len(vec) != idx.Dimensions {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), idx.Dimensions)
	}
	idx.Embeddings[paperID] = vec
	idx.PaperCount = len(idx.Embeddings)
	return nil
}

// Has reports whether a paper is in the index.
func (idx *Index) Has(paperID string) bool {
	_, ok := idx.Embeddings[paperID]
	return ok
}

// Save persists the index to path using GOB encoding. Writes go to a temp
// file first, then rename, so a crash never leaves a torn index.
func (idx *Index) Save(path string) error {
	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(idx); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// LoadIndex reads an index from path.
func LoadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var idx Index
	if err := gob.NewDecoder(f).Decode(&idx); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	if idx.Version != CurrentIndexVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, idx.Version, CurrentIndexVersion)
	}
	return &idx, nil
}
