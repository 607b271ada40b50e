// Package detect implements relationship detection over a paper corpus:
// pair selection, rate-limited classification, and threshold-gated
// persistence.
package detect

import "github.com/calloway/papergraph/internal/paper"

// Job is a single ordered (source, target) pair awaiting classification.
// It carries everything needed to be skipped, rate-limited, classified, and
// scored independently of other jobs; it is the unit of parallelism.
type Job struct {
	Source *paper.Paper
	Target *paper.Paper

	// Similarity is the embedding similarity recorded by the
	// similarity-filtered selector. Zero when the pair was not pre-filtered.
	Similarity float64
}
