package semantic

import (
	"math"
	"sort"
)

// Ranked is a candidate paper with its similarity to the query paper.
type Ranked struct {
	PaperID    string  `json:"id"`
	Similarity float32 `json:"similarity"`
}

// Ranker orders candidate papers by embedding similarity to a query paper.
// It is the pre-filter that keeps classifier call volume sublinear in corpus
// size.
type Ranker struct {
	idx *Index
}

// NewRanker creates a ranker over a built index.
func NewRanker(idx *Index) *Ranker {
	return &Ranker{idx: idx}
}

// Rank returns the candidates most similar to paperID, highest first,
// keeping only those at or above floor and at most topK (no limit when
// topK <= 0). Candidates missing from the index are skipped, as is the
// query paper itself.
func (r *Ranker) Rank(paperID string, candidates []string, topK int, floor float32) ([]Ranked, error) {
	query, ok := r.idx.Embeddings[paperID]
	if !ok {
		return nil, ErrPaperNotIndexed
	}

	results := make([]Ranked, 0, len(candidates))
	for _, id := range candidates {
		if id == paperID {
			continue
		}
		vec, ok := r.idx.Embeddings[id]
		if !ok {
			continue
		}
		sim := CosineSimilarity(query, vec)
		if sim >= floor {
			results = append(results, Ranked{PaperID: id, Similarity: sim})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].PaperID < results[j].PaperID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))
	if denom == 0 {
		return 0
	}
	return dot / denom
}
