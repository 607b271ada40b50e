package semantic

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	idx := NewIndex("test-model", 2)
	vectors := map[string][]float32{
		"query": {1, 0},
		"close": {0.9, 0.1},
		"mid":   {0.5, 0.5},
		"far":   {0, 1},
	}
	for id, v := range vectors {
		if err := idx.Add(id, v); err != nil {
			t.Fatal(err)
		}
	}
	return idx
}

func TestRanker_Rank(t *testing.T) {
	r := NewRanker(buildTestIndex(t))

	got, err := r.Rank("query", []string{"close", "mid", "far"}, 0, 0)
	if err != nil {
		t.Fatalf("Rank() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Rank() returned %d, want 3", len(got))
	}
	if got[0].PaperID != "close" || got[2].PaperID != "far" {
		t.Errorf("Rank() order = %v", got)
	}
}

func TestRanker_TopKAndFloor(t *testing.T) {
	r := NewRanker(buildTestIndex(t))

	got, err := r.Rank("query", []string{"close", "mid", "far"}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].PaperID != "close" {
		t.Errorf("Rank() with topK=1 = %v", got)
	}

	got, err = r.Rank("query", []string{"close", "mid", "far"}, 0, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range got {
		if res.Similarity < 0.6 {
			t.Errorf("Rank() returned %v below the floor", res)
		}
	}
	for _, res := range got {
		if res.PaperID == "far" {
			t.Error("far should be filtered by the floor")
		}
	}
}

func TestRanker_SkipsSelfAndUnindexed(t *testing.T) {
	r := NewRanker(buildTestIndex(t))

	got, err := r.Rank("query", []string{"query", "close", "not-indexed"}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].PaperID != "close" {
		t.Errorf("Rank() = %v, want just close", got)
	}
}

func TestRanker_QueryNotIndexed(t *testing.T) {
	r := NewRanker(buildTestIndex(t))
	if _, err := r.Rank("missing", []string{"close"}, 0, 0); err != ErrPaperNotIndexed {
		t.Errorf("Rank() error = %v, want ErrPaperNotIndexed", err)
	}
}
