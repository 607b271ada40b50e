package detect

import (
	"fmt"
	"sort"

	"github.com/calloway/papergraph/internal/paper"
	"github.com/calloway/papergraph/internal/semantic"
	"github.com/calloway/papergraph/internal/temporal"
)

// ExistsChecker is the direction-agnostic dedup query the selectors consult
// before yielding a job.
type ExistsChecker interface {
	ExistsBetween(idA, idB string) (bool, error)
}

// Selector produces the sequence of comparison jobs for a corpus state.
// Jobs are yielded lazily and consumed once; a selector is not restartable.
// Next returns (nil, nil) when the sequence is exhausted.
type Selector interface {
	Next() (*Job, error)

	// SkippedExisting reports how many pairs the dedup check suppressed so
	// far. Meaningful after the sequence is consumed.
	SkippedExisting() int
}

// selectorBase carries the dedup state shared by all strategies.
type selectorBase struct {
	store           ExistsChecker
	skipExisting    bool
	skippedExisting int
}

// admit applies the dedup check to a candidate pair.
func (s *selectorBase) admit(idA, idB string) (bool, error) {
	if !s.skipExisting || s.store == nil {
		return true, nil
	}
	exists, err := s.store.ExistsBetween(idA, idB)
	if err != nil {
		return false, fmt.Errorf("checking existing edge for (%s, %s): %w", idA, idB, err)
	}
	if exists {
		s.skippedExisting++
		return false, nil
	}
	return true, nil
}

func (s *selectorBase) SkippedExisting() int { return s.skippedExisting }

// FullSweep enumerates every unordered pair of a corpus exactly once,
// already in the legal temporal direction: papers are sorted newest-first
// (undated papers last, input order preserved among equals) and each paper
// is paired against everything after it in the sort. A corpus of n papers
// yields n*(n-1)/2 jobs.
type FullSweep struct {
	selectorBase
	papers []paper.Paper
	i, j   int
}

// FullSweepOption configures a FullSweep.
type FullSweepOption func(*FullSweep)

// WithSkipExisting enables the dedup check against store. Off by default
// for sweeps: a sweep is normally a clean-slate rebuild.
func WithSkipExisting(store ExistsChecker) FullSweepOption {
	return func(s *FullSweep) {
		s.store = store
		s.skipExisting = true
	}
}

// NewFullSweep creates a full-sweep selector over the corpus.
func NewFullSweep(papers []paper.Paper, opts ...FullSweepOption) *FullSweep {
	sorted := make([]paper.Paper, len(papers))
	copy(sorted, papers)
	sort.SliceStable(sorted, func(a, b int) bool {
		da, aok := temporal.ResolveDate(&sorted[a])
		db, bok := temporal.ResolveDate(&sorted[b])
		if aok != bok {
			return aok // dated papers before undated ones
		}
		if !aok {
			return false // both undated: keep input order
		}
		return da.After(db)
	})

	s := &FullSweep{papers: sorted, i: 0, j: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FullSweep) Next() (*Job, error) {
	for s.i < len(s.papers)-1 {
		if s.j >= len(s.papers) {
			s.i++
			s.j = s.i + 1
			continue
		}
		src, tgt := &s.papers[s.i], &s.papers[s.j]
		s.j++

		ok, err := s.admit(src.ID, tgt.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		return &Job{Source: src, Target: tgt}, nil
	}
	return nil, nil
}

// Incremental pairs one new paper (as prospective source) against every
// existing paper. It does not pre-sort; the engine's temporal gate skips
// illegal directions without spending a classifier call. Skip-existing is
// the default here: it is what makes re-running a partially completed
// ingestion cheap and idempotent.
type Incremental struct {
	selectorBase
	source *paper.Paper
	corpus []paper.Paper
	i      int
}

// NewIncremental creates an incremental selector for newPaper against the
// corpus. Pass a nil store to disable the dedup check.
func NewIncremental(newPaper *paper.Paper, corpus []paper.Paper, store ExistsChecker) *Incremental {
	s := &Incremental{source: newPaper, corpus: corpus}
	s.store = store
	s.skipExisting = store != nil
	return s
}

func (s *Incremental) Next() (*Job, error) {
	for s.i < len(s.corpus) {
		tgt := &s.corpus[s.i]
		s.i++

		if tgt.ID == s.source.ID {
			continue
		}
		ok, err := s.admit(s.source.ID, tgt.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		return &Job{Source: s.source, Target: tgt}, nil
	}
	return nil, nil
}

// SimilarityFiltered ranks the corpus by embedding similarity to the new
// paper, keeps the top-K at or above a floor, and runs the incremental
// strategy over that reduced set. Trades recall for a large cut in
// classifier call volume.
type SimilarityFiltered struct {
	inner *Incremental
	sims  map[string]float64
}

// DefaultTopK and DefaultSimilarityFloor are the standard pre-filter knobs.
const (
	DefaultTopK            = 20
	DefaultSimilarityFloor = 0.6
)

// NewSimilarityFiltered creates a similarity-filtered selector. Papers
// missing from the ranker's index are silently excluded; callers wanting
// full recall should use NewIncremental instead.
func NewSimilarityFiltered(newPaper *paper.Paper, corpus []paper.Paper, ranker *semantic.Ranker, topK int, floor float32, store ExistsChecker) (*SimilarityFiltered, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	byID := make(map[string]paper.Paper, len(corpus))
	ids := make([]string, 0, len(corpus))
	for _, p := range corpus {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	ranked, err := ranker.Rank(newPaper.ID, ids, topK, floor)
	if err != nil {
		return nil, fmt.Errorf("ranking candidates: %w", err)
	}

	filtered := make([]paper.Paper, 0, len(ranked))
	sims := make(map[string]float64, len(ranked))
	for _, r := range ranked {
		filtered = append(filtered, byID[r.PaperID])
		sims[r.PaperID] = float64(r.Similarity)
	}

	return &SimilarityFiltered{
		inner: NewIncremental(newPaper, filtered, store),
		sims:  sims,
	}, nil
}

func (s *SimilarityFiltered) Next() (*Job, error) {
	job, err := s.inner.Next()
	if err != nil || job == nil {
		return job, err
	}
	job.Similarity = s.sims[job.Target.ID]
	return job, nil
}

func (s *SimilarityFiltered) SkippedExisting() int { return s.inner.SkippedExisting() }

// CandidateCount reports how many corpus papers survived the similarity
// filter, for run summaries.
func (s *SimilarityFiltered) CandidateCount() int { return len(s.inner.corpus) }
