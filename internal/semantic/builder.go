package semantic

import (
	"context"
	"fmt"
	"time"

	"github.com/calloway/papergraph/internal/embedding"
	"github.com/calloway/papergraph/internal/paper"
)

// BuildStats contains statistics from index building.
type BuildStats struct {
	PapersIndexed int           `json:"papers_indexed"`
	PapersSkipped int           `json:"papers_skipped"`
	Duration      time.Duration `json:"-"`
	DurationMs    int64         `json:"duration_ms"`
}

// ProgressFunc receives progress updates during index building.
type ProgressFunc func(current, total int)

// Builder constructs a semantic index from paper abstracts.
type Builder struct {
	provider embedding.Provider
	progress ProgressFunc
}

// NewBuilder creates a new index builder.
func NewBuilder(provider embedding.Provider) *Builder {
	return &Builder{provider: provider}
}

// SetProgress sets the progress callback.
func (b *Builder) SetProgress(fn ProgressFunc) {
	b.progress = fn
}

// Build creates an index from all papers with usable classification text.
// Papers without an abstract or key finding (or with too little text) are
// skipped, not failed.
func (b *Builder) Build(ctx context.Context, papers []paper.Paper) (*Index, *BuildStats, error) {
	start := time.Now()

	idx := NewIndex(b.provider.ModelName(), b.provider.Dimensions())
	stats := &BuildStats{}

	for i, p := range papers {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		if b.progress != nil {
			b.progress(i+1, len(papers))
		}

		text := p.ClassificationText()
		if len(text) < MinAbstractLength {
			stats.PapersSkipped++
			continue
		}
		if len(text) > MaxAbstractLength {
			text = text[:MaxAbstractLength]
		}

		emb, err := b.provider.Embed(ctx, text)
		if err != nil {
			return nil, nil, fmt.Errorf("embedding paper %s: %w", p.ID, err)
		}
		if err := idx.Add(p.ID, emb.Vector); err != nil {
			return nil, nil, fmt.Errorf("adding embedding for %s: %w", p.ID, err)
		}
		stats.PapersIndexed++
	}

	idx.SkippedCount = stats.PapersSkipped
	idx.BuildDurationMs = time.Since(start).Milliseconds()
	stats.Duration = time.Since(start)
	stats.DurationMs = stats.Duration.Milliseconds()
	return idx, stats, nil
}
