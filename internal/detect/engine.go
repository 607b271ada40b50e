package detect

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/calloway/papergraph/internal/classifier"
	"github.com/calloway/papergraph/internal/relationship"
	"github.com/calloway/papergraph/internal/temporal"
)

// Thresholds is the minimum-confidence policy applied before persistence.
// PerType entries override Default; a type with no entry uses Default.
type Thresholds struct {
	Default float64
	PerType map[string]float64
}

// DefaultThresholds is the per-type policy: false-positive contradictions
// damage trust more than false-positive supports, so they need stronger
// evidence.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Default: 0.6,
		PerType: map[string]float64{
			relationship.TypeContradicts: 0.7,
			relationship.TypeExtends:     0.5,
			relationship.TypeSupports:    0.5,
		},
	}
}

// Scalar returns a flat threshold policy for batch mode.
func Scalar(min float64) Thresholds {
	return Thresholds{Default: min}
}

// For returns the threshold for a relationship type.
func (t Thresholds) For(relType string) float64 {
	if v, ok := t.PerType[relType]; ok {
		return v
	}
	return t.Default
}

// RelationshipWriter is the persistence the engine needs.
type RelationshipWriter interface {
	UpsertRelationship(r relationship.Relationship) error
}

// Summary is the operator-facing result of a detection run.
type Summary struct {
	CorpusSize         int    `json:"corpus_size"`
	PairsEnumerated    int    `json:"pairs_enumerated"`
	PairsCompared      int    `json:"pairs_compared"`
	EdgesCreated       int    `json:"edges_created"`
	SkippedTemporal    int    `json:"skipped_temporal"`
	SkippedExisting    int    `json:"skipped_existing"`
	BelowThreshold     int    `json:"below_threshold"`
	ClassifierFailures int    `json:"classifier_failures"`
	PairErrors         int    `json:"pair_errors"`
	Aborted            bool   `json:"aborted,omitempty"`
	AbortReason        string `json:"abort_reason,omitempty"`
	ElapsedMs          int64  `json:"elapsed_ms"`
}

// Engine orchestrates selector -> temporal gate -> rate limiter ->
// classifier -> threshold -> persistence. All collaborators are injected;
// the engine holds no hidden process state.
type Engine struct {
	classifier classifier.PairClassifier
	store      RelationshipWriter
	limiter    *RateLimiter
	thresholds Thresholds
	log        *zap.Logger

	// workers bounds concurrent classifier calls. 1 means sequential.
	workers int

	// callTimeout caps a single classifier call; a timeout is a classifier
	// failure, never fatal.
	callTimeout time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWorkers sets the number of concurrent classification workers.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithThresholds sets the confidence threshold policy.
func WithThresholds(t Thresholds) EngineOption {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithCallTimeout sets the per-classification timeout.
func WithCallTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.callTimeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates a detection engine.
func NewEngine(pc classifier.PairClassifier, store RelationshipWriter, limiter *RateLimiter, opts ...EngineOption) *Engine {
	e := &Engine{
		classifier:  pc,
		store:       store,
		limiter:     limiter,
		thresholds:  DefaultThresholds(),
		log:         zap.NewNop(),
		workers:     1,
		callTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run consumes the selector's jobs and returns the run summary. Per-pair
// failures are logged and counted, never fatal; a selector error (the store
// going away mid-enumeration) aborts the run, because continuing would
// produce an incomplete graph that looks complete.
func (e *Engine) Run(ctx context.Context, sel Selector, corpusSize int) (Summary, error) {
	start := time.Now()
	var sum Summary
	sum.CorpusSize = corpusSize

	jobs := make(chan *Job)
	var mu sync.Mutex // guards sum counters
	var wg sync.WaitGroup

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				e.process(ctx, job, &sum, &mu)
			}
		}()
	}

	var runErr error
feed:
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		default:
		}

		job, err := sel.Next()
		if err != nil {
			runErr = err
			break
		}
		if job == nil {
			break
		}
		sum.PairsEnumerated++
		jobs <- job
	}
	close(jobs)
	wg.Wait()

	sum.SkippedExisting = sel.SkippedExisting()
	sum.ElapsedMs = time.Since(start).Milliseconds()

	if runErr != nil {
		sum.Aborted = true
		sum.AbortReason = runErr.Error()
		e.log.Error("detection run aborted",
			zap.Error(runErr),
			zap.Int("pairs_enumerated", sum.PairsEnumerated))
		return sum, runErr
	}

	e.log.Info("detection run complete",
		zap.Int("corpus_size", sum.CorpusSize),
		zap.Int("pairs_enumerated", sum.PairsEnumerated),
		zap.Int("pairs_compared", sum.PairsCompared),
		zap.Int("edges_created", sum.EdgesCreated),
		zap.Int("skipped_temporal", sum.SkippedTemporal),
		zap.Int("skipped_existing", sum.SkippedExisting),
		zap.Int("below_threshold", sum.BelowThreshold),
		zap.Int("classifier_failures", sum.ClassifierFailures),
		zap.Int64("elapsed_ms", sum.ElapsedMs))
	return sum, nil
}

// process handles one job end to end: classify once, persist once. It never
// returns an error; every failure mode is a counter and a log line.
func (e *Engine) process(ctx context.Context, job *Job, sum *Summary, mu *sync.Mutex) {
	// Temporal gate first: an illegal direction costs no classifier call.
	if !temporal.IsLegalDirection(job.Source, job.Target) {
		mu.Lock()
		sum.SkippedTemporal++
		mu.Unlock()
		e.log.Debug("skipped pair: temporal direction illegal",
			zap.String("source", job.Source.ID),
			zap.String("target", job.Target.ID))
		return
	}

	if err := e.limiter.Acquire(ctx); err != nil {
		// Context cancelled while waiting for a permit.
		mu.Lock()
		sum.PairErrors++
		mu.Unlock()
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	outcome, err := e.classifier.Classify(callCtx, job.Source, job.Target)
	cancel()

	mu.Lock()
	sum.PairsCompared++
	mu.Unlock()

	if err != nil {
		// Transport failure or timeout: treat as none, keep going.
		mu.Lock()
		sum.ClassifierFailures++
		mu.Unlock()
		e.log.Warn("classifier call failed",
			zap.String("source", job.Source.ID),
			zap.String("target", job.Target.ID),
			zap.Error(err))
		return
	}
	if outcome.ParseFailure != nil {
		mu.Lock()
		sum.ClassifierFailures++
		mu.Unlock()
		e.log.Warn("classifier output unparseable",
			zap.String("source", job.Source.ID),
			zap.String("target", job.Target.ID),
			zap.String("raw", outcome.ParseFailure.Raw))
		return
	}
	if outcome.IsNone() {
		return
	}

	j := outcome.Ok
	if j.Confidence < e.thresholds.For(j.Type) {
		mu.Lock()
		sum.BelowThreshold++
		mu.Unlock()
		e.log.Debug("classified below threshold",
			zap.String("source", job.Source.ID),
			zap.String("target", job.Target.ID),
			zap.String("type", j.Type),
			zap.Float64("confidence", j.Confidence))
		return
	}

	rel := relationship.Relationship{
		SourceID:        job.Source.ID,
		TargetID:        job.Target.ID,
		Type:            j.Type,
		Confidence:      j.Confidence,
		Evidence:        j.Evidence,
		SimilarityScore: job.Similarity,
	}
	rel.EnsureID()
	rel.SetDetectedAt()

	if err := e.store.UpsertRelationship(rel); err != nil {
		mu.Lock()
		sum.PairErrors++
		mu.Unlock()
		e.log.Error("persisting relationship failed",
			zap.String("relationship_id", rel.ID),
			zap.Error(err))
		return
	}

	mu.Lock()
	sum.EdgesCreated++
	mu.Unlock()
	e.log.Info("relationship persisted",
		zap.String("source", rel.SourceID),
		zap.String("target", rel.TargetID),
		zap.String("type", rel.Type),
		zap.Float64("confidence", rel.Confidence))
}
