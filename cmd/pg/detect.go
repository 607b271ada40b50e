package main

import (
	"context"

	"github.com/calloway/papergraph/internal/detect"
	"github.com/calloway/papergraph/internal/semantic"
	"github.com/spf13/cobra"
)

var (
	detectSimilarOnly   bool
	detectTopK          int
	detectFloor         float64
	detectNoSkip        bool
	detectScalarCutover float64
)

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().BoolVar(&detectSimilarOnly, "similar", false, "Only compare against semantically similar papers (needs the index)")
	detectCmd.Flags().IntVar(&detectTopK, "top-k", 0, "Similar-paper candidate count (default from detection.yml)")
	detectCmd.Flags().Float64Var(&detectFloor, "floor", -1, "Minimum cosine similarity for candidates (default from detection.yml)")
	detectCmd.Flags().BoolVar(&detectNoSkip, "no-skip-existing", false, "Re-classify pairs that already have a relationship")
	detectCmd.Flags().Float64Var(&detectScalarCutover, "threshold", 0, "Flat confidence threshold overriding the per-type policy")
}

var detectCmd = &cobra.Command{
	Use:   "detect <paper-id>",
	Short: "Detect relationships between one paper and the corpus",
	Long: `Compare a single paper against the rest of the corpus and persist the
detected relationships. Pairs that already have a recorded relationship
are skipped unless --no-skip-existing is given.

With --similar, only the top-K most semantically similar papers are
compared, which needs the semantic index ('pg index build').`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	log := newRunLogger()
	defer log.Sync()

	detCfg := mustLoadDetectionConfig(root)
	eng, db := buildEngine(root, log, detCfg, detectScalarCutover)
	defer db.Close()

	subject, err := db.GetPaper(args[0])
	if err != nil {
		exitWithError(ExitError, "looking up paper: %v", err)
	}
	if subject == nil {
		exitWithError(ExitError, "paper %q not found", args[0])
	}

	papers, err := db.GetAllPapers()
	if err != nil {
		exitWithError(ExitError, "loading corpus: %v", err)
	}
	if len(papers) < 2 {
		emitSweepResult("corpus_too_small", detect.Summary{CorpusSize: len(papers)})
		return nil
	}

	var store detect.ExistsChecker = db
	if detectNoSkip {
		store = nil
	}

	var sel detect.Selector
	if detectSimilarOnly {
		idx := mustLoadSemanticIndex(root)
		ranker := semantic.NewRanker(idx)

		topK := detectTopK
		if topK <= 0 {
			topK = detCfg.TopK
		}
		floor := float32(detCfg.SimilarityFloor)
		if detectFloor >= 0 {
			floor = float32(detectFloor)
		}

		filtered, err := detect.NewSimilarityFiltered(subject, papers, ranker, topK, floor, store)
		if err != nil {
			exitWithError(ExitIndexNotFound, "ranking similar papers: %v\n\nRebuild the index with 'pg index build' if the corpus changed.", err)
		}
		sel = filtered
	} else {
		sel = detect.NewIncremental(subject, papers, store)
	}

	sum, err := eng.Run(context.Background(), sel, len(papers))
	if err != nil {
		emitSweepResult("aborted", sum)
		return nil
	}

	status := "completed"
	if sum.ClassifierFailures > 0 || sum.PairErrors > 0 {
		status = "completed_with_errors"
	}
	emitSweepResult(status, sum)
	return nil
}
