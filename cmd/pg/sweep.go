package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/calloway/papergraph/internal/detect"
	"github.com/spf13/cobra"
)

var (
	sweepThreshold    float64
	sweepSkipExisting bool
	sweepWorkers      int
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().Float64Var(&sweepThreshold, "threshold", 0, "Flat confidence threshold overriding the per-type policy")
	sweepCmd.Flags().BoolVar(&sweepSkipExisting, "skip-existing", false, "Skip pairs that already have a relationship")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "Concurrent classifier calls (default from detection.yml)")
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Detect relationships across the whole corpus",
	Long: `Compare every pair of papers in the corpus and persist the detected
relationships. Papers are ordered newest first, so each pair is compared
exactly once in the temporally legal direction.

By default every pair is re-classified, which refreshes stale edges.
Use --skip-existing to only classify pairs with no recorded relationship.`,
	RunE: runSweep,
}

// SweepResponse is the detection run summary plus run status.
type SweepResponse struct {
	Status  string         `json:"status"`
	Summary detect.Summary `json:"summary"`
}

func runSweep(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	log := newRunLogger()
	defer log.Sync()

	detCfg := mustLoadDetectionConfig(root)
	if sweepWorkers > 0 {
		detCfg.Workers = sweepWorkers
	}
	eng, db := buildEngine(root, log, detCfg, sweepThreshold)
	defer db.Close()

	papers, err := db.GetAllPapers()
	if err != nil {
		exitWithError(ExitError, "loading corpus: %v", err)
	}
	if len(papers) < 2 {
		emitSweepResult("corpus_too_small", detect.Summary{CorpusSize: len(papers)})
		return nil
	}

	var opts []detect.FullSweepOption
	if sweepSkipExisting {
		opts = append(opts, detect.WithSkipExisting(db))
	}
	sel := detect.NewFullSweep(papers, opts...)

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

// emitSweepResult prints a detection summary in the selected format and
// exits non-zero for aborted runs.
func emitSweepResult(status string, sum detect.Summary) {
	if humanOutput {
		fmt.Printf("Status:              %s\n", status)
		if sum.AbortReason != "" {
			fmt.Printf("Abort reason:        %s\n", sum.AbortReason)
		}
		fmt.Printf("Corpus size:         %d\n", sum.CorpusSize)
		fmt.Printf("Pairs enumerated:    %d\n", sum.PairsEnumerated)
		fmt.Printf("Pairs compared:      %d\n", sum.PairsCompared)
		fmt.Printf("Edges created:       %d\n", sum.EdgesCreated)
		fmt.Printf("Skipped (temporal):  %d\n", sum.SkippedTemporal)
		fmt.Printf("Skipped (existing):  %d\n", sum.SkippedExisting)
		fmt.Printf("Below threshold:     %d\n", sum.BelowThreshold)
		fmt.Printf("Classifier failures: %d\n", sum.ClassifierFailures)
		fmt.Printf("Elapsed:             %s\n", formatDuration(time.Duration(sum.ElapsedMs)*time.Millisecond))
	} else {
		outputJSON(SweepResponse{Status: status, Summary: sum})
	}
	if status == "aborted" {
		os.Exit(ExitAborted)
	}
}
