package main

import (
	"context"
	"fmt"

	"github.com/calloway/papergraph/internal/config"
	"github.com/calloway/papergraph/internal/embedding"
	"github.com/calloway/papergraph/internal/semantic"
	"github.com/spf13/cobra"
)

var indexModel string

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexStatusCmd)

	indexBuildCmd.Flags().StringVar(&indexModel, "model", "", "Embedding model (default "+embedding.DefaultModel+")")
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the semantic index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the semantic index from paper abstracts",
	Long: `Embed every paper's abstract with a local Ollama model and write the
semantic index to the cache. Papers without a usable abstract are
skipped. The index powers 'pg detect --similar'.`,
	RunE: runIndexBuild,
}

// IndexBuildResponse is the response for index build.
type IndexBuildResponse struct {
	Status string               `json:"status"`
	Model  string               `json:"model"`
	Stats  *semantic.BuildStats `json:"stats"`
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	db := mustOpenDatabase(root)
	defer db.Close()

	papers, err := db.GetAllPapers()
	if err != nil {
		exitWithError(ExitError, "loading corpus: %v", err)
	}

	var opts []embedding.OllamaOption
	if indexModel != "" {
		opts = append(opts, embedding.WithModel(indexModel))
	}
	provider := embedding.NewOllamaProvider(opts...)

	ctx := context.Background()
	if err := provider.IsAvailable(ctx); err != nil {
		exitWithError(ExitDataError, "embedding model unavailable: %v\n\nIs Ollama running and the model pulled?", err)
	}

	builder := semantic.NewBuilder(provider)
	if humanOutput {
		builder.SetProgress(func(current, total int) {
			fmt.Printf("\rEmbedding %d/%d", current, total)
		})
	}

	idx, stats, err := builder.Build(ctx, papers)
	if err != nil {
		exitWithError(ExitError, "building index: %v", err)
	}
	if humanOutput {
		fmt.Println()
	}

	if err := idx.Save(config.IndexPath(root)); err != nil {
		exitWithError(ExitError, "saving index: %v", err)
	}

	if humanOutput {
		fmt.Printf("Indexed %d papers (%d skipped) with %s in %s\n",
			stats.PapersIndexed, stats.PapersSkipped, provider.ModelName(), formatDuration(stats.Duration))
	} else {
		outputJSON(IndexBuildResponse{Status: "built", Model: provider.ModelName(), Stats: stats})
	}
	return nil
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show semantic index status",
	RunE:  runIndexStatus,
}

// IndexStatusResponse is the response for index status.
type IndexStatusResponse struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	PaperCount int    `json:"paper_count"`
	Skipped    int    `json:"skipped"`
	CreatedAt  string `json:"created_at"`
	Stale      bool   `json:"stale"`
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	idx := mustLoadSemanticIndex(root)

	db := mustOpenDatabase(root)
	defer db.Close()
	corpusSize, err := db.CountPapers()
	if err != nil {
		exitWithError(ExitError, "counting papers: %v", err)
	}

	// The index is stale when papers were added or removed after the build.
	stale := idx.PaperCount+idx.SkippedCount != corpusSize

	if humanOutput {
		fmt.Printf("Model:      %s (%d dims)\n", idx.ModelName, idx.Dimensions)
		fmt.Printf("Papers:     %d indexed, %d skipped\n", idx.PaperCount, idx.SkippedCount)
		fmt.Printf("Built:      %s\n", idx.CreatedAt.Format("2006-01-02 15:04"))
		if stale {
			fmt.Println("\nIndex is stale; rebuild with 'pg index build'.")
		}
	} else {
		outputJSON(IndexStatusResponse{
			Model:      idx.ModelName,
			Dimensions: idx.Dimensions,
			PaperCount: idx.PaperCount,
			Skipped:    idx.SkippedCount,
			CreatedAt:  idx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Stale:      stale,
		})
	}
	return nil
}
