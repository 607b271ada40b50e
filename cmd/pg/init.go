package main

import (
	"fmt"
	"os"

	"github.com/calloway/papergraph/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new papergraph repository",
	Long: `Initialize a new papergraph repository in the current directory.

Creates:
  .papergraph/
  ├── config.json     # Default config
  ├── detection.yml   # Detection policy (thresholds, rate limits)
  └── cache/          # SQLite database and semantic index (gitignored)`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, exitCode := getRepoRoot()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	if config.IsRepository(root) {
		exitWithError(ExitError, "directory already contains a papergraph repository")
	}

	pgDir := config.PapergraphPath(root)
	if err := os.MkdirAll(pgDir, 0755); err != nil {
		exitWithError(ExitError, "creating .papergraph directory: %v", err)
	}

	cacheDir := config.CachePath(root)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}

	cfg := &config.Config{}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "creating config.json: %v", err)
	}

	if err := config.DefaultDetectionConfig().Save(root); err != nil {
		exitWithError(ExitError, "creating detection.yml: %v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized papergraph repository in %s\n", root)
	} else {
		outputJSON(StatusResponse{
			Status: "initialized",
			Path:   root,
		})
	}

	return nil
}
