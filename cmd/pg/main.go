// Package main provides the pg CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// verboseLogging enables debug-level run logs on stderr
var verboseLogging bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pg",
	Short: "Research paper relationship graph",
	Long: `pg maintains a corpus of research papers and the typed relationships
between them (supports, contradicts, extends), detected by an LLM
classifier under a temporal-ordering rule: edges always point from the
newer paper to the older one.

Papers and relationships live in a SQLite database under .papergraph/.
All commands output JSON by default for easy scripting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// A .env in the working tree may carry GEMINI_API_KEY; absence is fine.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verboseLogging, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.Version = Version
}

// getRepoRoot returns the repository root, or exits with an error if not in a repository.
func getRepoRoot() (string, int) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}

	// Check PG_ROOT environment variable first
	if root := os.Getenv("PG_ROOT"); root != "" {
		cwd = root
	}

	return cwd, 0
}
