package main

import (
	"fmt"

	"github.com/calloway/papergraph/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set configuration values.

Usage:
  pg config                            # Show all config
  pg config pdf-root                   # Get specific value
  pg config pdf-root /path/to/pdfs     # Set value
  pg config model gemini-2.5-pro       # Set classifier model

Keys:
  pdf-root  Path to PDF folder
  model     Classifier model override

Detection policy (thresholds, rate limits, workers) lives in
.papergraph/detection.yml and is edited directly.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// ConfigResponse is the response for config get commands.
type ConfigResponse struct {
	PDFRoot string `json:"pdf_root,omitempty"`
	Model   string `json:"model,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()

	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			fmt.Printf("pdf-root: %s\n", cfg.PDFRoot)
			fmt.Printf("model:    %s\n", cfg.DefaultModel)
		} else {
			outputJSON(ConfigResponse{PDFRoot: cfg.PDFRoot, Model: cfg.DefaultModel})
		}
		return nil
	}

	key := args[0]

	// One arg: get a single value
	if len(args) == 1 {
		var value string
		switch key {
		case "pdf-root":
			value = cfg.PDFRoot
		case "model":
			value = cfg.DefaultModel
		default:
			exitWithError(ExitError, "unknown config key %q", key)
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{key: value})
		}
		return nil
	}

	// Two args: set a value
	value := args[1]
	switch key {
	case "pdf-root":
		if err := config.ValidatePDFRoot(value); err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		cfg.PDFRoot = value
	case "model":
		cfg.DefaultModel = value
	default:
		exitWithError(ExitError, "unknown config key %q", key)
	}

	if err := cfg.Save(repoRoot); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Set %s = %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
	}
	return nil
}
