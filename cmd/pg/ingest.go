package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/calloway/papergraph/internal/paper"
	"github.com/calloway/papergraph/internal/pdf"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf-file>...",
	Short: "Add papers to the corpus from PDF files",
	Long: `Extract title, abstract, and identifiers from PDF files and add the
papers to the corpus. Extraction is best-effort; fix gaps afterwards
with 'pg paper add' (same title and first author updates in place).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

// IngestedPaper is one entry in the ingest response.
type IngestedPaper struct {
	Path    string `json:"path"`
	PaperID string `json:"paper_id,omitempty"`
	Title   string `json:"title,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IngestResponse is the response for the ingest command.
type IngestResponse struct {
	Ingested []IngestedPaper `json:"ingested"`
	Failed   int             `json:"failed"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	db := mustOpenDatabase(root)
	defer db.Close()

	var results []IngestedPaper
	failed := 0
	for _, path := range args {
		entry := IngestedPaper{Path: path}

		doc, err := pdf.ExtractDocument(path)
		if err != nil {
			entry.Error = err.Error()
			results = append(results, entry)
			failed++
			continue
		}

		title := doc.Title
		if title == "" {
			// Fall back to the filename so the paper is at least addressable.
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		p := paper.Paper{
			Title:     title,
			Authors:   []string{"unknown"},
			Abstract:  doc.Abstract,
			PDFPath:   path,
			PageCount: doc.PageCount,
			ArXivID:   doc.ArXivID,
		}
		p.EnsureID()

		if err := db.UpsertPaper(p); err != nil {
			entry.Error = err.Error()
			results = append(results, entry)
			failed++
			continue
		}

		entry.PaperID = p.ID
		entry.Title = title
		results = append(results, entry)
	}

	if humanOutput {
		for _, r := range results {
			if r.Error != "" {
				fmt.Printf("FAIL %s: %s\n", r.Path, r.Error)
			} else {
				fmt.Printf("  ok %s: %s\n", r.PaperID, truncateString(r.Title, ListTitleMaxLen))
			}
		}
		fmt.Printf("\n%d ingested, %d failed\n", len(results)-failed, failed)
	} else {
		outputJSON(IngestResponse{Ingested: results, Failed: failed})
	}

	if failed == len(args) {
		exitWithError(ExitDataError, "all %d files failed to ingest", failed)
	}
	return nil
}
