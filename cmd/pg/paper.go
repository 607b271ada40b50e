package main

import (
	"fmt"
	"strings"

	"github.com/calloway/papergraph/internal/paper"
	"github.com/calloway/papergraph/internal/temporal"
	"github.com/spf13/cobra"
)

var (
	paperAddTitle     string
	paperAddAuthors   string
	paperAddAbstract  string
	paperAddFinding   string
	paperAddPublished string
	paperAddArXivID   string
)

func init() {
	rootCmd.AddCommand(paperCmd)
	paperCmd.AddCommand(paperAddCmd)
	paperCmd.AddCommand(paperListCmd)
	paperCmd.AddCommand(paperGetCmd)
	paperCmd.AddCommand(paperRemoveCmd)

	paperAddCmd.Flags().StringVar(&paperAddTitle, "title", "", "Paper title (required)")
	paperAddCmd.Flags().StringVar(&paperAddAuthors, "authors", "", "Comma-separated author list (required)")
	paperAddCmd.Flags().StringVar(&paperAddAbstract, "abstract", "", "Paper abstract")
	paperAddCmd.Flags().StringVar(&paperAddFinding, "finding", "", "Key finding, used for classification when no abstract")
	paperAddCmd.Flags().StringVar(&paperAddPublished, "published", "", "Publication date (YYYY-MM-DD, YYYY, or RFC3339)")
	paperAddCmd.Flags().StringVar(&paperAddArXivID, "arxiv", "", "arXiv identifier")
	paperAddCmd.MarkFlagRequired("title")
	paperAddCmd.MarkFlagRequired("authors")
}

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Manage papers in the corpus",
}

var paperAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a paper to the corpus",
	Long: `Add a paper to the corpus.

The paper ID is derived from the title and first author, so adding the
same paper twice updates it in place rather than duplicating it.`,
	RunE: runPaperAdd,
}

// PaperResponse is the response for paper add/get commands.
type PaperResponse struct {
	Paper paper.Paper `json:"paper"`
}

// PaperListResponse is the response for paper list.
type PaperListResponse struct {
	Papers []paper.Paper `json:"papers"`
	Total  int           `json:"total"`
}

func runPaperAdd(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()

	authors := splitAuthors(paperAddAuthors)
	p := paper.Paper{
		Title:      paperAddTitle,
		Authors:    authors,
		Abstract:   paperAddAbstract,
		KeyFinding: paperAddFinding,
		Published:  paperAddPublished,
		ArXivID:    paperAddArXivID,
	}
	if err := p.ValidateForCreate(); err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	if p.Published != "" {
		if _, ok := temporal.ParseDate(p.Published); !ok {
			exitWithError(ExitDataError, "unparseable published date %q", p.Published)
		}
	}
	p.EnsureID()

	db := mustOpenDatabase(root)
	defer db.Close()

	if err := db.UpsertPaper(p); err != nil {
		exitWithError(ExitError, "saving paper: %v", err)
	}

	if humanOutput {
		fmt.Printf("Added %s: %s\n", p.ID, truncateString(p.Title, DetailTitleMaxLen))
	} else {
		outputJSON(PaperResponse{Paper: p})
	}
	return nil
}

var paperListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all papers in the corpus",
	RunE:  runPaperList,
}

func runPaperList(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	db := mustOpenDatabase(root)
	defer db.Close()

	papers, err := db.GetAllPapers()
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}

	if humanOutput {
		for _, p := range papers {
			date := p.Published
			if date == "" {
				date = "undated"
			}
			fmt.Printf("%s  %-10s  %s\n", p.ID, date, truncateString(p.Title, ListTitleMaxLen))
		}
		fmt.Printf("\n%d papers\n", len(papers))
	} else {
		outputJSON(PaperListResponse{Papers: papers, Total: len(papers)})
	}
	return nil
}

var paperGetCmd = &cobra.Command{
	Use:   "get <paper-id>",
	Short: "Show a paper and its relationships",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperGet,
}

// PaperDetailResponse is the response for paper get.
type PaperDetailResponse struct {
	Paper         paper.Paper `json:"paper"`
	Relationships interface{} `json:"relationships"`
}

func runPaperGet(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	db := mustOpenDatabase(root)
	defer db.Close()

	p, err := db.GetPaper(args[0])
	if err != nil {
		exitWithError(ExitError, "looking up paper: %v", err)
	}
	if p == nil {
		exitWithError(ExitError, "paper %q not found", args[0])
	}

	rels, err := db.GetRelationshipsTouching(p.ID)
	if err != nil {
		exitWithError(ExitError, "looking up relationships: %v", err)
	}

	if humanOutput {
		fmt.Printf("%s\n%s\n", p.ID, truncateString(p.Title, DetailTitleMaxLen))
		fmt.Printf("%s\n", formatAuthorsShort(p.Authors, 3))
		if p.Published != "" {
			fmt.Printf("Published: %s\n", p.Published)
		}
		if len(rels) > 0 {
			fmt.Printf("\nRelationships:\n")
			for _, r := range rels {
				fmt.Printf("  %s %s %s (%.2f)\n", r.SourceID, r.Type, r.TargetID, r.Confidence)
			}
		}
	} else {
		outputJSON(PaperDetailResponse{Paper: *p, Relationships: rels})
	}
	return nil
}

var paperRemoveCmd = &cobra.Command{
	Use:   "remove <paper-id>",
	Short: "Remove a paper and its relationships",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperRemove,
}

func runPaperRemove(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	db := mustOpenDatabase(root)
	defer db.Close()

	p, err := db.GetPaper(args[0])
	if err != nil {
		exitWithError(ExitError, "looking up paper: %v", err)
	}
	if p == nil {
		exitWithError(ExitError, "paper %q not found", args[0])
	}

	// Edges touching a removed paper are dangling; remove them too.
	rels, err := db.GetRelationshipsTouching(p.ID)
	if err != nil {
		exitWithError(ExitError, "looking up relationships: %v", err)
	}
	for _, r := range rels {
		if err := db.DeleteRelationship(r.ID); err != nil {
			exitWithError(ExitError, "removing relationship %s: %v", r.ID, err)
		}
	}
	if err := db.DeletePaper(p.ID); err != nil {
		exitWithError(ExitError, "removing paper: %v", err)
	}

	if humanOutput {
		fmt.Printf("Removed %s and %d relationships\n", p.ID, len(rels))
	} else {
		outputJSON(struct {
			Status               string `json:"status"`
			PaperID              string `json:"paper_id"`
			RelationshipsRemoved int    `json:"relationships_removed"`
		}{"removed", p.ID, len(rels)})
	}
	return nil
}

// splitAuthors parses a comma-separated author list, dropping empty entries.
func splitAuthors(s string) []string {
	var authors []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	return authors
}
