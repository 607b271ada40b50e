package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/calloway/papergraph/internal/audit"
	"github.com/spf13/cobra"
)

var (
	repairStrategy string
	repairYes      bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditRepairCmd)

	auditRepairCmd.Flags().StringVar(&repairStrategy, "strategy", "reverse", "Repair strategy for temporal violations: reverse or delete")
	auditRepairCmd.Flags().BoolVarP(&repairYes, "yes", "y", false, "Apply repairs without confirmation")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check the relationship graph for inconsistencies",
	Long: `Scan every persisted relationship for temporal-ordering violations
(edges pointing from an older paper to a newer one) and duplicate
contradiction edges between the same pair of papers.

The audit itself changes nothing; use 'pg audit repair' to fix findings.`,
	RunE: runAudit,
}

// AuditResponse is the response for the audit command.
type AuditResponse struct {
	Report audit.Report `json:"report"`
	Clean  bool         `json:"clean"`
}

func runAudit(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	log := newRunLogger()
	defer log.Sync()

	db := mustOpenDatabase(root)
	defer db.Close()

	report, err := audit.NewAuditor(db, db, log).Audit()
	if err != nil {
		exitWithError(ExitError, "auditing graph: %v", err)
	}

	if humanOutput {
		printAuditReport(report)
	} else {
		outputJSON(AuditResponse{Report: report, Clean: report.Clean()})
	}
	return nil
}

func printAuditReport(report audit.Report) {
	fmt.Printf("Relationships: %d\n", report.RelationshipCount)
	fmt.Printf("Unorderable:   %d\n\n", report.Unorderable)

	if report.Clean() {
		fmt.Println("Graph is consistent.")
		return
	}

	if len(report.Violations) > 0 {
		fmt.Printf("Temporal violations (%d):\n", len(report.Violations))
		for _, v := range report.Violations {
			r := v.Relationship
			fmt.Printf("  %s (%s) %s %s (%s)\n", r.SourceID, v.SourceDate, r.Type, r.TargetID, v.TargetDate)
		}
		fmt.Println()
	}
	if len(report.Duplicates) > 0 {
		fmt.Printf("Duplicate contradictions (%d):\n", len(report.Duplicates))
		for _, d := range report.Duplicates {
			fmt.Printf("  %s: %s <-> %s\n", d.ID, d.SourceID, d.TargetID)
		}
		fmt.Println()
	}
	fmt.Println("Run 'pg audit repair' to fix these findings.")
}

var auditRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Fix inconsistencies found by the audit",
	Long: `Re-run the audit and repair its findings.

Temporal violations are fixed per --strategy: 'reverse' flips the edge so
the newer paper is the source (keeping the classification), 'delete'
removes the edge. Duplicate contradictions always keep the earliest-
detected edge and remove the rest.`,
	RunE: runAuditRepair,
}

// RepairResponse is the response for the audit repair command.
type RepairResponse struct {
	Strategy string              `json:"strategy"`
	Summary  audit.RepairSummary `json:"summary"`
}

func runAuditRepair(cmd *cobra.Command, args []string) error {
	strategy, err := audit.ParseStrategy(repairStrategy)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	root := mustFindRepository()
	log := newRunLogger()
	defer log.Sync()

	db := mustOpenDatabase(root)
	defer db.Close()

	auditor := audit.NewAuditor(db, db, log)
	report, err := auditor.Audit()
	if err != nil {
		exitWithError(ExitError, "auditing graph: %v", err)
	}

	if report.Clean() {
		if humanOutput {
			fmt.Println("Graph is consistent; nothing to repair.")
		} else {
			outputJSON(RepairResponse{Strategy: string(strategy)})
		}
		return nil
	}

	if !repairYes && isTerminal(os.Stdin) && !confirmRepair(report, strategy) {
		exitWithError(ExitError, "repair cancelled")
	}

	sum, err := auditor.Repair(report, strategy)
	if err != nil {
		exitWithError(ExitError, "repairing graph: %v", err)
	}

	if humanOutput {
		fmt.Printf("Reversed: %d\nDeleted: %d\nDuplicates removed: %d\n",
			sum.Reversed, sum.Deleted, sum.DuplicatesRemoved)
	} else {
		outputJSON(RepairResponse{Strategy: string(strategy), Summary: sum})
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal. Piped input
// skips the prompt and proceeds, so repairs work in scripts.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// confirmRepair asks on the terminal before a destructive repair.
func confirmRepair(report audit.Report, strategy audit.Strategy) bool {
	fmt.Fprintf(os.Stderr, "About to repair %d violations (%s) and remove %d duplicates. Continue? [y/N] ",
		len(report.Violations), strategy, len(report.Duplicates))

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
