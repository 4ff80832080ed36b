package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/schema-sync/internal/schema"
)

var inspectOutput string

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Show table dependencies of a schema",
	Long: `Inspect prints a creation order for the tables of a schema AST or
diagram (referenced tables first), reference cycles, self-referencing tables
and, for each table, the tables that reference it.

Examples:
  schemasync inspect schema.json
  schemasync inspect diagram.yaml --output yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", formatText, "output format: text, json or yaml")
}

func runInspect(cmd *cobra.Command, args []string) error {
	if err := checkFormat(inspectOutput, true); err != nil {
		return err
	}

	ast, err := loadAST(firstArg(args), cmd.InOrStdin())
	if err != nil {
		return err
	}
	report, err := schema.Inspect(ast)
	if err != nil {
		return err
	}

	if inspectOutput != formatText {
		return writeOutput(cmd.OutOrStdout(), inspectOutput, report)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func printReport(w io.Writer, report *schema.Report) {
	heading := color.New(color.Bold)

	heading.Fprintf(w, "Tables: %d  Relationships: %d\n", report.Tables, report.Relationships)
	if !report.Validation.Valid {
		color.New(color.FgRed).Fprintf(w, "Validation errors: %d (run validate for details)\n", len(report.Validation.Errors))
	}

	fmt.Fprintln(w)
	heading.Fprintln(w, "Creation order:")
	for i, name := range report.Order {
		fmt.Fprintf(w, "  %2d. %s", i+1, name)
		if refs := report.ReferencedBy[name]; len(refs) > 0 {
			color.New(color.FgCyan).Fprintf(w, "  <- %s", strings.Join(refs, ", "))
		}
		fmt.Fprintln(w)
	}

	if len(report.SelfReferencing) > 0 {
		fmt.Fprintln(w)
		heading.Fprintln(w, "Self-referencing:")
		fmt.Fprintf(w, "  %s\n", strings.Join(report.SelfReferencing, ", "))
	}

	if len(report.Cycles) > 0 {
		fmt.Fprintln(w)
		color.New(color.FgYellow, color.Bold).Fprintln(w, "Reference cycles (order falls back to schema order):")
		for _, cycle := range report.Cycles {
			fmt.Fprintf(w, "  %s\n", strings.Join(cycle, " <-> "))
		}
	}
}
