package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/schema-sync/internal/schema"
)

// errInvalidSchema makes validate exit non-zero after printing the report.
var errInvalidSchema = errors.New("schema validation failed")

var validateOutput string

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a schema AST or diagram for structural errors",
	Long: `Validate reads a schema AST ({tables, relationships}) or a diagram
({nodes, edges}) as JSON or YAML and reports missing or duplicate names and
relationships pointing at unknown tables or columns.

Reads stdin when no file (or "-") is given. Exits non-zero when the schema
is invalid.

Examples:
  schemasync validate schema.json
  cat diagram.yaml | schemasync validate --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", formatText, "output format: text, json or yaml")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := checkFormat(validateOutput, true); err != nil {
		return err
	}

	ast, err := loadAST(firstArg(args), cmd.InOrStdin())
	if err != nil {
		return err
	}

	result := schema.Validate(ast)
	if err := printValidation(cmd.OutOrStdout(), validateOutput, ast, result); err != nil {
		return err
	}
	if !result.Valid {
		return errInvalidSchema
	}
	return nil
}

func printValidation(w io.Writer, format string, ast *schema.SchemaAST, result schema.ValidationResult) error {
	if format != formatText {
		return writeOutput(w, format, result)
	}

	if result.Valid {
		color.New(color.FgGreen).Fprintf(w, "Schema is valid (%d tables, %d relationships)\n",
			len(ast.Tables), len(ast.Relationships))
		return nil
	}

	color.New(color.FgRed).Fprintf(w, "Schema has %d validation error(s):\n", len(result.Errors))
	code := color.New(color.FgYellow)
	for _, e := range result.Errors {
		fmt.Fprint(w, "  ")
		code.Fprintf(w, "[%s]", e.Code)
		if loc := location(e); loc != "" {
			fmt.Fprintf(w, " %s:", loc)
		}
		fmt.Fprintf(w, " %s\n", e.Message)
	}
	return nil
}

func location(e schema.ValidationError) string {
	switch {
	case e.Table != "" && e.Column != "":
		return e.Table + "." + e.Column
	case e.Table != "":
		return e.Table
	default:
		return e.Column
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
