package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

var (
	projectOutput    string
	projectPositions string
	reduceOutput     string
)

var projectCmd = &cobra.Command{
	Use:   "project [ast-file]",
	Short: "Convert a schema AST into diagram nodes and edges",
	Long: `Project reads a schema AST as JSON or YAML and prints the diagram nodes
and edges it renders to. Tables are laid out on a grid unless the AST or
--positions gives them a position.

--positions takes an existing diagram file; its node positions are kept for
tables with the same id.

Examples:
  schemasync project schema.json > diagram.json
  schemasync project schema.json --positions diagram.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProject,
}

var reduceCmd = &cobra.Command{
	Use:   "reduce [diagram-file]",
	Short: "Convert diagram nodes and edges back into a schema AST",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReduce,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(reduceCmd)

	projectCmd.Flags().StringVarP(&projectOutput, "output", "o", formatJSON, "output format: json or yaml")
	projectCmd.Flags().StringVar(&projectPositions, "positions", "", "diagram file whose node positions are kept")
	reduceCmd.Flags().StringVarP(&reduceOutput, "output", "o", formatJSON, "output format: json or yaml")
}

func runProject(cmd *cobra.Command, args []string) error {
	if err := checkFormat(projectOutput, false); err != nil {
		return err
	}

	data, err := readInput(firstArg(args), cmd.InOrStdin())
	if err != nil {
		return err
	}
	var ast schema.SchemaAST
	if err := decodeDocument(data, &ast); err != nil {
		return err
	}

	var previous graph.Positions
	if projectPositions != "" {
		if previous, err = loadPositions(projectPositions); err != nil {
			return err
		}
	}

	doc, err := project(&ast, previous)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), projectOutput, doc)
}

func runReduce(cmd *cobra.Command, args []string) error {
	if err := checkFormat(reduceOutput, false); err != nil {
		return err
	}

	data, err := readInput(firstArg(args), cmd.InOrStdin())
	if err != nil {
		return err
	}
	var doc diagramDocument
	if err := decodeDocument(data, &doc); err != nil {
		return err
	}

	ast, err := graph.Reduce(doc.Nodes, doc.Edges)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), reduceOutput, ast)
}

func project(ast *schema.SchemaAST, previous graph.Positions) (diagramDocument, error) {
	nodes, edges, err := graph.Project(ast, previous)
	if err != nil {
		return diagramDocument{}, err
	}
	return diagramDocument{Nodes: nodes, Edges: edges}, nil
}

func loadPositions(path string) (graph.Positions, error) {
	data, err := readInput(path, nil)
	if err != nil {
		return nil, err
	}
	var doc diagramDocument
	if err := decodeDocument(data, &doc); err != nil {
		return nil, fmt.Errorf("positions file %s: %w", path, err)
	}
	return graph.PositionsOf(doc.Nodes), nil
}
