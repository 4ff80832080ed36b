package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mvp-joe/schema-sync/internal/schema"
)

// ErrDanglingEdge indicates an edge whose source or target node does not exist.
var ErrDanglingEdge = errors.New("edge references unknown node")

// Reduce maps diagram nodes and edges back to an AST.
//
// Relationship endpoints are resolved to the current node labels every time,
// so renaming a table repairs its relationships on the next reduction.
func Reduce(nodes []Node, edges []Edge) (*schema.SchemaAST, error) {
	ast := &schema.SchemaAST{
		Tables:        reduceTables(nodes),
		Relationships: []schema.RelationshipEdge{},
	}

	byID := make(map[string]*Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	for _, edge := range edges {
		if edge.Source == "" || edge.Target == "" {
			continue
		}

		source, ok := byID[edge.Source]
		if !ok {
			return nil, fmt.Errorf("%w: edge %s source %q", ErrDanglingEdge, edge.ID, edge.Source)
		}
		target, ok := byID[edge.Target]
		if !ok {
			return nil, fmt.Errorf("%w: edge %s target %q", ErrDanglingEdge, edge.ID, edge.Target)
		}

		relType := schema.RelationshipType(edge.Label)
		if relType == "" {
			relType = schema.OneToMany
		}

		ast.Relationships = append(ast.Relationships, schema.RelationshipEdge{
			ID:         edge.ID,
			FromTable:  source.Data.Label,
			FromColumn: edge.SourceColumn(),
			ToTable:    target.Data.Label,
			ToColumn:   edge.TargetColumn(),
			Type:       relType,
		})
	}

	return ast, nil
}

func reduceTables(nodes []Node) []schema.TableNode {
	tables := make([]schema.TableNode, 0, len(nodes))
	for _, node := range nodes {
		if node.Type != NodeTypeTable {
			continue
		}

		columns := make([]schema.Column, len(node.Data.Schema))
		for i, col := range node.Data.Schema {
			columns[i] = schemaColumn(col)
		}

		pos := node.Position
		tables = append(tables, schema.TableNode{
			ID:       node.ID,
			Name:     node.Data.Label,
			Columns:  columns,
			Comment:  node.Data.Comment,
			Position: &pos,
		})
	}
	return tables
}

func schemaColumn(col ColumnData) schema.Column {
	col = col.clone()
	return schema.Column{
		Name:          col.Title,
		Type:          col.Type,
		PrimaryKey:    col.PrimaryKey,
		Nullable:      col.IsNullable(),
		Unique:        col.Unique,
		ForeignKey:    col.ForeignKey,
		DefaultValue:  col.DefaultValue,
		AutoIncrement: col.AutoIncrement,
	}
}

func stripSourceSuffix(handle string) string {
	return strings.TrimSuffix(handle, SourceHandleSuffix)
}
