package graph

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/schema-sync/internal/schema"
)

const (
	// GridColumns is the number of tables per row in the default layout.
	GridColumns = 4
	// GridSpacingX is the horizontal distance between default table positions.
	GridSpacingX = 300
	// GridSpacingY is the vertical distance between default table positions.
	GridSpacingY = 200
)

// ErrUnresolvedTable indicates a relationship naming a table that does not
// exist in the AST being projected. The AST is internally inconsistent.
var ErrUnresolvedTable = errors.New("relationship references unknown table")

// Positions maps node ids to diagram positions.
type Positions map[string]schema.Position

// PositionsOf collects the current positions of nodes.
func PositionsOf(nodes []Node) Positions {
	out := make(Positions, len(nodes))
	for _, n := range nodes {
		out[n.ID] = n.Position
	}
	return out
}

// GridPosition returns the default position of the table at index.
func GridPosition(index int) schema.Position {
	return schema.Position{
		X: float64(index%GridColumns) * GridSpacingX,
		Y: float64(index/GridColumns) * GridSpacingY,
	}
}

// Project maps an AST to diagram nodes and edges. Node positions come from
// previous when the table id is known there, then from the table itself, then
// from the grid, so tables the user already arranged stay put across
// incremental updates.
func Project(ast *schema.SchemaAST, previous Positions) ([]Node, []Edge, error) {
	if ast == nil {
		return []Node{}, []Edge{}, nil
	}

	nodes := make([]Node, 0, len(ast.Tables))
	for i, table := range ast.Tables {
		nodes = append(nodes, projectTable(table, i, previous))
	}

	edges := make([]Edge, 0, len(ast.Relationships))
	for _, rel := range ast.Relationships {
		from, ok := ast.FindTable(rel.FromTable)
		if !ok {
			return nil, nil, fmt.Errorf("%w: relationship %s names %q", ErrUnresolvedTable, rel.ID, rel.FromTable)
		}
		to, ok := ast.FindTable(rel.ToTable)
		if !ok {
			return nil, nil, fmt.Errorf("%w: relationship %s names %q", ErrUnresolvedTable, rel.ID, rel.ToTable)
		}

		edges = append(edges, Edge{
			ID:           rel.ID,
			Source:       from.ID,
			Target:       to.ID,
			SourceHandle: SourceHandle(rel.FromColumn),
			TargetHandle: rel.ToColumn,
			Type:         EdgeTypeDefault,
			Label:        string(rel.Type),
		})
	}

	return nodes, edges, nil
}

func projectTable(table schema.TableNode, index int, previous Positions) Node {
	position := GridPosition(index)
	if pos, ok := previous[table.ID]; ok {
		position = pos
	} else if table.Position != nil {
		position = *table.Position
	}

	columns := make([]ColumnData, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = columnData(col)
	}

	return Node{
		ID:       table.ID,
		Type:     NodeTypeTable,
		Position: position,
		Data: NodeData{
			Label:   table.Name,
			Schema:  columns,
			Comment: table.Comment,
		},
	}
}

func columnData(col schema.Column) ColumnData {
	col = col.Clone()
	nullable := col.Nullable
	return ColumnData{
		Title:         col.Name,
		Type:          col.Type,
		PrimaryKey:    col.PrimaryKey,
		ForeignKey:    col.ForeignKey,
		Nullable:      &nullable,
		Unique:        col.Unique,
		DefaultValue:  col.DefaultValue,
		AutoIncrement: col.AutoIncrement,
	}
}
