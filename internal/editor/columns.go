package editor

import (
	"fmt"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

// DefaultColumnType is used for new columns added without a type.
const DefaultColumnType = "varchar"

// ColumnUpdate is a partial update of a column; nil fields are left alone.
type ColumnUpdate struct {
	Title         *string
	Type          *string
	PrimaryKey    *bool
	Nullable      *bool
	Unique        *bool
	AutoIncrement *bool
	ForeignKey    *schema.ForeignKeyReference
	// ClearForeignKey removes the foreign key; it wins over ForeignKey.
	ClearForeignKey bool
}

// AddColumn appends a column to a table. Empty title and type get a generated
// name ("column_N") and DefaultColumnType. It returns the column title.
func (e *Editor) AddColumn(tableID string, column graph.ColumnData) (string, error) {
	var title string
	err := e.transact("add column", func(s *State) error {
		node, ok := s.node(tableID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
		}

		if column.Title == "" {
			column.Title = graph.NextColumnName(node.Data.Schema)
		}
		if column.Type == "" {
			column.Type = DefaultColumnType
		}
		title = column.Title
		node.Data.Schema = append(node.Data.Schema, column)
		return nil
	})
	if err != nil {
		return "", err
	}
	return title, nil
}

// RemoveColumn removes a column and every relationship bound to it.
func (e *Editor) RemoveColumn(tableID, title string) error {
	return e.transact("remove column", func(s *State) error {
		node, ok := s.node(tableID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
		}
		idx := node.ColumnIndex(title)
		if idx < 0 {
			return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, node.Data.Label, title)
		}

		node.Data.Schema = append(node.Data.Schema[:idx:idx], node.Data.Schema[idx+1:]...)
		s.removeEdges(func(edge graph.Edge) bool {
			return boundTo(edge, tableID, title)
		})
		return nil
	})
}

// UpdateColumn applies a partial update. Renaming a column rewrites the edge
// handles bound to it and foreign keys naming it.
func (e *Editor) UpdateColumn(tableID, title string, update ColumnUpdate) error {
	return e.transact("update column", func(s *State) error {
		node, ok := s.node(tableID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
		}
		idx := node.ColumnIndex(title)
		if idx < 0 {
			return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, node.Data.Label, title)
		}

		col := &node.Data.Schema[idx]
		if update.Type != nil {
			col.Type = *update.Type
		}
		if update.PrimaryKey != nil {
			col.PrimaryKey = *update.PrimaryKey
		}
		if update.Nullable != nil {
			v := *update.Nullable
			col.Nullable = &v
		}
		if update.Unique != nil {
			col.Unique = *update.Unique
		}
		if update.AutoIncrement != nil {
			col.AutoIncrement = *update.AutoIncrement
		}
		if update.ForeignKey != nil {
			fk := *update.ForeignKey
			col.ForeignKey = &fk
		}
		if update.ClearForeignKey {
			col.ForeignKey = nil
		}

		if update.Title != nil && *update.Title != title {
			renameColumn(s, node, title, *update.Title)
		}
		return nil
	})
}

func renameColumn(s *State, node *graph.Node, oldTitle, newTitle string) {
	node.Data.Schema[node.ColumnIndex(oldTitle)].Title = newTitle

	for i := range s.Edges {
		edge := &s.Edges[i]
		if edge.Source == node.ID && edge.SourceColumn() == oldTitle {
			edge.SourceHandle = graph.SourceHandle(newTitle)
		}
		if edge.Target == node.ID && edge.TargetColumn() == oldTitle {
			edge.TargetHandle = newTitle
		}
	}

	tableName := node.Data.Label
	s.forEachColumn(func(_ *graph.Node, col *graph.ColumnData) {
		if col.ForeignKey != nil && col.ForeignKey.Table == tableName && col.ForeignKey.Column == oldTitle {
			col.ForeignKey.Column = newTitle
		}
	})
}

// boundTo reports whether either end of edge is the given column of the table.
func boundTo(edge graph.Edge, tableID, title string) bool {
	return (edge.Source == tableID && edge.SourceColumn() == title) ||
		(edge.Target == tableID && edge.TargetColumn() == title)
}
