package graph

import "github.com/mvp-joe/schema-sync/internal/schema"

const (
	// NodeTypeTable is the diagram node kind rendered as a table.
	NodeTypeTable = "databaseSchema"

	// EdgeTypeDefault is the renderer edge style.
	EdgeTypeDefault = "default"

	// SourceHandleSuffix marks the originating side of an edge.
	// sourceHandle is "<column>-source", targetHandle is the bare column name.
	SourceHandleSuffix = "-source"
)

// ColumnData is a column as rendered inside a table node. It mirrors
// schema.Column with Title in place of Name. Nullable is optional and
// reads as true unless explicitly false.
type ColumnData struct {
	Title         string                      `json:"title"`
	Type          string                      `json:"type"`
	PrimaryKey    bool                        `json:"primaryKey,omitempty"`
	ForeignKey    *schema.ForeignKeyReference `json:"foreignKey,omitempty"`
	Nullable      *bool                       `json:"nullable,omitempty"`
	Unique        bool                        `json:"unique,omitempty"`
	DefaultValue  any                         `json:"defaultValue,omitempty"`
	AutoIncrement bool                        `json:"autoIncrement,omitempty"`
}

// IsNullable applies the nullable default.
func (c ColumnData) IsNullable() bool {
	return c.Nullable == nil || *c.Nullable
}

// NodeData is the payload of a table node.
type NodeData struct {
	Label   string       `json:"label"`
	Schema  []ColumnData `json:"schema"`
	Comment string       `json:"comment,omitempty"`
}

// Node is a diagram node. ID equals the TableNode id it renders.
type Node struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Position schema.Position `json:"position"`
	Data     NodeData        `json:"data"`
}

// Edge is a diagram edge between two column handles.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
	Type         string `json:"type,omitempty"`
	Label        string `json:"label,omitempty"`
}

// SourceHandle returns the source handle id for a column.
func SourceHandle(column string) string {
	return column + SourceHandleSuffix
}

// SourceColumn recovers the column name from a source handle.
func (e Edge) SourceColumn() string {
	return stripSourceSuffix(e.SourceHandle)
}

// TargetColumn is the column name of the target handle.
func (e Edge) TargetColumn() string {
	return e.TargetHandle
}

// ColumnIndex returns the index of the column titled title, or -1.
func (n *Node) ColumnIndex(title string) int {
	for i, col := range n.Data.Schema {
		if col.Title == title {
			return i
		}
	}
	return -1
}

// CloneNodes returns a deep copy of nodes.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
		if n.Data.Schema != nil {
			out[i].Data.Schema = make([]ColumnData, len(n.Data.Schema))
			for j, col := range n.Data.Schema {
				out[i].Data.Schema[j] = col.clone()
			}
		}
	}
	return out
}

// CloneEdges returns a copy of edges.
func CloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return nil
	}
	return append([]Edge(nil), edges...)
}

func (c ColumnData) clone() ColumnData {
	if c.ForeignKey != nil {
		fk := *c.ForeignKey
		c.ForeignKey = &fk
	}
	if c.Nullable != nil {
		v := *c.Nullable
		c.Nullable = &v
	}
	return c
}
