package storage

import (
	"time"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

// Domain models that mirror the diagrams table in schema.go.
// Structured fields are stored as JSON text columns.

// Diagram is a persisted schema document: the DBML text, the AST parsed from
// it, the diagram nodes/edges and the last parse errors.
type Diagram struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	DBMLText    string              `json:"dbmlText"`
	AST         *schema.SchemaAST   `json:"ast"`
	Nodes       []graph.Node        `json:"nodes"`
	Edges       []graph.Edge        `json:"edges"`
	Errors      []schema.ParseError `json:"errors"`
	Status      schema.Status       `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// NewDiagram is the input for creating a diagram.
type NewDiagram struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DBMLText    string `json:"dbmlText"`
}

// SyncPayload is a partial update of a diagram. A nil field (or JSON null)
// leaves the stored value alone; an empty non-nil slice clears it.
type SyncPayload struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	DBMLText    *string             `json:"dbmlText"`
	AST         *schema.SchemaAST   `json:"ast"`
	Nodes       []graph.Node        `json:"nodes"`
	Edges       []graph.Edge        `json:"edges"`
	Errors      []schema.ParseError `json:"errors"`
	Status      *schema.Status      `json:"status"`
}

// Apply copies the set fields of p onto d.
func (p SyncPayload) Apply(d *Diagram) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.DBMLText != nil {
		d.DBMLText = *p.DBMLText
	}
	if p.AST != nil {
		d.AST = p.AST
	}
	if p.Nodes != nil {
		d.Nodes = p.Nodes
	}
	if p.Edges != nil {
		d.Edges = p.Edges
	}
	if p.Errors != nil {
		d.Errors = p.Errors
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
}

// Merge overlays the set fields of src onto p.
func (p *SyncPayload) Merge(src SyncPayload) {
	if src.Name != nil {
		p.Name = src.Name
	}
	if src.Description != nil {
		p.Description = src.Description
	}
	if src.DBMLText != nil {
		p.DBMLText = src.DBMLText
	}
	if src.AST != nil {
		p.AST = src.AST
	}
	if src.Nodes != nil {
		p.Nodes = src.Nodes
	}
	if src.Edges != nil {
		p.Edges = src.Edges
	}
	if src.Errors != nil {
		p.Errors = src.Errors
	}
	if src.Status != nil {
		p.Status = src.Status
	}
}

// IsEmpty reports whether no field is set.
func (p SyncPayload) IsEmpty() bool {
	return p.Name == nil && p.Description == nil &&
		p.DBMLText == nil && p.AST == nil && p.Nodes == nil &&
		p.Edges == nil && p.Errors == nil && p.Status == nil
}
