package schema

import "encoding/json"

// RelationshipType is the cardinality of a relationship between two tables.
type RelationshipType string

const (
	OneToOne   RelationshipType = "ONE_TO_ONE"
	OneToMany  RelationshipType = "ONE_TO_MANY"
	ManyToMany RelationshipType = "MANY_TO_MANY"
)

// Position is a diagram coordinate.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ForeignKeyReference names the referenced table and column.
// It never owns the referenced entity; renames must rewrite it.
type ForeignKeyReference struct {
	Table    string `json:"table" yaml:"table"`
	Column   string `json:"column" yaml:"column"`
	OnDelete string `json:"onDelete,omitempty" yaml:"onDelete,omitempty"` // CASCADE, SET NULL, RESTRICT, NO ACTION
	OnUpdate string `json:"onUpdate,omitempty" yaml:"onUpdate,omitempty"`
}

// Column is a single column of a table.
type Column struct {
	Name          string               `json:"name" yaml:"name"`
	Type          string               `json:"type" yaml:"type"`
	PrimaryKey    bool                 `json:"primaryKey" yaml:"primaryKey"`
	Nullable      bool                 `json:"nullable" yaml:"nullable"`
	Unique        bool                 `json:"unique" yaml:"unique"`
	ForeignKey    *ForeignKeyReference `json:"foreignKey,omitempty" yaml:"foreignKey,omitempty"`
	DefaultValue  any                  `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	AutoIncrement bool                 `json:"autoIncrement,omitempty" yaml:"autoIncrement,omitempty"`
}

// columnAlias breaks the UnmarshalJSON recursion.
type columnAlias Column

// UnmarshalJSON decodes a column, treating a missing nullable flag as true.
func (c *Column) UnmarshalJSON(data []byte) error {
	aux := columnAlias{Nullable: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Column(aux)
	return nil
}

// UnmarshalYAML decodes a column, treating a missing nullable flag as true.
func (c *Column) UnmarshalYAML(unmarshal func(any) error) error {
	aux := columnAlias{Nullable: true}
	if err := unmarshal(&aux); err != nil {
		return err
	}
	*c = Column(aux)
	return nil
}

// TableNode is a table of the schema. ID is a stable surrogate independent of
// Name, so renames do not break references held by the diagram.
type TableNode struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Columns  []Column  `json:"columns" yaml:"columns"`
	Comment  string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
}

// RelationshipEdge links two columns. Endpoints are table and column names,
// not table ids.
type RelationshipEdge struct {
	ID         string           `json:"id" yaml:"id"`
	FromTable  string           `json:"fromTable" yaml:"fromTable"`
	FromColumn string           `json:"fromColumn" yaml:"fromColumn"`
	ToTable    string           `json:"toTable" yaml:"toTable"`
	ToColumn   string           `json:"toColumn" yaml:"toColumn"`
	Type       RelationshipType `json:"type" yaml:"type"`
}

// SchemaAST is the structured, text-derived representation of a schema.
type SchemaAST struct {
	Tables        []TableNode        `json:"tables" yaml:"tables"`
	Relationships []RelationshipEdge `json:"relationships" yaml:"relationships"`
}

// FindTable returns the first table registered under name.
func (a *SchemaAST) FindTable(name string) (*TableNode, bool) {
	if a == nil {
		return nil, false
	}
	for i := range a.Tables {
		if a.Tables[i].Name == name {
			return &a.Tables[i], true
		}
	}
	return nil, false
}

// HasColumn reports whether the table has a column with the given name.
func (t *TableNode) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the AST.
func (a *SchemaAST) Clone() *SchemaAST {
	if a == nil {
		return nil
	}
	out := &SchemaAST{}
	if a.Tables != nil {
		out.Tables = make([]TableNode, len(a.Tables))
		for i, t := range a.Tables {
			out.Tables[i] = t.clone()
		}
	}
	if a.Relationships != nil {
		out.Relationships = append([]RelationshipEdge(nil), a.Relationships...)
	}
	return out
}

func (t TableNode) clone() TableNode {
	out := t
	if t.Columns != nil {
		out.Columns = make([]Column, len(t.Columns))
		for i, col := range t.Columns {
			out.Columns[i] = col.Clone()
		}
	}
	if t.Position != nil {
		pos := *t.Position
		out.Position = &pos
	}
	return out
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	if c.ForeignKey != nil {
		fk := *c.ForeignKey
		c.ForeignKey = &fk
	}
	return c
}

// ParseErrorType classifies an error reported by the remote parser.
type ParseErrorType string

const (
	ParseErrorSyntax     ParseErrorType = "syntax"
	ParseErrorSemantic   ParseErrorType = "semantic"
	ParseErrorValidation ParseErrorType = "validation"
)

// ParseError is a problem in the textual representation, reported by the parser.
type ParseError struct {
	Line    int            `json:"line"`
	Column  int            `json:"column,omitempty"`
	Message string         `json:"message"`
	Type    ParseErrorType `json:"type"`
	Code    string         `json:"code,omitempty"`
}

// Status is the edit/session status of a schema.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusParsing Status = "parsing"
	StatusSaving  Status = "saving"
	StatusError   Status = "error"
	// StatusEditing is owned by the UI; the engine never enters it but accepts
	// it in persisted records.
	StatusEditing Status = "editing"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusParsing, StatusSaving, StatusError, StatusEditing:
		return true
	}
	return false
}

// Valid reports whether t is a known relationship type.
func (t RelationshipType) Valid() bool {
	switch t {
	case OneToOne, OneToMany, ManyToMany:
		return true
	}
	return false
}
