package schema

import (
	"fmt"
	"strings"
)

// Validation error codes.
const (
	CodeMissingTableName             = "MISSING_TABLE_NAME"
	CodeDuplicateTable               = "DUPLICATE_TABLE"
	CodeEmptyTable                   = "EMPTY_TABLE"
	CodeMissingColumnName            = "MISSING_COLUMN_NAME"
	CodeDuplicateColumn              = "DUPLICATE_COLUMN"
	CodeMissingColumnType            = "MISSING_COLUMN_TYPE"
	CodeInvalidRelationshipEndpoints = "INVALID_RELATIONSHIP_ENDPOINTS"
	CodeInvalidRelationshipTable     = "INVALID_RELATIONSHIP_TABLE"
	CodeInvalidRelationshipColumn    = "INVALID_RELATIONSHIP_COLUMN"
	CodeSelfReferencingColumn        = "SELF_REFERENCING_COLUMN"
)

// ValidationError is a structural problem found in an AST.
// It never leaves the process except as user-facing text.
type ValidationError struct {
	Table   string `json:"table,omitempty"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return e.Message
}

// ValidationResult is the verdict of Validate. Valid is true iff Errors is empty.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// First returns the representative error surfaced to users.
func (r ValidationResult) First() (ValidationError, bool) {
	if len(r.Errors) == 0 {
		return ValidationError{}, false
	}
	return r.Errors[0], true
}

// Codes returns the error codes in report order.
func (r ValidationResult) Codes() []string {
	codes := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		codes[i] = e.Code
	}
	return codes
}

// Validate checks the structural invariants of an AST. Tables are checked first,
// then relationships, and every violation is reported. The input is never mutated.
func Validate(ast *SchemaAST) ValidationResult {
	errs := []ValidationError{}
	if ast == nil {
		return ValidationResult{Valid: true, Errors: errs}
	}

	tableNames := make(map[string]bool)
	tables := make(map[string]*TableNode)

	for i := range ast.Tables {
		table := &ast.Tables[i]

		if isBlank(table.Name) {
			errs = append(errs, ValidationError{
				Table:   table.ID,
				Message: "Table name is required",
				Code:    CodeMissingTableName,
			})
			continue
		}

		if tableNames[table.Name] {
			errs = append(errs, ValidationError{
				Table:   table.Name,
				Message: fmt.Sprintf("Duplicate table name: %s", table.Name),
				Code:    CodeDuplicateTable,
			})
		} else {
			tableNames[table.Name] = true
			tables[table.Name] = table
		}

		if len(table.Columns) == 0 {
			errs = append(errs, ValidationError{
				Table:   table.Name,
				Message: fmt.Sprintf("Table %s must have at least one column", table.Name),
				Code:    CodeEmptyTable,
			})
			continue
		}

		errs = append(errs, validateColumns(table)...)
	}

	for _, rel := range ast.Relationships {
		errs = append(errs, validateRelationship(rel, tableNames, tables)...)
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateColumns(table *TableNode) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	for _, col := range table.Columns {
		if isBlank(col.Name) {
			errs = append(errs, ValidationError{
				Table:   table.Name,
				Column:  "unknown",
				Message: "Column name is required",
				Code:    CodeMissingColumnName,
			})
			continue
		}

		if seen[col.Name] {
			errs = append(errs, ValidationError{
				Table:   table.Name,
				Column:  col.Name,
				Message: fmt.Sprintf("Duplicate column name: %s in table %s", col.Name, table.Name),
				Code:    CodeDuplicateColumn,
			})
		} else {
			seen[col.Name] = true
		}

		if isBlank(col.Type) {
			errs = append(errs, ValidationError{
				Table:   table.Name,
				Column:  col.Name,
				Message: fmt.Sprintf("Column %s must have a type", col.Name),
				Code:    CodeMissingColumnType,
			})
		}
	}
	return errs
}

func validateRelationship(rel RelationshipEdge, tableNames map[string]bool, tables map[string]*TableNode) []ValidationError {
	if rel.FromTable == "" || rel.ToTable == "" {
		return []ValidationError{{
			Message: fmt.Sprintf("Relationship %s has invalid endpoints", rel.ID),
			Code:    CodeInvalidRelationshipEndpoints,
		}}
	}

	var errs []ValidationError
	for _, name := range []string{rel.FromTable, rel.ToTable} {
		if !tableNames[name] {
			errs = append(errs, ValidationError{
				Table:   name,
				Message: fmt.Sprintf("Relationship references non-existent table: %s", name),
				Code:    CodeInvalidRelationshipTable,
			})
		}
	}

	// Column checks tolerate a failed table lookup on either side.
	sides := []struct{ table, column string }{
		{rel.FromTable, rel.FromColumn},
		{rel.ToTable, rel.ToColumn},
	}
	for _, side := range sides {
		table, ok := tables[side.table]
		if !ok || side.column == "" {
			continue
		}
		if !table.HasColumn(side.column) {
			errs = append(errs, ValidationError{
				Table:   side.table,
				Column:  side.column,
				Message: fmt.Sprintf("Column %s does not exist in table %s", side.column, side.table),
				Code:    CodeInvalidRelationshipColumn,
			})
		}
	}

	if rel.FromTable == rel.ToTable && rel.FromColumn == rel.ToColumn && rel.FromColumn != "" {
		errs = append(errs, ValidationError{
			Table:   rel.FromTable,
			Column:  rel.FromColumn,
			Message: "Cannot create relationship from column to itself",
			Code:    CodeSelfReferencingColumn,
		})
	}
	return errs
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
