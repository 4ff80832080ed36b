package schema

import "fmt"

// Report summarizes the structure of a schema.
type Report struct {
	Tables          int                 `json:"tables" yaml:"tables"`
	Relationships   int                 `json:"relationships" yaml:"relationships"`
	Order           []string            `json:"order" yaml:"order"`
	Cycles          [][]string          `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	SelfReferencing []string            `json:"selfReferencing,omitempty" yaml:"selfReferencing,omitempty"`
	ReferencedBy    map[string][]string `json:"referencedBy" yaml:"referencedBy"`
	Validation      ValidationResult    `json:"validation" yaml:"validation"`
}

// Inspect validates ast and reports its dependency structure: a creation
// order, reference cycles and, per table, the tables referencing it.
func Inspect(ast *SchemaAST) (*Report, error) {
	dg, err := NewDependencyGraph(ast)
	if err != nil {
		return nil, err
	}

	order, cycles, err := dg.Order()
	if err != nil {
		return nil, err
	}

	report := &Report{
		Order:        order,
		Cycles:       cycles,
		ReferencedBy: make(map[string][]string, len(order)),
		Validation:   Validate(ast),
	}
	if ast != nil {
		report.Tables = len(ast.Tables)
		report.Relationships = len(ast.Relationships)
	}

	for _, name := range order {
		refs, err := dg.Referencing(name)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect table %s: %w", name, err)
		}
		report.ReferencedBy[name] = refs
		if dg.SelfReferencing(name) {
			report.SelfReferencing = append(report.SelfReferencing, name)
		}
	}
	return report, nil
}
