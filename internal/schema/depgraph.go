package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

// DependencyGraph captures which tables reference which. An edge runs from the
// referenced table (toTable) to the referencing table (fromTable), so a
// topological order lists referenced tables first.
type DependencyGraph struct {
	g        graph.Graph[string, string]
	index    map[string]int
	selfRefs map[string]bool
}

// NewDependencyGraph builds the dependency graph of an AST. Tables without a
// name and later duplicates are skipped, as are relationships naming unknown
// tables; run Validate first to learn about those.
func NewDependencyGraph(ast *SchemaAST) (*DependencyGraph, error) {
	d := &DependencyGraph{
		g:        graph.New(graph.StringHash, graph.Directed()),
		index:    make(map[string]int),
		selfRefs: make(map[string]bool),
	}
	if ast == nil {
		return d, nil
	}

	for _, table := range ast.Tables {
		if isBlank(table.Name) {
			continue
		}
		if _, dup := d.index[table.Name]; dup {
			continue
		}
		if err := d.g.AddVertex(table.Name); err != nil {
			return nil, fmt.Errorf("failed to add table %s: %w", table.Name, err)
		}
		d.index[table.Name] = len(d.index)
	}

	for _, rel := range ast.Relationships {
		_, fromOK := d.index[rel.FromTable]
		_, toOK := d.index[rel.ToTable]
		if !fromOK || !toOK {
			continue
		}
		if rel.FromTable == rel.ToTable {
			d.selfRefs[rel.FromTable] = true
			continue
		}
		if err := d.g.AddEdge(rel.ToTable, rel.FromTable); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add relationship %s: %w", rel.ID, err)
		}
	}

	return d, nil
}

// Order returns table names with referenced tables before the tables
// referencing them. Among tables that are ready at the same time, the one
// declared first in the schema comes first. When the relationships form a
// cycle, the schema order is returned together with the cycles found.
func (d *DependencyGraph) Order() ([]string, [][]string, error) {
	predecessors, err := d.g.PredecessorMap()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute table order: %w", err)
	}

	waiting := make(map[string]int, len(predecessors))
	for name, from := range predecessors {
		waiting[name] = len(from)
	}

	adjacency, err := d.g.AdjacencyMap()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute table order: %w", err)
	}

	order := make([]string, 0, len(d.index))
	done := make(map[string]bool, len(d.index))
	for len(order) < len(d.index) {
		next := ""
		for _, name := range d.schemaOrder() {
			if !done[name] && waiting[name] == 0 {
				next = name
				break
			}
		}
		if next == "" {
			cycles, sccErr := d.Cycles()
			if sccErr != nil {
				return nil, nil, fmt.Errorf("failed to compute table order: %w", sccErr)
			}
			return d.schemaOrder(), cycles, nil
		}

		done[next] = true
		order = append(order, next)
		for target := range adjacency[next] {
			waiting[target]--
		}
	}
	return order, nil, nil
}

// Cycles returns groups of tables that reference each other in a loop.
// Self-references are not reported here; see SelfReferencing.
func (d *DependencyGraph) Cycles() ([][]string, error) {
	components, err := graph.StronglyConnectedComponents(d.g)
	if err != nil {
		return nil, err
	}

	var cycles [][]string
	for _, component := range components {
		if len(component) < 2 {
			continue
		}
		sort.Slice(component, func(i, j int) bool {
			return d.index[component[i]] < d.index[component[j]]
		})
		cycles = append(cycles, component)
	}
	sort.Slice(cycles, func(i, j int) bool {
		return d.index[cycles[i][0]] < d.index[cycles[j][0]]
	})
	return cycles, nil
}

// Referencing returns the tables holding a relationship that points at name.
func (d *DependencyGraph) Referencing(name string) ([]string, error) {
	adjacency, err := d.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	targets, ok := adjacency[name]
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", name)
	}

	out := make([]string, 0, len(targets)+1)
	for target := range targets {
		out = append(out, target)
	}
	if d.selfRefs[name] {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		return d.index[out[i]] < d.index[out[j]]
	})
	return out, nil
}

// SelfReferencing reports whether the table has a relationship to itself.
func (d *DependencyGraph) SelfReferencing(name string) bool {
	return d.selfRefs[name]
}

func (d *DependencyGraph) schemaOrder() []string {
	out := make([]string, len(d.index))
	for name, i := range d.index {
		out[i] = name
	}
	return out
}
