package editor

import (
	"errors"
	"fmt"
	"log"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

var (
	// ErrTableNotFound indicates an edit naming an unknown table node id.
	ErrTableNotFound = errors.New("table not found")

	// ErrColumnNotFound indicates an edit naming an unknown column.
	ErrColumnNotFound = errors.New("column not found")

	// ErrRelationshipNotFound indicates an edit naming an unknown edge id.
	ErrRelationshipNotFound = errors.New("relationship not found")
)

// Committer receives the AST of every edit that passed validation.
type Committer interface {
	Commit(ast *schema.SchemaAST)
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ast *schema.SchemaAST)

// Commit calls f(ast).
func (f CommitterFunc) Commit(ast *schema.SchemaAST) { f(ast) }

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify calls f(message).
func (f NotifierFunc) Notify(message string) { f(message) }

// RejectedError is returned when an edit produced an invalid schema and was
// rolled back. Result keeps the complete list of violations.
type RejectedError struct {
	Op     string
	Result schema.ValidationResult
}

func (e *RejectedError) Error() string {
	if first, ok := e.Result.First(); ok {
		return first.Message
	}
	return "Validation failed"
}

// Editor applies structural edits to a State. Each edit is a transaction:
// snapshot, mutate, reduce to an AST, validate, then commit or roll back.
// The diagram never keeps a state that fails validation.
type Editor struct {
	state     *State
	committer Committer
	notifier  Notifier
}

// New creates an editor over state. committer and notifier may be nil.
func New(state *State, committer Committer, notifier Notifier) *Editor {
	if state == nil {
		state = NewState(nil, nil)
	}
	return &Editor{
		state:     state,
		committer: committer,
		notifier:  notifier,
	}
}

// State returns the state the editor mutates.
func (e *Editor) State() *State {
	return e.state
}

// transact runs mutate inside the snapshot/validate/commit-or-rollback cycle.
func (e *Editor) transact(op string, mutate func(s *State) error) error {
	e.state.SavePrevious()

	if err := mutate(e.state); err != nil {
		e.state.RevertToPrevious()
		return fmt.Errorf("%s: %w", op, err)
	}

	ast, err := graph.Reduce(e.state.Nodes, e.state.Edges)
	if err != nil {
		e.state.RevertToPrevious()
		log.Printf("Error: %s left the diagram inconsistent, reverted: %v", op, err)
		return fmt.Errorf("%s: %w", op, err)
	}

	result := schema.Validate(ast)
	if !result.Valid {
		e.state.RevertToPrevious()
		rejected := &RejectedError{Op: op, Result: result}
		if e.notifier != nil {
			e.notifier.Notify(rejected.Error())
		}
		return rejected
	}

	if e.committer != nil {
		e.committer.Commit(ast)
	}
	return nil
}

// AddTable adds a table with a generated id and name and a single primary key
// column. A nil position places the table on the default grid.
func (e *Editor) AddTable(position *schema.Position) (string, error) {
	var id string
	err := e.transact("add table", func(s *State) error {
		id = graph.NextTableID(s.Nodes)
		pos := graph.GridPosition(len(s.Nodes))
		if position != nil {
			pos = *position
		}
		notNull := false
		s.Nodes = append(s.Nodes, graph.Node{
			ID:       id,
			Type:     graph.NodeTypeTable,
			Position: pos,
			Data: graph.NodeData{
				Label: graph.NextTableName(s.Nodes),
				Schema: []graph.ColumnData{
					{Title: "id", Type: "int", PrimaryKey: true, Nullable: &notNull},
				},
			},
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RenameTable renames a table. Relationships follow automatically because
// they are re-resolved by name on reduction; column foreign keys naming the
// old table are rewritten here.
func (e *Editor) RenameTable(tableID, name string) error {
	return e.transact("rename table", func(s *State) error {
		node, ok := s.node(tableID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
		}
		oldName := node.Data.Label
		node.Data.Label = name

		s.forEachColumn(func(_ *graph.Node, col *graph.ColumnData) {
			if col.ForeignKey != nil && col.ForeignKey.Table == oldName {
				col.ForeignKey.Table = name
			}
		})
		return nil
	})
}

// RemoveTable removes a table together with every relationship touching it
// and clears foreign keys that named it.
func (e *Editor) RemoveTable(tableID string) error {
	return e.transact("remove table", func(s *State) error {
		node, ok := s.node(tableID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
		}
		name := node.Data.Label

		kept := make([]graph.Node, 0, len(s.Nodes))
		for _, n := range s.Nodes {
			if n.ID != tableID {
				kept = append(kept, n)
			}
		}
		s.Nodes = kept

		s.removeEdges(func(edge graph.Edge) bool {
			return edge.Source == tableID || edge.Target == tableID
		})
		s.forEachColumn(func(_ *graph.Node, col *graph.ColumnData) {
			if col.ForeignKey != nil && col.ForeignKey.Table == name {
				col.ForeignKey = nil
			}
		})
		return nil
	})
}

// ReplaceDiagram swaps in a whole diagram, as when nodes and edges are
// imported from another editor. It is validated like any other edit.
func (e *Editor) ReplaceDiagram(nodes []graph.Node, edges []graph.Edge) error {
	return e.transact("replace diagram", func(s *State) error {
		s.Nodes = graph.CloneNodes(nodes)
		s.Edges = graph.CloneEdges(edges)
		if s.Nodes == nil {
			s.Nodes = []graph.Node{}
		}
		if s.Edges == nil {
			s.Edges = []graph.Edge{}
		}
		return nil
	})
}

// MoveNode updates a node position. Positions are not structural, so this is
// not a transaction and never fails validation.
func (e *Editor) MoveNode(nodeID string, position schema.Position) error {
	node, ok := e.state.node(nodeID)
	if !ok {
		return fmt.Errorf("move node: %w: %s", ErrTableNotFound, nodeID)
	}
	node.Position = position
	return nil
}
