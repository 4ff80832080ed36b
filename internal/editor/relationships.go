package editor

import (
	"fmt"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

// AddRelationship links fromColumn of one table to toColumn of another and
// returns the new edge id. An empty type means ONE_TO_MANY.
func (e *Editor) AddRelationship(fromTableID, fromColumn, toTableID, toColumn string, relType schema.RelationshipType) (string, error) {
	if relType == "" {
		relType = schema.OneToMany
	}

	var id string
	err := e.transact("add relationship", func(s *State) error {
		if _, ok := s.node(fromTableID); !ok {
			return fmt.Errorf("%w: %s", ErrTableNotFound, fromTableID)
		}
		if _, ok := s.node(toTableID); !ok {
			return fmt.Errorf("%w: %s", ErrTableNotFound, toTableID)
		}

		id = graph.NextRelationshipID(s.Edges)
		s.Edges = append(s.Edges, graph.Edge{
			ID:           id,
			Source:       fromTableID,
			Target:       toTableID,
			SourceHandle: graph.SourceHandle(fromColumn),
			TargetHandle: toColumn,
			Type:         graph.EdgeTypeDefault,
			Label:        string(relType),
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RemoveRelationship deletes an edge.
func (e *Editor) RemoveRelationship(edgeID string) error {
	return e.transact("remove relationship", func(s *State) error {
		removed := s.removeEdges(func(edge graph.Edge) bool {
			return edge.ID == edgeID
		})
		if removed == 0 {
			return fmt.Errorf("%w: %s", ErrRelationshipNotFound, edgeID)
		}
		return nil
	})
}

// UpdateRelationshipType changes the cardinality of an edge.
func (e *Editor) UpdateRelationshipType(edgeID string, relType schema.RelationshipType) error {
	return e.transact("update relationship type", func(s *State) error {
		edge, ok := s.edge(edgeID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrRelationshipNotFound, edgeID)
		}
		if !relType.Valid() {
			return fmt.Errorf("unknown relationship type %q", relType)
		}
		edge.Label = string(relType)
		return nil
	})
}
