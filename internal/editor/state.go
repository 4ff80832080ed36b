package editor

import "github.com/mvp-joe/schema-sync/internal/graph"

// State holds the diagram being edited plus a single-slot snapshot of the
// state before the most recent edit. Only one level of undo is kept.
//
// State is not safe for concurrent use; callers serialize access (the sync
// coordinator runs every mutation on its event loop).
type State struct {
	Nodes []graph.Node
	Edges []graph.Edge

	previous *snapshot
}

type snapshot struct {
	nodes []graph.Node
	edges []graph.Edge
}

// NewState creates a state holding copies of nodes and edges.
func NewState(nodes []graph.Node, edges []graph.Edge) *State {
	s := &State{}
	s.Replace(nodes, edges)
	return s
}

// Replace swaps in copies of nodes and edges and drops the snapshot.
func (s *State) Replace(nodes []graph.Node, edges []graph.Edge) {
	s.Nodes = graph.CloneNodes(nodes)
	s.Edges = graph.CloneEdges(edges)
	if s.Nodes == nil {
		s.Nodes = []graph.Node{}
	}
	if s.Edges == nil {
		s.Edges = []graph.Edge{}
	}
	s.previous = nil
}

// Reset empties the diagram, as when an editor session ends.
func (s *State) Reset() {
	s.Replace(nil, nil)
}

// SavePrevious snapshots the current diagram, overwriting any earlier snapshot.
func (s *State) SavePrevious() {
	s.previous = &snapshot{
		nodes: graph.CloneNodes(s.Nodes),
		edges: graph.CloneEdges(s.Edges),
	}
}

// RevertToPrevious restores the snapshot. It reports false when there is none.
func (s *State) RevertToPrevious() bool {
	if s.previous == nil {
		return false
	}
	s.Nodes = s.previous.nodes
	s.Edges = s.previous.edges
	s.previous = nil
	return true
}

// HasPrevious reports whether a snapshot is held.
func (s *State) HasPrevious() bool {
	return s.previous != nil
}

// Clone returns copies of the current nodes and edges.
func (s *State) Clone() ([]graph.Node, []graph.Edge) {
	return graph.CloneNodes(s.Nodes), graph.CloneEdges(s.Edges)
}

func (s *State) node(id string) (*graph.Node, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

func (s *State) edge(id string) (*graph.Edge, bool) {
	for i := range s.Edges {
		if s.Edges[i].ID == id {
			return &s.Edges[i], true
		}
	}
	return nil, false
}

// removeEdges drops every edge matching drop and returns how many were removed.
func (s *State) removeEdges(drop func(graph.Edge) bool) int {
	kept := make([]graph.Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	removed := len(s.Edges) - len(kept)
	s.Edges = kept
	return removed
}

// forEachColumn visits every column of every node.
func (s *State) forEachColumn(visit func(node *graph.Node, col *graph.ColumnData)) {
	for i := range s.Nodes {
		for j := range s.Nodes[i].Data.Schema {
			visit(&s.Nodes[i], &s.Nodes[i].Data.Schema[j])
		}
	}
}
