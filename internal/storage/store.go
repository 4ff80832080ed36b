package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a diagram id is unknown.
var ErrNotFound = errors.New("diagram not found")

// Store persists diagrams. SQLStore and FileStore implement it.
type Store interface {
	Create(ctx context.Context, in NewDiagram) (*Diagram, error)
	Get(ctx context.Context, id string) (*Diagram, error)
	List(ctx context.Context) ([]*Diagram, error)
	Sync(ctx context.Context, id string, payload SyncPayload) (*Diagram, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// jsonColumns holds the JSON encodings of a diagram's structured fields.
type jsonColumns struct {
	ast    string
	nodes  string
	edges  string
	errors string
}

func encodeColumns(d *Diagram) (jsonColumns, error) {
	var cols jsonColumns
	var err error
	if cols.ast, err = encodeJSON(d.AST); err != nil {
		return cols, fmt.Errorf("encode ast: %w", err)
	}
	if cols.nodes, err = encodeJSON(nonNil(d.Nodes)); err != nil {
		return cols, fmt.Errorf("encode nodes: %w", err)
	}
	if cols.edges, err = encodeJSON(nonNil(d.Edges)); err != nil {
		return cols, fmt.Errorf("encode edges: %w", err)
	}
	if cols.errors, err = encodeJSON(nonNil(d.Errors)); err != nil {
		return cols, fmt.Errorf("encode errors: %w", err)
	}
	return cols, nil
}

func (cols jsonColumns) decodeInto(d *Diagram) error {
	if err := decodeJSON(cols.ast, &d.AST); err != nil {
		return fmt.Errorf("decode ast: %w", err)
	}
	if err := decodeJSON(cols.nodes, &d.Nodes); err != nil {
		return fmt.Errorf("decode nodes: %w", err)
	}
	if err := decodeJSON(cols.edges, &d.Edges); err != nil {
		return fmt.Errorf("decode edges: %w", err)
	}
	if err := decodeJSON(cols.errors, &d.Errors); err != nil {
		return fmt.Errorf("decode errors: %w", err)
	}
	d.Nodes = nonNil(d.Nodes)
	d.Edges = nonNil(d.Edges)
	d.Errors = nonNil(d.Errors)
	return nil
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
