package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

// DiagramFileExt is the extension of diagram files in a FileStore directory.
const DiagramFileExt = ".diagram.json"

// FileStore keeps one JSON file per diagram in a directory. Writes go to a
// temp file first and are renamed into place.
type FileStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates the directory (and its temp directory) if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create diagram directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, ".tmp"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &FileStore{
		dir: dir,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Path returns the file backing diagram id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+DiagramFileExt)
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// Create writes a new diagram with a generated id.
func (s *FileStore) Create(_ context.Context, in NewDiagram) (*Diagram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	d := &Diagram{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		DBMLText:    in.DBMLText,
		Nodes:       []graph.Node{},
		Edges:       []graph.Edge{},
		Errors:      []schema.ParseError{},
		Status:      schema.StatusIdle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.write(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Put writes d under its own id, creating or replacing the file.
func (s *FileStore) Put(_ context.Context, d *Diagram) error {
	if err := validID(d.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	d.UpdatedAt = s.now()
	return s.write(d)
}

// Get reads a diagram.
func (s *FileStore) Get(_ context.Context, id string) (*Diagram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// List reads every diagram in the directory, most recently updated first.
func (s *FileStore) List(_ context.Context) ([]*Diagram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagram directory: %w", err)
	}

	diagrams := []*Diagram{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, DiagramFileExt) {
			continue
		}
		d, err := s.read(strings.TrimSuffix(name, DiagramFileExt))
		if err != nil {
			return nil, err
		}
		diagrams = append(diagrams, d)
	}

	sort.SliceStable(diagrams, func(i, j int) bool {
		return diagrams[i].UpdatedAt.After(diagrams[j].UpdatedAt)
	})
	return diagrams, nil
}

// Sync applies a partial update.
func (s *FileStore) Sync(_ context.Context, id string, payload SyncPayload) (*Diagram, error) {
	if payload.Status != nil && !payload.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q", *payload.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.read(id)
	if err != nil {
		return nil, err
	}
	payload.Apply(d)
	d.UpdatedAt = s.now()
	if err := s.write(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Delete removes a diagram file.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("diagram %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete diagram %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) read(id string) (*Diagram, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("diagram %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read diagram %s: %w", id, err)
	}

	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse diagram %s: %w", id, err)
	}
	d.ID = id
	d.Nodes = nonNil(d.Nodes)
	d.Edges = nonNil(d.Edges)
	d.Errors = nonNil(d.Errors)
	return &d, nil
}

// write saves d using the temp file and rename pattern.
func (s *FileStore) write(d *Diagram) error {
	jsonData, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal diagram: %w", err)
	}

	tempPath := filepath.Join(s.dir, ".tmp", d.ID+DiagramFileExt)
	if err := os.WriteFile(tempPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp diagram file: %w", err)
	}

	// Atomic rename (POSIX guarantees atomicity)
	if err := os.Rename(tempPath, s.Path(d.ID)); err != nil {
		return fmt.Errorf("failed to rename temp diagram file: %w", err)
	}
	return nil
}

// validID rejects ids that would escape the store directory.
func validID(id string) error {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("invalid diagram id %q", id)
	}
	return nil
}
