// Package workspace lays out the per-project state directory and guards each
// schema file with a single-editor lock.
//
// Layout under the project root:
//
//	.schemasync/config.yml        configuration
//	.schemasync/diagrams/         diagram records (file backend)
//	.schemasync/diagrams.db       diagram records (sqlite backend)
//	.schemasync/locks/<id>.lock   one lock per schema file being edited
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StateDirName is the workspace state directory under the project root.
const StateDirName = ".schemasync"

// ErrOutsideRoot is returned for schema files outside the workspace root.
var ErrOutsideRoot = errors.New("schema file is outside the workspace")

// Workspace resolves state paths for one project root.
type Workspace struct {
	root string
}

// New returns the workspace rooted at root.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	return &Workspace{root: abs}, nil
}

// FindRoot walks up from start to the nearest directory holding a
// .schemasync or .git directory. It returns start when neither is found.
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for dir := abs; ; {
		for _, marker := range []string{StateDirName, ".git"} {
			if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

// Root returns the project root.
func (w *Workspace) Root() string { return w.root }

// StateDir returns the .schemasync directory.
func (w *Workspace) StateDir() string { return filepath.Join(w.root, StateDirName) }

// ConfigPath returns the config file path.
func (w *Workspace) ConfigPath() string { return filepath.Join(w.StateDir(), "config.yml") }

// DiagramsDir returns the directory of the file backend.
func (w *Workspace) DiagramsDir() string { return filepath.Join(w.StateDir(), "diagrams") }

// DatabasePath returns the sqlite database of the sql backend.
func (w *Workspace) DatabasePath() string { return filepath.Join(w.StateDir(), "diagrams.db") }

// LocksDir returns the directory of schema file locks.
func (w *Workspace) LocksDir() string { return filepath.Join(w.StateDir(), "locks") }

// Init creates the state directories.
func (w *Workspace) Init() error {
	for _, dir := range []string{w.StateDir(), w.DiagramsDir(), w.LocksDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// DiagramID derives a stable diagram id from a schema file path:
// "billing/invoices.dbml" becomes "billing__invoices".
func (w *Workspace) DiagramID(schemaFile string) (string, error) {
	abs, err := filepath.Abs(schemaFile)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, schemaFile)
	}

	rel = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
	id := strings.ReplaceAll(rel, "/", "__")
	id = strings.TrimLeft(id, ".")
	if id == "" {
		return "", fmt.Errorf("cannot derive a diagram id from %s", schemaFile)
	}
	return id, nil
}

// LockPath returns the lock file guarding diagram id.
func (w *Workspace) LockPath(id string) string {
	return filepath.Join(w.LocksDir(), id+".lock")
}
