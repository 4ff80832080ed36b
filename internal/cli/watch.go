package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/schema-sync/internal/channel"
	"github.com/mvp-joe/schema-sync/internal/config"
	"github.com/mvp-joe/schema-sync/internal/editor"
	"github.com/mvp-joe/schema-sync/internal/syncer"
	"github.com/mvp-joe/schema-sync/internal/watcher"
	"github.com/mvp-joe/schema-sync/internal/workspace"
)

// flushTimeout bounds the final save when watch exits.
const flushTimeout = 10 * time.Second

var (
	errNoParser     = errors.New("no parser configured (set parser.command or pass --parser)")
	errParserExited = errors.New("parser process exited")
)

var (
	watchParser  []string
	watchDiagram string
)

var watchCmd = &cobra.Command{
	Use:   "watch [schema-file]",
	Short: "Keep a DBML file and its stored diagram in sync",
	Long: `Watch follows a DBML schema file. Every save is parsed by the configured
parser process and the resulting diagram is persisted to the backend
(backend.kind: file, sql or http) after a quiet period.

With --diagram, a diagram file (JSON or YAML {nodes, edges}) is followed
too: when another tool rewrites it, the diagram is validated, sent to the
parser to regenerate the DBML text, and the schema file is rewritten.

Without a schema-file argument the workspace is searched with
watch.patterns; exactly one file must match.

Examples:
  schemasync watch db/schema.dbml --parser node,parser.js
  schemasync watch --diagram exported.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringSliceVar(&watchParser, "parser", nil, "parser command and arguments, comma separated (default: parser.command)")
	watchCmd.Flags().StringVar(&watchDiagram, "diagram", "", "diagram file to import edits from")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws, cfg, err := openWorkspace()
	if err != nil {
		return err
	}
	if len(watchParser) > 0 {
		cfg.Parser.Command = watchParser
	}
	if len(cfg.Parser.Command) == 0 {
		return errNoParser
	}

	schemaFile, err := pickSchemaFile(ws, cfg, firstArg(args))
	if err != nil {
		return err
	}
	lockID, err := ws.DiagramID(schemaFile)
	if err != nil {
		return err
	}
	name, err := filepath.Rel(ws.Root(), schemaFile)
	if err != nil {
		return err
	}
	name = filepath.ToSlash(name)

	if err := ws.Init(); err != nil {
		return err
	}
	lock, err := workspace.Acquire(ws.LockPath(lockID))
	if errors.Is(err, workspace.ErrLocked) {
		return fmt.Errorf("%s is already being watched by another process", name)
	}
	if err != nil {
		return err
	}
	defer lock.Release()

	store, err := openBackend(ctx, ws, cfg)
	if err != nil {
		return fmt.Errorf("failed to open backend: %w", err)
	}
	defer store.Close()

	diagramID, err := resolveDiagram(ctx, store, lockID, name)
	if err != nil {
		return err
	}

	parser, err := channel.StartProcess(ctx, cfg.Parser.Command)
	if err != nil {
		return err
	}
	defer parser.Close()

	var cache *syncer.ParseCache
	if cfg.Sync.ParseCacheSize > 0 {
		if cache, err = syncer.NewParseCache(cfg.Sync.ParseCacheSize); err != nil {
			return err
		}
		defer cache.Close()
	}

	files, err := watchOne(schemaFile, cfg)
	if err != nil {
		return err
	}

	// The coordinator outlives ctx so the final flush can still run.
	coordCtx, cancelCoord := context.WithCancel(context.Background())
	defer cancelCoord()

	var fileSync *watcher.FileSync
	coord, err := syncer.New(syncer.Options{
		DiagramID:    diagramID,
		Channel:      parser,
		Backend:      store,
		Notifier:     editor.NotifierFunc(notifyUser),
		SaveDebounce: cfg.SaveDebounce(),
		Cache:        cache,
		OnTextChange: func(text string) { fileSync.WriteText(text) },
	})
	if err != nil {
		return err
	}
	if fileSync, err = watcher.NewFileSync(schemaFile, files, coord); err != nil {
		return err
	}

	coord.Start(coordCtx)
	defer coord.Stop()

	if err := coord.Load(ctx, diagramID); err != nil {
		return err
	}

	color.New(color.FgCyan).Fprintf(os.Stderr, "Watching %s (diagram %s, backend %s)\n", name, diagramID, cfg.Backend.Kind)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fileSync.Start(gctx)
	})
	g.Go(func() error {
		select {
		case <-parser.Done():
			return errParserExited
		case <-gctx.Done():
			return nil
		}
	})
	if watchDiagram != "" {
		g.Go(func() error {
			return followDiagram(gctx, watchDiagram, cfg, coord)
		})
	}

	waitErr := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := coord.Flush(flushCtx); err != nil {
		log.Printf("Warning: final save failed: %v", err)
	}
	return waitErr
}

// pickSchemaFile returns the absolute path of arg, or of the only schema file
// in the workspace matching watch.patterns.
func pickSchemaFile(ws *workspace.Workspace, cfg *config.Config, arg string) (string, error) {
	if arg != "" {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("schema file: %w", err)
		}
		return abs, nil
	}

	matcher, err := watcher.NewMatcher(cfg.Watch.Patterns, cfg.Watch.Ignore)
	if err != nil {
		return "", err
	}
	found, err := watcher.Discover(ws.Root(), matcher)
	if err != nil {
		return "", fmt.Errorf("failed to search for schema files: %w", err)
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("no schema files matching %s in %s", strings.Join(cfg.Watch.Patterns, ", "), ws.Root())
	case 1:
		return found[0], nil
	default:
		rel := make([]string, len(found))
		for i, f := range found {
			rel[i], _ = filepath.Rel(ws.Root(), f)
		}
		return "", fmt.Errorf("several schema files found, pass one as an argument: %s", strings.Join(rel, ", "))
	}
}

// watchOne creates a file watcher following a single file.
func watchOne(path string, cfg *config.Config) (watcher.FileWatcher, error) {
	matcher, err := watcher.NewMatcher([]string{filepath.Base(path)}, nil)
	if err != nil {
		return nil, err
	}
	return watcher.NewFileWatcher([]string{filepath.Dir(path)}, matcher, cfg.WatchDebounce())
}

// followDiagram imports the diagram file into coord whenever it changes,
// until ctx is done. The file's current content is not imported on start.
func followDiagram(ctx context.Context, path string, cfg *config.Config, coord *syncer.Coordinator) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	files, err := watchOne(abs, cfg)
	if err != nil {
		return err
	}
	defer files.Stop()

	onChange := func([]string) {
		if err := importDiagramFile(ctx, abs, coord); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Warning: diagram import failed: %v", err)
		}
	}
	if err := files.Start(ctx, onChange); err != nil {
		return fmt.Errorf("failed to watch diagram file: %w", err)
	}
	<-ctx.Done()
	return nil
}

func importDiagramFile(ctx context.Context, path string, coord *syncer.Coordinator) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc diagramDocument
	if err := decodeDocument(data, &doc); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return coord.Edit(ctx, func(ed *editor.Editor) error {
		return ed.ReplaceDiagram(doc.Nodes, doc.Edges)
	})
}

func notifyUser(message string) {
	color.New(color.FgYellow).Fprintf(os.Stderr, "%s\n", message)
}
