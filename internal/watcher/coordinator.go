package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/mvp-joe/schema-sync/internal/channel"
)

// FileSync keeps one schema file and a TextSink in step. Saving the file is
// a text-edit boundary: its content is handed to the sink. Text regenerated
// by the sink is written back with the watcher paused, and is remembered so
// the resulting file event is not parsed again.
type FileSync struct {
	path  string
	files FileWatcher
	sink  TextSink

	mu           sync.Mutex
	lastText     string
	pendingWrite *string
	writeCh      chan struct{}
}

// NewFileSync creates a FileSync for path.
func NewFileSync(path string, files FileWatcher, sink TextSink) (*FileSync, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &FileSync{
		path:    abs,
		files:   files,
		sink:    sink,
		writeCh: make(chan struct{}, 1),
	}, nil
}

// Path returns the absolute path of the synced file.
func (s *FileSync) Path() string {
	return s.path
}

// Start parses the current file content, then follows file changes and
// write-backs until ctx is cancelled. It stops the file watcher on return.
func (s *FileSync) Start(ctx context.Context) error {
	defer func() {
		if err := s.files.Stop(); err != nil {
			log.Printf("Warning: file watcher stop failed: %v", err)
		}
	}()

	if err := s.load(ctx); err != nil {
		return err
	}

	if err := s.files.Start(ctx, func(files []string) {
		s.handleFileChange(ctx, files)
	}); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.flushWrite()
			return nil
		case <-s.writeCh:
			s.flushWrite()
		}
	}
}

// WriteText queues text to be written to the file. Only the latest queued
// text is written. It never blocks.
func (s *FileSync) WriteText(text string) {
	s.mu.Lock()
	s.pendingWrite = &text
	s.mu.Unlock()

	select {
	case s.writeCh <- struct{}{}:
	default:
	}
}

func (s *FileSync) load(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	s.submit(ctx, string(data))
	return nil
}

// handleFileChange runs on the watcher goroutine.
func (s *FileSync) handleFileChange(ctx context.Context, files []string) {
	touched := false
	for _, file := range files {
		if file == s.path {
			touched = true
			break
		}
	}
	if !touched {
		return
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: schema file %s was removed", s.path)
		return
	}
	if err != nil {
		log.Printf("Error: failed to read schema file: %v", err)
		return
	}
	s.submit(ctx, string(data))
}

// submit hands text to the sink unless it is the text last accepted or
// written. Text the sink rejected is submitted again on the next save.
func (s *FileSync) submit(ctx context.Context, text string) {
	s.mu.Lock()
	if text == s.lastText {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	err := s.sink.ParseText(ctx, text)
	switch {
	case err == nil:
		s.mu.Lock()
		s.lastText = text
		s.mu.Unlock()
	case errors.Is(err, channel.ErrNotConnected):
		log.Printf("Warning: parser not connected, %s not parsed", filepath.Base(s.path))
	case errors.Is(err, context.Canceled):
	default:
		log.Printf("Error: failed to parse %s: %v", filepath.Base(s.path), err)
	}
}

// flushWrite writes the pending text with the watcher paused.
func (s *FileSync) flushWrite() {
	s.mu.Lock()
	pending := s.pendingWrite
	s.pendingWrite = nil
	if pending != nil {
		s.lastText = *pending
	}
	s.mu.Unlock()
	if pending == nil {
		return
	}

	s.files.Pause()
	defer s.files.Resume()

	if err := writeFileAtomic(s.path, []byte(*pending)); err != nil {
		log.Printf("Error: failed to write schema file: %v", err)
	}
}

// writeFileAtomic writes to a sibling temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpPath, info.Mode().Perm())
	}
	return os.Rename(tmpPath, path)
}
