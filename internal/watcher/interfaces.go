package watcher

import "context"

// FileWatcher monitors schema files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching, calling callback with debounced batches of changed files.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the watcher and releases its resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// TextSink receives edited schema text. *syncer.Coordinator implements it.
type TextSink interface {
	ParseText(ctx context.Context, text string) error
}
