package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last write before a batch fires.
const DefaultDebounce = 300 * time.Millisecond

// fileWatcher implements FileWatcher over fsnotify.
type fileWatcher struct {
	watcher  *fsnotify.Watcher
	roots    []string
	matcher  *Matcher
	debounce time.Duration
	callback func(files []string)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	paused  bool
	changed map[string]bool
	timer   *time.Timer

	stopOnce sync.Once
	doneCh   chan struct{}
}

// NewFileWatcher watches roots recursively for files accepted by matcher.
// Paths are matched relative to the root that contains them. A zero
// debounce uses DefaultDebounce.
func NewFileWatcher(roots []string, matcher *Matcher, debounce time.Duration) (FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw := &fileWatcher{
		watcher:  watcher,
		matcher:  matcher,
		debounce: debounce,
		changed:  make(map[string]bool),
		doneCh:   make(chan struct{}),
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		fw.roots = append(fw.roots, abs)
		if err := fw.addTree(abs, abs); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return fw, nil
}

// Start begins watching. callback receives absolute paths, sorted.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

// Stop stops the watcher. It is idempotent.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			close(fw.doneCh)
		}
		err = fw.watcher.Close()
	})
	return err
}

// Pause holds callbacks; changes keep accumulating.
func (fw *fileWatcher) Pause() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.paused = true
}

// Resume releases callbacks and fires immediately if changes accumulated.
func (fw *fileWatcher) Resume() {
	fw.mu.Lock()
	wasPaused := fw.paused
	fw.paused = false
	fw.mu.Unlock()

	if wasPaused {
		fw.fire()
	}
}

func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	expired := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if root, ok := fw.rootOf(event.Name); ok {
						if err := fw.addTree(root, event.Name); err != nil {
							log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
						}
					}
				}
			}

			if !fw.accepts(event) {
				continue
			}

			fw.mu.Lock()
			fw.changed[event.Name] = true
			fw.mu.Unlock()
			fw.resetTimer(expired)

		case <-expired:
			fw.mu.Lock()
			paused := fw.paused
			fw.mu.Unlock()
			if !paused {
				fw.fire()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: file watcher error: %v", err)
		}
	}
}

// fire hands the accumulated changes to the callback.
func (fw *fileWatcher) fire() {
	fw.mu.Lock()
	if len(fw.changed) == 0 {
		fw.mu.Unlock()
		return
	}
	files := make([]string, 0, len(fw.changed))
	for file := range fw.changed {
		files = append(files, file)
	}
	fw.changed = make(map[string]bool)
	fw.mu.Unlock()

	sort.Strings(files)
	if fw.callback != nil {
		fw.callback(files)
	}
}

func (fw *fileWatcher) resetTimer(expired chan struct{}) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, func() {
		select {
		case expired <- struct{}{}:
		default:
		}
	})
}

func (fw *fileWatcher) stopTimer() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
		fw.timer = nil
	}
}

// accepts keeps writes, creates, removes and renames of matching files.
func (fw *fileWatcher) accepts(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	root, ok := fw.rootOf(event.Name)
	if !ok {
		return false
	}
	rel, err := filepath.Rel(root, event.Name)
	if err != nil {
		return false
	}
	return fw.matcher.Match(rel)
}

// rootOf returns the watched root containing path.
func (fw *fileWatcher) rootOf(path string) (string, bool) {
	for _, root := range fw.roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel) {
			return root, true
		}
	}
	return "", false
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// addTree adds dir and its subdirectories, skipping ignored ones.
func (fw *fileWatcher) addTree(root, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(root, path); err == nil && rel != "." && fw.matcher.Ignored(rel) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
