// Package syncer keeps the DBML text, the parsed AST, the diagram and the
// persisted record of one schema consistent.
//
// A Coordinator owns the committed state and runs a single event loop. Every
// public call, inbound channel message, debounce timer firing and save
// completion is a closure executed to completion on that loop, so handlers
// never interleave. Backend I/O runs off the loop and posts its result back.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mvp-joe/schema-sync/internal/channel"
	"github.com/mvp-joe/schema-sync/internal/editor"
	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
	"github.com/mvp-joe/schema-sync/internal/storage"
)

// DefaultSaveDebounce is the quiet period before a scheduled save runs.
const DefaultSaveDebounce = time.Second

var (
	// ErrStopped is returned by calls made after Stop.
	ErrStopped = errors.New("coordinator stopped")

	// ErrNoBackend is returned by Load when no backend is configured.
	ErrNoBackend = errors.New("no backend configured")
)

// Backend persists diagram records.
type Backend interface {
	Get(ctx context.Context, id string) (*storage.Diagram, error)
	Sync(ctx context.Context, id string, payload storage.SyncPayload) (*storage.Diagram, error)
}

// Options configures a Coordinator.
type Options struct {
	// DiagramID names the record saves go to. Load sets it too.
	DiagramID string

	// Channel reaches the parser. Required.
	Channel channel.Channel

	// Backend persists the diagram. Nil disables persistence.
	Backend Backend

	// Notifier receives user-facing messages (rejected edits, failed saves).
	Notifier editor.Notifier

	// SaveDebounce defaults to DefaultSaveDebounce.
	SaveDebounce time.Duration

	// Cache short-circuits parses of text already parsed. Optional.
	Cache *ParseCache

	// OnTextChange receives text regenerated from a committed edit. It runs
	// on the event loop and must not block.
	OnTextChange func(text string)
}

// Snapshot is a copy of the committed state.
type Snapshot struct {
	DiagramID string
	DBMLText  string
	AST       *schema.SchemaAST
	Nodes     []graph.Node
	Edges     []graph.Edge
	Errors    []schema.ParseError
	Status    schema.Status
}

// Coordinator arbitrates between parse requests, local edits and persistence.
//
// Callbacks handed to the coordinator (Notifier, Edit funcs) run on the event
// loop and must not call back into the coordinator's blocking methods.
type Coordinator struct {
	ch       channel.Channel
	backend  Backend
	notifier editor.Notifier
	cache    *ParseCache
	saver    *Debouncer
	onText   func(string)

	mu      sync.Mutex
	inbox   []func()
	wake    chan struct{}
	stopped bool

	ctx         context.Context
	cancel      context.CancelFunc
	doneCh      chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
	saves       sync.WaitGroup // Add runs on the loop; Wait only after it exits
	unsubscribe []func()

	// Owned by the event loop.
	diagramID     string
	text          string
	ast           *schema.SchemaAST
	errors        []schema.ParseError
	status        schema.Status
	editor        *editor.Editor
	parses        versionTracker
	updates       versionTracker
	parseTexts    map[int64]string
	pendingSave   *storage.SyncPayload
	savesInFlight int
	flushWaiters  []chan struct{}
}

// New creates a coordinator. Call Start to run its event loop.
func New(opts Options) (*Coordinator, error) {
	if opts.Channel == nil {
		return nil, errors.New("channel is required")
	}
	if opts.SaveDebounce <= 0 {
		opts.SaveDebounce = DefaultSaveDebounce
	}

	c := &Coordinator{
		ch:         opts.Channel,
		backend:    opts.Backend,
		notifier:   opts.Notifier,
		cache:      opts.Cache,
		onText:     opts.OnTextChange,
		wake:       make(chan struct{}, 1),
		doneCh:     make(chan struct{}),
		diagramID:  opts.DiagramID,
		errors:     []schema.ParseError{},
		status:     schema.StatusIdle,
		parseTexts: make(map[int64]string),
	}
	c.editor = editor.New(editor.NewState(nil, nil), editor.CommitterFunc(c.commit), opts.Notifier)
	c.saver = NewDebouncer(opts.SaveDebounce, func() {
		c.post(c.flushScheduled)
	})
	return c, nil
}

// Start subscribes to the channel and runs the event loop until ctx is
// cancelled or Stop is called.
func (c *Coordinator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.ctx, c.cancel = context.WithCancel(ctx)

		c.unsubscribe = []func(){
			c.ch.On(channel.EventParsed, c.inbound(c.handleParsed)),
			c.ch.On(channel.EventError, c.inbound(c.handleError)),
			c.ch.On(channel.EventASTUpdated, c.inbound(c.handleASTUpdated)),
		}

		go c.run()
	})
}

// Stop unsubscribes, drops any scheduled save and waits for in-flight saves.
// Use Flush first to keep a scheduled save.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		for _, unsubscribe := range c.unsubscribe {
			unsubscribe()
		}
		c.saver.Cancel()

		c.mu.Lock()
		c.stopped = true
		c.inbox = nil
		c.mu.Unlock()

		if c.cancel != nil {
			c.cancel()
			<-c.doneCh
		} else {
			close(c.doneCh)
		}
		c.saves.Wait()
	})
}

// ParseText replaces the text view and asks the parser for its AST. The
// result arrives asynchronously; Snapshot shows StatusParsing until then.
func (c *Coordinator) ParseText(ctx context.Context, text string) error {
	return c.call(ctx, func() error { return c.parseText(text) })
}

// Edit runs fn against the diagram editor on the event loop. Each structural
// edit fn performs is validated and, when valid, pushed to the parser and
// saved.
func (c *Coordinator) Edit(ctx context.Context, fn func(ed *editor.Editor) error) error {
	return c.call(ctx, func() error { return fn(c.editor) })
}

// MoveNode moves a table and schedules a debounced save.
func (c *Coordinator) MoveNode(ctx context.Context, nodeID string, position schema.Position) error {
	return c.call(ctx, func() error {
		if err := c.editor.MoveNode(nodeID, position); err != nil {
			return err
		}
		c.scheduleSave(storage.SyncPayload{})
		return nil
	})
}

// ScheduleSave saves after the debounce period. Repeated calls restart the
// wait; fields merge, later calls winning. Unset fields are filled from the
// current state when the save runs.
func (c *Coordinator) ScheduleSave(ctx context.Context, payload storage.SyncPayload) error {
	return c.call(ctx, func() error {
		c.scheduleSave(payload)
		return nil
	})
}

// SaveNow saves immediately. Unset fields are filled from the current state.
func (c *Coordinator) SaveNow(ctx context.Context, payload storage.SyncPayload) error {
	return c.call(ctx, func() error {
		c.saveNow(payload)
		return nil
	})
}

// Flush runs a scheduled save now and waits until no save is in flight.
func (c *Coordinator) Flush(ctx context.Context) error {
	var idle chan struct{}
	if err := c.call(ctx, func() error {
		c.flushScheduled()
		idle = make(chan struct{})
		if c.savesInFlight == 0 {
			close(idle)
		} else {
			c.flushWaiters = append(c.flushWaiters, idle)
		}
		return nil
	}); err != nil {
		return err
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.doneCh:
		return ErrStopped
	}
}

// Load fetches a diagram from the backend and makes it the current state.
// Stored nodes are used when present; otherwise the stored AST is projected.
func (c *Coordinator) Load(ctx context.Context, id string) error {
	if c.backend == nil {
		return ErrNoBackend
	}
	d, err := c.backend.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load diagram %s: %w", id, err)
	}
	return c.call(ctx, func() error {
		c.restore(d)
		return nil
	})
}

// Reset clears the state, as when an editing session ends. Responses to
// requests sent before Reset are ignored.
func (c *Coordinator) Reset(ctx context.Context) error {
	return c.call(ctx, func() error {
		c.saver.Cancel()
		c.pendingSave = nil
		c.parses.invalidate()
		c.updates.invalidate()
		c.parseTexts = make(map[int64]string)

		c.diagramID = ""
		c.text = ""
		c.ast = nil
		c.errors = []schema.ParseError{}
		c.status = schema.StatusIdle
		c.editor.State().Reset()
		return nil
	})
}

// Snapshot returns a deep copy of the committed state.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.call(ctx, func() error {
		nodes, edges := c.editor.State().Clone()
		snap = Snapshot{
			DiagramID: c.diagramID,
			DBMLText:  c.text,
			AST:       c.ast.Clone(),
			Nodes:     nodes,
			Edges:     edges,
			Errors:    append([]schema.ParseError{}, c.errors...),
			Status:    c.status,
		}
		return nil
	})
	return snap, err
}

// restore replaces the state with a stored diagram.
func (c *Coordinator) restore(d *storage.Diagram) {
	c.saver.Cancel()
	c.pendingSave = nil
	c.parses.invalidate()
	c.updates.invalidate()

	c.diagramID = d.ID
	c.text = d.DBMLText
	c.ast = d.AST.Clone()
	c.errors = append([]schema.ParseError{}, d.Errors...)
	c.status = schema.StatusIdle
	if d.Status == schema.StatusError {
		c.status = schema.StatusError
	}

	switch {
	case len(d.Nodes) > 0:
		c.editor.State().Replace(d.Nodes, d.Edges)
	case d.AST != nil:
		nodes, edges, err := graph.Project(d.AST, nil)
		if err != nil {
			log.Printf("Error: stored schema for %s cannot be drawn: %v", d.ID, err)
			c.editor.State().Reset()
			break
		}
		c.editor.State().Replace(nodes, edges)
	default:
		c.editor.State().Reset()
	}

	if d.AST != nil && len(d.Errors) == 0 {
		c.cache.Put(d.DBMLText, d.AST)
	}
}

// inbound adapts a loop handler to a channel handler.
func (c *Coordinator) inbound(handle func(json.RawMessage)) channel.Handler {
	return func(payload json.RawMessage) {
		c.post(func() { handle(payload) })
	}
}

func (c *Coordinator) run() {
	defer close(c.doneCh)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.wake:
		}

		for {
			fn := c.next()
			if fn == nil {
				break
			}
			fn()
		}
	}
}

// post queues fn for the event loop. It reports false after Stop.
func (c *Coordinator) post(fn func()) bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	c.inbox = append(c.inbox, fn)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

func (c *Coordinator) next() func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || len(c.inbox) == 0 {
		return nil
	}
	fn := c.inbox[0]
	c.inbox[0] = nil
	c.inbox = c.inbox[1:]
	return fn
}

// call runs fn on the event loop and waits for its result.
func (c *Coordinator) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if !c.post(func() { result <- fn() }) {
		return ErrStopped
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.doneCh:
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	}
}

func (c *Coordinator) notify(message string) {
	if c.notifier != nil {
		c.notifier.Notify(message)
	}
}
