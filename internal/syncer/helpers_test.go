package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mvp-joe/schema-sync/internal/channel"
	"github.com/mvp-joe/schema-sync/internal/schema"
	"github.com/mvp-joe/schema-sync/internal/storage"
	"github.com/stretchr/testify/require"
)

const testDebounce = 30 * time.Millisecond

// fakeBackend records every save and serves diagrams from memory.
type fakeBackend struct {
	mu       sync.Mutex
	diagrams map[string]*storage.Diagram
	syncs    []storage.SyncPayload
	err      error
	gate     chan struct{} // when set, Sync waits for it to close
}

func newFakeBackend(diagrams ...*storage.Diagram) *fakeBackend {
	b := &fakeBackend{diagrams: make(map[string]*storage.Diagram)}
	for _, d := range diagrams {
		b.diagrams[d.ID] = d
	}
	return b
}

func (b *fakeBackend) Get(_ context.Context, id string) (*storage.Diagram, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.diagrams[id]
	if !ok {
		return nil, fmt.Errorf("diagram %s: %w", id, storage.ErrNotFound)
	}
	out := *d
	return &out, nil
}

func (b *fakeBackend) Sync(_ context.Context, id string, payload storage.SyncPayload) (*storage.Diagram, error) {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.syncs = append(b.syncs, payload)
	if b.err != nil {
		return nil, b.err
	}
	d, ok := b.diagrams[id]
	if !ok {
		d = &storage.Diagram{ID: id}
		b.diagrams[id] = d
	}
	payload.Apply(d)
	out := *d
	return &out, nil
}

func (b *fakeBackend) setErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *fakeBackend) hold() chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
	return b.gate
}

func (b *fakeBackend) saved() []storage.SyncPayload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]storage.SyncPayload(nil), b.syncs...)
}

// fakeParser answers parse requests from a fixed table of results. In manual
// mode it only records requests so tests control response order.
type fakeParser struct {
	bus     *channel.Bus
	manual  bool
	results map[string]channel.ParseResponse

	mu       sync.Mutex
	requests []channel.ParseRequest
	updates  []channel.ASTUpdate
}

func newFakeParser(bus *channel.Bus, manual bool) *fakeParser {
	p := &fakeParser{
		bus:     bus,
		manual:  manual,
		results: make(map[string]channel.ParseResponse),
	}
	bus.On(channel.EventParse, p.onParse)
	bus.On(channel.EventASTUpdate, p.onASTUpdate)
	return p
}

func (p *fakeParser) onParse(payload json.RawMessage) {
	var req channel.ParseRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.manual {
		return
	}
	resp := p.results[req.DBMLText]
	version := req.Version
	resp.Version = &version
	_ = p.bus.Emit(context.Background(), channel.EventParsed, resp)
}

func (p *fakeParser) onASTUpdate(payload json.RawMessage) {
	var upd channel.ASTUpdate
	if err := json.Unmarshal(payload, &upd); err != nil {
		return
	}
	p.mu.Lock()
	p.updates = append(p.updates, upd)
	p.mu.Unlock()

	if p.manual {
		return
	}
	version := upd.Version
	_ = p.bus.Emit(context.Background(), channel.EventASTUpdated, channel.ASTUpdated{
		AST:      upd.AST,
		DBMLText: dbml(upd.AST),
		Version:  &version,
	})
}

func (p *fakeParser) parseRequests() []channel.ParseRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]channel.ParseRequest(nil), p.requests...)
}

func (p *fakeParser) astUpdates() []channel.ASTUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]channel.ASTUpdate(nil), p.updates...)
}

// dbml renders a minimal text form of an AST for the fake parser.
func dbml(ast *schema.SchemaAST) string {
	out := ""
	for _, t := range ast.Tables {
		out += "Table " + t.Name + " {"
		for _, c := range t.Columns {
			out += " " + c.Name + " " + c.Type
		}
		out += " }\n"
	}
	return out
}

// tablesAST builds an AST with one "id" column per table.
func tablesAST(names ...string) *schema.SchemaAST {
	ast := &schema.SchemaAST{
		Tables:        []schema.TableNode{},
		Relationships: []schema.RelationshipEdge{},
	}
	for i, name := range names {
		ast.Tables = append(ast.Tables, schema.TableNode{
			ID:   fmt.Sprintf("table_%d", i+1),
			Name: name,
			Columns: []schema.Column{
				{Name: "id", Type: "int", PrimaryKey: true},
			},
		})
	}
	return ast
}

type notes struct {
	mu       sync.Mutex
	messages []string
}

func (n *notes) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *notes) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type harness struct {
	coord   *Coordinator
	bus     *channel.Bus
	parser  *fakeParser
	backend *fakeBackend
	notes   *notes
	texts   *notes
}

func newHarness(t *testing.T, manual bool, diagrams ...*storage.Diagram) *harness {
	t.Helper()

	bus := newTestBus(t)
	h := &harness{
		bus:     bus,
		parser:  newFakeParser(bus, manual),
		backend: newFakeBackend(diagrams...),
		notes:   &notes{},
		texts:   &notes{},
	}

	cache, err := NewParseCache(16)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	coord, err := New(Options{
		DiagramID:    "diagram-1",
		Channel:      bus,
		Backend:      h.backend,
		Notifier:     h.notes,
		SaveDebounce: testDebounce,
		Cache:        cache,
		OnTextChange: h.texts.Notify,
	})
	require.NoError(t, err)
	coord.Start(context.Background())
	t.Cleanup(coord.Stop)
	h.coord = coord
	return h
}

// newTestBus returns a bus closed at test end.
func newTestBus(t *testing.T) *channel.Bus {
	t.Helper()
	bus := channel.NewBus()
	t.Cleanup(func() { bus.Close() })
	return bus
}

func (h *harness) snapshot(t *testing.T) Snapshot {
	t.Helper()
	snap, err := h.coord.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

// settle waits until queued bus messages have been handled by the loop.
func (h *harness) settle(t *testing.T) Snapshot {
	t.Helper()
	h.bus.Flush()
	return h.snapshot(t)
}

func (h *harness) waitFor(t *testing.T, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	var last Snapshot
	require.Eventually(t, func() bool {
		h.bus.Flush()
		snap, err := h.coord.Snapshot(context.Background())
		if err != nil {
			return false
		}
		last = snap
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func (h *harness) waitForSaves(t *testing.T, n int) []storage.SyncPayload {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.backend.saved()) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return h.backend.saved()
}

func tableNames(snap Snapshot) []string {
	var names []string
	for _, n := range snap.Nodes {
		names = append(names, n.Data.Label)
	}
	return names
}

func versionPtr(v int64) *int64 { return &v }
