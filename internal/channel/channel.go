// Package channel carries diagram messages between the sync coordinator and
// the text parser. Messages are named events with JSON payloads; handlers
// subscribe per event name and get an unsubscribe func back.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/mvp-joe/schema-sync/internal/schema"
)

// Event names.
const (
	// EventParse asks the parser to parse DBML text.
	EventParse = "diagram:parse"
	// EventParsed carries a parse result.
	EventParsed = "diagram:parsed"
	// EventError reports a parser or transport failure.
	EventError = "diagram:error"
	// EventASTUpdate pushes an edited AST so the parser can regenerate text.
	EventASTUpdate = "diagram:ast-update"
	// EventASTUpdated carries the regenerated text for a pushed AST.
	EventASTUpdated = "diagram:ast-updated"
)

// ErrNotConnected is returned by Emit when the other side is unreachable.
var ErrNotConnected = errors.New("channel not connected")

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("channel closed")

// Handler receives the raw JSON payload of an event.
type Handler func(payload json.RawMessage)

// Channel is the message-passing contract between the coordinator and the
// parser. Handlers for one channel run serially, never concurrently.
type Channel interface {
	// Emit sends an event. payload is encoded as JSON.
	Emit(ctx context.Context, event string, payload any) error

	// On subscribes h to event and returns a func removing the subscription.
	On(event string, h Handler) (unsubscribe func())

	// Connected reports whether emitted events can currently be delivered.
	Connected() bool

	// Close releases the transport. Further emits fail with ErrClosed.
	Close() error
}

// ParseRequest is the payload of EventParse.
type ParseRequest struct {
	DBMLText string `json:"dbmlText"`
	Version  int64  `json:"version,omitempty"`
}

// ParseResponse is the payload of EventParsed. Version echoes the request
// version when the parser supports it.
type ParseResponse struct {
	AST     *schema.SchemaAST   `json:"ast"`
	Errors  []schema.ParseError `json:"errors"`
	Version *int64              `json:"version,omitempty"`
}

// ErrorResponse is the payload of EventError.
type ErrorResponse struct {
	Message string `json:"message"`
	Version *int64 `json:"version,omitempty"`
}

// ASTUpdate is the payload of EventASTUpdate.
type ASTUpdate struct {
	AST     *schema.SchemaAST `json:"ast"`
	Version int64             `json:"version,omitempty"`
}

// ASTUpdated is the payload of EventASTUpdated.
type ASTUpdated struct {
	AST      *schema.SchemaAST   `json:"ast"`
	DBMLText string              `json:"dbmlText"`
	Errors   []schema.ParseError `json:"errors"`
	Version  *int64              `json:"version,omitempty"`
}

// registry tracks handlers per event. Shared by the transports.
type registry struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler
	order    map[string][]int
}

func newRegistry() *registry {
	return &registry{
		handlers: make(map[string]map[int]Handler),
		order:    make(map[string][]int),
	}
}

func (r *registry) add(event string, h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	if r.handlers[event] == nil {
		r.handlers[event] = make(map[int]Handler)
	}
	r.handlers[event][id] = h
	r.order[event] = append(r.order[event], id)

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(event, id) })
	}
}

func (r *registry) remove(event string, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.handlers[event], id)
	ids := r.order[event]
	for i, v := range ids {
		if v == id {
			r.order[event] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}

// snapshot returns the handlers for event in subscription order.
func (r *registry) snapshot(event string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.order[event]
	out := make([]Handler, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.handlers[event][id])
	}
	return out
}

func (r *registry) dispatch(event string, payload json.RawMessage) {
	for _, h := range r.snapshot(event) {
		h(payload)
	}
}

func encode(payload any) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(payload)
}
