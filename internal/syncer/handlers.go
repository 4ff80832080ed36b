package syncer

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mvp-joe/schema-sync/internal/channel"
	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
	"github.com/mvp-joe/schema-sync/internal/storage"
)

// defaultParseErrorMessage is used when the parser reports an error without text.
const defaultParseErrorMessage = "Parsing error"

// versionTracker numbers outgoing requests so that only the response to the
// latest one is applied. Responses echoing a version are matched by it;
// responses without one are matched to outstanding requests in FIFO order.
type versionTracker struct {
	latest      int64
	outstanding []int64
}

func (v *versionTracker) next() int64 {
	v.latest++
	v.outstanding = append(v.outstanding, v.latest)
	return v.latest
}

// forget drops a request that was never delivered.
func (v *versionTracker) forget(version int64) {
	for i, o := range v.outstanding {
		if o == version {
			v.outstanding = append(v.outstanding[:i:i], v.outstanding[i+1:]...)
			return
		}
	}
}

// invalidate makes every outstanding request stale.
func (v *versionTracker) invalidate() {
	v.latest++
}

func (v *versionTracker) pending() bool {
	return len(v.outstanding) > 0
}

// accept consumes the request a response answers and reports its version and
// whether it is the latest request.
func (v *versionTracker) accept(echoed *int64) (int64, bool) {
	if echoed != nil {
		version := *echoed
		kept := v.outstanding[:0]
		for _, o := range v.outstanding {
			if o > version {
				kept = append(kept, o)
			}
		}
		v.outstanding = kept
		return version, version == v.latest
	}

	if len(v.outstanding) == 0 {
		return 0, false
	}
	version := v.outstanding[0]
	v.outstanding = v.outstanding[1:]
	return version, version == v.latest
}

func (c *Coordinator) parseText(text string) error {
	if ast, ok := c.cache.Get(text); ok {
		c.text = text
		c.parses.invalidate()
		c.applyParsed(text, ast)
		return nil
	}

	if !c.ch.Connected() {
		log.Printf("Warning: parser not connected, cannot parse")
		return channel.ErrNotConnected
	}

	version := c.parses.next()
	req := channel.ParseRequest{DBMLText: text, Version: version}
	if err := c.ch.Emit(c.ctx, channel.EventParse, req); err != nil {
		c.parses.forget(version)
		return fmt.Errorf("parse request: %w", err)
	}
	c.parseTexts[version] = text
	c.text = text
	c.status = schema.StatusParsing
	return nil
}

func (c *Coordinator) handleParsed(payload json.RawMessage) {
	var resp channel.ParseResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.Printf("Warning: malformed %s payload: %v", channel.EventParsed, err)
		return
	}

	version, latest := c.parses.accept(resp.Version)
	text := c.parseTexts[version]
	c.forgetTexts(version)
	if !latest {
		return
	}

	if len(resp.Errors) > 0 {
		c.errors = resp.Errors
		c.status = schema.StatusError
		return
	}

	ast := resp.AST
	if ast == nil {
		ast = &schema.SchemaAST{}
	}
	c.applyParsed(text, ast)
}

func (c *Coordinator) handleError(payload json.RawMessage) {
	var resp channel.ErrorResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.Printf("Warning: malformed %s payload: %v", channel.EventError, err)
		return
	}

	// An unversioned error with nothing outstanding is a transport failure
	// and is always shown.
	if resp.Version != nil || c.parses.pending() {
		version, latest := c.parses.accept(resp.Version)
		c.forgetTexts(version)
		if !latest {
			return
		}
	}

	message := resp.Message
	if message == "" {
		message = defaultParseErrorMessage
	}
	c.errors = []schema.ParseError{{Line: 0, Message: message, Type: schema.ParseErrorSyntax}}
	c.status = schema.StatusError
}

// applyParsed makes a successfully parsed AST the committed state. Existing
// node positions are kept.
func (c *Coordinator) applyParsed(text string, ast *schema.SchemaAST) {
	nodes, edges, err := graph.Project(ast, graph.PositionsOf(c.editor.State().Nodes))
	if err != nil {
		log.Printf("Error: parsed schema cannot be drawn: %v", err)
		c.errors = []schema.ParseError{{Line: 0, Message: err.Error(), Type: schema.ParseErrorValidation}}
		c.status = schema.StatusError
		return
	}

	c.ast = ast
	c.editor.State().Replace(nodes, edges)
	c.errors = []schema.ParseError{}
	c.status = schema.StatusIdle
	c.cache.Put(text, ast)

	c.saveNow(storage.SyncPayload{})
}

// commit receives every edit that passed validation. The graph is now the
// source of truth: outstanding parses are stale, the parser is asked to
// regenerate the text and the diagram is saved.
func (c *Coordinator) commit(ast *schema.SchemaAST) {
	c.ast = ast
	c.parses.invalidate()
	if c.status == schema.StatusParsing {
		c.status = schema.StatusIdle
	}

	if c.ch.Connected() {
		version := c.updates.next()
		if err := c.ch.Emit(c.ctx, channel.EventASTUpdate, channel.ASTUpdate{AST: ast, Version: version}); err != nil {
			c.updates.forget(version)
			log.Printf("Warning: failed to push edited schema to parser: %v", err)
		}
	} else {
		log.Printf("Warning: parser not connected, text view not updated")
	}

	c.saveNow(storage.SyncPayload{AST: ast})
}

func (c *Coordinator) handleASTUpdated(payload json.RawMessage) {
	var resp channel.ASTUpdated
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.Printf("Warning: malformed %s payload: %v", channel.EventASTUpdated, err)
		return
	}

	if _, latest := c.updates.accept(resp.Version); !latest {
		return
	}

	c.text = resp.DBMLText
	if len(resp.Errors) > 0 {
		c.errors = resp.Errors
		c.status = schema.StatusError
	} else {
		c.errors = []schema.ParseError{}
		c.cache.Put(resp.DBMLText, c.ast)
		// A save in flight returns to idle when it completes.
		if c.status == schema.StatusError {
			c.status = schema.StatusIdle
		}
	}

	text := resp.DBMLText
	if c.onText != nil {
		c.onText(text)
	}
	c.scheduleSave(storage.SyncPayload{DBMLText: &text})
}

// forgetTexts drops request texts up to and including version.
func (c *Coordinator) forgetTexts(version int64) {
	for v := range c.parseTexts {
		if v <= version {
			delete(c.parseTexts, v)
		}
	}
}
