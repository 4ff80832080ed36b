package syncer

import (
	"log"

	"github.com/mvp-joe/schema-sync/internal/schema"
	"github.com/mvp-joe/schema-sync/internal/storage"
)

const saveFailedMessage = "Failed to save diagram"

func (c *Coordinator) scheduleSave(payload storage.SyncPayload) {
	if c.pendingSave == nil {
		c.pendingSave = &storage.SyncPayload{}
	}
	c.pendingSave.Merge(payload)
	c.saver.Trigger()
}

// flushScheduled runs the scheduled save, if any.
func (c *Coordinator) flushScheduled() {
	if c.pendingSave == nil {
		return
	}
	c.saveNow(storage.SyncPayload{})
}

// saveNow sends payload, completed from the current state, to the backend.
// It supersedes any scheduled save.
func (c *Coordinator) saveNow(payload storage.SyncPayload) {
	if c.pendingSave != nil {
		merged := *c.pendingSave
		merged.Merge(payload)
		payload = merged
		c.pendingSave = nil
		c.saver.Cancel()
	}

	if c.backend == nil || c.diagramID == "" {
		return
	}

	full := c.fill(payload)
	if c.status == schema.StatusIdle {
		c.status = schema.StatusSaving
	}
	c.savesInFlight++

	ctx, id := c.ctx, c.diagramID
	c.saves.Add(1)
	go func() {
		defer c.saves.Done()
		_, err := c.backend.Sync(ctx, id, full)
		c.post(func() { c.saveDone(id, err) })
	}()
}

func (c *Coordinator) saveDone(id string, err error) {
	c.savesInFlight--
	if err != nil {
		log.Printf("Warning: failed to save diagram %s: %v", id, err)
		c.notify(saveFailedMessage)
	}
	if c.savesInFlight > 0 {
		return
	}
	if c.status == schema.StatusSaving {
		c.status = schema.StatusIdle
	}
	for _, waiter := range c.flushWaiters {
		close(waiter)
	}
	c.flushWaiters = nil
}

// fill copies unset payload fields from the current state.
func (c *Coordinator) fill(p storage.SyncPayload) storage.SyncPayload {
	if p.DBMLText == nil {
		text := c.text
		p.DBMLText = &text
	}
	if p.AST == nil {
		p.AST = c.ast.Clone()
	} else {
		p.AST = p.AST.Clone()
	}
	nodes, edges := c.editor.State().Clone()
	if p.Nodes == nil {
		p.Nodes = nodes
	}
	if p.Edges == nil {
		p.Edges = edges
	}
	if p.Errors == nil {
		p.Errors = append([]schema.ParseError{}, c.errors...)
	}
	if p.Status == nil {
		status := schema.StatusIdle
		if c.status == schema.StatusError {
			status = schema.StatusError
		}
		p.Status = &status
	}
	return p
}
