package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
	"github.com/mvp-joe/schema-sync/internal/storage"
)

var (
	// ErrNameRequired is returned when a diagram is created without a name.
	ErrNameRequired = errors.New("name is required")

	// ErrASTRequired is returned when a validate request carries neither an
	// AST nor nodes.
	ErrASTRequired = errors.New("ast or nodes are required")
)

// ValidateRequest is the body of POST /api/core/validate. Either an AST or a
// diagram (nodes and edges) is validated; a diagram is reduced first so a
// client can check a pending edit.
type ValidateRequest struct {
	AST   *schema.SchemaAST `json:"ast"`
	Nodes []graph.Node      `json:"nodes"`
	Edges []graph.Edge      `json:"edges"`
}

// DefaultDiagram is the body of GET /api/core/diagrams/default.
type DefaultDiagram struct {
	DBMLText string            `json:"dbmlText"`
	AST      *schema.SchemaAST `json:"ast"`
}

func (s *Server) listDiagrams(c *gin.Context) {
	diagrams, err := s.store.List(c.Request.Context())
	if err != nil {
		log.Printf("Error: failed to list diagrams: %v", err)
		fail(c, statusFor(err), err)
		return
	}
	success(c, http.StatusOK, diagrams)
}

func (s *Server) createDiagram(c *gin.Context) {
	var in storage.NewDiagram
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		fail(c, http.StatusBadRequest, ErrNameRequired)
		return
	}

	d, err := s.store.Create(c.Request.Context(), in)
	if err != nil {
		log.Printf("Error: failed to create diagram: %v", err)
		fail(c, statusFor(err), err)
		return
	}
	success(c, http.StatusCreated, d)
}

func (s *Server) defaultDiagram(c *gin.Context) {
	success(c, http.StatusOK, DefaultDiagram{DBMLText: DefaultDBML, AST: DefaultAST()})
}

func (s *Server) getDiagram(c *gin.Context) {
	d, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	success(c, http.StatusOK, d)
}

func (s *Server) syncDiagram(c *gin.Context) {
	var payload storage.SyncPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if payload.Status != nil && !payload.Status.Valid() {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid status %q", *payload.Status))
		return
	}

	d, err := s.store.Sync(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("Error: failed to sync diagram %s: %v", c.Param("id"), err)
		}
		fail(c, statusFor(err), err)
		return
	}
	success(c, http.StatusOK, d)
}

func (s *Server) deleteDiagram(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	success(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

func (s *Server) validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	ast := req.AST
	if req.Nodes != nil {
		reduced, err := graph.Reduce(req.Nodes, req.Edges)
		if err != nil {
			fail(c, http.StatusUnprocessableEntity, err)
			return
		}
		ast = reduced
	}
	if ast == nil {
		fail(c, http.StatusBadRequest, ErrASTRequired)
		return
	}
	success(c, http.StatusOK, schema.Validate(ast))
}
