// Package api serves diagrams over HTTP and provides a client for the same
// endpoints. The client satisfies the persistence boundary of the sync
// coordinator, so an editor session can save to a remote server.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mvp-joe/schema-sync/internal/storage"
)

// Options configures the HTTP server.
type Options struct {
	// CORSOrigins lists allowed origins. "*" allows any origin; empty disables CORS.
	CORSOrigins []string

	// AccessLog enables gin's request logger.
	AccessLog bool
}

// Server routes the diagram API to a store.
type Server struct {
	store  storage.Store
	engine *gin.Engine
}

// NewServer builds the router for store.
func NewServer(store storage.Store, opts Options) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	if opts.AccessLog {
		engine.Use(gin.Logger())
	}
	if len(opts.CORSOrigins) > 0 {
		engine.Use(cors.New(corsConfig(opts.CORSOrigins)))
	}

	s := &Server{store: store, engine: engine}
	s.registerRoutes()
	return s
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			config.AllowAllOrigins = true
			config.AllowCredentials = false
			return config
		}
	}
	config.AllowOrigins = origins
	return config
}

func (s *Server) registerRoutes() {
	core := s.engine.Group("/api/core")
	{
		diagrams := core.Group("/diagrams")
		diagrams.GET("", s.listDiagrams)
		diagrams.POST("", s.createDiagram)
		diagrams.GET("/default", s.defaultDiagram)
		diagrams.GET("/:id", s.getDiagram)
		diagrams.PUT("/:id", s.syncDiagram)
		diagrams.DELETE("/:id", s.deleteDiagram)

		core.POST("/validate", s.validate)
	}

	s.engine.GET("/healthz", func(c *gin.Context) {
		success(c, http.StatusOK, gin.H{"status": "ok"})
	})
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// NewHTTPServer wraps handler in an http.Server with production timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// ListenAddr renders host and port as a listen address.
func ListenAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
