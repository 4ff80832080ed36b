package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/schema-sync/internal/api"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the diagram HTTP API",
	Long: `Serve exposes the diagrams stored in the configured SQL database
(storage.driver / storage.dsn) over HTTP:

  GET    /api/core/diagrams           list diagrams
  POST   /api/core/diagrams           create a diagram
  GET    /api/core/diagrams/default   the starter schema
  GET    /api/core/diagrams/:id       fetch a diagram
  PUT    /api/core/diagrams/:id       apply a partial update
  DELETE /api/core/diagrams/:id       delete a diagram
  POST   /api/core/validate           validate an AST or diagram

Other schemasync instances reach it with backend.kind: http.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default: server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default: server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws, cfg, err := openWorkspace()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	store, err := openSQLStore(ctx, ws, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	srv := api.NewServer(store, api.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		AccessLog:   cfg.Server.AccessLog,
	})
	httpServer := api.NewHTTPServer(api.ListenAddr(cfg.Server.Host, cfg.Server.Port), srv.Handler())

	return serveHTTP(ctx, httpServer)
}

// serveHTTP runs httpServer until ctx is done, then shuts it down gracefully.
func serveHTTP(ctx context.Context, httpServer *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
