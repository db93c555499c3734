package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/justyntemme/folio/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the library API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bind == "" {
				bind = c.cfg.Bind
			}
			gin.SetMode(c.cfg.GinMode)

			return c.withApp(func(a *app) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return runServer(ctx, a, bind, c.cfg.DataDir)
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Bind address, e.g. :8080 (default from config)")
	return cmd
}

// runServer serves the API on bind until ctx is done. It returns only after
// the hash backfill has stopped, so the caller may close the database.
func runServer(ctx context.Context, a *app, bind, dataDir string) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		progress, err := a.library.BackfillHashes(ctx)
		if err != nil {
			log.Printf("Hash backfill failed: %v", err)
			return
		}
		if progress.Total > 0 {
			log.Printf("Hashed %d of %d books (%d failed)", progress.Processed, progress.Total, progress.Failed)
		}
	}()

	handler := api.NewHandler(a.db, a.files, a.library)
	srv := &http.Server{
		Addr:    bind,
		Handler: api.NewRouter(handler),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("folio server starting on %s", bind)
		log.Printf("Data directory: %s", dataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down, waiting up to %v", shutdownTimeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("Server exited")
	return nil
}
