package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridetally/ridetally/internal/api"
)

// ─── serve ──────────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from [api] in config.toml)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local HTTP dashboard",
	Long: `Serve the tracker as a JSON API on the local network, plus /metrics
when [metrics] enabled = true. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: withApp(runServe),
}

func runServe(cmd *cobra.Command, args []string, a *app) error {
	log.SetOutput(os.Stderr)

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Addr()
	}

	srv := api.NewServer(a.tracker)
	srv.EnableRequestLog()
	if a.cfg.Metrics.Enabled {
		srv.EnableMetrics()
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[api] listening on http://%s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("[api] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
