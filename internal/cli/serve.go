package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/klibmirror/klibmirror/pkg/config"
)

// newServeCmd creates the serve command, a plain HTTP file server over the
// cache directory so other machines on the network can consume the mirror.
func newServeCmd() *cobra.Command {
	var configPath string
	var cacheDir string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mirror cache directory over HTTP",
		Long: `Serve exposes the artifact cache directory as a static HTTP file tree.
This is a convenience for sharing a warm mirror on a local network; it is
not meant for production hosting.

Examples:
  klibmirror serve
  klibmirror serve --addr :9000 --cache-dir ./cache`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, cacheDir, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "config file")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "cache directory to serve (overrides config)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}

func runServe(cmd *cobra.Command, configPath, cacheDir, addr string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	if cacheDir == "" {
		cfg, _, err := config.LoadOrInit(configPath)
		if err != nil {
			return err
		}
		cacheDir = cfg.CacheDir
	}
	if _, err := os.Stat(cacheDir); err != nil {
		return fmt.Errorf("cache directory %s: %w (run \"klibmirror mirror\" first)", cacheDir, err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Handle("/*", http.StripPrefix("/", http.FileServer(http.Dir(cacheDir))))

	server := &http.Server{Addr: addr, Handler: r}

	// Shut down cleanly when the command context is cancelled (SIGINT).
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Infof("Serving %s on %s", cacheDir, addr)
	printInfo("Press Ctrl+C to stop")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
