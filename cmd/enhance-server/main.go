// Package main runs the image enhancement proxy as a standalone HTTP server,
// optionally serving a static frontend from the same origin.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/banana-enhance/internal/config"
	"github.com/fpang/banana-enhance/internal/enhance"
	"github.com/fpang/banana-enhance/internal/httpapi"
	"github.com/fpang/banana-enhance/internal/logging"
	"github.com/fpang/banana-enhance/internal/metrics"
)

// shutdownTimeout bounds graceful shutdown. In-flight enhancements can poll
// for minutes; they are cancelled when it expires.
const shutdownTimeout = 30 * time.Second

// CLI flags
var (
	portFlag      int
	staticDirFlag string
	demoFlag      bool
	originsFlag   []string
	metricsFlag   bool
	envFileFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "enhance-server",
	Short: "HTTP proxy for Nano Banana image enhancement",
	Long: `enhance-server exposes POST /api/enhance, forwarding each request to the
kie.ai task API and waiting for the enhanced image URL.

Configuration comes from the environment (KIE_API_KEY, KIE_BASE_URL,
ENHANCE_POLL_INTERVAL, ENHANCE_MAX_ATTEMPTS, DEMO_MODE, ALLOWED_ORIGINS),
optionally loaded from a .env file. Flags override the environment.

Examples:
  enhance-server
  enhance-server --port 8080 --static-dir ./public
  enhance-server --demo`,
	RunE: runServer,
}

func init() {
	defaultPort := 3000
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
		defaultPort = p
	}
	rootCmd.Flags().IntVarP(&portFlag, "port", "p", defaultPort, "Port to listen on (env PORT)")
	rootCmd.Flags().StringVar(&staticDirFlag, "static-dir", "", "Directory of static frontend files to serve at /")
	rootCmd.Flags().BoolVar(&demoFlag, "demo", false, "Force demo mode (no upstream calls)")
	rootCmd.Flags().StringSliceVar(&originsFlag, "allowed-origin", nil, "CORS origin to allow (repeatable; overrides ALLOWED_ORIGINS)")
	rootCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Print CloudWatch EMF metric lines to stdout")
	rootCmd.Flags().StringVar(&envFileFlag, "env-file", ".env", "Environment file to load if present")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	if err := config.LoadDotEnv(envFileFlag); err != nil {
		return err
	}
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if demoFlag {
		cfg.DemoMode = true
	}
	if len(originsFlag) > 0 {
		cfg.AllowedOrigins = originsFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !metricsFlag {
		metrics.SetOutput(io.Discard)
	}

	var client enhance.Enhancer
	if cfg.APIKey != "" {
		client = enhance.NewClient(cfg.APIKey, cfg.ClientOptions()...)
	}
	h := httpapi.NewHandler(client,
		httpapi.WithDemo(enhance.NewDemoEnhancer(), cfg.DemoMode, cfg.AllowDemoRequests))
	router := httpapi.NewRouter(h, httpapi.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      staticDirFlag,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", portFlag),
		Handler:           gzhttp.GzipHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Enhancements poll for up to maxAttempts x pollInterval.
		WriteTimeout: cfg.PollInterval*time.Duration(cfg.MaxAttempts) + enhance.DefaultSubmitTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	logging.NewStartupLogger("enhance-server").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("addr", srv.Addr).
		Config("baseUrl", cfg.BaseURL).
		Config("staticDir", staticDirFlag).
		Config("pollInterval", cfg.PollInterval.String()).
		Config("maxAttempts", strconv.Itoa(cfg.MaxAttempts)).
		Feature("demoMode", cfg.DemoMode).
		Feature("demoRequests", cfg.AllowDemoRequests).
		Feature("metrics", metricsFlag).
		InitDuration(time.Since(initStart)).
		Log()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Int("port", portFlag).Msg("Starting enhance server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
