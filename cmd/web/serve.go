package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kulhadcafe.in/site/internal/config"
	"kulhadcafe.in/site/internal/observability"
)

var serveFlags struct {
	addr    string
	envFile string
	dev     bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []config.Option{config.WithEnvFile(serveFlags.envFile)}
		if cmd.Flags().Changed("dev") {
			opts = append(opts, config.WithEnvMap(map[string]string{"KULHAD_WEB_DEV": fmt.Sprint(serveFlags.dev)}))
		}
		cfg, err := config.Load(opts...)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, err := observability.NewLogger(cfg.Site.LogLevel, cfg.Site.Dev)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
		logger = logger.Named("web")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}

		addr := serveFlags.addr
		if addr == "" {
			addr = cfg.Server.Addr()
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           a.router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
		}
		srv.RegisterOnShutdown(a.nav.Shutdown)
		return serve(ctx, srv, cfg.Server.ShutdownTimeout, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "HTTP listen address (default :$KULHAD_WEB_PORT, then :$PORT, then :8080)")
	serveCmd.Flags().StringVar(&serveFlags.envFile, "env-file", ".env", "dotenv file to read; empty to skip")
	serveCmd.Flags().BoolVar(&serveFlags.dev, "dev", false, "development mode: template reload, content watch, console logs")
	rootCmd.AddCommand(serveCmd)
}

// serve runs srv until ctx ends, then drains connections for up to grace.
func serve(ctx context.Context, srv *http.Server, grace time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("web listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("grace", grace))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
