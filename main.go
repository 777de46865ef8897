package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmllt/dtnboard/internal/config"
	"github.com/gmllt/dtnboard/internal/export"
	"github.com/gmllt/dtnboard/internal/metrics"
	"github.com/gmllt/dtnboard/internal/persist"
	"github.com/gmllt/dtnboard/internal/render"
	"github.com/gmllt/dtnboard/internal/server"
	"github.com/gmllt/dtnboard/internal/session"
	"github.com/gmllt/dtnboard/internal/store"
)

const (
	Version = "0.2.0"
	appName = "dtnboard"
)

//go:embed static
var staticFS embed.FS

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:          appName,
		Short:        "Single-user task board",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(configPath, logLevel)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	})

	var output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored board as Markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(configPath, logLevel)
			if err != nil {
				return err
			}
			return exportBoard(cmd.Context(), cfg, logger, output)
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.AddCommand(exportCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func setup(configPath, logLevel string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*persist.Gateway, store.Store, error) {
	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init %s storage: %w", cfg.Storage.Backend, err)
	}
	gw := persist.New(st, cfg.Storage.Key,
		persist.WithLogger(logger),
		persist.WithMetrics(m),
		persist.WithTimeout(cfg.Storage.Timeout),
	)
	return gw, st, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	m := metrics.New()
	gw, st, err := openGateway(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer st.Close()

	engine, err := render.New(gw, render.WithLogger(logger), render.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	sess := session.Open(ctx, gw, engine, session.WithLogger(logger), session.WithMetrics(m))

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	srv := server.New(sess, engine,
		server.WithLogger(logger),
		server.WithMetrics(m),
		server.WithStatic(static),
	)

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Board server starting", slog.String("addr", cfg.Listen), slog.String("storage", cfg.Storage.Backend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func exportBoard(ctx context.Context, cfg *config.Config, logger *slog.Logger, output string) error {
	gw, st, err := openGateway(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	out, err := export.New().Markdown("DTN SmartOps", gw.Load(ctx))
	if err != nil {
		return err
	}
	if output == "" {
		_, err = os.Stdout.WriteString(out)
		return err
	}
	return os.WriteFile(output, []byte(out), 0o644)
}
