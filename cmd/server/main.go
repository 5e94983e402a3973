package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/cairn/internal/app"
	"github.com/rpggio/cairn/internal/config"
	"github.com/rpggio/cairn/internal/domain/token"
	"github.com/rpggio/cairn/internal/sqlite"
	"github.com/rpggio/cairn/internal/telemetry"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio or HTTP per configuration)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd := &cobra.Command{
		Use:           "cairn",
		Short:         "Project and reproducibility reconciliation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (overrides CAIRN_CONFIG_PATH)")

	cmd.AddCommand(serve)
	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass and print the collection as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(apiKeyCmd(&configPath))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cairn version %s\n", version)
		},
	})

	return cmd
}

func apiKeyCmd(configPath *string) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage bearer tokens for HTTP mode",
	}
	create := &cobra.Command{
		Use:   "create <wallet>",
		Short: "Issue a bearer token for a wallet and print it",
		Args: cobra.MatchAll(cobra.ExactArgs(1), func(cmd *cobra.Command, args []string) error {
			if !token.IsAddress(args[0]) {
				return fmt.Errorf("invalid wallet address %q", args[0])
			}
			return nil
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			key, err := newToken()
			if err != nil {
				return err
			}
			if err := sqlite.NewAPIKeyRepository(db).Create(cmd.Context(), key, args[0], description); err != nil {
				return fmt.Errorf("create api key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "Note stored with the key")
	cmd.AddCommand(create)
	return cmd
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		if err := os.Setenv("CAIRN_CONFIG_PATH", path); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

func openDB(cfg config.Config) (*sqlite.DB, error) {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func newLogger(cfg config.Config, stdout io.Writer) (*slog.Logger, func()) {
	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := stdout
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	closeFn := func() {}
	if logPath := os.Getenv("CAIRN_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			closeFn = func() { _ = file.Close() }
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return logger, closeFn
}

func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(cfg, os.Stdout)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	db, err := openDB(cfg)
	if err != nil {
		logger.Error("failed to prepare database", "error", err)
		return err
	}
	defer db.Close()

	a := app.New(cfg, db, app.Options{Version: version, Logger: logger})

	if cfg.Transport.Mode == "stdio" {
		return runStdioMode(ctx, logger, a.MCP)
	}
	return runHTTPMode(ctx, logger, a.Handler(), cfg.Server.Host, cfg.Server.Port)
}

func runReconcile(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(cfg, os.Stderr)
	defer closeLog()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	a := app.New(cfg, db, app.Options{Version: version, Logger: logger})
	report := a.Driver.Run(ctx)
	if report.Err != nil {
		return fmt.Errorf("reconciliation pass %d: %w", report.Pass, report.Err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Report   any `json:"report"`
		Projects any `json:"projects"`
	}{Report: report, Projects: a.Store.Projects()})
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		return err
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, handler http.Handler, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}
	return waitForShutdown(logger, httpServer)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return "cairn_" + hex.EncodeToString(buf), nil
}
