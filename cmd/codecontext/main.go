package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/codecontext/internal/config"
	"github.com/dshills/codecontext/internal/embedder"
	"github.com/dshills/codecontext/internal/index"
	"github.com/dshills/codecontext/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// globals set by persistent flags
var (
	configPath string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "codecontext",
		Short:         "Local code intelligence index for AI coding assistants",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(fmt.Sprintf("codecontext %s\nBuild Time: %s\nBuild Mode: %s\nSQLite Driver: %s\n",
		version, buildTime, storage.BuildMode, storage.DriverName))

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (TOML or YAML); defaults to $"+config.EnvConfigPath)
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(indexCmd())
	cmd.AddCommand(searchCmd())
	cmd.AddCommand(contextCmd())
	cmd.AddCommand(invalidateCmd())
	cmd.AddCommand(statusCmd())
	return cmd
}

// app is the wiring shared by every command
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	manager *index.Manager
}

// setup loads the configuration and builds the index manager. Logs go to
// stderr so stdout stays free for results and the MCP protocol.
func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	logger.Debug("embedder ready", "provider", emb.Provider(), "model", emb.Model(), "dimension", emb.Dimension())

	indexerCfg := cfg.IndexerConfig()
	indexerCfg.Logger = logger
	manager := index.NewManager(emb, index.Config{
		CacheDir:  cfg.CacheDir,
		Indexer:   indexerCfg,
		MaxTokens: cfg.Context.MaxTokens,
		Logger:    logger,
	})
	return &app{cfg: cfg, logger: logger, manager: manager}, nil
}

func (a *app) close() {
	if err := a.manager.Close(); err != nil {
		a.logger.Warn("closing embedder failed", "error", err)
	}
}

func parseLevel(level string) slog.Level {
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
