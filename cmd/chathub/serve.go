package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chathub/internal/app"
	"github.com/vovakirdan/chathub/internal/config"
	"github.com/vovakirdan/chathub/internal/log"
)

var (
	serveFlags config.Config
	noJournal  bool
)

// serveCmd runs the chat hub server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat hub server",
	Long:  "Start the HTTP server with the WebSocket endpoint, presence API and static files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig(cmd)
		if err != nil {
			return err
		}

		logger := log.New(cfg.LogLevel, cfg.LogFormat)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(&cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to initialize app")
			return err
		}

		if err := application.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("server exited with error")
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

// loadServeConfig layers command-line flags over file and environment values.
// Zero flag values mean "not set", except for --rate-limit where 0 disables
// the limit when given explicitly.
func loadServeConfig(cmd *cobra.Command) (config.Config, error) {
	bootstrap := log.New(firstNonEmpty(logLevel, "info"), firstNonEmpty(logFormat, "console"))

	cfg, path, err := config.Load(bootstrap, configFile)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}

	overrides := serveFlags
	overrides.LogLevel = logLevel
	overrides.LogFormat = logFormat
	cfg.UpdateFrom(overrides)
	if cmd.Flags().Changed("rate-limit") {
		cfg.MessageRateLimit = serveFlags.MessageRateLimit
	}
	if noJournal {
		cfg.JournalPath = ""
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveFlags.Addr, "addr", "", "HTTP listen address")
	serveCmd.Flags().DurationVar(&serveFlags.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	serveCmd.Flags().DurationVar(&serveFlags.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	serveCmd.Flags().StringVar(&serveFlags.StaticDir, "static-dir", "", "directory served as static files")
	serveCmd.Flags().IntVar(&serveFlags.EventCapacity, "event-capacity", 0, "per-subscriber event buffer")
	serveCmd.Flags().IntVar(&serveFlags.MessageRateLimit, "rate-limit", 0, "chat messages per session per minute (0 disables the limit)")
	serveCmd.Flags().IntVar(&serveFlags.WorkerLimit, "workers", 0, "concurrent compute jobs")
	serveCmd.Flags().StringVar(&serveFlags.JournalPath, "journal", "", "SQLite session journal path")
	serveCmd.Flags().BoolVar(&noJournal, "no-journal", false, "disable the session journal")
}
