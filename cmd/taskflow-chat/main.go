package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MegaGrindStone/taskflow-chat/internal/config"
	"github.com/MegaGrindStone/taskflow-chat/internal/services"
	"github.com/MegaGrindStone/taskflow-chat/internal/tui"
	"github.com/MegaGrindStone/taskflow-chat/internal/widget"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	apiURL     string
	logFile    string
	open       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:          "taskflow-chat",
		Short:        "Chat with the TaskFlow assistant from the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file path (default is <user config dir>/taskflow-chat/config.yaml)")
	flags.StringVar(&opts.apiURL, "api-url", "", "TaskFlow API base URL, overrides config and "+config.BaseURLEnv)
	flags.StringVar(&opts.logFile, "log-file", "", "log file path (default is <user config dir>/taskflow-chat/chat.log)")
	flags.BoolVar(&opts.open, "open", true, "start with the widget open")

	return cmd
}

func run(ctx context.Context, opts options) error {
	dir, err := config.Dir()
	if err != nil {
		return errors.Wrap(err, "failed to resolve config dir")
	}

	if opts.configPath == "" {
		opts.configPath = filepath.Join(dir, "config.yaml")
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if opts.apiURL != "" {
		cfg.OverrideBaseURL(opts.apiURL)
	}

	if opts.logFile == "" {
		opts.logFile = filepath.Join(dir, "chat.log")
	}
	logFile, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrap(err, "failed to open log file")
	}
	defer logFile.Close()

	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.Level()}))

	transport, err := cfg.Backend.Transport(logger)
	if err != nil {
		return errors.Wrap(err, "failed to create backend transport")
	}

	userID := sessionID(ctx, filepath.Join(dir, "identity.db"), logger)
	logger.Info("Starting terminal widget",
		slog.String("userID", userID),
		slog.String("baseURL", cfg.BaseURL()))

	w := widget.New(userID, transport, logger,
		widget.WithGreeting(cfg.Greeting),
		widget.WithOpen(opts.open))

	if _, err := tea.NewProgram(tui.New(ctx, w), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return errors.Wrap(err, "failed to run terminal widget")
	}
	return nil
}

// sessionID returns the identifier persisted for this installation, or the fallback one when the
// identity database is unavailable.
func sessionID(ctx context.Context, path string, logger *slog.Logger) string {
	db, err := services.NewBoltDB(path)
	if err != nil {
		logger.Warn("Identity store unavailable, using fallback session ID",
			slog.String("err", err.Error()))
		return services.FallbackSessionID
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close identity store", slog.String("err", err.Error()))
		}
	}()

	id, err := db.SessionID(ctx)
	if err != nil {
		logger.Warn("Failed to read session ID, using fallback",
			slog.String("err", err.Error()))
		return services.FallbackSessionID
	}
	return id
}
