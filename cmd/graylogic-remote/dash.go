package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nerrad567/gray-logic-remote/internal/dashboard"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/logging"
)

// runDash runs the terminal dashboard against the local store. The
// terminal belongs to the UI, so logs go to a file next to the database.
func runDash(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logPath := dashLogPath(cfg)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening dashboard log: %w", err)
	}
	defer logFile.Close() //nolint:errcheck // Best effort on exit

	log := logging.NewWithWriter(logFile, cfg.Logging, version)
	log.Info("starting dashboard", "version", version)

	st, err := openStack(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	events, unsubscribe := st.engine.Subscribe()
	defer unsubscribe()

	p := tea.NewProgram(
		dashboard.New(ctx, st.engine, events),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}

// dashLogPath returns GRAYLOGIC_REMOTE_DASH_LOG when set, otherwise
// dashboard.log beside the database file.
func dashLogPath(cfg *config.Config) string {
	if path := os.Getenv("GRAYLOGIC_REMOTE_DASH_LOG"); path != "" {
		return path
	}
	return filepath.Join(filepath.Dir(cfg.Database.Path), "dashboard.log")
}
