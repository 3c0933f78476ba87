package main

import (
	"context"
	"fmt"
	"time"

	_ "github.com/nerrad567/gray-logic-remote/migrations"

	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/history"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-remote/internal/profile"
	"github.com/nerrad567/gray-logic-remote/internal/session"
	"github.com/nerrad567/gray-logic-remote/internal/statesync"
	"github.com/nerrad567/gray-logic-remote/internal/tab"
)

// stack is the storage and sync core shared by the service and the
// dashboard.
type stack struct {
	db        *database.DB
	profiles  *profile.SQLiteRepository
	selection *profile.SQLiteSelectionRepository
	tabs      *tab.SQLiteRepository
	selector  *session.Selector
	engine    *statesync.Engine
	history   *history.Service
	log       *logging.Logger
}

// openStack opens and migrates the database, seeds the bootstrap profile
// into an empty store, and builds the engine on top.
func openStack(ctx context.Context, cfg *config.Config, log *logging.Logger) (*stack, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		db.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	st := &stack{
		db:        db,
		profiles:  profile.NewSQLiteRepository(db.DB),
		selection: profile.NewSQLiteSelectionRepository(db.DB),
		tabs:      tab.NewSQLiteRepository(db.DB),
		log:       log,
	}

	if seedErr := seedBootstrap(ctx, st.profiles, cfg.Bootstrap, log); seedErr != nil {
		db.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("seeding bootstrap profile: %w", seedErr)
	}

	st.selector = session.NewSelector(st.profiles, gateway.Options{
		ConnectTimeout: time.Duration(cfg.Gateway.ConnectTimeout) * time.Second,
		RequestTimeout: time.Duration(cfg.Gateway.RequestTimeout) * time.Second,
	})
	st.selector.SetLogger(log.Component("session"))

	base, step := cfg.Sync.VerifyDelays()
	st.engine = statesync.New(statesync.SelectorConnector{Selector: st.selector}, st.tabs, statesync.Options{
		VerifyAttempts:  cfg.Sync.VerifyAttempts,
		VerifyBaseDelay: base,
		VerifyStep:      step,
	})
	st.engine.SetLogger(log.Component("statesync"))

	st.history = history.NewService(history.SelectorResolver{Selector: st.selector})
	return st, nil
}

// close stops the engine and closes the database.
func (s *stack) close() {
	s.engine.Close()
	s.log.Info("closing database")
	if err := s.db.Close(); err != nil {
		s.log.Error("error closing database", "error", err)
	}
}

// seedBootstrap creates the configured profile when the store is empty.
// An existing store is left alone so edits made through the API survive
// restarts.
func seedBootstrap(ctx context.Context, repo profile.Repository, bc config.BootstrapConfig, log *logging.Logger) error {
	if bc.Name == "" {
		return nil
	}
	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Debug("profiles present, bootstrap skipped", "count", n)
		return nil
	}

	p := &profile.Profile{
		Name:           bc.Name,
		InternalURL:    bc.InternalURL,
		ExternalURL:    bc.ExternalURL,
		Token:          bc.Token,
		PreferExternal: bc.PreferExternal,
		Active:         bc.Active,
	}
	if err := repo.Create(ctx, p); err != nil {
		return err
	}
	log.Info("bootstrap profile created",
		"profile", p.Name,
		"active", p.Active,
		"token", logging.Secret(p.Token),
	)
	return nil
}
