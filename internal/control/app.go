// Package control wires configuration into running infrastructure and owns
// the service lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"

	"github.com/luisalpizar/crm-intake/internal/api"
	"github.com/luisalpizar/crm-intake/internal/catalog"
	"github.com/luisalpizar/crm-intake/internal/core/config"
	"github.com/luisalpizar/crm-intake/internal/infra/blob"
	"github.com/luisalpizar/crm-intake/internal/infra/notify"
	"github.com/luisalpizar/crm-intake/internal/infra/storage"
	"github.com/luisalpizar/crm-intake/internal/infra/storage/memory"
	"github.com/luisalpizar/crm-intake/internal/infra/storage/postgres"
	"github.com/luisalpizar/crm-intake/internal/infra/storage/sheets"
	"github.com/luisalpizar/crm-intake/internal/intake"
	"github.com/luisalpizar/crm-intake/internal/retry"
	"github.com/luisalpizar/crm-intake/internal/session"
)

// App is the assembled intake service.
type App struct {
	cfg       *config.AppConfig
	svc       *intake.Service
	apiServer *api.Server
	db        *postgres.DB
	sessions  session.Store
	log       *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(cfg *config.AppConfig) (*App, error) {
	log := slog.Default()

	// 1. Catalog (fail fast on malformed documents)
	cat, err := catalog.Load(cfg.Catalog.Paths, cfg.Catalog.ScheduleProfiles)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	log.Info("Catalog loaded", "areas", len(cat.Areas()), "schedules", len(cat.Schedules()))

	// 2. Record store
	var store storage.RecordStore
	var db *postgres.DB
	switch cfg.Storage.Backend {
	case "postgres":
		db, err = postgres.NewDB(context.Background(), cfg.Storage.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		store = postgres.NewRequestStore(db)
		log.Info("Using PostgreSQL record store")

	case "sheets":
		sheetStore, err := sheets.NewSheetStore(context.Background(), cfg.Storage.Sheets)
		if err != nil {
			return nil, fmt.Errorf("failed to init sheets store: %w", err)
		}
		if err := sheetStore.EnsureHeader(context.Background(), cfg.Intake.Table); err != nil {
			return nil, fmt.Errorf("failed to prepare sheet: %w", err)
		}
		store = sheetStore
		log.Info("Using Google Sheets record store", "spreadsheet", cfg.Storage.Sheets.SpreadsheetID)

	case "memory":
		store = memory.NewMemoryStore()
		log.Info("Using memory record store")

	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}

	// 3. Sessions
	var sessions session.Store
	if cfg.Session.URL != "" {
		sessions, err = session.NewRedisStore(cfg.Session)
		if err != nil {
			return nil, fmt.Errorf("failed to init session store: %w", err)
		}
		log.Info("Using Redis session store")
	} else {
		sessions = session.NewMemoryStore()
		log.Info("Using memory session store")
	}

	// 4. Attachments
	var blobs blob.Store
	switch cfg.Blob.Backend {
	case "drive":
		blobs, err = blob.NewDriveStore(context.Background(), cfg.Blob.Drive)
		if err != nil {
			return nil, fmt.Errorf("failed to init drive store: %w", err)
		}
	case "memory":
		blobs = blob.NewMemoryStore()
	case "", "off":
		// attachments disabled
	default:
		return nil, fmt.Errorf("unknown blob backend: %q", cfg.Blob.Backend)
	}

	// 5. Notifier
	var notifier notify.Notifier
	if cfg.Notify.Enabled {
		notifier = notify.NewSMTPNotifier(cfg.Notify.SMTP)
	}

	// 6. Service and HTTP surface
	exec := retry.New(retry.DefaultConfig, log)
	svc := intake.NewService(cfg.Intake, cat, store, blobs, notifier, exec, log)
	apiServer := api.NewServer(svc, sessions, cfg.Admin.Token, cfg.Server.Port, log)

	return &App{
		cfg:       cfg,
		svc:       svc,
		apiServer: apiServer,
		db:        db,
		sessions:  sessions,
		log:       log,
	}, nil
}

// Start launches the HTTP server.
func (a *App) Start(ctx context.Context) error {
	go func() {
		a.log.Info("HTTP server listening", "port", a.cfg.Server.Port)
		if err := a.apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts everything down gracefully.
func (a *App) Stop(ctx context.Context) error {
	if err := a.apiServer.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	if closer, ok := a.sessions.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.log.Warn("Failed to close session store", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
	return nil
}
