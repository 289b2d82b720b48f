// Package backend selects the persistence layer for the binaries: PostgreSQL
// when DATABASE_URL is set, the in-memory store otherwise.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/TalentDesk/internal/config"
	"github.com/dharsanguruparan/TalentDesk/internal/database"
	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/jobs"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
	"github.com/dharsanguruparan/TalentDesk/internal/registry"
	"github.com/dharsanguruparan/TalentDesk/internal/repository"
	"github.com/dharsanguruparan/TalentDesk/internal/storage"
)

// JobStore is the full job persistence surface.
type JobStore interface {
	jobs.Store
	ListDanglingJobs(ctx context.Context) ([]model.Job, error)
}

// ApplicationStore is the full application persistence surface.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, a *model.Application) error
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	ListApplications(ctx context.Context, f model.ApplicationFilter) ([]model.Application, error)
	UpdateApplication(ctx context.Context, id string, status *model.ApplicationStatus, notes *string) (*model.Application, error)
	SetResumeText(ctx context.Context, id, text string) error
}

// Backend bundles the stores and the default form of a process.
type Backend struct {
	Templates    registry.TemplateStore
	Jobs         JobStore
	Applications ApplicationStore
	// Defaults is the fallback FieldConfig, loaded once and never modified.
	Defaults formconfig.FieldConfig
	// Pool is nil in memory mode.
	Pool *pgxpool.Pool
}

// Options control Open.
type Options struct {
	// Migrate applies pending migrations after connecting.
	Migrate bool
	Logger  *slog.Logger
}

// Open builds the Backend described by cfg.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaults, err := formconfig.LoadDefaults(cfg.FormDefaultsFile)
	if err != nil {
		return nil, fmt.Errorf("load form defaults: %w", err)
	}
	if cfg.FormDefaultsFile != "" {
		logger.Info("form defaults loaded", "path", cfg.FormDefaultsFile, "fields", len(defaults))
	}

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		mem := storage.NewMemoryStore()
		return &Backend{Templates: mem, Jobs: mem, Applications: mem, Defaults: defaults}, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if opts.Migrate {
		if err := database.MigrateUp(pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return &Backend{
		Templates:    repository.NewTemplateRepository(pool),
		Jobs:         repository.NewJobRepository(pool),
		Applications: repository.NewApplicationRepository(pool),
		Defaults:     defaults,
		Pool:         pool,
	}, nil
}

// Persistent reports whether the stores survive a restart.
func (b *Backend) Persistent() bool { return b.Pool != nil }

// Close releases the database pool, if any.
func (b *Backend) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}
