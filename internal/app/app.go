// Package app wires the record store, services and document collaborators.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"invoice-desk/internal/audit"
	"invoice-desk/internal/backup"
	"invoice-desk/internal/config"
	invapp "invoice-desk/internal/invoicing/application"
	invoicing "invoice-desk/internal/invoicing/domain"
	invmemory "invoice-desk/internal/invoicing/infrastructure/memory"
	invpostgres "invoice-desk/internal/invoicing/infrastructure/postgres"
	"invoice-desk/internal/invoicing/interfaces/archive"
	"invoice-desk/internal/invoicing/interfaces/einvoice"
	"invoice-desk/internal/invoicing/interfaces/pdf"
	mdapp "invoice-desk/internal/masterdata/application"
	masterdata "invoice-desk/internal/masterdata/domain"
	mdmemory "invoice-desk/internal/masterdata/infrastructure/memory"
	mdpostgres "invoice-desk/internal/masterdata/infrastructure/postgres"
	"invoice-desk/internal/observability/metrics"
	"invoice-desk/internal/storage"
)

// App holds the constructed services. It owns the database handle, if any.
type App struct {
	Config     *config.Config
	DB         *sql.DB
	Masterdata *mdapp.Service
	Numbers    *invapp.Allocator
	Invoices   *invapp.InvoiceService
	Backups    *backup.Service

	customers masterdata.CustomerRepository
	logger    zerolog.Logger
}

type repositories struct {
	suppliers masterdata.SupplierRepository
	customers masterdata.CustomerRepository
	articles  masterdata.ArticleRepository
	counters  invoicing.CounterStore
	invoices  invoicing.InvoiceRepository
	audit     audit.Logger
	backups   backup.Store
}

// Open connects to Postgres, optionally applies migrations and wires the services.
func Open(ctx context.Context, cfg *config.Config, migrate bool, logger zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	db, err := storage.Open(ctx, cfg.Database.URL, storage.Options{MaxOpenConns: cfg.Database.MaxOpenConns})
	if err != nil {
		return nil, err
	}
	if migrate {
		applied, err := storage.Migrate(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("app: migrate: %w", err)
		}
		if len(applied) > 0 {
			logger.Info().Strs("versions", applied).Msg("migrations applied")
		}
	}
	repos := repositories{
		suppliers: mdpostgres.NewSupplierRepository(db),
		customers: mdpostgres.NewCustomerRepository(db),
		articles:  mdpostgres.NewArticleRepository(db),
		counters:  invpostgres.NewCounterRepository(db),
		invoices:  invpostgres.NewInvoiceRepository(db),
		audit:     audit.NewRepository(db, actor()),
		backups:   backup.NewPostgresStore(db),
	}
	app, err := build(cfg, repos, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.DB = db
	return app, nil
}

// NewMemory wires the services over in-memory repositories.
func NewMemory(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	suppliers := mdmemory.NewSupplierRepository()
	customers := mdmemory.NewCustomerRepository()
	articles := mdmemory.NewArticleRepository()
	counters := invmemory.NewCounterRepository()
	invoices := invmemory.NewInvoiceRepository()
	return build(cfg, repositories{
		suppliers: suppliers,
		customers: customers,
		articles:  articles,
		counters:  counters,
		invoices:  invoices,
		audit:     &audit.Recorder{},
		backups:   backup.NewMemoryStore(suppliers, customers, articles, counters, invoices),
	}, logger)
}

func build(cfg *config.Config, repos repositories, logger zerolog.Logger) (*App, error) {
	md, err := mdapp.NewService(repos.suppliers, repos.customers, repos.articles,
		mdapp.WithLogger(logger.With().Str("component", "masterdata").Logger()))
	if err != nil {
		return nil, err
	}
	numbers, err := invapp.NewAllocator(repos.counters, repos.invoices,
		invapp.WithAllocatorAudit(repos.audit),
		invapp.WithAllocatorLogger(logger.With().Str("component", "numbering").Logger()))
	if err != nil {
		return nil, err
	}
	renderer, err := pdf.NewRenderer(cfg.Paths.DocumentsDir,
		pdf.WithLogger(logger.With().Str("component", "pdf").Logger()))
	if err != nil {
		return nil, err
	}
	embedder := einvoice.NewEmbedder(einvoice.WithLogger(logger.With().Str("component", "einvoice").Logger()))
	invoices, err := invapp.NewInvoiceService(repos.invoices, numbers, repos.suppliers, repos.customers,
		invapp.WithRenderer(renderer),
		invapp.WithEmbedder(embedder),
		invapp.WithAudit(repos.audit),
		invapp.WithLogger(logger.With().Str("component", "invoicing").Logger()),
	)
	if err != nil {
		return nil, err
	}
	backups, err := backup.NewService(repos.backups, cfg.Paths.BackupsDir,
		backup.WithKeep(cfg.Backup.Keep),
		backup.WithAudit(repos.audit),
		backup.WithLogger(logger.With().Str("component", "backup").Logger()),
	)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:     cfg,
		Masterdata: md,
		Numbers:    numbers,
		Invoices:   invoices,
		Backups:    backups,
		customers:  repos.customers,
		logger:     logger,
	}, nil
}

// ArchiveRows lists invoices for the archive export, newest first.
func (a *App) ArchiveRows(ctx context.Context, filter invoicing.SearchFilter) ([]archive.Row, error) {
	invoices, err := a.Invoices.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	customers, err := a.customers.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.DisplayName()
	}
	return archive.RowsFrom(invoices, func(id int64) string { return names[id] }), nil
}

// ExportArchive writes the filtered archive as XLSX to path and returns the row count.
func (a *App) ExportArchive(ctx context.Context, filter invoicing.SearchFilter, path string) (n int, err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveDocumentRender(metrics.KindXLSX, result, time.Since(start))
	}()

	rows, err := a.ArchiveRows(ctx, filter)
	if err != nil {
		return 0, err
	}
	body, err := archive.BuildArchiveXLSX(rows)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return 0, err
	}
	a.logger.Info().Str("path", path).Int("invoices", len(rows)).Msg("archive exported")
	return len(rows), nil
}

// Close runs the automatic backup when configured and releases the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Config.Backup.AutoOnExit {
		if path, _, err := a.Backups.Auto(ctx); err != nil {
			errs = append(errs, fmt.Errorf("auto backup: %w", err))
		} else {
			a.logger.Info().Str("path", path).Msg("automatic backup written")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func actor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "invoice-desk"
}
