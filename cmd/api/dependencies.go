package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/smart-finance-import/internal/clients"
	"github.com/FACorreiaa/smart-finance-import/internal/domain/categorization"
	importhandler "github.com/FACorreiaa/smart-finance-import/internal/domain/import/handler"
	importrepo "github.com/FACorreiaa/smart-finance-import/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/smart-finance-import/internal/domain/import/service"
	"github.com/FACorreiaa/smart-finance-import/pkg/config"
	"github.com/FACorreiaa/smart-finance-import/pkg/cron"
	"github.com/FACorreiaa/smart-finance-import/pkg/db"
	"github.com/FACorreiaa/smart-finance-import/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB // nil when the database is disabled
	Logger *slog.Logger

	// Repositories
	ImportRepo *importrepo.PostgresImportRepository

	// Services
	CategorizationService *categorization.Service
	ImportService         *importservice.ImportService
	Archive               storage.Archive
	Scheduler             *cron.Scheduler

	// Handlers
	ImportHandler *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	deps.initRepositories()

	// Initialize services
	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase connects and runs migrations when the database is enabled
func (d *Dependencies) initDatabase() error {
	if !d.Config.Database.Enabled {
		d.Logger.Info("database disabled, reference lookups and persistence are off")
		return nil
	}

	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	if d.DB == nil {
		return
	}
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	classifier, err := clients.NewClassificationService(ctx, d.Config.AI, d.Logger)
	if err != nil {
		return err
	}
	d.CategorizationService = classifier

	d.ImportService = importservice.NewImportService(classifier, importservice.Config{
		ReviewThreshold: d.Config.Import.ReviewThreshold,
		RequireAI:       d.Config.AI.Required,
	}, d.Logger)
	if d.ImportRepo != nil {
		d.ImportService.WithRepository(d.ImportRepo)
	}

	if d.Config.Storage.ArchiveUploads {
		archive, err := storage.New(&storage.Config{LocalPath: d.Config.Storage.LocalPath})
		if err != nil {
			return fmt.Errorf("failed to init upload archive: %w", err)
		}
		d.Archive = archive
		d.ImportService.WithArchive(archive)
		d.Scheduler = cron.NewScheduler(archive, d.Config.Storage.Retention, d.Config.Storage.PruneSchedule, d.Logger)
	}

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Config.Server.MaxUploadBytes, d.Logger)
	if d.ImportRepo != nil {
		d.ImportHandler.WithRuns(d.ImportRepo)
	}
	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
