// Package application provides application-level services and dependency injection.
package application

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jsuresh/ttracker/internal/adapters/billing/freshbooks"
	"github.com/jsuresh/ttracker/internal/application/ports"
	appSync "github.com/jsuresh/ttracker/internal/application/sync"
	"github.com/jsuresh/ttracker/internal/application/tracker"
	"github.com/jsuresh/ttracker/internal/domain/errors"
	"github.com/jsuresh/ttracker/internal/infrastructure/config"
	"github.com/jsuresh/ttracker/internal/infrastructure/logging"
	"github.com/jsuresh/ttracker/internal/infrastructure/storage"
	"github.com/jsuresh/ttracker/internal/infrastructure/tracing"
)

// Container holds all application dependencies and provides a central
// point for dependency injection. It manages the lifecycle of services
// and ensures proper initialization order.
type Container struct {
	config  *config.Config
	verbose bool // Override log level to debug when true

	dbConn *storage.Connection
	db     *sql.DB

	entryRepo     ports.EntryStoragePort
	taskRepo      ports.TaskStoragePort
	projectRepo   ports.ProjectStoragePort
	tombstoneRepo ports.TombstoneStoragePort

	trackerManager *tracker.Manager
	syncEngine     *appSync.Engine
	billingClient  ports.BillingClientPort

	logger *logging.Logger
	tracer *tracing.Tracer
}

// NewContainer creates a new dependency injection container with all
// services initialized from the provided configuration.
func NewContainer(cfg *config.Config, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	c := &Container{
		config:  cfg,
		verbose: verbose,
	}

	if err := c.initObservability(); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	if err := c.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	c.initRepositories()
	c.initServices()

	return c, nil
}

// initDatabase opens the SQLite store and verifies its invariants.
func (c *Container) initDatabase() error {
	conn, err := storage.NewConnection(c.config.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to create store connection: %w", err)
	}

	if err := conn.Open(); err != nil {
		// A failed integrity check must reach the user verbatim; the
		// store is never auto-repaired.
		if errors.Is(err, errors.ErrStoreCorrupt) {
			return err
		}
		return fmt.Errorf("failed to open store: %w", err)
	}

	db, err := conn.DB()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to get store handle: %w", err)
	}

	c.dbConn = conn
	c.db = db
	return nil
}

// initRepositories initializes all storage repositories.
func (c *Container) initRepositories() {
	c.entryRepo = storage.NewEntryRepository(c.db)
	c.taskRepo = storage.NewTaskRepository(c.db)
	c.projectRepo = storage.NewProjectRepository(c.db)
	c.tombstoneRepo = storage.NewTombstoneRepository(c.db)
}

// initServices initializes the application managers and the billing client.
func (c *Container) initServices() {
	c.billingClient = freshbooks.NewClient(freshbooks.Config{
		BaseURL:    c.config.Billing.Endpoint(),
		APIKey:     c.config.Billing.APIKey,
		Timeout:    c.config.Billing.Timeout,
		MaxRetries: c.config.Billing.MaxRetries,
	})

	c.trackerManager = tracker.NewManager(c.entryRepo, c.taskRepo, c.projectRepo, c.logger)
	c.syncEngine = appSync.NewEngine(
		c.entryRepo, c.taskRepo, c.projectRepo, c.tombstoneRepo,
		c.billingClient, c.logger, c.tracer,
	)
}

// initObservability initializes logging and tracing.
func (c *Container) initObservability() error {
	logLevel := logging.Level(c.config.Logging.Level)
	if c.verbose {
		logLevel = logging.LevelDebug
	}

	logFormat := logging.FormatText
	if c.config.Logging.Format == "json" {
		logFormat = logging.FormatJSON
	}

	c.logger = logging.New(logging.Config{
		Level:  logLevel,
		Format: logFormat,
	})

	if c.config.Tracing.Enabled {
		tracer, err := tracing.New(context.Background(), tracing.Config{
			Enabled:      true,
			ExporterType: tracing.ExporterType(c.config.Tracing.ExporterType),
			OTLPEndpoint: c.config.Tracing.OTLPEndpoint,
			ServiceName:  c.config.Tracing.ServiceName,
			SampleRate:   c.config.Tracing.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("failed to create tracer: %w", err)
		}
		c.tracer = tracer
	} else {
		c.tracer = tracing.Default()
	}

	return nil
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	if c.tracer != nil {
		_ = c.tracer.Shutdown(context.Background())
	}

	if c.dbConn != nil {
		return c.dbConn.Close()
	}
	return nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// StorePath returns the path of the SQLite store file.
func (c *Container) StorePath() string {
	return c.dbConn.Path()
}

// EntryRepository returns the time entry repository.
func (c *Container) EntryRepository() ports.EntryStoragePort {
	return c.entryRepo
}

// TaskRepository returns the task repository.
func (c *Container) TaskRepository() ports.TaskStoragePort {
	return c.taskRepo
}

// ProjectRepository returns the project repository.
func (c *Container) ProjectRepository() ports.ProjectStoragePort {
	return c.projectRepo
}

// TrackerManager returns the entry state machine manager.
func (c *Container) TrackerManager() *tracker.Manager {
	return c.trackerManager
}

// SyncEngine returns the sync engine.
func (c *Container) SyncEngine() *appSync.Engine {
	return c.syncEngine
}

// BillingClient returns the remote billing client.
func (c *Container) BillingClient() ports.BillingClientPort {
	return c.billingClient
}

// Logger returns the structured logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Tracer returns the OpenTelemetry tracer.
func (c *Container) Tracer() *tracing.Tracer {
	return c.tracer
}
