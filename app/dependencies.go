package app

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/tenant-control-plane/config"
	"github.com/upb/tenant-control-plane/handlers"
	"github.com/upb/tenant-control-plane/idp"
	"github.com/upb/tenant-control-plane/middleware"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/repositories/postgres"
	"github.com/upb/tenant-control-plane/services/audit"
	"github.com/upb/tenant-control-plane/services/authorize"
	"github.com/upb/tenant-control-plane/services/usage"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	AuditDB *postgres.DB
	Logger  *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users       repositories.UserRepository
	Businesses  repositories.BusinessRepository
	Memberships repositories.MembershipRepository
	AuditLogs   repositories.AuditRepository
	Documents   repositories.DocumentStore
	TxManager   repositories.TransactionManager

	// Services
	TokenValidator *idp.Validator
	Authorizer     *authorize.Service
	Usage          *usage.Service
	Audit          *audit.Service

	// Middleware
	AuthMiddleware  *middleware.AuthMiddleware
	AuditMiddleware *middleware.AuditMiddleware
	Guards          *middleware.Guards

	// Handlers
	DocumentHandler *handlers.DocumentHandler
	MeHandler       *handlers.MeHandler
	HealthHandler   *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initServices(cfg)
	deps.initHTTP()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the main connection pool, and the audit pool when a
// separate audit database is configured, then ensures schemas exist
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	d.DB = db

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.AuditDB = db
	if cfg.AuditDatabase != nil {
		auditDB, err := postgres.NewDB(*cfg.AuditDatabase, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to audit database: %w", err)
		}
		if err := auditDB.InitAuditSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize audit schema: %w", err)
		}
		d.AuditDB = auditDB
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	var auditDB *postgres.DB
	if d.AuditDB != d.DB {
		auditDB = d.AuditDB
	}
	d.RepoFactory = postgres.NewRepositoryFactory(d.DB, auditDB, d.Logger)

	repos := d.RepoFactory.CreateRepositories()
	d.Users = repos.Users
	d.Businesses = repos.Businesses
	d.Memberships = repos.Memberships
	d.AuditLogs = repos.AuditLogs
	d.Documents = repos.Documents
	d.TxManager = d.RepoFactory.CreateTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initServices wires the token validator, the authorization pipeline, the
// usage service, and the async audit pipeline
func (d *Dependencies) initServices(cfg *config.Config) {
	d.TokenValidator = idp.NewValidator(idp.Config{
		Issuer:      cfg.IdP.Issuer,
		Audience:    cfg.IdP.Audience,
		JWKSURL:     cfg.IdP.JWKSURL,
		CacheTTL:    cfg.IdP.CacheTTL,
		HTTPTimeout: cfg.IdP.HTTPTimeout,
	})

	d.Authorizer = authorize.NewService(
		d.TokenValidator,
		d.Users,
		d.Businesses,
		d.Memberships,
		d.Logger,
	)

	d.Usage = usage.NewService(d.Businesses, d.Logger)

	d.Audit = audit.NewService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
}

// initHTTP wires middleware and handlers
func (d *Dependencies) initHTTP() {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Authorizer, d.Documents, d.Logger)
	d.AuditMiddleware = middleware.NewAuditMiddleware(d.Audit, d.Logger)
	d.Guards = middleware.NewGuards(d.Authorizer, d.Usage, d.Logger)

	d.DocumentHandler = handlers.NewDocumentHandler(d.Usage, d.TxManager, d.Logger)
	d.MeHandler = handlers.NewMeHandler(d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, d.AuditDB, d.Logger)
}

// Start launches the background components
func (d *Dependencies) Start() error {
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}
	return nil
}

// Close gracefully shuts down all dependencies. The audit pipeline stops
// first so buffered entries drain before the connections close.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil {
		if err := d.Audit.Stop(10 * time.Second); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.AuditDB != nil && d.AuditDB != d.DB {
		if err := d.AuditDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit database: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
