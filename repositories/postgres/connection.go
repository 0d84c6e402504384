package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/tenant-control-plane/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Businesses table (tenants)
		CREATE TABLE IF NOT EXISTS businesses (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			plan VARCHAR(50) NOT NULL DEFAULT 'starter',
			status VARCHAR(50) NOT NULL DEFAULT 'active',
			subscription VARCHAR(50) NOT NULL DEFAULT 'active',
			suspension_reason TEXT,
			feature_flags JSONB NOT NULL DEFAULT '{}',
			usage_counters JSONB NOT NULL DEFAULT '{}',
			usage_limits JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Users table (directory records, identity owned by the IdP)
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			default_business_id UUID REFERENCES businesses(id) ON DELETE SET NULL,
			platform_role VARCHAR(50) NOT NULL DEFAULT 'normal',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Memberships table: one row per (business, user)
		CREATE TABLE IF NOT EXISTS memberships (
			business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			permissions JSONB NOT NULL DEFAULT '[]',
			employment_status VARCHAR(50) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (business_id, user_id)
		);

		-- Generic tenant-scoped document store.
		-- business_id is nullable only for legacy rows written before
		-- scoping was enforced.
		CREATE TABLE IF NOT EXISTS documents (
			collection VARCHAR(100) NOT NULL,
			id VARCHAR(255) NOT NULL,
			business_id UUID REFERENCES businesses(id) ON DELETE CASCADE,
			data JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_by UUID,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, id)
		);

		-- Audit entries table (append-only)
		CREATE TABLE IF NOT EXISTS audit_entries (
			id UUID PRIMARY KEY,
			subject UUID,
			business_id UUID,
			is_super_admin BOOLEAN NOT NULL DEFAULT false,
			method VARCHAR(10) NOT NULL,
			path TEXT NOT NULL,
			outcome VARCHAR(100) NOT NULL,
			status_code INTEGER,
			details JSONB,
			ip_address VARCHAR(45),
			user_agent TEXT,
			request_id VARCHAR(255),
			timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Indexes for performance
		CREATE INDEX IF NOT EXISTS idx_users_default_business_id ON users(default_business_id);
		CREATE INDEX IF NOT EXISTS idx_memberships_user_id ON memberships(user_id);
		CREATE INDEX IF NOT EXISTS idx_documents_business_id ON documents(business_id);
		CREATE INDEX IF NOT EXISTS idx_documents_business_collection ON documents(business_id, collection);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_business_id ON audit_entries(business_id);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_subject ON audit_entries(subject);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_outcome ON audit_entries(outcome);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_timestamp ON audit_entries(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_request_id ON audit_entries(request_id);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

// InitAuditSchema initializes the audit database schema (audit_entries only,
// no FK). Use for the separate audit database when DATABASE_URL_AUDIT is set.
func (db *DB) InitAuditSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id UUID PRIMARY KEY,
			subject UUID,
			business_id UUID,
			is_super_admin BOOLEAN NOT NULL DEFAULT false,
			method VARCHAR(10) NOT NULL,
			path TEXT NOT NULL,
			outcome VARCHAR(100) NOT NULL,
			status_code INTEGER,
			details JSONB,
			ip_address VARCHAR(45),
			user_agent TEXT,
			request_id VARCHAR(255),
			timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_business_id ON audit_entries(business_id);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_subject ON audit_entries(subject);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_outcome ON audit_entries(outcome);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_timestamp ON audit_entries(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_request_id ON audit_entries(request_id);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	db.logger.Info("audit schema initialized successfully")
	return nil
}
