package postgres

import (
	"github.com/upb/tenant-control-plane/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates PostgreSQL-backed repositories
type RepositoryFactory struct {
	db      *DB
	auditDB *DB
	logger  *zap.Logger
}

// NewRepositoryFactory creates a new repository factory. If auditDB is nil,
// audit entries are written to the main database.
func NewRepositoryFactory(db *DB, auditDB *DB, logger *zap.Logger) *RepositoryFactory {
	if auditDB == nil {
		auditDB = db
	}
	return &RepositoryFactory{
		db:      db,
		auditDB: auditDB,
		logger:  logger,
	}
}

// CreateRepositories creates all repositories
func (f *RepositoryFactory) CreateRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Users:       NewUserRepository(f.db, f.logger),
		Businesses:  NewBusinessRepository(f.db, f.logger),
		Memberships: NewMembershipRepository(f.db, f.logger),
		AuditLogs:   NewAuditRepository(f.auditDB, f.logger),
		Documents:   NewDocumentStore(f.db, f.logger),
	}
}

// CreateTransactionManager creates a transaction manager bound to the main
// database
func (f *RepositoryFactory) CreateTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}
