package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
	"go.uber.org/zap"
)

// Service persists audit entries asynchronously. Record never blocks the
// request path: entries are queued onto a buffered channel and written by
// background workers, and queue overflow drops the entry rather than stall
// the caller. Audit write failures never fail the audited request.
type Service struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	entryChan   chan *models.AuditEntry
	workerCount int
	bufferSize  int
	dropped     atomic.Int64
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// Config holds configuration for the audit Service
type Config struct {
	BufferSize  int // Size of the entry buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000,
		WorkerCount: 5,
	}
}

// NewService creates a new audit Service instance
func NewService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		auditRepo:   auditRepo,
		logger:      logger,
		entryChan:   make(chan *models.AuditEntry, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
		started:     false,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service.
// Waits for all pending entries to be written.
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_entries", len(s.entryChan)))

	// Close the entry channel (no more entries will be accepted)
	close(s.entryChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record queues an audit entry without blocking. When the buffer is full the
// entry is dropped and counted; the caller's request proceeds either way.
func (s *Service) Record(entry *models.AuditEntry) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.dropped.Add(1)
		s.logger.Warn("audit service not started, dropping entry",
			zap.String("outcome", string(entry.Outcome)))
		return
	}
	s.mu.Unlock()

	select {
	case s.entryChan <- entry:
	default:
		s.dropped.Add(1)
		s.logger.Warn("audit entry buffer full, dropping entry",
			zap.String("outcome", string(entry.Outcome)),
			zap.String("path", entry.Path))
	}
}

// RecordBlocking queues an audit entry, waiting until the entry is queued or
// the context is cancelled
func (s *Service) RecordBlocking(ctx context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	select {
	case s.entryChan <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

// worker writes entries from the channel
func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for entry := range s.entryChan {
		if err := s.writeEntry(entry); err != nil {
			s.logger.Error("failed to write audit entry",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("outcome", string(entry.Outcome)),
				zap.String("path", entry.Path))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// writeEntry persists a single audit entry
func (s *Service) writeEntry(entry *models.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:     s.bufferSize,
		PendingEntries: len(s.entryChan),
		WorkerCount:    s.workerCount,
		DroppedEntries: s.dropped.Load(),
		Started:        s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize     int
	PendingEntries int
	WorkerCount    int
	DroppedEntries int64
	Started        bool
}
