package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker defines the interface for background workers
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Manager owns the lifecycle of the background workers
type Manager struct {
	workers []Worker
	started []Worker
	logger  *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
}

// NewManager creates a new worker manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds a worker to be managed
func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	m.logger.Info("Worker registered",
		zap.String("worker_name", w.Name()),
		zap.Int("total_workers", len(m.workers)))
}

// StartAll starts every registered worker. If one fails, the workers already
// started are stopped again and the error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("workers already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.logger.Info("Starting workers", zap.Int("count", len(m.workers)))

	m.started = m.started[:0]
	for _, w := range m.workers {
		if err := w.Start(runCtx); err != nil {
			m.logger.Error("Failed to start worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			cancel()
			m.stopStarted()
			return fmt.Errorf("start %s: %w", w.Name(), err)
		}
		m.started = append(m.started, w)
		m.logger.Info("Worker started", zap.String("worker_name", w.Name()))
	}

	m.cancel = cancel
	m.isRunning = true
	return nil
}

// StopAll stops the running workers in reverse start order
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return nil
	}
	m.isRunning = false

	if m.cancel != nil {
		m.cancel()
	}

	if err := m.stopStarted(); err != nil {
		return err
	}
	m.logger.Info("All workers stopped")
	return nil
}

func (m *Manager) stopStarted() error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		w := m.started[i]
		if err := w.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", w.Name(), err))
			continue
		}
		m.logger.Info("Worker stopped", zap.String("worker_name", w.Name()))
	}
	m.started = m.started[:0]
	return errors.Join(errs...)
}

// Count returns the number of registered workers
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}

// IsRunning returns whether workers are running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isRunning
}
