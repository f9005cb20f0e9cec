package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/domain/event"
	"github.com/garyjia/travel-approval/internal/domain/sla"
)

// DefaultSweepSchedule runs the SLA sweep every five minutes
const DefaultSweepSchedule = "@every 5m"

// AttentionSource lists open workflows that are due soon or breached
type AttentionSource interface {
	Attention(ctx context.Context, now time.Time) ([]*service.WorkflowSummary, error)
}

// SweepObserver receives the outcome of each sweep
type SweepObserver interface {
	ObserveSweep(took time.Duration, dueSoon, breached int)
}

// SweepResult summarises one SLA sweep
type SweepResult struct {
	DueSoon  int
	Breached int
	// Reported counts breaches seen for the first time in this sweep
	Reported int
}

// SLAMonitor periodically reports stages that are due soon or breached.
// It never changes workflow state.
type SLAMonitor struct {
	schedule   string
	source     AttentionSource
	observer   SweepObserver
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	cron *cron.Cron

	mu       sync.Mutex
	running  bool
	reported map[string]time.Time // workflow ID -> stage entry already reported
}

// SLAMonitorOption configures the monitor
type SLAMonitorOption func(*SLAMonitor)

// WithSweepObserver sets the sweep observer, usually the metrics recorder
func WithSweepObserver(o SweepObserver) SLAMonitorOption {
	return func(m *SLAMonitor) {
		m.observer = o
	}
}

// WithBreachDispatcher publishes an sla.breached event for each new breach
func WithBreachDispatcher(d dispatcher.Dispatcher) SLAMonitorOption {
	return func(m *SLAMonitor) {
		m.dispatcher = d
	}
}

// WithMonitorClock overrides the time source
func WithMonitorClock(now func() time.Time) SLAMonitorOption {
	return func(m *SLAMonitor) {
		m.now = now
	}
}

// NewSLAMonitor creates a monitor running on a cron schedule
func NewSLAMonitor(schedule string, source AttentionSource, logger *zap.Logger, opts ...SLAMonitorOption) *SLAMonitor {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	m := &SLAMonitor{
		schedule: schedule,
		source:   source,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		reported: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements Worker
func (m *SLAMonitor) Name() string {
	return "sla-monitor"
}

// Start schedules the sweep
func (m *SLAMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("sla monitor already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(m.schedule, func() {
		if _, err := m.Sweep(ctx); err != nil {
			m.logger.Error("SLA sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", m.schedule, err)
	}
	c.Start()

	m.cron = c
	m.running = true
	m.logger.Info("SLA monitor started", zap.String("schedule", m.schedule))
	return nil
}

// Stop waits for a running sweep to finish
func (m *SLAMonitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	c := m.cron
	m.mu.Unlock()

	<-c.Stop().Done()
	m.logger.Info("SLA monitor stopped")
	return nil
}

// Sweep evaluates every open workflow once
func (m *SLAMonitor) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	now := m.now()

	summaries, err := m.source.Attention(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list workflows needing attention: %w", err)
	}

	var result SweepResult
	var breached []*service.WorkflowSummary

	m.mu.Lock()
	seen := make(map[string]bool, len(summaries))
	for _, s := range summaries {
		seen[s.WorkflowID] = true
		switch s.SLA.Status {
		case sla.StatusDueSoon:
			result.DueSoon++
		case sla.StatusBreached:
			result.Breached++
			if entered, ok := m.reported[s.WorkflowID]; ok && entered.Equal(s.StageEnteredAt) {
				continue
			}
			m.reported[s.WorkflowID] = s.StageEnteredAt
			breached = append(breached, s)
		}
	}
	for id := range m.reported {
		if !seen[id] {
			delete(m.reported, id)
		}
	}
	m.mu.Unlock()

	result.Reported = len(breached)
	for _, s := range breached {
		m.logger.Warn("Workflow stage breached its SLA",
			zap.String("workflow_id", s.WorkflowID),
			zap.String("step", string(s.CurrentStep)),
			zap.String("approver_role", string(s.CurrentApproverRole)),
			zap.Time("due_date", s.SLA.DueDate),
			zap.Duration("overdue", -s.SLA.Remaining))
		m.publish(ctx, s)
	}

	if m.observer != nil {
		m.observer.ObserveSweep(time.Since(start), result.DueSoon, result.Breached)
	}

	m.logger.Debug("SLA sweep finished",
		zap.Int("due_soon", result.DueSoon),
		zap.Int("breached", result.Breached),
		zap.Int("reported", result.Reported))

	return result, nil
}

func (m *SLAMonitor) publish(ctx context.Context, s *service.WorkflowSummary) {
	if m.dispatcher == nil {
		return
	}
	evt := event.NewEvent(event.TypeSLABreached, s.WorkflowID, map[string]interface{}{
		event.KeyStep:    string(s.CurrentStep),
		event.KeyRole:    string(s.CurrentApproverRole),
		event.KeyType:    string(s.WorkflowType),
		event.KeyOverdue: (-s.SLA.Remaining).Seconds(),
	})
	if err := m.dispatcher.Dispatch(ctx, evt); err != nil {
		m.logger.Warn("SLA breach handler failed",
			zap.String("workflow_id", s.WorkflowID), zap.Error(err))
	}
}
