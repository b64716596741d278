package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/tradeflow/message"
)

var (
	ErrUnknownTask       = errors.New("task not found")
	ErrDuplicateTask     = errors.New("task already exists for correlation id")
	ErrInvalidTransition = errors.New("invalid task state transition")
)

// Notifier receives best-effort task change events for the dashboard
// boundary. Implementations must not block; the Manager calls them
// outside its lock.
type Notifier interface {
	TaskChanged(t Task)
}

// Config sets the lifecycle timing knobs.
type Config struct {
	// TTL is how long a task may sit in a non-terminal state before
	// the sweeper force-transitions it to TimedOut.
	TTL time.Duration

	// SweepInterval is how often Run checks for expired tasks.
	SweepInterval time.Duration
}

// Manager tracks all trade tasks and is the only writer of their
// state. Invalid transitions are logged and leave the task untouched.
type Manager struct {
	mu    sync.Mutex
	tasks map[string]*Task

	cfg      Config
	logger   *slog.Logger
	notifier Notifier
}

// NewManager creates a manager. A nil logger falls back to
// slog.Default().
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tasks:  make(map[string]*Task),
		cfg:    cfg,
		logger: logger,
	}
}

// SetNotifier sets an optional listener for task changes. It is
// invoked after the lock is released so a slow consumer cannot stall
// a transition.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

func (m *Manager) notify(t Task) {
	if m.notifier != nil {
		m.notifier.TaskChanged(t)
	}
}

// Create registers a new task in Proposed state.
func (m *Manager) Create(t Task) (Task, error) {
	if t.CorrelationID == "" {
		return Task{}, fmt.Errorf("create task: missing correlation id")
	}
	if t.Instrument == "" {
		return Task{}, fmt.Errorf("create task %s: missing instrument", t.CorrelationID)
	}

	m.mu.Lock()
	if _, ok := m.tasks[t.CorrelationID]; ok {
		m.mu.Unlock()
		return Task{}, fmt.Errorf("create task %s: %w", t.CorrelationID, ErrDuplicateTask)
	}

	now := time.Now().UTC()
	t.State = StateProposed
	t.CreatedAt = now
	t.UpdatedAt = now
	stored := t
	m.tasks[t.CorrelationID] = &stored
	notifier := m.notifier
	m.mu.Unlock()

	m.logger.Info("task created",
		slog.String("correlation_id", t.CorrelationID),
		slog.String("instrument", t.Instrument))
	if notifier != nil {
		notifier.TaskChanged(t)
	}
	return t, nil
}

// transition moves a task from one of the allowed source states to
// next, applying mutate to the record first. It returns the updated
// snapshot, or ErrInvalidTransition leaving the task unchanged.
func (m *Manager) transition(correlationID string, next State, mutate func(*Task), from ...State) (Task, error) {
	m.mu.Lock()
	t, ok := m.tasks[correlationID]
	if !ok {
		m.mu.Unlock()
		return Task{}, fmt.Errorf("task %s: %w", correlationID, ErrUnknownTask)
	}

	allowed := false
	for _, s := range from {
		if t.State == s {
			allowed = true
			break
		}
	}
	if !allowed {
		current := t.State
		m.mu.Unlock()
		m.logger.Error("invalid task transition",
			slog.String("correlation_id", correlationID),
			slog.String("current", current.String()),
			slog.String("requested", next.String()))
		return Task{}, fmt.Errorf("task %s: %s -> %s: %w",
			correlationID, current, next, ErrInvalidTransition)
	}

	if mutate != nil {
		mutate(t)
	}
	t.State = next
	t.UpdatedAt = time.Now().UTC()
	snapshot := *t
	notifier := m.notifier
	m.mu.Unlock()

	m.logger.Info("task transition",
		slog.String("correlation_id", correlationID),
		slog.String("state", next.String()))
	if notifier != nil {
		notifier.TaskChanged(snapshot)
	}
	return snapshot, nil
}

// MarkRiskPending moves a freshly proposed task into risk evaluation.
func (m *Manager) MarkRiskPending(correlationID string) (Task, error) {
	return m.transition(correlationID, StateRiskPending, nil, StateProposed)
}

// ApplyRiskDecision records the risk verdict, moving the task to
// RiskApproved or the terminal RiskRejected.
func (m *Manager) ApplyRiskDecision(correlationID string, d message.RiskDecision) (Task, error) {
	next := StateRiskApproved
	if !d.Approved {
		next = StateRiskRejected
	}
	return m.transition(correlationID, next, func(t *Task) {
		decision := d
		t.RiskDecision = &decision
		if !d.Approved {
			t.Reason = d.Reason
		}
	}, StateRiskPending)
}

// MarkExecutionPending records that the order was forwarded to the
// execution stage.
func (m *Manager) MarkExecutionPending(correlationID string) (Task, error) {
	return m.transition(correlationID, StateExecutionPending, nil, StateRiskApproved)
}

// ApplyExecutionReport records the execution result, moving the task
// to Filled or the terminal ExecutionFailed.
func (m *Manager) ApplyExecutionReport(correlationID string, r message.ExecutionReport) (Task, error) {
	next := StateFilled
	if !r.Filled {
		next = StateExecutionFailed
	}
	return m.transition(correlationID, next, func(t *Task) {
		report := r
		t.ExecutionResult = &report
		if !r.Filled {
			t.Reason = r.Error
		}
	}, StateExecutionPending)
}

// MarkReported closes out a filled task once reporting has consumed
// its performance update.
func (m *Manager) MarkReported(correlationID string) (Task, error) {
	return m.transition(correlationID, StateReported, nil, StateFilled)
}

// Cancel force-terminates a non-terminal task. Terminal tasks cannot
// be canceled.
func (m *Manager) Cancel(correlationID, reason string) (Task, error) {
	return m.transition(correlationID, StateCanceled, func(t *Task) {
		t.Reason = reason
	}, StateProposed, StateRiskPending, StateRiskApproved, StateExecutionPending, StateFilled)
}

// Get returns a snapshot of a task.
func (m *Manager) Get(correlationID string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[correlationID]
	if !ok {
		return Task{}, fmt.Errorf("task %s: %w", correlationID, ErrUnknownTask)
	}
	return *t, nil
}

// ActiveByInstrument returns the non-terminal task for an instrument,
// if one exists. The coordinator uses this to enforce at-most-one
// in-flight task per instrument.
func (m *Manager) ActiveByInstrument(instrument string) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.Instrument == instrument && !t.State.Terminal() {
			return *t, true
		}
	}
	return Task{}, false
}

// All returns snapshots of every task, in no particular order.
func (m *Manager) All() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, *t)
	}
	return out
}

// SweepExpired force-transitions every non-terminal task older than
// the TTL to TimedOut and returns the expired snapshots. A zero TTL
// disables expiry.
func (m *Manager) SweepExpired(now time.Time) []Task {
	if m.cfg.TTL <= 0 {
		return nil
	}

	m.mu.Lock()
	var expired []Task
	for _, t := range m.tasks {
		if t.State.Terminal() {
			continue
		}
		if now.Sub(t.UpdatedAt) < m.cfg.TTL {
			continue
		}
		t.Reason = fmt.Sprintf("ttl %s exceeded in state %s", m.cfg.TTL, t.State)
		t.State = StateTimedOut
		t.UpdatedAt = now
		expired = append(expired, *t)
	}
	notifier := m.notifier
	m.mu.Unlock()

	for _, t := range expired {
		m.logger.Error("task timed out",
			slog.String("correlation_id", t.CorrelationID),
			slog.String("instrument", t.Instrument),
			slog.String("reason", t.Reason))
		if notifier != nil {
			notifier.TaskChanged(t)
		}
	}
	return expired
}

// Run sweeps for expired tasks until the context is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.SweepExpired(now.UTC())
		}
	}
}
