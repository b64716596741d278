// Package journal persists the orchestration audit trail: every
// delivery attempt, every dead-lettered message, and every terminal
// trade task. Backends: SQLite, CSV, and a no-op for callers that
// opt out of persistence.
package journal

import "time"

// MessageRecord is one delivery attempt and its outcome.
type MessageRecord struct {
	MessageID     string
	CorrelationID string
	Kind          string
	Sender        string
	Recipient     string
	Attempt       int
	Outcome       string
	Detail        string
	Time          time.Time
}

// Delivery outcomes recorded per attempt.
const (
	OutcomeDelivered    = "delivered"
	OutcomeRetry        = "retry"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeHandlerError = "handler_error"
)

// DeadLetterRecord is a message set aside after retry exhaustion.
type DeadLetterRecord struct {
	MessageID     string
	CorrelationID string
	Kind          string
	Sender        string
	Recipient     string
	Attempts      int
	Reason        string
	Time          time.Time
}

// TaskRecord is the terminal outcome of one trade task.
type TaskRecord struct {
	CorrelationID string
	Instrument    string
	State         string
	Reason        string
	FilledSize    string
	AvgPrice      string
	CreatedAt     time.Time
	ClosedAt      time.Time
}

// Journal records orchestration events. Implementations must be safe
// for concurrent use; the router writes from delivery goroutines.
type Journal interface {
	RecordMessage(MessageRecord) error
	RecordDeadLetter(DeadLetterRecord) error
	RecordTask(TaskRecord) error
	Close() error
}

// Nop is a Journal that discards everything.
type Nop struct{}

func (Nop) RecordMessage(MessageRecord) error       { return nil }
func (Nop) RecordDeadLetter(DeadLetterRecord) error { return nil }
func (Nop) RecordTask(TaskRecord) error             { return nil }
func (Nop) Close() error                            { return nil }
