// Package message defines the envelope and typed payloads exchanged
// between agents. Envelopes are immutable once sent; all messages that
// belong to one trade task share a correlation ID.
package message

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradeflow/pkg/id"
)

// Kind identifies the payload type carried by a message.
type Kind string

const (
	KindSignal            Kind = "signal"
	KindRiskDecision      Kind = "risk_decision"
	KindExecutionOrder    Kind = "execution_order"
	KindExecutionReport   Kind = "execution_report"
	KindPerformanceUpdate Kind = "performance_update"
	KindSentimentScore    Kind = "sentiment_score"
)

// Kinds lists every known message kind.
var Kinds = []Kind{
	KindSignal,
	KindRiskDecision,
	KindExecutionOrder,
	KindExecutionReport,
	KindPerformanceUpdate,
	KindSentimentScore,
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindSignal, KindRiskDecision, KindExecutionOrder,
		KindExecutionReport, KindPerformanceUpdate, KindSentimentScore:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Message is the envelope for one agent-to-agent communication.
type Message struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	Sender        string    `json:"sender"`
	Recipients    []string  `json:"recipients"`
	CorrelationID string    `json:"correlation_id"`
	Payload       any       `json:"payload"`
	Timestamp     time.Time `json:"timestamp"`
}

// New builds an addressed message with a fresh ID and timestamp.
// The correlation ID ties the message to one trade task; pass
// id.New() to start a new correlation chain.
func New(kind Kind, sender, correlationID string, payload any, recipients ...string) Message {
	return Message{
		ID:            id.New(),
		Kind:          kind,
		Sender:        sender,
		Recipients:    recipients,
		CorrelationID: correlationID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
	}
}

// Validate checks structural well-formedness of the envelope.
func (m Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("message: missing id")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("message %s: unknown kind %q", m.ID, m.Kind)
	}
	if m.Sender == "" {
		return fmt.Errorf("message %s: missing sender", m.ID)
	}
	if len(m.Recipients) == 0 {
		return fmt.Errorf("message %s: no recipients", m.ID)
	}
	if m.CorrelationID == "" {
		return fmt.Errorf("message %s: missing correlation id", m.ID)
	}
	return nil
}
