package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rustyeddy/tradeflow/message"
)

// ReportingAgent consumes performance updates at the end of the
// pipeline. It keeps them in memory for inspection; the durable
// record is the coordinator's journal.
type ReportingAgent struct {
	name   string
	logger *slog.Logger

	mu      sync.Mutex
	updates []message.PerformanceUpdate
}

// NewReportingAgent creates the reporting stage adapter.
func NewReportingAgent(name string, logger *slog.Logger) *ReportingAgent {
	if name == "" {
		name = "reporting"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportingAgent{name: name, logger: logger}
}

// Identity declares the reporting stage's capabilities.
func (a *ReportingAgent) Identity() message.AgentIdentity {
	return message.AgentIdentity{
		Name:     a.name,
		Produces: message.NewKindSet(),
		Consumes: message.NewKindSet(message.KindPerformanceUpdate),
	}
}

// Handle records one performance update.
func (a *ReportingAgent) Handle(ctx context.Context, msg message.Message) ([]message.Message, error) {
	update, ok := msg.Payload.(message.PerformanceUpdate)
	if !ok {
		return nil, fmt.Errorf("reporting %s: unexpected payload for %s", a.name, msg.ID)
	}

	a.mu.Lock()
	a.updates = append(a.updates, update)
	a.mu.Unlock()

	a.logger.Info("performance update",
		slog.String("correlation_id", msg.CorrelationID),
		slog.String("instrument", update.Instrument),
		slog.String("outcome", update.Outcome),
		slog.String("notional", update.Notional.String()))
	return nil, nil
}

// Updates returns a copy of every recorded update, oldest first.
func (a *ReportingAgent) Updates() []message.PerformanceUpdate {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]message.PerformanceUpdate, len(a.updates))
	copy(out, a.updates)
	return out
}
