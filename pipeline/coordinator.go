// Package pipeline wires the canonical stage sequence: a validated
// signal becomes a trade task, flows through risk evaluation and
// execution, and ends in reporting. The coordinator enforces
// at-most-one in-flight task per instrument and treats sentiment as
// enrichment for future signals only.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/tradeflow/agent"
	"github.com/rustyeddy/tradeflow/feed"
	"github.com/rustyeddy/tradeflow/journal"
	"github.com/rustyeddy/tradeflow/message"
	"github.com/rustyeddy/tradeflow/pkg/id"
	"github.com/rustyeddy/tradeflow/portfolio"
	"github.com/rustyeddy/tradeflow/router"
	"github.com/rustyeddy/tradeflow/task"
)

// Name is the coordinator's agent name on the router.
const Name = "coordinator"

// Default stage agent names.
const (
	RiskAgentName      = "risk"
	ExecutionAgentName = "execution"
	ReportingAgentName = "reporting"
	NewsAgentName      = "news"
)

var (
	// ErrDuplicateInFlight rejects a signal for an instrument that
	// already has a non-terminal task. Overlapping signals are refused
	// rather than queued so two tasks can never race on one
	// instrument's position.
	ErrDuplicateInFlight = errors.New("task already in flight for instrument")

	// ErrMalformedSignal rejects structurally invalid signals.
	ErrMalformedSignal = errors.New("malformed signal")
)

// Config names the stage agents and sets sentiment freshness.
type Config struct {
	RiskAgent      string
	ExecutionAgent string
	ReportingAgent string

	// SentimentFreshness is how long a sentiment score may enrich new
	// signals for its instrument. Zero keeps scores fresh forever.
	SentimentFreshness time.Duration
}

func (c Config) withDefaults() Config {
	if c.RiskAgent == "" {
		c.RiskAgent = RiskAgentName
	}
	if c.ExecutionAgent == "" {
		c.ExecutionAgent = ExecutionAgentName
	}
	if c.ReportingAgent == "" {
		c.ReportingAgent = ReportingAgentName
	}
	return c
}

// Coordinator drives trade tasks through the pipeline.
type Coordinator struct {
	cfg      Config
	router   *router.Router
	tasks    *task.Manager
	store    *portfolio.Store
	registry *agent.Registry
	feed     *feed.Feed
	jnl      journal.Journal
	logger   *slog.Logger

	// mu guards the duplicate-in-flight check-and-create so two
	// concurrent signals for one instrument cannot both pass.
	mu         sync.Mutex
	sentiments map[string]message.SentimentScore

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New wires a coordinator. The task manager's notifier is replaced:
// the coordinator fans changes out to the feed, journals terminal
// outcomes, and releases router reply handles when a task dies early.
func New(cfg Config, r *router.Router, tasks *task.Manager, store *portfolio.Store,
	registry *agent.Registry, f *feed.Feed, jnl journal.Journal, logger *slog.Logger) (*Coordinator, error) {

	if r == nil || tasks == nil || store == nil {
		return nil, fmt.Errorf("pipeline: router, task manager, and portfolio store are required")
	}
	if registry == nil {
		registry = agent.NewRegistry()
	}
	if f == nil {
		f = feed.New()
	}
	if jnl == nil {
		jnl = journal.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:        cfg.withDefaults(),
		router:     r,
		tasks:      tasks,
		store:      store,
		registry:   registry,
		feed:       f,
		jnl:        jnl,
		logger:     logger,
		sentiments: make(map[string]message.SentimentScore),
		ctx:        ctx,
		cancel:     cancel,
	}

	tasks.SetNotifier(c)

	identity := message.AgentIdentity{
		Name: Name,
		Produces: message.NewKindSet(
			message.KindSignal,
			message.KindExecutionOrder,
			message.KindPerformanceUpdate,
		),
		Consumes: message.NewKindSet(
			message.KindRiskDecision,
			message.KindExecutionReport,
			message.KindSentimentScore,
		),
	}
	if err := registry.Register(identity); err != nil {
		cancel()
		return nil, err
	}
	if err := r.Subscribe(identity, c.handle); err != nil {
		cancel()
		return nil, err
	}
	r.OnDeliveryError(Name, c.onDeliveryError)
	return c, nil
}

// onDeliveryError reacts to a coordinator message that exhausted its
// retries. A stage that cannot be reached fails the task immediately
// rather than leaving it for the TTL sweeper; a lost performance
// update is only logged, the fill already happened.
func (c *Coordinator) onDeliveryError(de router.DeliveryError) {
	switch de.Message.Kind {
	case message.KindSignal, message.KindExecutionOrder:
	default:
		c.logger.Warn("message dead-lettered",
			slog.String("kind", de.Message.Kind.String()),
			slog.String("recipient", de.Recipient),
			slog.String("correlation_id", de.Message.CorrelationID))
		return
	}

	reason := fmt.Sprintf("delivery to %s failed after %d attempts", de.Recipient, de.Attempts)
	if _, err := c.tasks.Cancel(de.Message.CorrelationID, reason); err != nil {
		c.logger.Error("task not canceled after delivery failure",
			slog.String("correlation_id", de.Message.CorrelationID),
			slog.String("error", err.Error()))
	}
}

// Attach registers an agent adapter with the registry and subscribes
// it to the router; messages the adapter returns are sent onward.
// Attaching the same name again replaces its identity and handler.
func (c *Coordinator) Attach(a agent.Adapter) error {
	identity := a.Identity()
	if err := c.registry.Register(identity); err != nil {
		return err
	}
	return c.router.Subscribe(identity, func(ctx context.Context, msg message.Message) error {
		out, err := a.Handle(ctx, msg)
		for _, reply := range out {
			if sendErr := c.router.Send(reply); sendErr != nil {
				c.logger.Error("agent reply not sent",
					slog.String("agent", identity.Name),
					slog.String("error", sendErr.Error()))
			}
		}
		return err
	})
}

// Registry exposes the agent registry for discovery.
func (c *Coordinator) Registry() *agent.Registry { return c.registry }

// Feed exposes the dashboard fan-out stream.
func (c *Coordinator) Feed() *feed.Feed { return c.feed }

// SubmitSignal validates an inbound signal, enforces the in-flight
// guard, creates the trade task, and starts driving it through the
// stages. It returns the task's correlation ID; progress is
// observable via Task, the feed, or the journal.
func (c *Coordinator) SubmitSignal(sig message.Signal) (string, error) {
	if err := sig.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedSignal, err)
	}

	c.mu.Lock()
	if active, ok := c.tasks.ActiveByInstrument(sig.Instrument); ok {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %s held by task %s",
			ErrDuplicateInFlight, sig.Instrument, active.CorrelationID)
	}

	sig.Sentiment = c.sentimentLocked(sig.Instrument)
	correlationID := id.New()
	t, err := c.tasks.Create(task.Task{
		CorrelationID: correlationID,
		Instrument:    sig.Instrument,
		Origin:        sig,
	})
	c.mu.Unlock()
	if err != nil {
		return "", err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runTask(t)
	}()
	return correlationID, nil
}

// Task returns a snapshot of a trade task.
func (c *Coordinator) Task(correlationID string) (task.Task, error) {
	return c.tasks.Get(correlationID)
}

// Cancel terminates a non-terminal task. Stages with in-flight work
// for the correlation observe the cancellation through their closed
// reply handles and the feed.
func (c *Coordinator) Cancel(correlationID, reason string) error {
	if reason == "" {
		reason = "canceled"
	}
	_, err := c.tasks.Cancel(correlationID, reason)
	return err
}

// Close stops the coordinator and waits for running task chains.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

// TaskChanged implements task.Notifier: every transition goes to the
// dashboard feed; terminal transitions release any pending reply
// handles and are written to the journal as the task's final record.
func (c *Coordinator) TaskChanged(t task.Task) {
	c.feed.TaskChanged(t)

	if !t.State.Terminal() {
		return
	}
	c.router.CancelPending(t.CorrelationID)

	rec := journal.TaskRecord{
		CorrelationID: t.CorrelationID,
		Instrument:    t.Instrument,
		State:         t.State.String(),
		Reason:        t.Reason,
		CreatedAt:     t.CreatedAt,
		ClosedAt:      t.UpdatedAt,
	}
	if t.ExecutionResult != nil {
		rec.FilledSize = t.ExecutionResult.FilledSize.String()
		rec.AvgPrice = t.ExecutionResult.AvgPrice.String()
	}
	if err := c.jnl.RecordTask(rec); err != nil {
		c.logger.Error("journal write failed",
			slog.String("correlation_id", t.CorrelationID),
			slog.String("error", err.Error()))
	}
}
