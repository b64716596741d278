package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rustyeddy/tradeflow/message"
	"github.com/rustyeddy/tradeflow/portfolio"
	"github.com/rustyeddy/tradeflow/router"
	"github.com/rustyeddy/tradeflow/task"
)

// runTask drives one trade task through risk, execution, and
// reporting. Stage responses arrive through correlated reply handles;
// a stage that never answers leaves the task for the TTL sweeper.
func (c *Coordinator) runTask(t task.Task) {
	correlationID := t.CorrelationID

	if _, err := c.tasks.MarkRiskPending(correlationID); err != nil {
		return
	}

	sigMsg := message.New(message.KindSignal, Name, correlationID, t.Origin, c.cfg.RiskAgent)
	c.feed.MessageSeen(&t, sigMsg)

	resp, err := c.router.Request(c.ctx, sigMsg, message.KindRiskDecision)
	if err != nil {
		c.logRequestFailure(correlationID, "risk decision", err)
		return
	}
	decision, ok := resp.Payload.(message.RiskDecision)
	if !ok {
		c.logger.Error("unexpected risk decision payload",
			slog.String("correlation_id", correlationID),
			slog.String("message_id", resp.ID))
		return
	}

	t, err = c.tasks.ApplyRiskDecision(correlationID, decision)
	if err != nil {
		return
	}
	c.feed.MessageSeen(&t, resp)
	if !decision.Approved {
		// Terminal RiskRejected: an expected outcome, already
		// journaled through the notifier.
		return
	}

	if _, err := c.tasks.MarkExecutionPending(correlationID); err != nil {
		return
	}

	order := message.ExecutionOrder{
		Instrument: t.Instrument,
		Side:       t.Origin.Side,
		Size:       decision.ApprovedSize,
		OrderType:  "market",
	}
	orderMsg := message.New(message.KindExecutionOrder, Name, correlationID, order, c.cfg.ExecutionAgent)
	c.feed.MessageSeen(&t, orderMsg)

	resp, err = c.router.Request(c.ctx, orderMsg, message.KindExecutionReport)
	if err != nil {
		c.logRequestFailure(correlationID, "execution report", err)
		return
	}
	report, ok := resp.Payload.(message.ExecutionReport)
	if !ok {
		c.logger.Error("unexpected execution report payload",
			slog.String("correlation_id", correlationID),
			slog.String("message_id", resp.ID))
		return
	}

	if report.Filled {
		report = c.commitFill(correlationID, t, report)
	}

	t, err = c.tasks.ApplyExecutionReport(correlationID, report)
	if err != nil {
		return
	}
	c.feed.MessageSeen(&t, resp)
	if !report.Filled {
		return
	}

	update := message.PerformanceUpdate{
		Instrument: t.Instrument,
		Side:       t.Origin.Side,
		Filled:     true,
		FilledSize: report.FilledSize,
		AvgPrice:   report.AvgPrice,
		Notional:   report.FilledSize.Mul(report.AvgPrice),
		Outcome:    "filled",
	}
	updateMsg := message.New(message.KindPerformanceUpdate, Name, correlationID, update, c.cfg.ReportingAgent)
	if err := c.router.Send(updateMsg); err != nil {
		c.logger.Error("performance update not sent",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()))
	}
	c.feed.MessageSeen(&t, updateMsg)

	c.tasks.MarkReported(correlationID)
}

// commitFill applies the filled quantity to the portfolio. The commit
// can still fail when another instrument consumed shared budget since
// the risk check; the fill is then surfaced as an execution failure
// and the store stays unchanged.
func (c *Coordinator) commitFill(correlationID string, t task.Task, report message.ExecutionReport) message.ExecutionReport {
	qty := report.FilledSize
	if t.Origin.Side == message.SideSell {
		qty = qty.Neg()
	}

	_, err := c.store.ProposeMutation(correlationID, t.Instrument, portfolio.Delta{
		Quantity: qty,
		Price:    report.AvgPrice,
	})
	if err == nil {
		return report
	}

	var limitErr *portfolio.LimitExceededError
	if errors.As(err, &limitErr) {
		c.logger.Error("fill rejected by portfolio",
			slog.String("correlation_id", correlationID),
			slog.String("limit", limitErr.Limit))
	} else {
		c.logger.Error("fill commit failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()))
	}
	report.Filled = false
	report.Error = "position commit rejected: " + err.Error()
	return report
}

func (c *Coordinator) logRequestFailure(correlationID, stage string, err error) {
	switch {
	case errors.Is(err, router.ErrTimeout):
		// The task stays where it is; the TTL sweeper will
		// force-transition it to TimedOut.
		c.logger.Warn("stage response timed out",
			slog.String("correlation_id", correlationID),
			slog.String("stage", stage))
	case errors.Is(err, router.ErrCanceled), errors.Is(err, router.ErrClosed):
		c.logger.Info("stage request ended",
			slog.String("correlation_id", correlationID),
			slog.String("stage", stage),
			slog.String("cause", err.Error()))
	default:
		c.logger.Error("stage request failed",
			slog.String("correlation_id", correlationID),
			slog.String("stage", stage),
			slog.String("error", err.Error()))
	}
}

// handle consumes messages addressed to the coordinator that no reply
// handle claimed: sentiment enrichment, and stage responses that
// missed their request window.
func (c *Coordinator) handle(ctx context.Context, msg message.Message) error {
	switch msg.Kind {
	case message.KindSentimentScore:
		score, ok := msg.Payload.(message.SentimentScore)
		if !ok || score.Instrument == "" {
			c.logger.Error("malformed sentiment score", slog.String("message_id", msg.ID))
			return nil
		}
		c.mu.Lock()
		c.sentiments[score.Instrument] = score
		c.mu.Unlock()
		c.feed.MessageSeen(nil, msg)
		return nil

	case message.KindRiskDecision, message.KindExecutionReport:
		// A stage reply whose request window already closed. Applying
		// it here would skip the stage continuation (order dispatch,
		// fill commit, reporting) and record progress the portfolio
		// never saw, so the reply is dropped and the task is left for
		// the TTL sweeper.
		c.logger.Warn("late stage reply dropped",
			slog.String("kind", msg.Kind.String()),
			slog.String("correlation_id", msg.CorrelationID),
			slog.String("message_id", msg.ID))
		return nil
	}

	c.logger.Warn("unhandled message kind",
		slog.String("kind", msg.Kind.String()),
		slog.String("message_id", msg.ID))
	return nil
}

// sentimentLocked returns a copy of the instrument's sentiment score
// when one exists and is still fresh. Stale scores are dropped.
// Callers hold c.mu.
func (c *Coordinator) sentimentLocked(instrument string) *message.SentimentScore {
	score, ok := c.sentiments[instrument]
	if !ok {
		return nil
	}
	if c.cfg.SentimentFreshness > 0 && time.Since(score.ObservedAt) > c.cfg.SentimentFreshness {
		delete(c.sentiments, instrument)
		return nil
	}
	out := score
	return &out
}
