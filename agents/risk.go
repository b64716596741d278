package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeflow/message"
	"github.com/rustyeddy/tradeflow/portfolio"
)

// RiskAgent evaluates signals against the portfolio's limits and
// sizes the approved position. Decisions are derived from a limits
// snapshot taken atomically with the check, so a decision is never
// judged against state it did not see.
type RiskAgent struct {
	name   string
	store  *portfolio.Store
	prices PriceSource
	sizing Sizing
	logger *slog.Logger
}

// NewRiskAgent creates the risk stage adapter.
func NewRiskAgent(name string, store *portfolio.Store, prices PriceSource, sizing Sizing, logger *slog.Logger) *RiskAgent {
	if name == "" {
		name = "risk"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskAgent{name: name, store: store, prices: prices, sizing: sizing, logger: logger}
}

// Identity declares the risk stage's capabilities.
func (a *RiskAgent) Identity() message.AgentIdentity {
	return message.AgentIdentity{
		Name:     a.name,
		Produces: message.NewKindSet(message.KindRiskDecision),
		Consumes: message.NewKindSet(message.KindSignal),
	}
}

// Handle evaluates one signal and replies with a risk decision.
func (a *RiskAgent) Handle(ctx context.Context, msg message.Message) ([]message.Message, error) {
	sig, ok := msg.Payload.(message.Signal)
	if !ok {
		return nil, fmt.Errorf("risk %s: unexpected payload for %s", a.name, msg.ID)
	}

	decision := a.evaluate(msg.CorrelationID, sig)
	reply := message.New(message.KindRiskDecision, a.name, msg.CorrelationID, decision, msg.Sender)
	return []message.Message{reply}, nil
}

func (a *RiskAgent) evaluate(correlationID string, sig message.Signal) message.RiskDecision {
	decision := message.RiskDecision{CorrelationID: correlationID}

	price, err := a.prices.Price(sig.Instrument)
	if err != nil {
		decision.Reason = fmt.Sprintf("no reference price: %v", err)
		decision.Limits = a.store.LimitsFor(sig.Instrument)
		return decision
	}

	// The limit check judges the suggested size as submitted; a
	// suggestion that breaks a limit is rejected, never quietly
	// downsized to fit.
	qty := sig.SuggestedSize
	if sig.Side == message.SideSell {
		qty = qty.Neg()
	}

	limits, err := a.store.Evaluate(sig.Instrument, portfolio.Delta{Quantity: qty, Price: price})
	decision.Limits = limits
	if err != nil {
		var limitErr *portfolio.LimitExceededError
		if errors.As(err, &limitErr) {
			decision.Reason = "LimitExceeded: " + limitErr.Limit
		} else {
			decision.Reason = err.Error()
		}
		a.logger.Info("signal rejected",
			slog.String("correlation_id", correlationID),
			slog.String("instrument", sig.Instrument),
			slog.String("reason", decision.Reason))
		return decision
	}

	// Within limits the sizing methods may still shrink the position
	// on confidence grounds.
	size := a.sizedWithin(sig, price)
	if size.IsZero() {
		decision.Reason = "position size rounds to zero"
		return decision
	}

	decision.Approved = true
	decision.ApprovedSize = size
	decision.Reason = fmt.Sprintf("approved %s of %s within limits", size, sig.Instrument)
	return decision
}

// sizedWithin caps the suggested size by the sizing fraction of
// current equity. A suggestion below the cap passes through intact.
func (a *RiskAgent) sizedWithin(sig message.Signal, price decimal.Decimal) decimal.Decimal {
	snap := a.store.Snapshot()
	equity := snap.Cash
	for _, p := range snap.Positions {
		equity = equity.Add(p.Exposure())
	}

	limit := Shares(equity, price, a.sizing.Fraction(sig.Confidence, sig.Volatility))
	size := sig.SuggestedSize
	if limit.LessThan(size) {
		size = limit
	}
	return size
}
