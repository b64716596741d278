package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeflow/message"
)

// ExecutionRecord is one attempted paper fill, kept for the
// execution summary.
type ExecutionRecord struct {
	CorrelationID string
	Instrument    string
	Side          message.Side
	Size          decimal.Decimal
	Price         decimal.Decimal
	Filled        bool
	Error         string
	Time          time.Time
}

// ExecutionSummary aggregates paper-trading performance.
type ExecutionSummary struct {
	Orders        int
	Fills         int
	FillRate      float64
	TotalNotional decimal.Decimal
}

// ExecutionAgent fills orders on paper against the reference price,
// shifted by a slippage factor. It stands in for the brokerage
// boundary: a real integration would live behind the same identity.
type ExecutionAgent struct {
	name     string
	prices   PriceSource
	slippage decimal.Decimal
	logger   *slog.Logger

	mu      sync.Mutex
	history []ExecutionRecord
}

// NewExecutionAgent creates the execution stage adapter. slippageBps
// shifts fills against the order side, e.g. 50 fills buys 0.5% above
// the reference price.
func NewExecutionAgent(name string, prices PriceSource, slippageBps int64, logger *slog.Logger) *ExecutionAgent {
	if name == "" {
		name = "execution"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecutionAgent{
		name:     name,
		prices:   prices,
		slippage: decimal.New(slippageBps, -4),
		logger:   logger,
	}
}

// Identity declares the execution stage's capabilities.
func (a *ExecutionAgent) Identity() message.AgentIdentity {
	return message.AgentIdentity{
		Name:     a.name,
		Produces: message.NewKindSet(message.KindExecutionReport),
		Consumes: message.NewKindSet(message.KindExecutionOrder),
	}
}

// Handle fills one order and replies with an execution report.
func (a *ExecutionAgent) Handle(ctx context.Context, msg message.Message) ([]message.Message, error) {
	order, ok := msg.Payload.(message.ExecutionOrder)
	if !ok {
		return nil, fmt.Errorf("execution %s: unexpected payload for %s", a.name, msg.ID)
	}

	report := a.fill(msg.CorrelationID, order)
	reply := message.New(message.KindExecutionReport, a.name, msg.CorrelationID, report, msg.Sender)
	return []message.Message{reply}, nil
}

func (a *ExecutionAgent) fill(correlationID string, order message.ExecutionOrder) message.ExecutionReport {
	rec := ExecutionRecord{
		CorrelationID: correlationID,
		Instrument:    order.Instrument,
		Side:          order.Side,
		Size:          order.Size,
		Time:          time.Now().UTC(),
	}

	price, err := a.prices.Price(order.Instrument)
	if err != nil {
		rec.Error = err.Error()
		a.record(rec)
		a.logger.Error("order not filled",
			slog.String("correlation_id", correlationID),
			slog.String("instrument", order.Instrument),
			slog.String("error", rec.Error))
		return message.ExecutionReport{Filled: false, Error: rec.Error}
	}

	// Fills move against the taker: buys pay up, sells give up.
	fillPrice := price
	if a.slippage.IsPositive() {
		adjustment := price.Mul(a.slippage)
		if order.Side == message.SideBuy {
			fillPrice = price.Add(adjustment)
		} else {
			fillPrice = price.Sub(adjustment)
		}
	}

	rec.Filled = true
	rec.Price = fillPrice
	a.record(rec)

	a.logger.Info("order filled",
		slog.String("correlation_id", correlationID),
		slog.String("instrument", order.Instrument),
		slog.String("size", order.Size.String()),
		slog.String("price", fillPrice.String()))

	return message.ExecutionReport{
		Filled:     true,
		FilledSize: order.Size,
		AvgPrice:   fillPrice,
	}
}

func (a *ExecutionAgent) record(rec ExecutionRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, rec)
}

// History returns a copy of every execution attempt, oldest first.
func (a *ExecutionAgent) History() []ExecutionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ExecutionRecord, len(a.history))
	copy(out, a.history)
	return out
}

// Summary aggregates fill performance over the agent's history.
func (a *ExecutionAgent) Summary() ExecutionSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := ExecutionSummary{Orders: len(a.history), TotalNotional: decimal.Zero}
	for _, rec := range a.history {
		if rec.Filled {
			s.Fills++
			s.TotalNotional = s.TotalNotional.Add(rec.Size.Mul(rec.Price))
		}
	}
	if s.Orders > 0 {
		s.FillRate = float64(s.Fills) / float64(s.Orders)
	}
	return s
}
