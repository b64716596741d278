package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeflow/message"
	"github.com/rustyeddy/tradeflow/pkg/id"
	"github.com/rustyeddy/tradeflow/portfolio"
)

func newRiskFixture(t *testing.T, limits portfolio.Limits) (*RiskAgent, *PriceBook, *portfolio.Store) {
	t.Helper()
	store := portfolio.New(portfolio.Config{
		InitialCash: decimal.NewFromInt(100000),
		Limits:      limits,
	})
	prices := NewPriceBook()
	a := NewRiskAgent("risk", store, prices, DefaultSizing(), nil)
	return a, prices, store
}

func decideOn(t *testing.T, a *RiskAgent, sig message.Signal) message.RiskDecision {
	t.Helper()
	msg := message.New(message.KindSignal, "coordinator", id.New(), sig, "risk")
	out, err := a.Handle(context.Background(), msg)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("replies = %d, want 1", len(out))
	}
	reply := out[0]
	if reply.Kind != message.KindRiskDecision {
		t.Fatalf("reply kind = %s", reply.Kind)
	}
	if len(reply.Recipients) != 1 || reply.Recipients[0] != "coordinator" {
		t.Fatalf("reply recipients = %v, want the requester", reply.Recipients)
	}
	if reply.CorrelationID != msg.CorrelationID {
		t.Fatal("reply lost its correlation id")
	}
	decision, ok := reply.Payload.(message.RiskDecision)
	if !ok {
		t.Fatalf("payload = %T", reply.Payload)
	}
	return decision
}

func TestRiskApprovesModestSignal(t *testing.T) {
	a, prices, _ := newRiskFixture(t, portfolio.Limits{PerInstrument: decimal.NewFromInt(10000)})
	prices.Set("AAPL", decimal.NewFromInt(190))

	decision := decideOn(t, a, message.Signal{
		Instrument:    "AAPL",
		Side:          message.SideBuy,
		SuggestedSize: decimal.NewFromInt(10),
		Confidence:    0.8,
	})

	if !decision.Approved {
		t.Fatalf("rejected: %s", decision.Reason)
	}
	// A suggestion already under the sizing cap passes through intact.
	if !decision.ApprovedSize.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("approved size = %s, want 10", decision.ApprovedSize)
	}
	if !decision.Limits.InstrumentLimit.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("limits snapshot missing: %+v", decision.Limits)
	}
}

func TestRiskCapsOversizedSignal(t *testing.T) {
	a, prices, _ := newRiskFixture(t, portfolio.Limits{})
	prices.Set("AAPL", decimal.NewFromInt(190))

	decision := decideOn(t, a, message.Signal{
		Instrument:    "AAPL",
		Side:          message.SideBuy,
		SuggestedSize: decimal.NewFromInt(60),
		Confidence:    0.8,
	})

	if !decision.Approved {
		t.Fatalf("rejected: %s", decision.Reason)
	}
	// 8% of 100k equity at 190 floors to 42 shares.
	if !decision.ApprovedSize.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("approved size = %s, want 42", decision.ApprovedSize)
	}
}

func TestRiskShrinksVolatileSignal(t *testing.T) {
	a, prices, _ := newRiskFixture(t, portfolio.Limits{})
	prices.Set("AAPL", decimal.NewFromInt(190))

	decision := decideOn(t, a, message.Signal{
		Instrument:    "AAPL",
		Side:          message.SideBuy,
		SuggestedSize: decimal.NewFromInt(60),
		Confidence:    0.8,
		Volatility:    0.50,
	})

	if !decision.Approved {
		t.Fatalf("rejected: %s", decision.Reason)
	}
	// 2% risk over 50% volatility caps the position at 4% of equity,
	// under the 8% confidence cap: 4000/190 floors to 21 shares.
	if !decision.ApprovedSize.Equal(decimal.NewFromInt(21)) {
		t.Fatalf("approved size = %s, want 21", decision.ApprovedSize)
	}
}

func TestRiskRejectsLimitBreach(t *testing.T) {
	a, prices, store := newRiskFixture(t, portfolio.Limits{PerInstrument: decimal.NewFromInt(10000)})
	prices.Set("TSLA", decimal.NewFromInt(100))

	decision := decideOn(t, a, message.Signal{
		Instrument:    "TSLA",
		Side:          message.SideBuy,
		SuggestedSize: decimal.NewFromInt(200),
		Confidence:    0.9,
	})

	if decision.Approved {
		t.Fatal("limit breach approved")
	}
	if want := "LimitExceeded: " + portfolio.LimitInstrument; decision.Reason != want {
		t.Fatalf("reason = %q, want %q", decision.Reason, want)
	}
	// The rejection is judged against the suggested size, never a
	// downsized one, and the store stays untouched.
	if len(store.Snapshot().Positions) != 0 {
		t.Fatal("risk evaluation mutated the portfolio")
	}
}

func TestRiskRejectsWithoutPrice(t *testing.T) {
	a, _, _ := newRiskFixture(t, portfolio.Limits{})

	decision := decideOn(t, a, message.Signal{
		Instrument:    "GME",
		Side:          message.SideBuy,
		SuggestedSize: decimal.NewFromInt(5),
		Confidence:    0.5,
	})

	if decision.Approved {
		t.Fatal("approved without a reference price")
	}
	if !strings.Contains(decision.Reason, "no reference price") {
		t.Fatalf("reason = %q", decision.Reason)
	}
}

func TestRiskRejectsZeroSizedPosition(t *testing.T) {
	a, prices, _ := newRiskFixture(t, portfolio.Limits{})
	prices.Set("AAPL", decimal.NewFromInt(190))

	decision := decideOn(t, a, message.Signal{
		Instrument:    "AAPL",
		Side:          message.SideBuy,
		SuggestedSize: decimal.NewFromInt(10),
		Confidence:    0, // no edge, sizing collapses to zero
	})

	if decision.Approved {
		t.Fatal("approved a zero-sized position")
	}
	if decision.Reason != "position size rounds to zero" {
		t.Fatalf("reason = %q", decision.Reason)
	}
}

func TestRiskHandleRejectsWrongPayload(t *testing.T) {
	a, _, _ := newRiskFixture(t, portfolio.Limits{})

	msg := message.New(message.KindSignal, "coordinator", id.New(), "not a signal", "risk")
	if _, err := a.Handle(context.Background(), msg); err == nil {
		t.Fatal("wrong payload accepted")
	}
}
