package agents

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeflow/message"
	"github.com/rustyeddy/tradeflow/pkg/id"
)

func TestReportingRecordsUpdates(t *testing.T) {
	a := NewReportingAgent("reporting", nil)

	update := message.PerformanceUpdate{
		Instrument: "AAPL",
		Side:       message.SideBuy,
		Filled:     true,
		FilledSize: decimal.NewFromInt(10),
		AvgPrice:   decimal.NewFromFloat(190.5),
		Notional:   decimal.NewFromInt(1905),
		Outcome:    "filled",
	}
	msg := message.New(message.KindPerformanceUpdate, "coordinator", id.New(), update, "reporting")

	out, err := a.Handle(context.Background(), msg)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("reporting produced %d messages, want none", len(out))
	}

	updates := a.Updates()
	if len(updates) != 1 || updates[0].Instrument != "AAPL" {
		t.Fatalf("updates = %+v", updates)
	}
}

func TestReportingRejectsWrongPayload(t *testing.T) {
	a := NewReportingAgent("reporting", nil)
	msg := message.New(message.KindPerformanceUpdate, "coordinator", id.New(), "junk", "reporting")
	if _, err := a.Handle(context.Background(), msg); err == nil {
		t.Fatal("wrong payload accepted")
	}
}

func TestNewsObserve(t *testing.T) {
	a := NewNewsAgent("news", "coordinator")

	msg := a.Observe("AAPL", 0.6, "newswire")
	if err := msg.Validate(); err != nil {
		t.Fatalf("observation invalid: %v", err)
	}
	if msg.Kind != message.KindSentimentScore {
		t.Fatalf("kind = %s", msg.Kind)
	}
	if len(msg.Recipients) != 1 || msg.Recipients[0] != "coordinator" {
		t.Fatalf("recipients = %v", msg.Recipients)
	}

	score, ok := msg.Payload.(message.SentimentScore)
	if !ok {
		t.Fatalf("payload = %T", msg.Payload)
	}
	if score.Instrument != "AAPL" || score.Score != 0.6 || score.ObservedAt.IsZero() {
		t.Fatalf("score = %+v", score)
	}

	// Each observation starts its own correlation chain.
	if other := a.Observe("AAPL", 0.7, "newswire"); other.CorrelationID == msg.CorrelationID {
		t.Fatal("observations share a correlation id")
	}
}
