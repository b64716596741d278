package message

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a signal or order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// IsValid reports whether s is buy or sell.
func (s Side) IsValid() bool { return s == SideBuy || s == SideSell }

// Signal is a trade idea submitted by a market-analysis collaborator.
// The core validates structure only, never trading logic.
type Signal struct {
	Instrument    string          `json:"instrument"`
	Side          Side            `json:"side"`
	SuggestedSize decimal.Decimal `json:"suggested_size"`
	Confidence    float64         `json:"confidence"`
	Rationale     string          `json:"rationale,omitempty"`

	// Volatility is the producer's recent price volatility estimate
	// as a fraction (0.30 for 30%). Zero means unknown.
	Volatility float64 `json:"volatility,omitempty"`

	// Sentiment is enrichment context attached by the coordinator when
	// a fresh score exists for the instrument. It never gates the
	// pipeline by itself.
	Sentiment *SentimentScore `json:"sentiment,omitempty"`
}

// Validate checks required fields and that the size is positive.
func (s Signal) Validate() error {
	if s.Instrument == "" {
		return fmt.Errorf("signal: missing instrument")
	}
	if !s.Side.IsValid() {
		return fmt.Errorf("signal %s: invalid side %q", s.Instrument, s.Side)
	}
	if !s.SuggestedSize.IsPositive() {
		return fmt.Errorf("signal %s: suggested size must be > 0, got %s", s.Instrument, s.SuggestedSize)
	}
	if s.Volatility < 0 {
		return fmt.Errorf("signal %s: volatility must be >= 0, got %v", s.Instrument, s.Volatility)
	}
	return nil
}

// LimitsSnapshot captures the portfolio limits in force when a risk
// decision was made, taken atomically with the decision.
type LimitsSnapshot struct {
	CashBalance        decimal.Decimal `json:"cash_balance"`
	InstrumentExposure decimal.Decimal `json:"instrument_exposure"`
	InstrumentLimit    decimal.Decimal `json:"instrument_limit"`
	SectorExposure     decimal.Decimal `json:"sector_exposure"`
	SectorLimit        decimal.Decimal `json:"sector_limit"`
	RiskBudgetUsed     decimal.Decimal `json:"risk_budget_used"`
	RiskBudget         decimal.Decimal `json:"risk_budget"`
}

// RiskDecision is the risk stage's verdict on a signal.
// Immutable once produced.
type RiskDecision struct {
	CorrelationID string          `json:"correlation_id"`
	Approved      bool            `json:"approved"`
	ApprovedSize  decimal.Decimal `json:"approved_size"`
	Reason        string          `json:"reason"`
	Limits        LimitsSnapshot  `json:"limits"`
}

// ExecutionOrder instructs the execution stage to place a trade.
type ExecutionOrder struct {
	Instrument string          `json:"instrument"`
	Side       Side            `json:"side"`
	Size       decimal.Decimal `json:"size"`
	OrderType  string          `json:"order_type"`
}

// ExecutionReport is the execution collaborator's result for an order.
type ExecutionReport struct {
	Filled     bool            `json:"filled"`
	FilledSize decimal.Decimal `json:"filled_size"`
	AvgPrice   decimal.Decimal `json:"avg_price"`
	Error      string          `json:"error,omitempty"`
}

// PerformanceUpdate summarizes a completed (or failed) execution for
// the reporting stage.
type PerformanceUpdate struct {
	Instrument string          `json:"instrument"`
	Side       Side            `json:"side"`
	Filled     bool            `json:"filled"`
	FilledSize decimal.Decimal `json:"filled_size"`
	AvgPrice   decimal.Decimal `json:"avg_price"`
	Notional   decimal.Decimal `json:"notional"`
	Outcome    string          `json:"outcome"`
}

// SentimentScore is optional enrichment from the news stage.
// Score is in [-1, 1]; positive is bullish.
type SentimentScore struct {
	Instrument string    `json:"instrument"`
	Score      float64   `json:"score"`
	Source     string    `json:"source,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}
