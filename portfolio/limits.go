package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Limit names used in LimitExceededError and risk reasons.
const (
	LimitCash       = "cash_balance"
	LimitInstrument = "per_instrument_exposure"
	LimitSector     = "per_sector_exposure"
	LimitRiskBudget = "aggregate_risk_budget"
)

// LimitExceededError reports which limit a proposed mutation would
// break. It is an expected business outcome, not a system fault; the
// store is left unchanged when it is returned.
type LimitExceededError struct {
	Limit     string
	Current   decimal.Decimal
	Attempted decimal.Decimal
	Max       decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("limit %s exceeded: current %s, attempted %s, max %s",
		e.Limit, e.Current, e.Attempted, e.Max)
}

// Limits holds the configured exposure constraints.
// A zero value for any limit disables that check.
type Limits struct {
	PerInstrument decimal.Decimal
	PerSector     decimal.Decimal
	RiskBudget    decimal.Decimal
}
