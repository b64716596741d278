package agents

import "github.com/shopspring/decimal"

// Sizing parameters. Win/loss assumptions feed the Kelly estimate;
// caps keep any single method from dominating.
type Sizing struct {
	AvgWin           float64 // assumed average win, e.g. 0.15
	AvgLoss          float64 // assumed average loss, e.g. 0.08
	MaxKellyFrac     float64 // cap on the Kelly fraction, e.g. 0.25
	MaxPositionFrac  float64 // max portfolio fraction per position, e.g. 0.10
	MaxPortfolioRisk float64 // portfolio fraction risked per position, e.g. 0.02
}

// DefaultSizing mirrors conservative paper-trading assumptions:
// 15% average win, 8% average loss, Kelly capped at 25%, positions
// capped at 10% of equity, 2% of the portfolio at risk per position.
func DefaultSizing() Sizing {
	return Sizing{
		AvgWin:           0.15,
		AvgLoss:          0.08,
		MaxKellyFrac:     0.25,
		MaxPositionFrac:  0.10,
		MaxPortfolioRisk: 0.02,
	}
}

// KellyFraction returns the simplified Kelly criterion fraction for
// the given win rate, clamped to [0, MaxKellyFrac]. Confidence above
// 90% is not trusted further.
func (s Sizing) KellyFraction(confidence float64) float64 {
	winRate := confidence
	if winRate > 0.9 {
		winRate = 0.9
	}
	if winRate < 0 {
		winRate = 0
	}
	if s.AvgWin <= 0 {
		return 0
	}
	kelly := (winRate*s.AvgWin - (1-winRate)*s.AvgLoss) / s.AvgWin
	if kelly < 0 {
		kelly = 0
	}
	if kelly > s.MaxKellyFrac {
		kelly = s.MaxKellyFrac
	}
	return kelly
}

// ConfidenceFraction scales the per-position cap by signal
// confidence.
func (s Sizing) ConfidenceFraction(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence * s.MaxPositionFrac
}

// VolatilityFraction sizes inversely to how much the instrument
// moves: a volatile name gets a smaller slice of the portfolio for
// the same risk budget. Volatility below 1% is floored so an unknown
// or near-zero estimate never binds.
func (s Sizing) VolatilityFraction(volatility float64) float64 {
	if s.MaxPortfolioRisk <= 0 {
		return 1
	}
	if volatility < 0.01 {
		volatility = 0.01
	}
	return s.MaxPortfolioRisk / volatility
}

// Fraction returns the conservative sizing fraction: the minimum of
// the Kelly, volatility, and confidence methods.
func (s Sizing) Fraction(confidence, volatility float64) float64 {
	frac := s.KellyFraction(confidence)
	if conf := s.ConfidenceFraction(confidence); conf < frac {
		frac = conf
	}
	if vol := s.VolatilityFraction(volatility); vol < frac {
		frac = vol
	}
	return frac
}

// Shares converts a sizing fraction of equity into a whole number of
// units at the given price. Returns zero when the price is not
// positive.
func Shares(equity decimal.Decimal, price decimal.Decimal, fraction float64) decimal.Decimal {
	if !price.IsPositive() || fraction <= 0 {
		return decimal.Zero
	}
	budget := equity.Mul(decimal.NewFromFloat(fraction))
	return budget.Div(price).Floor()
}
