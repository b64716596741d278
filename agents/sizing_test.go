package agents

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestKellyFraction(t *testing.T) {
	s := DefaultSizing()

	// High confidence saturates at the Kelly cap.
	if got := s.KellyFraction(0.8); !almost(got, 0.25) {
		t.Fatalf("kelly(0.8) = %v, want 0.25", got)
	}

	// Win rate is never trusted past 90%.
	if got := s.KellyFraction(1.0); got > s.MaxKellyFrac {
		t.Fatalf("kelly(1.0) = %v exceeds cap", got)
	}

	// A weak edge gives zero, never negative.
	if got := s.KellyFraction(0.2); got != 0 {
		t.Fatalf("kelly(0.2) = %v, want 0", got)
	}
	if got := s.KellyFraction(-0.5); got != 0 {
		t.Fatalf("kelly(-0.5) = %v, want 0", got)
	}

	// Degenerate parameters disable the method.
	broken := Sizing{AvgWin: 0, AvgLoss: 0.08, MaxKellyFrac: 0.25}
	if got := broken.KellyFraction(0.9); got != 0 {
		t.Fatalf("kelly with zero avg win = %v, want 0", got)
	}
}

func TestConfidenceFraction(t *testing.T) {
	s := DefaultSizing()

	if got := s.ConfidenceFraction(0.8); !almost(got, 0.08) {
		t.Fatalf("confidence(0.8) = %v, want 0.08", got)
	}
	if got := s.ConfidenceFraction(1.5); !almost(got, 0.10) {
		t.Fatalf("confidence(1.5) = %v, want clamp to 0.10", got)
	}
	if got := s.ConfidenceFraction(-1); got != 0 {
		t.Fatalf("confidence(-1) = %v, want 0", got)
	}
}

func TestVolatilityFraction(t *testing.T) {
	s := DefaultSizing()

	// 2% risk budget over 20% volatility allows a 10% position.
	if got := s.VolatilityFraction(0.20); !almost(got, 0.10) {
		t.Fatalf("volatility(0.20) = %v, want 0.10", got)
	}
	if got := s.VolatilityFraction(0.50); !almost(got, 0.04) {
		t.Fatalf("volatility(0.50) = %v, want 0.04", got)
	}
	// Near-zero volatility floors at 1% and never binds.
	if got := s.VolatilityFraction(0); !almost(got, 2.0) {
		t.Fatalf("volatility(0) = %v, want 2.0", got)
	}
	// No risk budget configured disables the method.
	loose := Sizing{MaxPositionFrac: 0.10}
	if got := loose.VolatilityFraction(0.50); got != 1 {
		t.Fatalf("volatility without budget = %v, want 1", got)
	}
}

func TestFractionTakesMinimum(t *testing.T) {
	s := DefaultSizing()

	// At 0.8 confidence Kelly saturates at 0.25 but confidence caps at 0.08.
	if got := s.Fraction(0.8, 0); !almost(got, 0.08) {
		t.Fatalf("fraction(0.8, 0) = %v, want 0.08", got)
	}
	// At 0.2 confidence Kelly is zero.
	if got := s.Fraction(0.2, 0); got != 0 {
		t.Fatalf("fraction(0.2, 0) = %v, want 0", got)
	}
	// High volatility undercuts both other methods.
	if got := s.Fraction(0.8, 0.50); !almost(got, 0.04) {
		t.Fatalf("fraction(0.8, 0.50) = %v, want 0.04", got)
	}
}

func TestShares(t *testing.T) {
	equity := decimal.NewFromInt(100000)

	got := Shares(equity, decimal.NewFromInt(190), 0.08)
	if !got.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("shares = %s, want 42 (floor of 8000/190)", got)
	}

	if got := Shares(equity, decimal.Zero, 0.08); !got.IsZero() {
		t.Fatalf("shares at zero price = %s, want 0", got)
	}
	if got := Shares(equity, decimal.NewFromInt(190), 0); !got.IsZero() {
		t.Fatalf("shares at zero fraction = %s, want 0", got)
	}
}
