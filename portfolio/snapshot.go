package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a consistent copy of the committed portfolio state.
type Snapshot struct {
	Positions map[string]Position
	Cash      decimal.Decimal
	TakenAt   time.Time
}

// Position returns the snapshot's holding for an instrument.
func (s Snapshot) Position(instrument string) Position {
	return s.Positions[instrument]
}

// Summary is an aggregate view for the reporting boundary.
type Summary struct {
	Cash             decimal.Decimal
	PositionCount    int
	TotalMarketValue decimal.Decimal
	Utilization      decimal.Decimal
	Mutations        int
}

func (s *Store) snapshotLocked() Snapshot {
	positions := make(map[string]Position, len(s.positions))
	for instrument, p := range s.positions {
		positions[instrument] = p
	}
	return Snapshot{
		Positions: positions,
		Cash:      s.cash,
		TakenAt:   time.Now().UTC(),
	}
}

// Snapshot returns the latest committed state. It never reflects a
// mutation in progress.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Ledger returns a copy of the committed mutation log, oldest first.
func (s *Store) Ledger() []Mutation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Mutation, len(s.ledger))
	copy(out, s.ledger)
	return out
}

// Summary aggregates the portfolio for reporting: cash, open
// positions, total market value, and how much of the combined value
// sits in positions rather than cash.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	count := 0
	for _, p := range s.positions {
		if !p.Quantity.IsZero() {
			count++
			total = total.Add(p.Exposure())
		}
	}

	utilization := decimal.Zero
	if equity := s.cash.Add(total); equity.IsPositive() {
		utilization = total.Div(equity)
	}

	return Summary{
		Cash:             s.cash,
		PositionCount:    count,
		TotalMarketValue: total,
		Utilization:      utilization,
		Mutations:        len(s.ledger),
	}
}
