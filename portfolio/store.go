// Package portfolio is the single shared source of truth for
// positions, cash, and exposure. Mutations are all-or-nothing,
// attributed to exactly one trade task, and strictly serialized per
// instrument; reads never observe a partial mutation.
package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeflow/message"
)

// Position is one instrument's holding. CostBasis is the total cost
// of the open quantity; MarkPrice is the price of the last mutation
// touching the instrument and values the position for exposure.
type Position struct {
	Quantity  decimal.Decimal
	CostBasis decimal.Decimal
	MarkPrice decimal.Decimal
}

// Exposure is the absolute market value of the position at its mark.
func (p Position) Exposure() decimal.Decimal {
	return p.Quantity.Abs().Mul(p.MarkPrice)
}

// Delta is a proposed position change: signed quantity (buy positive,
// sell negative) at a price.
type Delta struct {
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Mutation records one committed delta and the task it belonged to.
type Mutation struct {
	CorrelationID string
	Instrument    string
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	CommittedAt   time.Time
}

// Config configures the store at startup.
type Config struct {
	InitialCash decimal.Decimal
	Limits      Limits

	// Sectors maps instrument to sector name for the per-sector
	// exposure check. Unmapped instruments form their own sector.
	Sectors map[string]string
}

// Store owns the portfolio state. All access goes through its
// methods; no caller ever sees internal maps.
type Store struct {
	mu        sync.RWMutex
	cash      decimal.Decimal
	positions map[string]Position
	ledger    []Mutation

	limits  Limits
	sectors map[string]string

	// keyLocks serializes writers per instrument so two tasks for the
	// same instrument never interleave their check-and-commit.
	keyMu    sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// New creates a store with the configured cash and limits.
func New(cfg Config) *Store {
	sectors := cfg.Sectors
	if sectors == nil {
		sectors = make(map[string]string)
	}
	return &Store{
		cash:      cfg.InitialCash,
		positions: make(map[string]Position),
		limits:    cfg.Limits,
		sectors:   sectors,
		keyLocks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) keyLock(instrument string) *sync.Mutex {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	l, ok := s.keyLocks[instrument]
	if !ok {
		l = &sync.Mutex{}
		s.keyLocks[instrument] = l
	}
	return l
}

func (s *Store) sector(instrument string) string {
	if sec, ok := s.sectors[instrument]; ok {
		return sec
	}
	return instrument
}

// check computes the post-delta state and verifies every limit
// against the current committed state. Callers hold s.mu (read or
// write) for the duration.
func (s *Store) check(instrument string, delta Delta) (Position, decimal.Decimal, error) {
	pos := s.positions[instrument]
	cost := delta.Quantity.Mul(delta.Price)

	next := Position{
		Quantity:  pos.Quantity.Add(delta.Quantity),
		CostBasis: pos.CostBasis.Add(cost),
		MarkPrice: delta.Price,
	}
	nextCash := s.cash.Sub(cost)

	if nextCash.IsNegative() {
		return Position{}, decimal.Zero, &LimitExceededError{
			Limit:     LimitCash,
			Current:   s.cash,
			Attempted: cost,
			Max:       s.cash,
		}
	}

	exposure := next.Exposure()
	if s.limits.PerInstrument.IsPositive() && exposure.GreaterThan(s.limits.PerInstrument) {
		return Position{}, decimal.Zero, &LimitExceededError{
			Limit:     LimitInstrument,
			Current:   pos.Exposure(),
			Attempted: exposure,
			Max:       s.limits.PerInstrument,
		}
	}

	if s.limits.PerSector.IsPositive() {
		sec := s.sector(instrument)
		sectorExposure := exposure
		for other, p := range s.positions {
			if other != instrument && s.sector(other) == sec {
				sectorExposure = sectorExposure.Add(p.Exposure())
			}
		}
		if sectorExposure.GreaterThan(s.limits.PerSector) {
			return Position{}, decimal.Zero, &LimitExceededError{
				Limit:     LimitSector,
				Current:   sectorExposure.Sub(exposure),
				Attempted: sectorExposure,
				Max:       s.limits.PerSector,
			}
		}
	}

	if s.limits.RiskBudget.IsPositive() {
		total := exposure
		for other, p := range s.positions {
			if other != instrument {
				total = total.Add(p.Exposure())
			}
		}
		if total.GreaterThan(s.limits.RiskBudget) {
			return Position{}, decimal.Zero, &LimitExceededError{
				Limit:     LimitRiskBudget,
				Current:   total.Sub(exposure),
				Attempted: total,
				Max:       s.limits.RiskBudget,
			}
		}
	}

	return next, nextCash, nil
}

func validateDelta(instrument string, delta Delta) error {
	if instrument == "" {
		return fmt.Errorf("portfolio: missing instrument")
	}
	if delta.Quantity.IsZero() {
		return fmt.Errorf("portfolio %s: zero quantity", instrument)
	}
	if !delta.Price.IsPositive() {
		return fmt.Errorf("portfolio %s: price must be > 0, got %s", instrument, delta.Price)
	}
	return nil
}

// Evaluate runs the limit checks for a delta without committing
// anything. The returned snapshot of the limits in force is taken
// atomically with the verdict, so a risk decision built from it is
// consistent with the state it was judged against.
func (s *Store) Evaluate(instrument string, delta Delta) (message.LimitsSnapshot, error) {
	if err := validateDelta(instrument, delta); err != nil {
		return message.LimitsSnapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, _, checkErr := s.check(instrument, delta)
	return s.limitsSnapshotLocked(instrument), checkErr
}

// ProposeMutation checks every limit against the current committed
// state and either commits the delta atomically, returning the new
// snapshot, or returns a *LimitExceededError leaving state unchanged.
// Mutations for the same instrument are strictly serialized; distinct
// instruments proceed concurrently up to the brief commit section.
func (s *Store) ProposeMutation(correlationID, instrument string, delta Delta) (Snapshot, error) {
	if correlationID == "" {
		return Snapshot{}, fmt.Errorf("portfolio %s: mutation needs a correlation id", instrument)
	}
	if err := validateDelta(instrument, delta); err != nil {
		return Snapshot{}, err
	}

	lock := s.keyLock(instrument)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	next, nextCash, err := s.check(instrument, delta)
	if err != nil {
		return Snapshot{}, err
	}

	s.positions[instrument] = next
	s.cash = nextCash
	s.ledger = append(s.ledger, Mutation{
		CorrelationID: correlationID,
		Instrument:    instrument,
		Quantity:      delta.Quantity,
		Price:         delta.Price,
		CommittedAt:   time.Now().UTC(),
	})

	return s.snapshotLocked(), nil
}

func (s *Store) limitsSnapshotLocked(instrument string) message.LimitsSnapshot {
	pos := s.positions[instrument]
	sec := s.sector(instrument)

	sectorExposure := decimal.Zero
	total := decimal.Zero
	for other, p := range s.positions {
		exp := p.Exposure()
		total = total.Add(exp)
		if s.sector(other) == sec {
			sectorExposure = sectorExposure.Add(exp)
		}
	}

	return message.LimitsSnapshot{
		CashBalance:        s.cash,
		InstrumentExposure: pos.Exposure(),
		InstrumentLimit:    s.limits.PerInstrument,
		SectorExposure:     sectorExposure,
		SectorLimit:        s.limits.PerSector,
		RiskBudgetUsed:     total,
		RiskBudget:         s.limits.RiskBudget,
	}
}

// LimitsFor returns the limits snapshot for an instrument against the
// latest committed state.
func (s *Store) LimitsFor(instrument string) message.LimitsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limitsSnapshotLocked(instrument)
}
