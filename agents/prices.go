// Package agents holds reference adapters for the pipeline stages:
// risk evaluation with position sizing, paper execution, reporting,
// and news sentiment. They implement the plumbing the stages need to
// cooperate; strategy and sentiment modeling stay outside.
package agents

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// PriceSource supplies a reference price per instrument. The risk
// adapter values exposure with it; the execution adapter fills
// against it.
type PriceSource interface {
	Price(instrument string) (decimal.Decimal, error)
}

// PriceBook is an in-memory PriceSource fed by whoever has market
// data. It stands in for the market-data boundary, which is outside
// the orchestration core.
type PriceBook struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewPriceBook creates an empty price book.
func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[string]decimal.Decimal)}
}

// Set records the reference price for an instrument.
func (b *PriceBook) Set(instrument string, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[instrument] = price
}

// Price returns the reference price for an instrument.
func (b *PriceBook) Price(instrument string) (decimal.Decimal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[instrument]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for %q", instrument)
	}
	return p, nil
}
