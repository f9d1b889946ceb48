package market

import (
	"fmt"
	"sync"
)

// MarketRegistry holds every market a process is serving, keyed by
// symbol, and gates status transitions (spec §9's account model assumes
// one live market; a host process embeds many via this registry, which
// owns none of the matching/risk logic itself).
type MarketRegistry struct {
	mu      sync.RWMutex
	markets map[string]*Market
}

func NewMarketRegistry() *MarketRegistry {
	return &MarketRegistry{
		markets: make(map[string]*Market),
	}
}

func (mr *MarketRegistry) RegisterMarket(m *Market) error {
	if m == nil {
		return fmt.Errorf("cannot register nil market")
	}

	mr.mu.Lock()
	defer mr.mu.Unlock()

	if _, exists := mr.markets[m.Symbol]; exists {
		return fmt.Errorf("market %s already registered", m.Symbol)
	}

	mr.markets[m.Symbol] = m
	return nil
}

func (mr *MarketRegistry) GetMarket(symbol string) (*Market, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	m, exists := mr.markets[symbol]
	if !exists {
		return nil, fmt.Errorf("market %s not found", symbol)
	}

	return m, nil
}

func (mr *MarketRegistry) ListMarkets() []*Market {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	markets := make([]*Market, 0, len(mr.markets))
	for _, m := range mr.markets {
		markets = append(markets, m)
	}

	return markets
}

func (mr *MarketRegistry) ListActiveMarkets() []*Market {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	markets := make([]*Market, 0)
	for _, m := range mr.markets {
		if m.Status == Active {
			markets = append(markets, m)
		}
	}

	return markets
}

// UpdateMarketStatus changes a market's trading status, e.g. for an
// emergency halt or a wind-down into settlement.
func (mr *MarketRegistry) UpdateMarketStatus(symbol string, status MarketStatus) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	m, exists := mr.markets[symbol]
	if !exists {
		return fmt.Errorf("market %s not found", symbol)
	}

	if err := mr.validateStatusTransition(m.Status, status); err != nil {
		return err
	}

	m.Status = status
	return nil
}

// validateStatusTransition rejects any transition out of Settled, the
// terminal state; every other transition is allowed.
func (mr *MarketRegistry) validateStatusTransition(from, to MarketStatus) error {
	if from == Settled {
		return fmt.Errorf("cannot change status from Settled (terminal state)")
	}
	return nil
}

// RemoveMarket drops a market from the registry. Only a Settled market
// may be removed, so a position or order can never be orphaned.
func (mr *MarketRegistry) RemoveMarket(symbol string) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	m, exists := mr.markets[symbol]
	if !exists {
		return fmt.Errorf("market %s not found", symbol)
	}

	if m.Status != Settled {
		return fmt.Errorf("cannot remove market %s with status %s (must be Settled)", symbol, m.Status)
	}

	delete(mr.markets, symbol)
	return nil
}

func (mr *MarketRegistry) Count() int {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return len(mr.markets)
}

func (mr *MarketRegistry) Exists(symbol string) bool {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	_, exists := mr.markets[symbol]
	return exists
}
