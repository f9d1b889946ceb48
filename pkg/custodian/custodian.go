// Package custodian exposes quote-asset vault movement as a small
// capability interface. The matching/margin core never custodies funds
// itself (spec §1: "token-program custody calls treated as a Custodian
// capability moving quote units in/out of a vault") — it only calls
// Pull/Push and reacts to the error.
package custodian

import (
	"errors"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/marketkey"
)

// ErrInsufficientExternalBalance is returned by Pull when the trader's
// external (vault-side) balance cannot cover the requested amount.
var ErrInsufficientExternalBalance = errors.New("custodian: insufficient external balance")

// Custodian moves quote atoms between a trader's external balance and
// the market's vault.
type Custodian interface {
	// Pull moves qty quote atoms from trader's external balance into the
	// vault (deposit).
	Pull(trader marketkey.Key, qty uint64) error
	// Push moves qty quote atoms from the vault to trader's external
	// balance (withdraw).
	Push(trader marketkey.Key, qty uint64) error
}

// InMemory is a Custodian backed by a plain balance map, useful for
// tests and for markets running without an external vault wired up.
type InMemory struct {
	balances map[marketkey.Key]uint64
}

// NewInMemory creates an InMemory custodian seeded with zero balances.
func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[marketkey.Key]uint64)}
}

// Credit tops up a trader's external balance (test/bootstrap helper,
// analogous to a bridge deposit landing before the market-level
// Deposit call pulls from it).
func (c *InMemory) Credit(trader marketkey.Key, qty uint64) {
	c.balances[trader] += qty
}

func (c *InMemory) Pull(trader marketkey.Key, qty uint64) error {
	if c.balances[trader] < qty {
		return ErrInsufficientExternalBalance
	}
	c.balances[trader] -= qty
	return nil
}

func (c *InMemory) Push(trader marketkey.Key, qty uint64) error {
	c.balances[trader] += qty
	return nil
}

// Balance returns a trader's current external (vault-side) balance.
func (c *InMemory) Balance(trader marketkey.Key) uint64 {
	return c.balances[trader]
}
