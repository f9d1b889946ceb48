package market

import "github.com/uhyunpark/hyperlicked/pkg/app/core/fixedprice"

// equityAndNotional computes a seat's equity (margin + unrealised pnl)
// and notional (|position| * mark) at the given mark price (spec §4.6).
// notional goes through fixedprice's uint256-backed conversion so the
// mark*|position| product never overflows; the pnl subtraction that
// follows stays within int64 range for any position/cost_basis pair
// that itself fits in the account's 64-bit fields.
func (m *Market) equityAndNotional(s Seat, mark fixedprice.Price) (equity int64, notional uint64) {
	absPos := uint64(absI64(s.Position))
	notional = mark.ToQuote(absPos, fixedprice.RoundDown)

	var pnl int64
	if s.Position >= 0 {
		pnl = int64(notional) - int64(s.CostBasis)
	} else {
		pnl = int64(s.CostBasis) - int64(notional)
	}
	equity = int64(s.Margin) + pnl
	return equity, notional
}

func (m *Market) initialRequirement(notional uint64) uint64 {
	return mulDivU64(notional, uint64(m.Header.InitialMarginBps), 10_000)
}

func (m *Market) maintenanceRequirement(notional uint64) uint64 {
	return mulDivU64(notional, uint64(m.Header.MaintenanceMarginBps), 10_000)
}

// checkInitial enforces the post-place/post-swap initial margin bound
// (spec §4.6): equity >= notional * initial_margin_bps / 10000.
func (m *Market) checkInitial(s Seat) error {
	mark, err := m.markPrice()
	if err != nil {
		return err
	}
	equity, notional := m.equityAndNotional(s, mark)
	if equity < int64(m.initialRequirement(notional)) {
		return ErrInsufficientMargin
	}
	return nil
}

// checkMaintenance enforces the withdraw-time maintenance margin bound
// (spec §4.6): equity >= notional * maintenance_margin_bps / 10000.
func (m *Market) checkMaintenance(s Seat) error {
	mark, err := m.markPrice()
	if err != nil {
		return err
	}
	equity, notional := m.equityAndNotional(s, mark)
	if equity < int64(m.maintenanceRequirement(notional)) {
		return ErrInsufficientMargin
	}
	return nil
}
