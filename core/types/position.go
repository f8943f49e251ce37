package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PositionState tracks the lifecycle of a position. All states other than
// Active are terminal; once a position leaves Active no field may change.
type PositionState uint8

const (
	// PositionActive marks a live position holding escrowed collateral.
	PositionActive PositionState = iota
	// PositionRepaid marks a loan whose debt was settled in full.
	PositionRepaid
	// PositionLiquidated marks a position closed by a liquidator.
	PositionLiquidated
	// PositionWithdrawn marks a collateral position drained by its owner.
	PositionWithdrawn
)

// String renders the state for events and API responses.
func (s PositionState) String() string {
	switch s {
	case PositionActive:
		return "active"
	case PositionRepaid:
		return "repaid"
	case PositionLiquidated:
		return "liquidated"
	case PositionWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state permits no further mutation.
func (s PositionState) Terminal() bool {
	return s != PositionActive
}

// Position is the unified record for a collateral escrow and the loan it may
// back. A pure collateral deposit carries a zero Principal; a loan opened via
// the pool carries both the debt and the collateral that secures it. IDs come
// from a single monotonically increasing counter starting at 1 and are never
// reused. Amounts are denominated in base units and expressed as big integers
// to match on-chain precision.
type Position struct {
	// ID is the position identifier assigned at creation.
	ID uint64
	// Borrower owns the escrowed collateral and any attached debt.
	Borrower common.Address
	// DebtAsset identifies the asset borrowed. Zero for collateral-only
	// positions.
	DebtAsset common.Address
	// Principal records the amount borrowed before interest accrual.
	Principal *big.Int
	// OpenedAtIndex snapshots the debt asset's reserve index at open time so
	// the amount owed can be derived at repayment.
	OpenedAtIndex *big.Int
	// CollateralAsset identifies the escrowed asset.
	CollateralAsset common.Address
	// CollateralAmount is the amount currently held in escrow.
	CollateralAmount *big.Int
	// Duration is the requested loan term in seconds. Zero for collateral-only
	// positions.
	Duration uint64
	// OpenedAt records when the position was created.
	OpenedAt time.Time
	// State is the lifecycle marker.
	State PositionState
}

// HasDebt reports whether the position carries outstanding borrow principal.
func (p *Position) HasDebt() bool {
	return p != nil && p.Principal != nil && p.Principal.Sign() > 0
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Principal != nil {
		clone.Principal = new(big.Int).Set(p.Principal)
	}
	if p.OpenedAtIndex != nil {
		clone.OpenedAtIndex = new(big.Int).Set(p.OpenedAtIndex)
	}
	if p.CollateralAmount != nil {
		clone.CollateralAmount = new(big.Int).Set(p.CollateralAmount)
	}
	return &clone
}
