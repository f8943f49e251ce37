package types

import (
	"math/big"
	"time"
)

// PriceRecord stores the latest push-updated price for an asset. Prices carry
// eight fractional digits of fixed-point precision and are strictly positive;
// a zero price is rejected at write time and never stored.
type PriceRecord struct {
	Price      *big.Int
	ObservedAt time.Time
}

// Clone returns a deep copy of the record.
func (r *PriceRecord) Clone() *PriceRecord {
	if r == nil {
		return nil
	}
	clone := &PriceRecord{ObservedAt: r.ObservedAt}
	if r.Price != nil {
		clone.Price = new(big.Int).Set(r.Price)
	}
	return clone
}

// RateParams groups the interest curve parameters, all in basis points. The
// set is updated as a unit; partial updates are not supported.
type RateParams struct {
	BaseRateBps       uint64
	MultiplierBps     uint64
	JumpMultiplierBps uint64
	KinkBps           uint64
}

// ReserveState holds the compounding interest accumulator for one asset. The
// index is a ray (1e27) value that starts at 1.0 and only grows.
type ReserveState struct {
	Index         *big.Int
	LastAccrualAt time.Time
}

// Clone returns a deep copy of the reserve state.
func (s *ReserveState) Clone() *ReserveState {
	if s == nil {
		return nil
	}
	clone := &ReserveState{LastAccrualAt: s.LastAccrualAt}
	if s.Index != nil {
		clone.Index = new(big.Int).Set(s.Index)
	}
	return clone
}

// CollateralConfig captures the per-asset collateral settings. MinRatioBps is
// the minimum collateral-value to debt-value ratio in basis points and is
// never below 10000 (100%).
type CollateralConfig struct {
	Supported   bool
	MinRatioBps uint64
}

// PoolTotals aggregates the per-asset pool accounting used for utilisation
// and the solvency bound.
type PoolTotals struct {
	// Deposited is the sum of outstanding supplier deposits.
	Deposited *big.Int
	// Borrowed is the sum of outstanding loan principal.
	Borrowed *big.Int
}

// Clone returns a deep copy of the totals.
func (t *PoolTotals) Clone() *PoolTotals {
	if t == nil {
		return nil
	}
	clone := &PoolTotals{}
	if t.Deposited != nil {
		clone.Deposited = new(big.Int).Set(t.Deposited)
	}
	if t.Borrowed != nil {
		clone.Borrowed = new(big.Int).Set(t.Borrowed)
	}
	return clone
}
