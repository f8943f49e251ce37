package rates

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/types"
)

// reserveState is the persistence surface for per-asset accrual indexes.
type reserveState interface {
	Reserve(asset common.Address) *types.ReserveState
	PutReserve(asset common.Address, rs *types.ReserveState)
}

// Reserve maintains the per-asset compounding index used to convert loan
// principal into the amount owed at repayment time. The index is a ray that
// starts at 1.0 and grows per elapsed second at the prevailing borrow rate;
// it is monotonic non-decreasing and deterministic for identical inputs.
type Reserve struct {
	state reserveState
}

// NewReserve constructs the accrual engine over the provided state.
func NewReserve(state reserveState) *Reserve {
	return &Reserve{state: state}
}

func (r *Reserve) ensure(asset common.Address, now time.Time) *types.ReserveState {
	rs := r.state.Reserve(asset)
	if rs == nil {
		rs = &types.ReserveState{Index: Ray(), LastAccrualAt: now}
	}
	if rs.Index == nil || rs.Index.Sign() == 0 {
		rs.Index = Ray()
	}
	return rs
}

// Accrue folds the interest accumulated since the last accrual into the
// asset's index at the supplied annualised rate: index *= 1 + rate*dt/year.
// Non-positive elapsed time only refreshes the accrual timestamp.
func (r *Reserve) Accrue(asset common.Address, currentRateBps uint64, now time.Time) *big.Int {
	rs := r.ensure(asset, now)

	dt := now.Unix() - rs.LastAccrualAt.Unix()
	if dt > 0 && currentRateBps > 0 {
		// factor = ray + ray * rate * dt / (10000 * secondsPerYear), floored.
		growth := new(big.Int).SetUint64(currentRateBps)
		growth.Mul(growth, big.NewInt(dt))
		growth.Mul(growth, ray)
		growth.Quo(growth, new(big.Int).Mul(basisPoints, big.NewInt(secondsPerYear)))
		factor := new(big.Int).Add(ray, growth)
		rs.Index = rayMul(rs.Index, factor)
	}
	rs.LastAccrualAt = now

	r.state.PutReserve(asset, rs)
	return new(big.Int).Set(rs.Index)
}

// Index returns the asset's current accumulator without accruing. Assets that
// never accrued report 1.0.
func (r *Reserve) Index(asset common.Address) *big.Int {
	rs := r.state.Reserve(asset)
	if rs == nil || rs.Index == nil || rs.Index.Sign() == 0 {
		return Ray()
	}
	return new(big.Int).Set(rs.Index)
}

// Owed converts a loan's principal into the amount owed given the index at
// open time and the index now: owed = principal * index(now) / index(opened).
func Owed(principal, openedAtIndex, currentIndex *big.Int) *big.Int {
	if principal == nil || principal.Sign() <= 0 {
		return big.NewInt(0)
	}
	if openedAtIndex == nil || openedAtIndex.Sign() == 0 || currentIndex == nil || currentIndex.Sign() == 0 {
		return new(big.Int).Set(principal)
	}
	owed := new(big.Int).Mul(principal, currentIndex)
	return owed.Quo(owed, openedAtIndex)
}
