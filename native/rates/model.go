package rates

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/events"
	"arclend/core/types"
	nativecommon "arclend/native/common"
)

const moduleName = "rates"

// DefaultRateParams is the kinked curve the protocol boots with: 2% base,
// slope 0.1x to an 80% kink, then a 0.5x jump slope.
var DefaultRateParams = types.RateParams{
	BaseRateBps:       200,
	MultiplierBps:     1000,
	JumpMultiplierBps: 5000,
	KinkBps:           8000,
}

// rateState is the persistence surface for the curve parameters.
type rateState interface {
	RateParams() types.RateParams
	SetRateParams(p types.RateParams)
}

// Model evaluates the utilisation-driven interest curve. Rate lookups are
// pure; only UpdateRates mutates state. All intermediate products use big
// integers so curve parameters near the representable limit cannot overflow.
type Model struct {
	state   rateState
	roles   nativecommon.RoleView
	pauses  nativecommon.PauseView
	emitter events.Emitter
}

// NewModel constructs an interest rate model over the provided state.
func NewModel(state rateState, roles nativecommon.RoleView) *Model {
	return &Model{state: state, roles: roles, emitter: events.NoopEmitter{}}
}

// SetEmitter wires the event sink for rate change notifications.
func (m *Model) SetEmitter(emitter events.Emitter) {
	if m == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	m.emitter = emitter
}

// SetPauses installs the governance pause switches.
func (m *Model) SetPauses(p nativecommon.PauseView) {
	if m == nil {
		return
	}
	m.pauses = p
}

// Params returns the current curve parameters.
func (m *Model) Params() types.RateParams {
	return m.state.RateParams()
}

// UpdateRates replaces the curve parameters as a unit and emits a
// rate-changed notification. Admin-only; values are accepted as given beyond
// representability.
func (m *Model) UpdateRates(caller common.Address, base, multiplier, jump, kink uint64) error {
	if err := nativecommon.Guard(m.pauses, moduleName); err != nil {
		return err
	}
	if err := nativecommon.RequireAdmin(m.roles, caller); err != nil {
		return err
	}
	params := types.RateParams{
		BaseRateBps:       base,
		MultiplierBps:     multiplier,
		JumpMultiplierBps: jump,
		KinkBps:           kink,
	}
	m.state.SetRateParams(params)
	m.emitter.Emit(events.RatesUpdated{
		BaseRateBps:       base,
		MultiplierBps:     multiplier,
		JumpMultiplierBps: jump,
		KinkBps:           kink,
	})
	return nil
}

// BorrowRate evaluates the borrow side of the curve at the given utilisation.
// Below the kink the rate climbs linearly by the multiplier; past it the
// excess utilisation climbs by the jump multiplier. All divisions floor.
func (m *Model) BorrowRate(utilizationBps uint64) uint64 {
	return BorrowRate(m.state.RateParams(), utilizationBps)
}

// SupplyRate derives the supplier-side rate: the borrow rate net of the
// reserve factor, scaled by utilisation.
func (m *Model) SupplyRate(utilizationBps, reserveFactorBps uint64) uint64 {
	return SupplyRate(m.state.RateParams(), utilizationBps, reserveFactorBps)
}

// BorrowRate is the pure curve evaluation shared by the model and the accrual
// path.
func BorrowRate(p types.RateParams, utilizationBps uint64) uint64 {
	util := new(big.Int).SetUint64(utilizationBps)
	base := new(big.Int).SetUint64(p.BaseRateBps)
	mult := new(big.Int).SetUint64(p.MultiplierBps)
	jump := new(big.Int).SetUint64(p.JumpMultiplierBps)
	kink := new(big.Int).SetUint64(p.KinkBps)

	rate := new(big.Int)
	if utilizationBps <= p.KinkBps {
		rate.Mul(util, mult)
		rate.Quo(rate, basisPoints)
		rate.Add(rate, base)
		return rate.Uint64()
	}
	normal := new(big.Int).Mul(kink, mult)
	normal.Quo(normal, basisPoints)
	normal.Add(normal, base)

	excess := new(big.Int).Sub(util, kink)
	excess.Mul(excess, jump)
	excess.Quo(excess, basisPoints)

	rate.Add(normal, excess)
	return rate.Uint64()
}

// SupplyRate is the pure supplier-side evaluation shared by the model and the
// accrual path. A reserve factor at or above 100% routes nothing to the pool.
func SupplyRate(p types.RateParams, utilizationBps, reserveFactorBps uint64) uint64 {
	borrow := new(big.Int).SetUint64(BorrowRate(p, utilizationBps))
	if reserveFactorBps >= 10_000 {
		return 0
	}
	toPool := new(big.Int).SetUint64(10_000 - reserveFactorBps)
	toPool.Mul(borrow, toPool)
	toPool.Quo(toPool, basisPoints)

	supply := new(big.Int).SetUint64(utilizationBps)
	supply.Mul(supply, toPool)
	supply.Quo(supply, basisPoints)
	return supply.Uint64()
}
