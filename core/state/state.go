package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/types"
)

// balanceKey addresses a (holder, asset) bank balance.
type balanceKey struct {
	Account common.Address
	Asset   common.Address
}

// State is the single-writer ledger holding every map the protocol mutates:
// bank balances, supplier deposits, positions, oracle prices, reserve indexes,
// the asset whitelist, collateral settings and the interest curve. All public
// operations run against one State under one mutual-exclusion domain; the
// snapshot stack provides the all-or-nothing commit discipline, including the
// flash-loan rollback.
//
// Entities are never deleted. Positions transition to terminal states and
// remain readable, preserving an auditable history.
type State struct {
	balances   map[balanceKey]*big.Int
	deposits   map[balanceKey]*big.Int
	positions  map[uint64]*types.Position
	nextPosID  uint64
	prices     map[common.Address]*types.PriceRecord
	reserves   map[common.Address]*types.ReserveState
	registry   map[common.Address]bool
	collateral map[common.Address]types.CollateralConfig
	rates      types.RateParams
	totals     map[common.Address]*types.PoolTotals

	snapshots []*State
}

// New constructs an empty ledger state. Position IDs start at 1.
func New() *State {
	return &State{
		balances:   make(map[balanceKey]*big.Int),
		deposits:   make(map[balanceKey]*big.Int),
		positions:  make(map[uint64]*types.Position),
		nextPosID:  1,
		prices:     make(map[common.Address]*types.PriceRecord),
		reserves:   make(map[common.Address]*types.ReserveState),
		registry:   make(map[common.Address]bool),
		collateral: make(map[common.Address]types.CollateralConfig),
		totals:     make(map[common.Address]*types.PoolTotals),
	}
}

func (s *State) copyData() *State {
	clone := New()
	for k, v := range s.balances {
		clone.balances[k] = new(big.Int).Set(v)
	}
	for k, v := range s.deposits {
		clone.deposits[k] = new(big.Int).Set(v)
	}
	for id, pos := range s.positions {
		clone.positions[id] = pos.Clone()
	}
	clone.nextPosID = s.nextPosID
	for asset, rec := range s.prices {
		clone.prices[asset] = rec.Clone()
	}
	for asset, rs := range s.reserves {
		clone.reserves[asset] = rs.Clone()
	}
	for asset, ok := range s.registry {
		clone.registry[asset] = ok
	}
	for asset, cfg := range s.collateral {
		clone.collateral[asset] = cfg
	}
	clone.rates = s.rates
	for asset, t := range s.totals {
		clone.totals[asset] = t.Clone()
	}
	return clone
}

func (s *State) adoptData(src *State) {
	s.balances = src.balances
	s.deposits = src.deposits
	s.positions = src.positions
	s.nextPosID = src.nextPosID
	s.prices = src.prices
	s.reserves = src.reserves
	s.registry = src.registry
	s.collateral = src.collateral
	s.rates = src.rates
	s.totals = src.totals
}

// Snapshot pushes a deep copy of the ledger and returns its revision id.
// Revisions nest: a flash-loan rollback inside an operation reverts only the
// inner revision.
func (s *State) Snapshot() int {
	s.snapshots = append(s.snapshots, s.copyData())
	return len(s.snapshots) - 1
}

// RevertToSnapshot restores the ledger to the given revision and discards that
// revision and everything above it. Unknown revisions are ignored.
func (s *State) RevertToSnapshot(rev int) {
	if rev < 0 || rev >= len(s.snapshots) {
		return
	}
	s.adoptData(s.snapshots[rev])
	s.snapshots = s.snapshots[:rev]
}

// DiscardSnapshot drops revisions at and above rev without reverting, used
// when an operation commits.
func (s *State) DiscardSnapshot(rev int) {
	if rev < 0 || rev >= len(s.snapshots) {
		return
	}
	s.snapshots = s.snapshots[:rev]
}

// --- bank balances ---

// Balance returns the bank balance held by account in asset. The returned
// value is a copy.
func (s *State) Balance(account, asset common.Address) *big.Int {
	if v, ok := s.balances[balanceKey{account, asset}]; ok {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// SetBalance stores the bank balance for (account, asset).
func (s *State) SetBalance(account, asset common.Address, amount *big.Int) {
	if amount == nil {
		amount = big.NewInt(0)
	}
	s.balances[balanceKey{account, asset}] = new(big.Int).Set(amount)
}

// --- supplier deposits ---

// Deposit returns the tracked pool deposit for (account, asset) as a copy.
func (s *State) Deposit(account, asset common.Address) *big.Int {
	if v, ok := s.deposits[balanceKey{account, asset}]; ok {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// SetDeposit stores the tracked pool deposit for (account, asset).
func (s *State) SetDeposit(account, asset common.Address, amount *big.Int) {
	if amount == nil {
		amount = big.NewInt(0)
	}
	s.deposits[balanceKey{account, asset}] = new(big.Int).Set(amount)
}

// --- positions ---

// Position returns a copy of the stored position, or nil when unknown.
func (s *State) Position(id uint64) *types.Position {
	return s.positions[id].Clone()
}

// PutPosition stores a deep copy of the position keyed by its ID.
func (s *State) PutPosition(pos *types.Position) {
	if pos == nil {
		return
	}
	s.positions[pos.ID] = pos.Clone()
}

// NextPositionID assigns the next identifier from the monotonic counter.
func (s *State) NextPositionID() uint64 {
	id := s.nextPosID
	s.nextPosID++
	return id
}

// PositionSequence reports the next unassigned position id without consuming
// it.
func (s *State) PositionSequence() uint64 {
	return s.nextPosID
}

// ActivePositions counts positions currently in the Active state.
func (s *State) ActivePositions() int {
	n := 0
	for _, pos := range s.positions {
		if pos.State == types.PositionActive {
			n++
		}
	}
	return n
}

// --- oracle prices ---

// PriceRecord returns a copy of the stored record, or nil when no price was
// ever pushed for the asset.
func (s *State) PriceRecord(asset common.Address) *types.PriceRecord {
	return s.prices[asset].Clone()
}

// PutPriceRecord stores the record, overwriting any prior observation.
func (s *State) PutPriceRecord(asset common.Address, rec *types.PriceRecord) {
	if rec == nil {
		return
	}
	s.prices[asset] = rec.Clone()
}

// --- reserves ---

// Reserve returns a copy of the reserve state, or nil when the asset has
// never accrued.
func (s *State) Reserve(asset common.Address) *types.ReserveState {
	return s.reserves[asset].Clone()
}

// PutReserve stores the reserve state for the asset.
func (s *State) PutReserve(asset common.Address, rs *types.ReserveState) {
	if rs == nil {
		return
	}
	s.reserves[asset] = rs.Clone()
}

// --- registry ---

// AssetRegistered reports whitelist membership.
func (s *State) AssetRegistered(asset common.Address) bool {
	return s.registry[asset]
}

// SetAssetRegistered adds the asset to the whitelist. There is no removal.
func (s *State) SetAssetRegistered(asset common.Address) {
	s.registry[asset] = true
}

// --- collateral configuration ---

// CollateralConfig returns the per-asset collateral settings.
func (s *State) CollateralConfig(asset common.Address) types.CollateralConfig {
	return s.collateral[asset]
}

// PutCollateralConfig stores the per-asset collateral settings.
func (s *State) PutCollateralConfig(asset common.Address, cfg types.CollateralConfig) {
	s.collateral[asset] = cfg
}

// --- interest curve ---

// RateParams returns the current interest curve parameters.
func (s *State) RateParams() types.RateParams {
	return s.rates
}

// SetRateParams replaces the interest curve parameters as a unit.
func (s *State) SetRateParams(p types.RateParams) {
	s.rates = p
}

// --- pool totals ---

// PoolTotals returns a copy of the per-asset pool aggregates. Missing assets
// yield zeroed totals.
func (s *State) PoolTotals(asset common.Address) *types.PoolTotals {
	if t, ok := s.totals[asset]; ok {
		return t.Clone()
	}
	return &types.PoolTotals{Deposited: big.NewInt(0), Borrowed: big.NewInt(0)}
}

// PutPoolTotals stores the per-asset pool aggregates.
func (s *State) PutPoolTotals(asset common.Address, t *types.PoolTotals) {
	if t == nil {
		return
	}
	s.totals[asset] = t.Clone()
}
