package collateral

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/events"
	"arclend/core/types"
	"arclend/native/bank"
	nativecommon "arclend/native/common"
	"arclend/native/oracle"
)

var (
	// ErrUnsupportedAsset rejects escrow against unconfigured collateral.
	ErrUnsupportedAsset = errors.New("collateral: asset not configured")
	// ErrInvalidRatio rejects minimum ratios below 100%.
	ErrInvalidRatio = errors.New("collateral: minimum ratio below 100%")
	// ErrInvalidAmount rejects non-positive escrow amounts.
	ErrInvalidAmount = errors.New("collateral: amount must be positive")
	// ErrPositionNotFound marks an unknown position id.
	ErrPositionNotFound = errors.New("collateral: position not found")
	// ErrPositionNotActive rejects mutations of terminal positions.
	ErrPositionNotActive = errors.New("collateral: position not active")
	// ErrNotBorrower rejects callers other than the position owner.
	ErrNotBorrower = errors.New("collateral: caller is not the borrower")
	// ErrInsufficientCollateral marks a withdraw or ratio shortfall.
	ErrInsufficientCollateral = errors.New("collateral: insufficient collateral")
	// ErrNotLiquidatable rejects liquidation of healthy positions.
	ErrNotLiquidatable = errors.New("collateral: position not eligible for liquidation")
)

const moduleName = "collateral"

// managerState is the persistence surface for collateral settings and the
// unified position book. Pool totals are included so liquidating a
// debt-bearing position clears its principal from the aggregate accounting in
// the same atomic step.
type managerState interface {
	CollateralConfig(asset common.Address) types.CollateralConfig
	PutCollateralConfig(asset common.Address, cfg types.CollateralConfig)
	Position(id uint64) *types.Position
	PutPosition(pos *types.Position)
	NextPositionID() uint64
	PoolTotals(asset common.Address) *types.PoolTotals
	PutPoolTotals(asset common.Address, totals *types.PoolTotals)
}

// Manager escrows collateral per position and enforces the price-based ratio
// limits. It owns the unified position book: collateral-only deposits and
// pool loans share one id space, so the same real-world position never exists
// under two identifiers.
type Manager struct {
	state    managerState
	bank     *bank.Ledger
	oracle   *oracle.Oracle
	roles    nativecommon.RoleView
	pauses   nativecommon.PauseView
	emitter  events.Emitter
	bonusBps uint64
}

// NewManager constructs a collateral manager over the shared ledger state.
func NewManager(state managerState, ledger *bank.Ledger, priceOracle *oracle.Oracle, roles nativecommon.RoleView) *Manager {
	return &Manager{
		state:    state,
		bank:     ledger,
		oracle:   priceOracle,
		roles:    roles,
		emitter:  events.NoopEmitter{},
		bonusBps: DefaultLiquidationBonusBps,
	}
}

// SetEmitter wires the event sink used by escrow operations.
func (m *Manager) SetEmitter(emitter events.Emitter) {
	if m == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	m.emitter = emitter
}

// SetPauses installs the governance pause switches.
func (m *Manager) SetPauses(p nativecommon.PauseView) {
	if m == nil {
		return
	}
	m.pauses = p
}

// SetLiquidationBonus overrides the bonus awarded to liquidators.
func (m *Manager) SetLiquidationBonus(bonusBps uint64) {
	if m == nil {
		return
	}
	m.bonusBps = bonusBps
}

// ConfigureCollateral enables the asset for collateral use at the given
// minimum ratio. Admin-only; ratios below 100% fail with ErrInvalidRatio
// before any state change.
func (m *Manager) ConfigureCollateral(caller, asset common.Address, minRatioBps uint64) error {
	if err := nativecommon.Guard(m.pauses, moduleName); err != nil {
		return err
	}
	if err := nativecommon.RequireAdmin(m.roles, caller); err != nil {
		return err
	}
	if minRatioBps < 10_000 {
		return ErrInvalidRatio
	}
	m.state.PutCollateralConfig(asset, types.CollateralConfig{Supported: true, MinRatioBps: minRatioBps})
	return nil
}

// Config returns the per-asset collateral settings.
func (m *Manager) Config(asset common.Address) types.CollateralConfig {
	return m.state.CollateralConfig(asset)
}

// DepositCollateral escrows amount from the caller and opens a new
// collateral-only position. Returns the assigned position id.
func (m *Manager) DepositCollateral(caller, asset common.Address, amount *big.Int, now time.Time) (uint64, error) {
	if err := nativecommon.Guard(m.pauses, moduleName); err != nil {
		return 0, err
	}
	cfg := m.state.CollateralConfig(asset)
	if !cfg.Supported {
		return 0, ErrUnsupportedAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := m.bank.Transfer(caller, nativecommon.EscrowAccount, asset, amount); err != nil {
		return 0, err
	}
	pos := &types.Position{
		ID:               m.state.NextPositionID(),
		Borrower:         caller,
		Principal:        big.NewInt(0),
		CollateralAsset:  asset,
		CollateralAmount: new(big.Int).Set(amount),
		OpenedAt:         now,
		State:            types.PositionActive,
	}
	m.state.PutPosition(pos)
	m.emitter.Emit(events.CollateralDeposited{
		PositionID: pos.ID,
		Borrower:   caller,
		Asset:      asset,
		Amount:     new(big.Int).Set(amount),
	})
	return pos.ID, nil
}

// OpenLoanPosition escrows collateral and opens a debt-bearing position on
// behalf of the lending pool. The ratio invariant must already have been
// checked by the caller against current oracle prices.
func (m *Manager) OpenLoanPosition(borrower, debtAsset common.Address, principal, openedAtIndex *big.Int, collateralAsset common.Address, collateralAmount *big.Int, duration uint64, now time.Time) (uint64, error) {
	cfg := m.state.CollateralConfig(collateralAsset)
	if !cfg.Supported {
		return 0, ErrUnsupportedAsset
	}
	if collateralAmount == nil || collateralAmount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := m.bank.Transfer(borrower, nativecommon.EscrowAccount, collateralAsset, collateralAmount); err != nil {
		return 0, err
	}
	pos := &types.Position{
		ID:               m.state.NextPositionID(),
		Borrower:         borrower,
		DebtAsset:        debtAsset,
		Principal:        new(big.Int).Set(principal),
		OpenedAtIndex:    new(big.Int).Set(openedAtIndex),
		CollateralAsset:  collateralAsset,
		CollateralAmount: new(big.Int).Set(collateralAmount),
		Duration:         duration,
		OpenedAt:         now,
		State:            types.PositionActive,
	}
	m.state.PutPosition(pos)
	return pos.ID, nil
}

// ReleaseEscrow returns amount of the position's collateral from escrow to
// the recipient. Callers are responsible for the accompanying position state
// transition.
func (m *Manager) ReleaseEscrow(pos *types.Position, to common.Address, amount *big.Int) error {
	return m.bank.Transfer(nativecommon.EscrowAccount, to, pos.CollateralAsset, amount)
}

// WithdrawCollateral returns escrowed funds to the borrower. Positions with
// outstanding debt must keep enough collateral to satisfy the minimum ratio;
// draining a debt-free position transitions it to Withdrawn.
func (m *Manager) WithdrawCollateral(caller common.Address, id uint64, amount *big.Int, now time.Time) error {
	if err := nativecommon.Guard(m.pauses, moduleName); err != nil {
		return err
	}
	pos := m.state.Position(id)
	if pos == nil {
		return ErrPositionNotFound
	}
	if pos.State != types.PositionActive {
		return ErrPositionNotActive
	}
	if pos.Borrower != caller {
		return ErrNotBorrower
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.Cmp(pos.CollateralAmount) > 0 {
		return ErrInsufficientCollateral
	}

	remaining := new(big.Int).Sub(pos.CollateralAmount, amount)
	if pos.HasDebt() {
		if err := m.CheckRatio(pos.CollateralAsset, remaining, pos.DebtAsset, pos.Principal, now); err != nil {
			return err
		}
	}

	if err := m.ReleaseEscrow(pos, caller, amount); err != nil {
		return err
	}
	pos.CollateralAmount = remaining
	if remaining.Sign() == 0 && !pos.HasDebt() {
		pos.State = types.PositionWithdrawn
	}
	m.state.PutPosition(pos)
	m.emitter.Emit(events.CollateralWithdrawn{PositionID: id, Amount: new(big.Int).Set(amount)})
	return nil
}

// LiquidatePosition closes an under-collateralized position: the caller must
// hold the liquidator role, and the position's collateral value must have
// fallen below its minimum ratio at current oracle prices. The entire
// remaining escrow is transferred to the liquidator and any outstanding
// principal is written off the pool aggregates. Returns the computed
// entitlement and the collateral actually seized.
func (m *Manager) LiquidatePosition(caller common.Address, id uint64, now time.Time) (*big.Int, *big.Int, error) {
	if err := nativecommon.Guard(m.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if err := nativecommon.RequireLiquidator(m.roles, caller); err != nil {
		return nil, nil, err
	}
	pos := m.state.Position(id)
	if pos == nil {
		return nil, nil, ErrPositionNotFound
	}
	if pos.State != types.PositionActive {
		return nil, nil, ErrPositionNotActive
	}
	if !pos.HasDebt() {
		// A position without debt can never breach its ratio.
		return nil, nil, ErrNotLiquidatable
	}
	if err := m.CheckRatio(pos.CollateralAsset, pos.CollateralAmount, pos.DebtAsset, pos.Principal, now); err == nil {
		return nil, nil, ErrNotLiquidatable
	} else if !errors.Is(err, ErrInsufficientCollateral) {
		return nil, nil, err
	}

	entitlement := LiquidationAmount(pos.Principal, pos.CollateralAmount, m.bonusBps)
	seized := new(big.Int).Set(pos.CollateralAmount)
	if err := m.ReleaseEscrow(pos, caller, seized); err != nil {
		return nil, nil, err
	}

	totals := m.state.PoolTotals(pos.DebtAsset)
	totals.Borrowed = new(big.Int).Sub(totals.Borrowed, pos.Principal)
	if totals.Borrowed.Sign() < 0 {
		totals.Borrowed = big.NewInt(0)
	}
	m.state.PutPoolTotals(pos.DebtAsset, totals)

	pos.CollateralAmount = big.NewInt(0)
	pos.State = types.PositionLiquidated
	m.state.PutPosition(pos)

	m.emitter.Emit(events.PositionLiquidated{
		PositionID:  id,
		Liquidator:  caller,
		Entitlement: entitlement,
		Seized:      seized,
	})
	return entitlement, seized, nil
}

// CheckRatio verifies collateralValue * 10000 >= debtValue * minRatioBps at
// current oracle prices. Both legs are valued with the staleness-enforced
// price accessor.
func (m *Manager) CheckRatio(collateralAsset common.Address, collateralAmount *big.Int, debtAsset common.Address, debtAmount *big.Int, now time.Time) error {
	cfg := m.state.CollateralConfig(collateralAsset)
	if !cfg.Supported {
		return ErrUnsupportedAsset
	}
	if debtAmount == nil || debtAmount.Sign() <= 0 {
		return nil
	}
	if collateralAmount == nil || collateralAmount.Sign() <= 0 {
		return ErrInsufficientCollateral
	}
	collateralPrice, err := m.oracle.GetPrice(collateralAsset, now)
	if err != nil {
		return fmt.Errorf("value collateral: %w", err)
	}
	debtPrice, err := m.oracle.GetPrice(debtAsset, now)
	if err != nil {
		return fmt.Errorf("value debt: %w", err)
	}

	collateralValue := new(big.Int).Mul(collateralAmount, collateralPrice)
	collateralValue.Mul(collateralValue, big.NewInt(10_000))

	debtValue := new(big.Int).Mul(debtAmount, debtPrice)
	debtValue.Mul(debtValue, new(big.Int).SetUint64(cfg.MinRatioBps))

	if collateralValue.Cmp(debtValue) < 0 {
		return ErrInsufficientCollateral
	}
	return nil
}

// Position returns a copy of the stored position, or nil when unknown.
func (m *Manager) Position(id uint64) *types.Position {
	return m.state.Position(id)
}
