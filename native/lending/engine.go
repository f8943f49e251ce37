package lending

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/events"
	"arclend/core/types"
	"arclend/native/bank"
	"arclend/native/collateral"
	nativecommon "arclend/native/common"
	"arclend/native/rates"
)

var (
	// ErrUnsupportedAsset rejects pool operations on unregistered assets.
	ErrUnsupportedAsset = errors.New("lending: asset not registered")
	// ErrInvalidAmount rejects non-positive amounts.
	ErrInvalidAmount = errors.New("lending: amount must be positive")
	// ErrInsufficientBalance marks a withdrawal beyond the caller's deposit.
	ErrInsufficientBalance = errors.New("lending: insufficient deposit balance")
	// ErrInsufficientLiquidity marks the pool unable to cover a payout.
	ErrInsufficientLiquidity = errors.New("lending: insufficient pool liquidity")
	// ErrPositionNotFound marks an unknown position id.
	ErrPositionNotFound = errors.New("lending: position not found")
	// ErrLoanNotActive rejects settlement of positions without live debt.
	ErrLoanNotActive = errors.New("lending: loan not active")
	// ErrNotBorrower rejects repayment by anyone but the position owner.
	ErrNotBorrower = errors.New("lending: caller is not the borrower")

	errNilState = errors.New("lending: state not configured")
)

const moduleName = "lending"

// engineState is the persistence surface the pool engine mutates. Snapshots
// cover the whole ledger so a failed flash loan unwinds every write made while
// the borrowed funds were out.
type engineState interface {
	Deposit(account, asset common.Address) *big.Int
	SetDeposit(account, asset common.Address, amount *big.Int)
	Position(id uint64) *types.Position
	PutPosition(pos *types.Position)
	AssetRegistered(asset common.Address) bool
	PoolTotals(asset common.Address) *types.PoolTotals
	PutPoolTotals(asset common.Address, totals *types.PoolTotals)
	Snapshot() int
	RevertToSnapshot(rev int)
	DiscardSnapshot(rev int)
}

// Engine drives the deposit, borrow, and repayment lifecycle of the pool. It
// leans on the collateral manager for escrow and ratio checks and on the rate
// engine for accrual, so the pool itself only moves funds and aggregates.
type Engine struct {
	state            engineState
	bank             *bank.Ledger
	model            *rates.Model
	reserve          *rates.Reserve
	manager          *collateral.Manager
	pauses           nativecommon.PauseView
	emitter          events.Emitter
	reserveFactorBps uint64
}

// NewEngine constructs the pool engine over the shared ledger state.
func NewEngine(state engineState, ledger *bank.Ledger, model *rates.Model, reserve *rates.Reserve, manager *collateral.Manager) *Engine {
	return &Engine{
		state:   state,
		bank:    ledger,
		model:   model,
		reserve: reserve,
		manager: manager,
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter wires the event sink used by pool operations.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetPauses installs the governance pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetReserveFactor configures the share of borrow interest withheld from
// suppliers when reporting the supply rate.
func (e *Engine) SetReserveFactor(bps uint64) {
	if e == nil {
		return
	}
	e.reserveFactorBps = bps
}

// Deposit moves amount of a registered asset from the caller into the pool
// and credits their withdrawable deposit balance.
func (e *Engine) Deposit(caller, asset common.Address, amount *big.Int, now time.Time) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !e.state.AssetRegistered(asset) {
		return ErrUnsupportedAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.bank.Transfer(caller, nativecommon.PoolAccount, asset, amount); err != nil {
		return err
	}

	deposit := e.state.Deposit(caller, asset)
	e.state.SetDeposit(caller, asset, deposit.Add(deposit, amount))

	totals := e.state.PoolTotals(asset)
	totals.Deposited = new(big.Int).Add(totals.Deposited, amount)
	e.state.PutPoolTotals(asset, totals)

	e.emitter.Emit(events.Deposited{Account: caller, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// Withdraw returns amount of the caller's deposit from the pool. The payout
// is bounded by both the caller's deposit balance and the liquidity left
// after outstanding loans.
func (e *Engine) Withdraw(caller, asset common.Address, amount *big.Int, now time.Time) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	deposit := e.state.Deposit(caller, asset)
	if deposit.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	totals := e.state.PoolTotals(asset)
	if availableLiquidity(totals).Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}

	if err := e.bank.Transfer(nativecommon.PoolAccount, caller, asset, amount); err != nil {
		return err
	}
	e.state.SetDeposit(caller, asset, deposit.Sub(deposit, amount))
	totals.Deposited = new(big.Int).Sub(totals.Deposited, amount)
	e.state.PutPoolTotals(asset, totals)

	e.emitter.Emit(events.Withdrawn{Account: caller, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// Borrow escrows the borrower's collateral, opens a debt position pinned to
// the current accrual index, and pays the principal out of the pool. Returns
// the new position id.
func (e *Engine) Borrow(borrower, asset common.Address, principal *big.Int, collateralAsset common.Address, collateralAmount *big.Int, duration uint64, now time.Time) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if !e.state.AssetRegistered(asset) {
		return 0, ErrUnsupportedAsset
	}
	if principal == nil || principal.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}

	// Payouts come from the pool's held balance, so reserves accumulated
	// from interest and flash fees are lendable too.
	if e.bank.BalanceOf(nativecommon.PoolAccount, asset).Cmp(principal) < 0 {
		return 0, ErrInsufficientLiquidity
	}
	if err := e.manager.CheckRatio(collateralAsset, collateralAmount, asset, principal, now); err != nil {
		return 0, err
	}

	rev := e.state.Snapshot()
	index := e.accrue(asset, now)
	id, err := e.manager.OpenLoanPosition(borrower, asset, principal, index, collateralAsset, collateralAmount, duration, now)
	if err != nil {
		e.state.RevertToSnapshot(rev)
		return 0, err
	}
	if err := e.bank.Transfer(nativecommon.PoolAccount, borrower, asset, principal); err != nil {
		e.state.RevertToSnapshot(rev)
		return 0, err
	}

	totals := e.state.PoolTotals(asset)
	totals.Borrowed = new(big.Int).Add(totals.Borrowed, principal)
	e.state.PutPoolTotals(asset, totals)
	e.state.DiscardSnapshot(rev)

	e.emitter.Emit(events.LoanOpened{
		PositionID:       id,
		Borrower:         borrower,
		DebtAsset:        asset,
		Principal:        new(big.Int).Set(principal),
		CollateralAsset:  collateralAsset,
		CollateralAmount: new(big.Int).Set(collateralAmount),
		Duration:         duration,
	})
	return id, nil
}

// Repay settles a loan in full: the borrower pays principal plus accrued
// interest in the supplied asset, the escrowed collateral is released back to
// them, and the position transitions to Repaid. Returns the amount collected.
func (e *Engine) Repay(caller common.Address, id uint64, asset common.Address, now time.Time) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pos := e.state.Position(id)
	if pos == nil {
		return nil, ErrPositionNotFound
	}
	if pos.State != types.PositionActive || !pos.HasDebt() {
		return nil, ErrLoanNotActive
	}
	if pos.Borrower != caller {
		return nil, ErrNotBorrower
	}

	index := e.accrue(pos.DebtAsset, now)
	owed := rates.Owed(pos.Principal, pos.OpenedAtIndex, index)

	if err := e.bank.Transfer(caller, nativecommon.PoolAccount, asset, owed); err != nil {
		return nil, err
	}
	if pos.CollateralAmount.Sign() > 0 {
		if err := e.manager.ReleaseEscrow(pos, pos.Borrower, pos.CollateralAmount); err != nil {
			return nil, err
		}
	}

	totals := e.state.PoolTotals(pos.DebtAsset)
	totals.Borrowed = new(big.Int).Sub(totals.Borrowed, pos.Principal)
	if totals.Borrowed.Sign() < 0 {
		totals.Borrowed = big.NewInt(0)
	}
	e.state.PutPoolTotals(pos.DebtAsset, totals)

	pos.CollateralAmount = big.NewInt(0)
	pos.State = types.PositionRepaid
	e.state.PutPosition(pos)

	e.emitter.Emit(events.LoanRepaid{PositionID: id, Borrower: caller, Asset: asset, Owed: new(big.Int).Set(owed)})
	return owed, nil
}

// Owed reports what settling the position would cost right now, without
// mutating the accrual index.
func (e *Engine) Owed(id uint64, now time.Time) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pos := e.state.Position(id)
	if pos == nil {
		return nil, ErrPositionNotFound
	}
	if pos.State != types.PositionActive || !pos.HasDebt() {
		return nil, ErrLoanNotActive
	}
	return rates.Owed(pos.Principal, pos.OpenedAtIndex, e.projectedIndex(pos.DebtAsset, now)), nil
}

// DepositOf returns the account's withdrawable pool deposit.
func (e *Engine) DepositOf(account, asset common.Address) *big.Int {
	return e.state.Deposit(account, asset)
}

// PoolStats is the aggregate view of one asset's market.
type PoolStats struct {
	Deposited      *big.Int
	Borrowed       *big.Int
	Available      *big.Int
	UtilizationBps uint64
	BorrowRateBps  uint64
	SupplyRateBps  uint64
	Index          *big.Int
}

// Stats reports the asset's aggregates and current curve rates.
func (e *Engine) Stats(asset common.Address) PoolStats {
	totals := e.state.PoolTotals(asset)
	util := rates.UtilizationBps(totals.Borrowed, totals.Deposited)
	return PoolStats{
		Deposited:      totals.Deposited,
		Borrowed:       totals.Borrowed,
		Available:      availableLiquidity(totals),
		UtilizationBps: util,
		BorrowRateBps:  e.model.BorrowRate(util),
		SupplyRateBps:  e.model.SupplyRate(util, e.reserveFactorBps),
		Index:          e.reserve.Index(asset),
	}
}

// accrue folds elapsed interest into the asset's index at the borrow rate
// implied by current utilisation and returns the updated index.
func (e *Engine) accrue(asset common.Address, now time.Time) *big.Int {
	totals := e.state.PoolTotals(asset)
	util := rates.UtilizationBps(totals.Borrowed, totals.Deposited)
	return e.reserve.Accrue(asset, e.model.BorrowRate(util), now)
}

// projectedIndex computes the index accrual would produce at now without
// writing it back.
func (e *Engine) projectedIndex(asset common.Address, now time.Time) *big.Int {
	rev := e.state.Snapshot()
	index := e.accrue(asset, now)
	e.state.RevertToSnapshot(rev)
	return index
}

func availableLiquidity(totals *types.PoolTotals) *big.Int {
	available := new(big.Int).Sub(totals.Deposited, totals.Borrowed)
	if available.Sign() < 0 {
		return big.NewInt(0)
	}
	return available
}
