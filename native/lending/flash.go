package lending

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/events"
	nativecommon "arclend/native/common"
)

// FlashLoanFeeBps is the fee charged on the borrowed amount, floored.
const FlashLoanFeeBps = 9

// ErrFlashLoanNotRepaid marks a flash loan whose funds did not return with
// the fee by the end of the callback.
var ErrFlashLoanNotRepaid = errors.New("lending: flash loan not repaid")

// FlashBorrower receives the borrowed funds mid-transaction. The engine is
// passed through so the callback can run further pool operations without
// re-entering the outer synchronisation layer.
type FlashBorrower interface {
	OnFlashLoan(engine *Engine, caller, asset common.Address, amount, fee *big.Int, now time.Time) error
}

// FlashBorrowerFunc adapts a function to the FlashBorrower interface.
type FlashBorrowerFunc func(engine *Engine, caller, asset common.Address, amount, fee *big.Int, now time.Time) error

func (f FlashBorrowerFunc) OnFlashLoan(engine *Engine, caller, asset common.Address, amount, fee *big.Int, now time.Time) error {
	return f(engine, caller, asset, amount, fee, now)
}

// checkpointEmitter lets the flash path unwind events queued by a reverted
// callback together with the state writes.
type checkpointEmitter interface {
	events.Emitter
	Checkpoint() int
	Revert(mark int)
}

// FlashFee returns the fee owed on a flash loan of amount, floored.
func FlashFee(amount *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, big.NewInt(FlashLoanFeeBps))
	return fee.Quo(fee, big.NewInt(10_000))
}

// FlashLoan lends amount of a registered asset to the caller for the duration
// of the borrower callback. The pool balance must return with the fee on top
// before the callback ends; otherwise every write made during the loan is
// rolled back and ErrFlashLoanNotRepaid (or the callback's own error) is
// returned. On success the fee stays in the pool account and the accrued fee
// is returned.
func (e *Engine) FlashLoan(caller, asset common.Address, amount *big.Int, borrower FlashBorrower, now time.Time) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !e.state.AssetRegistered(asset) {
		return nil, ErrUnsupportedAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if borrower == nil {
		return nil, fmt.Errorf("lending: flash loan borrower not provided")
	}

	before := e.bank.BalanceOf(nativecommon.PoolAccount, asset)
	if before.Cmp(amount) < 0 {
		return nil, ErrInsufficientLiquidity
	}
	fee := FlashFee(amount)
	required := new(big.Int).Add(before, fee)

	rev := e.state.Snapshot()
	var mark int
	ce, checkpointed := e.emitter.(checkpointEmitter)
	if checkpointed {
		mark = ce.Checkpoint()
	}
	rollback := func() {
		e.state.RevertToSnapshot(rev)
		if checkpointed {
			ce.Revert(mark)
		}
	}

	if err := e.bank.Transfer(nativecommon.PoolAccount, caller, asset, amount); err != nil {
		e.state.DiscardSnapshot(rev)
		return nil, err
	}
	if err := borrower.OnFlashLoan(e, caller, asset, amount, fee, now); err != nil {
		rollback()
		return nil, fmt.Errorf("lending: flash loan callback: %w", err)
	}
	if e.bank.BalanceOf(nativecommon.PoolAccount, asset).Cmp(required) < 0 {
		rollback()
		return nil, ErrFlashLoanNotRepaid
	}

	e.state.DiscardSnapshot(rev)
	e.emitter.Emit(events.FlashLoanExecuted{
		Receiver: caller,
		Asset:    asset,
		Amount:   new(big.Int).Set(amount),
		Fee:      fee,
	})
	return fee, nil
}
