package bank

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	errInvalidAmount       = errors.New("bank: amount must be positive")
	errInsufficientBalance = errors.New("bank: insufficient balance")
)

// ErrInsufficientBalance is surfaced when a transfer exceeds the sender's
// holdings.
var ErrInsufficientBalance = errInsufficientBalance

// ledgerState is the persistence surface the bank mutates. The central ledger
// state implements it; tests may substitute their own.
type ledgerState interface {
	Balance(account, asset common.Address) *big.Int
	SetBalance(account, asset common.Address, amount *big.Int)
}

// Ledger implements the fungible asset service the lending core depends on:
// balance queries plus transfers that either fully apply or leave no effect.
type Ledger struct {
	state ledgerState
}

// NewLedger constructs a bank ledger over the provided state.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

// BalanceOf returns the holdings of account in asset.
func (l *Ledger) BalanceOf(account, asset common.Address) *big.Int {
	if l == nil || l.state == nil {
		return big.NewInt(0)
	}
	return l.state.Balance(account, asset)
}

// Mint credits freshly issued units to the account. Used by genesis and
// tests; the protocol itself never mints.
func (l *Ledger) Mint(account, asset common.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errInsufficientBalance
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	balance := l.state.Balance(account, asset)
	l.state.SetBalance(account, asset, balance.Add(balance, amount))
	return nil
}

// Transfer moves amount of asset from one account to another. The transfer
// fails without effect when the sender's balance is insufficient.
func (l *Ledger) Transfer(from, to, asset common.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errInsufficientBalance
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	fromBalance := l.state.Balance(from, asset)
	if fromBalance.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	if from == to {
		return nil
	}
	l.state.SetBalance(from, asset, fromBalance.Sub(fromBalance, amount))
	toBalance := l.state.Balance(to, asset)
	l.state.SetBalance(to, asset, toBalance.Add(toBalance, amount))
	return nil
}
