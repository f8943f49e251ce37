package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/types"
)

const (
	// TypeTokenRegistered is emitted when an asset joins the whitelist.
	TypeTokenRegistered = "registry.token_registered"
	// TypePriceUpdated is emitted for every stored oracle price write.
	TypePriceUpdated = "oracle.price_updated"
	// TypeRatesUpdated is emitted when the interest curve parameters change.
	TypeRatesUpdated = "rates.updated"
	// TypeDeposited is emitted when a supplier adds pool liquidity.
	TypeDeposited = "pool.deposited"
	// TypeWithdrawn is emitted when a supplier removes pool liquidity.
	TypeWithdrawn = "pool.withdrawn"
	// TypeCollateralDeposited is emitted when collateral enters escrow.
	TypeCollateralDeposited = "collateral.deposited"
	// TypeCollateralWithdrawn is emitted when escrowed collateral is released.
	TypeCollateralWithdrawn = "collateral.withdrawn"
	// TypeLoanOpened is emitted when a collateralized loan is created.
	TypeLoanOpened = "pool.loan_opened"
	// TypeLoanRepaid is emitted when a loan settles in full.
	TypeLoanRepaid = "pool.loan_repaid"
	// TypePositionLiquidated is emitted when a liquidator closes a position.
	TypePositionLiquidated = "collateral.liquidated"
	// TypeFlashLoanExecuted is emitted when a flash loan completes.
	TypeFlashLoanExecuted = "flash.executed"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// TokenRegistered records a new whitelist entry.
type TokenRegistered struct {
	Asset common.Address
}

func (TokenRegistered) EventType() string { return TypeTokenRegistered }

func (e TokenRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenRegistered,
		Attributes: map[string]string{
			"asset": e.Asset.Hex(),
		},
	}
}

// PriceUpdated records a stored oracle observation.
type PriceUpdated struct {
	Asset      common.Address
	Price      *big.Int
	ObservedAt int64
}

func (PriceUpdated) EventType() string { return TypePriceUpdated }

func (e PriceUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePriceUpdated,
		Attributes: map[string]string{
			"asset":      e.Asset.Hex(),
			"price":      amountString(e.Price),
			"observedAt": strconv.FormatInt(e.ObservedAt, 10),
		},
	}
}

// RatesUpdated records an interest curve change applied as a unit.
type RatesUpdated struct {
	BaseRateBps       uint64
	MultiplierBps     uint64
	JumpMultiplierBps uint64
	KinkBps           uint64
}

func (RatesUpdated) EventType() string { return TypeRatesUpdated }

func (e RatesUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeRatesUpdated,
		Attributes: map[string]string{
			"baseRateBps":       strconv.FormatUint(e.BaseRateBps, 10),
			"multiplierBps":     strconv.FormatUint(e.MultiplierBps, 10),
			"jumpMultiplierBps": strconv.FormatUint(e.JumpMultiplierBps, 10),
			"kinkBps":           strconv.FormatUint(e.KinkBps, 10),
		},
	}
}

// Deposited records a supplier deposit into the pool.
type Deposited struct {
	Account common.Address
	Asset   common.Address
	Amount  *big.Int
}

func (Deposited) EventType() string { return TypeDeposited }

func (e Deposited) Event() *types.Event {
	return &types.Event{
		Type: TypeDeposited,
		Attributes: map[string]string{
			"account": e.Account.Hex(),
			"asset":   e.Asset.Hex(),
			"amount":  amountString(e.Amount),
		},
	}
}

// Withdrawn records a supplier withdrawal from the pool.
type Withdrawn struct {
	Account common.Address
	Asset   common.Address
	Amount  *big.Int
}

func (Withdrawn) EventType() string { return TypeWithdrawn }

func (e Withdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeWithdrawn,
		Attributes: map[string]string{
			"account": e.Account.Hex(),
			"asset":   e.Asset.Hex(),
			"amount":  amountString(e.Amount),
		},
	}
}

// CollateralDeposited records collateral entering escrow under a new position.
type CollateralDeposited struct {
	PositionID uint64
	Borrower   common.Address
	Asset      common.Address
	Amount     *big.Int
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralDeposited,
		Attributes: map[string]string{
			"positionId": strconv.FormatUint(e.PositionID, 10),
			"borrower":   e.Borrower.Hex(),
			"asset":      e.Asset.Hex(),
			"amount":     amountString(e.Amount),
		},
	}
}

// CollateralWithdrawn records escrowed collateral returned to its owner.
type CollateralWithdrawn struct {
	PositionID uint64
	Amount     *big.Int
}

func (CollateralWithdrawn) EventType() string { return TypeCollateralWithdrawn }

func (e CollateralWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralWithdrawn,
		Attributes: map[string]string{
			"positionId": strconv.FormatUint(e.PositionID, 10),
			"amount":     amountString(e.Amount),
		},
	}
}

// LoanOpened records a new collateralized loan.
type LoanOpened struct {
	PositionID       uint64
	Borrower         common.Address
	DebtAsset        common.Address
	Principal        *big.Int
	CollateralAsset  common.Address
	CollateralAmount *big.Int
	Duration         uint64
}

func (LoanOpened) EventType() string { return TypeLoanOpened }

func (e LoanOpened) Event() *types.Event {
	return &types.Event{
		Type: TypeLoanOpened,
		Attributes: map[string]string{
			"positionId":       strconv.FormatUint(e.PositionID, 10),
			"borrower":         e.Borrower.Hex(),
			"debtAsset":        e.DebtAsset.Hex(),
			"principal":        amountString(e.Principal),
			"collateralAsset":  e.CollateralAsset.Hex(),
			"collateralAmount": amountString(e.CollateralAmount),
			"duration":         strconv.FormatUint(e.Duration, 10),
		},
	}
}

// LoanRepaid records a loan settled in full, including accrued interest.
type LoanRepaid struct {
	PositionID uint64
	Borrower   common.Address
	Asset      common.Address
	Owed       *big.Int
}

func (LoanRepaid) EventType() string { return TypeLoanRepaid }

func (e LoanRepaid) Event() *types.Event {
	return &types.Event{
		Type: TypeLoanRepaid,
		Attributes: map[string]string{
			"positionId": strconv.FormatUint(e.PositionID, 10),
			"borrower":   e.Borrower.Hex(),
			"asset":      e.Asset.Hex(),
			"owed":       amountString(e.Owed),
		},
	}
}

// PositionLiquidated records a position closed by a liquidator. Entitlement is
// the payout value computed from debt and bonus; Seized is the collateral
// actually released from escrow.
type PositionLiquidated struct {
	PositionID  uint64
	Liquidator  common.Address
	Entitlement *big.Int
	Seized      *big.Int
}

func (PositionLiquidated) EventType() string { return TypePositionLiquidated }

func (e PositionLiquidated) Event() *types.Event {
	return &types.Event{
		Type: TypePositionLiquidated,
		Attributes: map[string]string{
			"positionId":  strconv.FormatUint(e.PositionID, 10),
			"liquidator":  e.Liquidator.Hex(),
			"entitlement": amountString(e.Entitlement),
			"seized":      amountString(e.Seized),
		},
	}
}

// FlashLoanExecuted records a completed flash loan and its accrued fee.
type FlashLoanExecuted struct {
	Receiver common.Address
	Asset    common.Address
	Amount   *big.Int
	Fee      *big.Int
}

func (FlashLoanExecuted) EventType() string { return TypeFlashLoanExecuted }

func (e FlashLoanExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeFlashLoanExecuted,
		Attributes: map[string]string{
			"receiver": e.Receiver.Hex(),
			"asset":    e.Asset.Hex(),
			"amount":   amountString(e.Amount),
			"fee":      amountString(e.Fee),
		},
	}
}
