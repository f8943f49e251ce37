package collateral

import "math/big"

// DefaultLiquidationBonusBps is the extra share awarded to liquidators when no
// override is configured: 5%.
const DefaultLiquidationBonusBps = 500

// LiquidationAmount computes the value a liquidator is entitled to extract
// when closing a position: floor(debt * (10000 + bonus) / 10000), or zero when
// no collateral backs the position. The entitlement itself is not capped by
// the collateral on hand; the escrow release during liquidation is, so the
// ledger can never pay out more than it holds.
func LiquidationAmount(debtAmount, collateralAmount *big.Int, bonusBps uint64) *big.Int {
	if collateralAmount == nil || collateralAmount.Sign() == 0 {
		return big.NewInt(0)
	}
	if debtAmount == nil || debtAmount.Sign() <= 0 {
		return big.NewInt(0)
	}
	amount := new(big.Int).SetUint64(10_000 + bonusBps)
	amount.Mul(amount, debtAmount)
	return amount.Quo(amount, big.NewInt(10_000))
}
