package rates

import "math/big"

var (
	basisPoints = big.NewInt(10_000)
	ray         = mustBigInt("1000000000000000000000000000") // 1e27 index precision
)

// secondsPerYear converts annualised bps rates into per-second accrual.
const secondsPerYear = 31_536_000

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// Ray returns a copy of the 1e27 index unit.
func Ray() *big.Int {
	return new(big.Int).Set(ray)
}

func rayMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, ray)
}

// UtilizationBps derives pool utilisation in basis points from outstanding
// borrow principal and supplier deposits. An empty pool is defined as zero
// utilisation; the result is capped at 10000.
func UtilizationBps(borrowed, deposited *big.Int) uint64 {
	if borrowed == nil || borrowed.Sign() <= 0 {
		return 0
	}
	if deposited == nil || deposited.Sign() <= 0 {
		return 0
	}
	u := new(big.Int).Mul(borrowed, basisPoints)
	u.Quo(u, deposited)
	if u.Cmp(basisPoints) > 0 {
		return 10_000
	}
	return u.Uint64()
}
