package collateral

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/state"
	"arclend/core/types"
	"arclend/native/bank"
	nativecommon "arclend/native/common"
	"arclend/native/oracle"
)

var (
	testNow    = time.Unix(1_700_000_000, 0).UTC()
	admin      = common.HexToAddress("0xad")
	liquidator = common.HexToAddress("0x11")
	borrower   = common.HexToAddress("0xb0")
	colAsset   = common.HexToAddress("0xc0")
	debtAsset  = common.HexToAddress("0xd0")
)

type fixture struct {
	state   *state.State
	bank    *bank.Ledger
	oracle  *oracle.Oracle
	manager *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	roles := nativecommon.NewStaticRoles()
	roles.GrantAdmin(admin)
	roles.GrantLiquidator(liquidator)

	st := state.New()
	ledger := bank.NewLedger(st)
	priceOracle := oracle.New(st, roles)
	manager := NewManager(st, ledger, priceOracle, roles)

	if err := ledger.Mint(borrower, colAsset, ether(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	return &fixture{state: st, bank: ledger, oracle: priceOracle, manager: manager}
}

func (f *fixture) setPrice(t *testing.T, asset common.Address, price int64, now time.Time) {
	t.Helper()
	if err := f.oracle.UpdatePrice(admin, asset, big.NewInt(price), now); err != nil {
		t.Fatalf("update price: %v", err)
	}
}

func TestConfigureCollateralRatioBounds(t *testing.T) {
	f := newFixture(t)

	if err := f.manager.ConfigureCollateral(admin, colAsset, 5000); err != ErrInvalidRatio {
		t.Fatalf("expected ErrInvalidRatio, got %v", err)
	}
	if f.manager.Config(colAsset).Supported {
		t.Fatalf("asset configured despite invalid ratio")
	}
	// Exactly 100% is accepted.
	if err := f.manager.ConfigureCollateral(admin, colAsset, 10_000); err != nil {
		t.Fatalf("configure at 100%%: %v", err)
	}
	if got := f.manager.Config(colAsset).MinRatioBps; got != 10_000 {
		t.Fatalf("unexpected ratio: %d", got)
	}
}

func TestDepositCollateralUnsupportedAsset(t *testing.T) {
	f := newFixture(t)

	before := f.state.PositionSequence()
	_, err := f.manager.DepositCollateral(borrower, colAsset, ether(10), testNow)
	if err != ErrUnsupportedAsset {
		t.Fatalf("expected ErrUnsupportedAsset, got %v", err)
	}
	if f.state.PositionSequence() != before {
		t.Fatalf("position counter advanced on failed deposit")
	}
}

func TestDepositAndWithdrawCollateral(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.ConfigureCollateral(admin, colAsset, 15_000); err != nil {
		t.Fatalf("configure: %v", err)
	}

	id, err := f.manager.DepositCollateral(borrower, colAsset, ether(100), testNow)
	if err != nil {
		t.Fatalf("deposit collateral: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first position id 1, got %d", id)
	}
	if got := f.bank.BalanceOf(nativecommon.EscrowAccount, colAsset); got.Cmp(ether(100)) != 0 {
		t.Fatalf("escrow balance: %s", got)
	}

	pos := f.manager.Position(id)
	if pos.Borrower != borrower || pos.State != types.PositionActive {
		t.Fatalf("unexpected position: %+v", pos)
	}

	if err := f.manager.WithdrawCollateral(borrower, id, ether(100), testNow); err != nil {
		t.Fatalf("withdraw collateral: %v", err)
	}
	pos = f.manager.Position(id)
	if pos.CollateralAmount.Sign() != 0 || pos.State != types.PositionWithdrawn {
		t.Fatalf("position not drained: %+v", pos)
	}
	if got := f.bank.BalanceOf(borrower, colAsset); got.Cmp(ether(1000)) != 0 {
		t.Fatalf("borrower balance not restored: %s", got)
	}
}

func TestWithdrawCollateralNotBorrower(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.ConfigureCollateral(admin, colAsset, 15_000); err != nil {
		t.Fatalf("configure: %v", err)
	}
	id, err := f.manager.DepositCollateral(borrower, colAsset, ether(100), testNow)
	if err != nil {
		t.Fatalf("deposit collateral: %v", err)
	}

	stranger := common.HexToAddress("0x99")
	if err := f.manager.WithdrawCollateral(stranger, id, ether(1), testNow); err != ErrNotBorrower {
		t.Fatalf("expected ErrNotBorrower, got %v", err)
	}
	pos := f.manager.Position(id)
	if pos.CollateralAmount.Cmp(ether(100)) != 0 || pos.State != types.PositionActive {
		t.Fatalf("position mutated on rejected withdraw: %+v", pos)
	}
}

func TestWithdrawCollateralExceedsEscrow(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.ConfigureCollateral(admin, colAsset, 15_000); err != nil {
		t.Fatalf("configure: %v", err)
	}
	id, err := f.manager.DepositCollateral(borrower, colAsset, ether(100), testNow)
	if err != nil {
		t.Fatalf("deposit collateral: %v", err)
	}
	if err := f.manager.WithdrawCollateral(borrower, id, ether(101), testNow); err != ErrInsufficientCollateral {
		t.Fatalf("expected ErrInsufficientCollateral, got %v", err)
	}
}

func openLoanPosition(t *testing.T, f *fixture, collateralAmount, principal *big.Int) uint64 {
	t.Helper()
	id, err := f.manager.OpenLoanPosition(borrower, debtAsset, principal, big.NewInt(1), colAsset, collateralAmount, 0, testNow)
	if err != nil {
		t.Fatalf("open loan position: %v", err)
	}
	totals := f.state.PoolTotals(debtAsset)
	totals.Borrowed = new(big.Int).Add(totals.Borrowed, principal)
	f.state.PutPoolTotals(debtAsset, totals)
	return id
}

func TestLiquidateHealthyPositionRejected(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.ConfigureCollateral(admin, colAsset, 15_000); err != nil {
		t.Fatalf("configure: %v", err)
	}
	f.setPrice(t, colAsset, 2_000_00000000, testNow)
	f.setPrice(t, debtAsset, 1_00000000, testNow)

	// 100 collateral @ $2000 against 1000 debt @ $1: massively over-collateralized.
	id := openLoanPosition(t, f, ether(100), ether(1000))

	if _, _, err := f.manager.LiquidatePosition(liquidator, id, testNow); err != ErrNotLiquidatable {
		t.Fatalf("expected ErrNotLiquidatable, got %v", err)
	}
}

func TestLiquidateUnderCollateralizedPosition(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.ConfigureCollateral(admin, colAsset, 15_000); err != nil {
		t.Fatalf("configure: %v", err)
	}
	f.setPrice(t, colAsset, 1_00000000, testNow)
	f.setPrice(t, debtAsset, 1_00000000, testNow)

	// 100 collateral against 100 debt at equal prices: below the 150% floor.
	id := openLoanPosition(t, f, ether(100), ether(100))

	entitlement, seized, err := f.manager.LiquidatePosition(liquidator, id, testNow)
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if entitlement.Cmp(ether(105)) != 0 {
		t.Fatalf("unexpected entitlement: %s", entitlement)
	}
	if seized.Cmp(ether(100)) != 0 {
		t.Fatalf("unexpected seizure: %s", seized)
	}
	pos := f.manager.Position(id)
	if pos.State != types.PositionLiquidated || pos.CollateralAmount.Sign() != 0 {
		t.Fatalf("position not closed: %+v", pos)
	}
	if got := f.bank.BalanceOf(liquidator, colAsset); got.Cmp(ether(100)) != 0 {
		t.Fatalf("liquidator payout: %s", got)
	}
	if got := f.state.PoolTotals(debtAsset).Borrowed; got.Sign() != 0 {
		t.Fatalf("principal not written off: %s", got)
	}
}

func TestLiquidateRequiresRole(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.ConfigureCollateral(admin, colAsset, 15_000); err != nil {
		t.Fatalf("configure: %v", err)
	}
	f.setPrice(t, colAsset, 1_00000000, testNow)
	f.setPrice(t, debtAsset, 1_00000000, testNow)
	id := openLoanPosition(t, f, ether(100), ether(100))

	if _, _, err := f.manager.LiquidatePosition(borrower, id, testNow); err != nativecommon.ErrNotLiquidator {
		t.Fatalf("expected ErrNotLiquidator, got %v", err)
	}
}

func TestLiquidateStalePriceRejected(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.ConfigureCollateral(admin, colAsset, 15_000); err != nil {
		t.Fatalf("configure: %v", err)
	}
	f.setPrice(t, colAsset, 1_00000000, testNow)
	f.setPrice(t, debtAsset, 1_00000000, testNow)
	id := openLoanPosition(t, f, ether(100), ether(100))

	later := testNow.Add(2 * time.Hour)
	_, _, err := f.manager.LiquidatePosition(liquidator, id, later)
	if !errors.Is(err, oracle.ErrStalePrice) {
		t.Fatalf("expected stale price error, got %v", err)
	}
}
