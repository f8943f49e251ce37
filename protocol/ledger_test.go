package protocol

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/events"
	"arclend/core/types"
	nativecommon "arclend/native/common"
	"arclend/native/lending"
)

var (
	genesisTime = time.Unix(1_700_000_000, 0).UTC()
	admin       = common.HexToAddress("0xad")
	liquidator  = common.HexToAddress("0x11")
	supplier    = common.HexToAddress("0x5a")
	borrower    = common.HexToAddress("0xb0")
	debtAsset   = common.HexToAddress("0xd0")
	colAsset    = common.HexToAddress("0xc0")
)

func ether(n int64) *big.Int {
	wei := big.NewInt(1_000_000_000_000_000_000)
	return new(big.Int).Mul(big.NewInt(n), wei)
}

func newLedger(t *testing.T) (*Ledger, *nativecommon.ManualClock) {
	t.Helper()
	roles := nativecommon.NewStaticRoles()
	roles.GrantAdmin(admin)
	roles.GrantLiquidator(liquidator)
	clock := nativecommon.NewManualClock(genesisTime)

	l := NewLedger(Config{Roles: roles, Clock: clock})

	if err := l.RegisterAsset(admin, debtAsset); err != nil {
		t.Fatalf("register asset: %v", err)
	}
	if err := l.ConfigureCollateral(admin, colAsset, 15_000); err != nil {
		t.Fatalf("configure collateral: %v", err)
	}
	for _, asset := range []common.Address{debtAsset, colAsset} {
		if err := l.UpdatePrice(admin, asset, big.NewInt(100_000_000)); err != nil {
			t.Fatalf("update price: %v", err)
		}
	}
	if err := l.Mint(admin, supplier, debtAsset, ether(10_000)); err != nil {
		t.Fatalf("mint supplier: %v", err)
	}
	if err := l.Mint(admin, borrower, colAsset, ether(1000)); err != nil {
		t.Fatalf("mint borrower: %v", err)
	}
	return l, clock
}

func TestLoanLifecycleThroughLedger(t *testing.T) {
	l, clock := newLedger(t)

	if err := l.Deposit(supplier, debtAsset, ether(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	id, err := l.Borrow(borrower, debtAsset, ether(500), colAsset, ether(800), 0)
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if got := l.BalanceOf(borrower, debtAsset); got.Cmp(ether(500)) != 0 {
		t.Fatalf("borrower payout: %s", got)
	}

	// Prices go stale while the loan runs; refresh them before settling.
	clock.Advance(365 * 24 * time.Hour)
	if err := l.UpdatePrice(admin, debtAsset, big.NewInt(100_000_000)); err != nil {
		t.Fatalf("refresh price: %v", err)
	}
	if err := l.Mint(admin, borrower, debtAsset, ether(100)); err != nil {
		t.Fatalf("mint settlement funds: %v", err)
	}

	owed, err := l.Repay(borrower, id, debtAsset)
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if owed.Cmp(ether(535)) != 0 {
		t.Fatalf("owed after one year at 50%% utilisation: %s", owed)
	}
	pos := l.Position(id)
	if pos == nil || pos.State != types.PositionRepaid {
		t.Fatalf("position not repaid: %+v", pos)
	}
	if got := l.BalanceOf(borrower, colAsset); got.Cmp(ether(1000)) != 0 {
		t.Fatalf("collateral not returned: %s", got)
	}
}

func TestAbortedOperationLeavesNoTrace(t *testing.T) {
	l, _ := newLedger(t)

	auditBefore := len(l.Events())
	// Borrow against thin collateral fails the ratio check.
	if _, err := l.Borrow(borrower, debtAsset, ether(100), colAsset, ether(10), 0); err == nil {
		t.Fatalf("expected borrow rejection")
	}
	if got := len(l.Events()); got != auditBefore {
		t.Fatalf("aborted operation reached the audit trail: %d events", got-auditBefore)
	}
	if got := l.BalanceOf(borrower, colAsset); got.Cmp(ether(1000)) != 0 {
		t.Fatalf("collateral moved despite abort: %s", got)
	}
}

func TestCommittedEventsReachAuditAndSink(t *testing.T) {
	roles := nativecommon.NewStaticRoles()
	roles.GrantAdmin(admin)
	sink := events.NewBuffer()
	l := NewLedger(Config{Roles: roles, Clock: nativecommon.NewManualClock(genesisTime), Sink: sink})

	if err := l.RegisterAsset(admin, debtAsset); err != nil {
		t.Fatalf("register asset: %v", err)
	}
	audit := l.Events()
	if len(audit) != 1 || audit[0].EventType() != events.TypeTokenRegistered {
		t.Fatalf("unexpected audit trail: %+v", audit)
	}
	forwarded := sink.Events()
	if len(forwarded) != 1 || forwarded[0].EventType() != events.TypeTokenRegistered {
		t.Fatalf("event not forwarded to sink: %+v", forwarded)
	}
}

func TestFlashLoanThroughLedgerDoesNotDeadlock(t *testing.T) {
	l, _ := newLedger(t)
	if err := l.Deposit(supplier, debtAsset, ether(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := l.Mint(admin, borrower, debtAsset, ether(10)); err != nil {
		t.Fatalf("mint fee funds: %v", err)
	}

	// The callback runs nested pool operations on the engine it receives
	// while the ledger lock is held, then keeps the borrowed funds. The
	// shortfall must revert the nested deposit along with the payout.
	strategy := lending.FlashBorrowerFunc(func(engine *lending.Engine, caller, asset common.Address, amount, _ *big.Int, now time.Time) error {
		return engine.Deposit(caller, asset, amount, now)
	})

	if _, err := l.FlashLoan(borrower, debtAsset, ether(200), strategy); err != lending.ErrFlashLoanNotRepaid {
		t.Fatalf("expected ErrFlashLoanNotRepaid, got %v", err)
	}
	if got := l.Stats(debtAsset).Deposited; got.Cmp(ether(1000)) != 0 {
		t.Fatalf("nested writes survived revert: %s", got)
	}
	if got := l.DepositOf(borrower, debtAsset); got.Sign() != 0 {
		t.Fatalf("nested deposit survived revert: %s", got)
	}
}
