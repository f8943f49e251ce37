package state

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/types"
)

func TestSnapshotRevertRestoresEverything(t *testing.T) {
	st := New()
	acct := common.HexToAddress("0x01")
	asset := common.HexToAddress("0x02")

	st.SetBalance(acct, asset, big.NewInt(100))
	st.SetDeposit(acct, asset, big.NewInt(40))
	st.SetAssetRegistered(asset)
	st.PutPosition(&types.Position{
		ID:               st.NextPositionID(),
		Borrower:         acct,
		CollateralAsset:  asset,
		CollateralAmount: big.NewInt(10),
		State:            types.PositionActive,
	})

	rev := st.Snapshot()

	st.SetBalance(acct, asset, big.NewInt(999))
	st.SetDeposit(acct, asset, big.NewInt(0))
	id := st.NextPositionID()
	st.PutPosition(&types.Position{ID: id, Borrower: acct, CollateralAmount: big.NewInt(5), State: types.PositionActive})
	st.PutPriceRecord(asset, &types.PriceRecord{Price: big.NewInt(1), ObservedAt: time.Unix(10, 0)})

	st.RevertToSnapshot(rev)

	if got := st.Balance(acct, asset); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance not reverted: %s", got)
	}
	if got := st.Deposit(acct, asset); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("deposit not reverted: %s", got)
	}
	if st.Position(id) != nil {
		t.Fatalf("position %d should not survive revert", id)
	}
	if st.PositionSequence() != 2 {
		t.Fatalf("position counter not reverted: %d", st.PositionSequence())
	}
	if st.PriceRecord(asset) != nil {
		t.Fatalf("price record should not survive revert")
	}
}

func TestSnapshotsNest(t *testing.T) {
	st := New()
	acct := common.HexToAddress("0x0a")
	asset := common.HexToAddress("0x0b")

	st.SetBalance(acct, asset, big.NewInt(1))
	outer := st.Snapshot()
	st.SetBalance(acct, asset, big.NewInt(2))
	inner := st.Snapshot()
	st.SetBalance(acct, asset, big.NewInt(3))

	st.RevertToSnapshot(inner)
	if got := st.Balance(acct, asset); got.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("inner revert: got %s", got)
	}
	st.RevertToSnapshot(outer)
	if got := st.Balance(acct, asset); got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("outer revert: got %s", got)
	}
}

func TestStoredValuesAreCopies(t *testing.T) {
	st := New()
	acct := common.HexToAddress("0x0c")
	asset := common.HexToAddress("0x0d")

	amount := big.NewInt(50)
	st.SetBalance(acct, asset, amount)
	amount.SetInt64(0)
	if got := st.Balance(acct, asset); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("stored balance aliases caller value: %s", got)
	}

	pos := &types.Position{ID: st.NextPositionID(), CollateralAmount: big.NewInt(7), State: types.PositionActive}
	st.PutPosition(pos)
	pos.CollateralAmount.SetInt64(0)
	if got := st.Position(pos.ID); got.CollateralAmount.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("stored position aliases caller value: %s", got.CollateralAmount)
	}
}
