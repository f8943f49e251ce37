package oracle

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/state"
	nativecommon "arclend/native/common"
)

var t0 = time.Unix(1_700_000_000, 0).UTC()

func newTestOracle() (*Oracle, common.Address) {
	admin := common.HexToAddress("0xad")
	roles := nativecommon.NewStaticRoles()
	roles.GrantAdmin(admin)
	return New(state.New(), roles), admin
}

func TestUpdatePriceRejectsZero(t *testing.T) {
	o, admin := newTestOracle()
	asset := common.HexToAddress("0x01")

	if err := o.UpdatePrice(admin, asset, big.NewInt(0), t0); err != ErrInvalidPrice {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if _, _, err := o.GetPriceUnsafe(asset, t0); err != ErrPriceNotFound {
		t.Fatalf("zero price must not be stored: %v", err)
	}
}

func TestGetPriceStalenessBoundary(t *testing.T) {
	o, admin := newTestOracle()
	asset := common.HexToAddress("0x01")
	price := new(big.Int).Mul(big.NewInt(1500), big.NewInt(100_000_000)) // $1500, 8 decimals

	if err := o.UpdatePrice(admin, asset, price, t0); err != nil {
		t.Fatalf("update price: %v", err)
	}

	// Exactly MaxAge is still fresh.
	got, err := o.GetPrice(asset, t0.Add(MaxAge))
	if err != nil {
		t.Fatalf("price at exact age boundary: %v", err)
	}
	if got.Cmp(price) != 0 {
		t.Fatalf("unexpected price: %s", got)
	}

	// One second past the window is stale.
	if _, err := o.GetPrice(asset, t0.Add(MaxAge+time.Second)); err != ErrStalePrice {
		t.Fatalf("expected ErrStalePrice, got %v", err)
	}

	// The unsafe accessor keeps serving the record with its age.
	unsafe, age, err := o.GetPriceUnsafe(asset, t0.Add(MaxAge+time.Second))
	if err != nil {
		t.Fatalf("unsafe read: %v", err)
	}
	if unsafe.Cmp(price) != 0 || age != MaxAge+time.Second {
		t.Fatalf("unexpected unsafe read: price=%s age=%s", unsafe, age)
	}
}

func TestUpdatePricesBatch(t *testing.T) {
	o, admin := newTestOracle()
	assetA := common.HexToAddress("0x01")
	assetB := common.HexToAddress("0x02")

	err := o.UpdatePrices(admin, []common.Address{assetA, assetB}, []*big.Int{big.NewInt(1)}, t0)
	if err != ErrLengthMismatch {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}

	// A zero price anywhere in the batch aborts the whole batch.
	err = o.UpdatePrices(admin, []common.Address{assetA, assetB}, []*big.Int{big.NewInt(1000), big.NewInt(0)}, t0)
	if err != ErrInvalidPrice {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if _, _, err := o.GetPriceUnsafe(assetA, t0); err != ErrPriceNotFound {
		t.Fatalf("partial batch applied: %v", err)
	}

	err = o.UpdatePrices(admin, []common.Address{assetA, assetB}, []*big.Int{big.NewInt(1000), big.NewInt(2000)}, t0)
	if err != nil {
		t.Fatalf("batch update: %v", err)
	}
	a, _ := o.GetPrice(assetA, t0)
	b, _ := o.GetPrice(assetB, t0)
	if a.Cmp(big.NewInt(1000)) != 0 || b.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("unexpected batch prices: %s %s", a, b)
	}
}

func TestUpdatePriceRequiresAdmin(t *testing.T) {
	o, _ := newTestOracle()
	stranger := common.HexToAddress("0x99")
	asset := common.HexToAddress("0x01")

	if err := o.UpdatePrice(stranger, asset, big.NewInt(1), t0); err != nativecommon.ErrNotAdmin {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
}
