package rates

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/state"
)

func bigInt(v int64) *big.Int { return big.NewInt(v) }

var accrualStart = time.Unix(1_700_000_000, 0).UTC()

func TestAccrueOneYearAtTenPercent(t *testing.T) {
	st := state.New()
	reserve := NewReserve(st)
	asset := common.HexToAddress("0x01")

	reserve.Accrue(asset, 1000, accrualStart)
	index := reserve.Accrue(asset, 1000, accrualStart.Add(secondsPerYear*time.Second))

	want := new(big.Int).Mul(Ray(), big.NewInt(11))
	want.Quo(want, big.NewInt(10))
	if index.Cmp(want) != 0 {
		t.Fatalf("unexpected index after one year: got %s want %s", index, want)
	}
}

func TestAccrueIsMonotonicAndDeterministic(t *testing.T) {
	asset := common.HexToAddress("0x01")

	run := func() []*big.Int {
		st := state.New()
		reserve := NewReserve(st)
		out := make([]*big.Int, 0, 4)
		now := accrualStart
		reserve.Accrue(asset, 750, now)
		for i := 0; i < 4; i++ {
			now = now.Add(13 * time.Hour)
			out = append(out, reserve.Accrue(asset, 750, now))
		}
		return out
	}

	first := run()
	second := run()
	prev := Ray()
	for i := range first {
		if first[i].Cmp(second[i]) != 0 {
			t.Fatalf("accrual not deterministic at step %d: %s vs %s", i, first[i], second[i])
		}
		if first[i].Cmp(prev) < 0 {
			t.Fatalf("index decreased at step %d: %s < %s", i, first[i], prev)
		}
		prev = first[i]
	}
}

func TestAccrueZeroElapsedKeepsIndex(t *testing.T) {
	st := state.New()
	reserve := NewReserve(st)
	asset := common.HexToAddress("0x01")

	reserve.Accrue(asset, 1000, accrualStart)
	index := reserve.Accrue(asset, 1000, accrualStart)
	if index.Cmp(Ray()) != 0 {
		t.Fatalf("index moved with zero elapsed time: %s", index)
	}
}

func TestOwed(t *testing.T) {
	opened := Ray()
	current := new(big.Int).Mul(Ray(), big.NewInt(11))
	current.Quo(current, big.NewInt(10))

	owed := Owed(big.NewInt(1000), opened, current)
	if owed.Cmp(big.NewInt(1100)) != 0 {
		t.Fatalf("unexpected owed: %s", owed)
	}

	if got := Owed(big.NewInt(0), opened, current); got.Sign() != 0 {
		t.Fatalf("zero principal owes nothing, got %s", got)
	}
	// Missing index snapshots degrade to the bare principal.
	if got := Owed(big.NewInt(500), nil, current); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected owed without open index: %s", got)
	}
}
