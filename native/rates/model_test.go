package rates

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"arclend/core/state"
	nativecommon "arclend/native/common"
)

func newTestModel() (*Model, common.Address) {
	admin := common.HexToAddress("0xad")
	roles := nativecommon.NewStaticRoles()
	roles.GrantAdmin(admin)
	st := state.New()
	st.SetRateParams(DefaultRateParams)
	return NewModel(st, roles), admin
}

func TestBorrowRateDefaults(t *testing.T) {
	m, _ := newTestModel()

	cases := []struct {
		utilization uint64
		want        uint64
	}{
		{0, 200},       // base rate only
		{5000, 700},    // below kink: 200 + 5000*1000/10000
		{8000, 1000},   // at kink
		{10000, 2000},  // past kink: 1000 + 2000*5000/10000
	}
	for _, tc := range cases {
		if got := m.BorrowRate(tc.utilization); got != tc.want {
			t.Fatalf("borrow rate at %d: got %d want %d", tc.utilization, got, tc.want)
		}
	}
}

func TestSupplyRateDefaults(t *testing.T) {
	m, _ := newTestModel()
	// 50% utilisation, 10% reserve factor: pool keeps 630 of the 700 borrow
	// rate, scaled by utilisation to 315.
	if got := m.SupplyRate(5000, 1000); got != 315 {
		t.Fatalf("supply rate: got %d want 315", got)
	}
	if got := m.SupplyRate(5000, 10_000); got != 0 {
		t.Fatalf("full reserve factor must zero the supply rate, got %d", got)
	}
}

func TestBorrowRateMonotonic(t *testing.T) {
	m, _ := newTestModel()
	prev := uint64(0)
	for u := uint64(0); u <= 10_000; u++ {
		rate := m.BorrowRate(u)
		if rate < prev {
			t.Fatalf("borrow rate decreased at utilization %d: %d < %d", u, rate, prev)
		}
		prev = rate
	}
}

func TestUpdateRates(t *testing.T) {
	m, admin := newTestModel()

	stranger := common.HexToAddress("0x99")
	if err := m.UpdateRates(stranger, 100, 800, 4000, 7000); err != nativecommon.ErrNotAdmin {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if m.Params() != DefaultRateParams {
		t.Fatalf("params changed on rejected update")
	}

	if err := m.UpdateRates(admin, 100, 800, 4000, 7000); err != nil {
		t.Fatalf("update rates: %v", err)
	}
	params := m.Params()
	if params.BaseRateBps != 100 || params.MultiplierBps != 800 || params.JumpMultiplierBps != 4000 || params.KinkBps != 7000 {
		t.Fatalf("unexpected params after update: %+v", params)
	}
}

func TestUtilizationBps(t *testing.T) {
	if got := UtilizationBps(nil, nil); got != 0 {
		t.Fatalf("nil inputs: %d", got)
	}
	if got := UtilizationBps(bigInt(500), bigInt(1000)); got != 5000 {
		t.Fatalf("half utilization: %d", got)
	}
	if got := UtilizationBps(bigInt(2000), bigInt(1000)); got != 10_000 {
		t.Fatalf("utilization must cap at 10000: %d", got)
	}
}
