package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	nativecommon "arclend/native/common"
	"arclend/protocol"
)

const genesisYAML = `
admins:
  - "0x00000000000000000000000000000000000000ad"
liquidators:
  - "0x0000000000000000000000000000000000000011"
assets:
  - address: "0x00000000000000000000000000000000000000d0"
    price: "100000000"
collateral:
  - address: "0x00000000000000000000000000000000000000c0"
    minRatioBps: 15000
rates:
  baseRateBps: 200
  multiplierBps: 1000
  jumpMultiplierBps: 5000
  kinkBps: 8000
balances:
  - account: "0x000000000000000000000000000000000000005a"
    asset: "0x00000000000000000000000000000000000000d0"
    amount: "1000000000000000000000"
`

func writeGenesis(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadGenesisAndApply(t *testing.T) {
	gen, err := LoadGenesis(writeGenesis(t, genesisYAML))
	require.NoError(t, err)

	roles, err := gen.Roles()
	require.NoError(t, err)

	ledger := protocol.NewLedger(protocol.Config{
		Roles: roles,
		Clock: nativecommon.NewManualClock(nativecommon.SystemClock{}.Now()),
	})
	require.NoError(t, gen.Apply(ledger))

	asset := common.HexToAddress("0xd0")
	require.True(t, ledger.IsRegistered(asset))

	price, err := ledger.GetPrice(asset)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100_000_000), price)

	col := ledger.CollateralConfig(common.HexToAddress("0xc0"))
	require.True(t, col.Supported)
	require.EqualValues(t, 15_000, col.MinRatioBps)

	supplier := common.HexToAddress("0x5a")
	want, _ := new(big.Int).SetString("1000000000000000000000", 10)
	require.Equal(t, want, ledger.BalanceOf(supplier, asset))
}

func TestLoadGenesisRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"no admins":      `assets: []`,
		"bad address":    "admins: [\"not-an-address\"]",
		"zero price":     "admins: [\"0x00000000000000000000000000000000000000ad\"]\nassets:\n  - address: \"0x00000000000000000000000000000000000000d0\"\n    price: \"0\"",
		"thin ratio":     "admins: [\"0x00000000000000000000000000000000000000ad\"]\ncollateral:\n  - address: \"0x00000000000000000000000000000000000000c0\"\n    minRatioBps: 9999",
		"bad amount":     "admins: [\"0x00000000000000000000000000000000000000ad\"]\nbalances:\n  - account: \"0x000000000000000000000000000000000000005a\"\n    asset: \"0x00000000000000000000000000000000000000d0\"\n    amount: \"-5\"",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadGenesis(writeGenesis(t, body))
			require.Error(t, err)
		})
	}
}
