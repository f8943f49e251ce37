package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	nativecommon "arclend/native/common"
	"arclend/protocol"
)

// Genesis declares the protocol's boot state: role grants, the asset
// whitelist with opening prices, collateral settings, the interest curve, and
// initial balances.
type Genesis struct {
	Admins      []string            `yaml:"admins"`
	Liquidators []string            `yaml:"liquidators"`
	Assets      []GenesisAsset      `yaml:"assets"`
	Collateral  []GenesisCollateral `yaml:"collateral"`
	Rates       *GenesisRates       `yaml:"rates"`
	Balances    []GenesisBalance    `yaml:"balances"`
}

// GenesisAsset whitelists an asset and sets its opening oracle price.
type GenesisAsset struct {
	Address string `yaml:"address"`
	Price   string `yaml:"price"`
}

// GenesisCollateral enables an asset as collateral.
type GenesisCollateral struct {
	Address     string `yaml:"address"`
	MinRatioBps uint64 `yaml:"minRatioBps"`
}

// GenesisRates overrides the default interest curve.
type GenesisRates struct {
	BaseRateBps       uint64 `yaml:"baseRateBps"`
	MultiplierBps     uint64 `yaml:"multiplierBps"`
	JumpMultiplierBps uint64 `yaml:"jumpMultiplierBps"`
	KinkBps           uint64 `yaml:"kinkBps"`
}

// GenesisBalance credits an account at boot. Amount is a decimal string in
// base units.
type GenesisBalance struct {
	Account string `yaml:"account"`
	Asset   string `yaml:"asset"`
	Amount  string `yaml:"amount"`
}

// LoadGenesis reads and validates the YAML genesis file at path.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	gen := &Genesis{}
	if err := yaml.Unmarshal(raw, gen); err != nil {
		return nil, fmt.Errorf("parse genesis %s: %w", path, err)
	}
	if err := gen.Validate(); err != nil {
		return nil, fmt.Errorf("genesis %s: %w", path, err)
	}
	return gen, nil
}

// Validate checks addresses and amounts without touching any ledger.
func (g *Genesis) Validate() error {
	if len(g.Admins) == 0 {
		return fmt.Errorf("at least one admin is required")
	}
	for _, addr := range append(append([]string{}, g.Admins...), g.Liquidators...) {
		if _, err := parseAddress(addr); err != nil {
			return err
		}
	}
	for _, asset := range g.Assets {
		if _, err := parseAddress(asset.Address); err != nil {
			return err
		}
		price, err := parseAmount(asset.Price)
		if err != nil {
			return fmt.Errorf("asset %s: %w", asset.Address, err)
		}
		if price.Sign() == 0 {
			return fmt.Errorf("asset %s: price must be positive", asset.Address)
		}
	}
	for _, col := range g.Collateral {
		if _, err := parseAddress(col.Address); err != nil {
			return err
		}
		if col.MinRatioBps < 10_000 {
			return fmt.Errorf("collateral %s: minimum ratio below 100%%", col.Address)
		}
	}
	for _, bal := range g.Balances {
		if _, err := parseAddress(bal.Account); err != nil {
			return err
		}
		if _, err := parseAddress(bal.Asset); err != nil {
			return err
		}
		if _, err := parseAmount(bal.Amount); err != nil {
			return fmt.Errorf("balance for %s: %w", bal.Account, err)
		}
	}
	return nil
}

// Roles builds the static role set granted at boot.
func (g *Genesis) Roles() (*nativecommon.StaticRoles, error) {
	roles := nativecommon.NewStaticRoles()
	for _, addr := range g.Admins {
		parsed, err := parseAddress(addr)
		if err != nil {
			return nil, err
		}
		roles.GrantAdmin(parsed)
	}
	for _, addr := range g.Liquidators {
		parsed, err := parseAddress(addr)
		if err != nil {
			return nil, err
		}
		roles.GrantLiquidator(parsed)
	}
	return roles, nil
}

// Apply replays the genesis declarations onto a freshly constructed ledger
// using the first admin as the caller.
func (g *Genesis) Apply(l *protocol.Ledger) error {
	admin, err := parseAddress(g.Admins[0])
	if err != nil {
		return err
	}
	if g.Rates != nil {
		if err := l.UpdateRates(admin, g.Rates.BaseRateBps, g.Rates.MultiplierBps, g.Rates.JumpMultiplierBps, g.Rates.KinkBps); err != nil {
			return fmt.Errorf("apply rates: %w", err)
		}
	}
	for _, asset := range g.Assets {
		addr, err := parseAddress(asset.Address)
		if err != nil {
			return err
		}
		if err := l.RegisterAsset(admin, addr); err != nil {
			return fmt.Errorf("register %s: %w", asset.Address, err)
		}
		price, err := parseAmount(asset.Price)
		if err != nil {
			return err
		}
		if err := l.UpdatePrice(admin, addr, price); err != nil {
			return fmt.Errorf("price %s: %w", asset.Address, err)
		}
	}
	for _, col := range g.Collateral {
		addr, err := parseAddress(col.Address)
		if err != nil {
			return err
		}
		if err := l.ConfigureCollateral(admin, addr, col.MinRatioBps); err != nil {
			return fmt.Errorf("collateral %s: %w", col.Address, err)
		}
	}
	for _, bal := range g.Balances {
		account, err := parseAddress(bal.Account)
		if err != nil {
			return err
		}
		asset, err := parseAddress(bal.Asset)
		if err != nil {
			return err
		}
		amount, err := parseAmount(bal.Amount)
		if err != nil {
			return err
		}
		if amount.Sign() == 0 {
			continue
		}
		if err := l.Mint(admin, account, asset, amount); err != nil {
			return fmt.Errorf("mint for %s: %w", bal.Account, err)
		}
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	trimmed := strings.TrimSpace(s)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(trimmed), nil
}

func parseAmount(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("amount missing")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}
