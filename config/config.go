package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon's runtime configuration, loaded from a TOML file.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	GenesisFile   string `toml:"GenesisFile"`
	Env           string `toml:"Env"`

	LogFile       string `toml:"LogFile"`
	LogMaxSizeMB  int    `toml:"LogMaxSizeMB"`
	LogMaxBackups int    `toml:"LogMaxBackups"`
	LogMaxAgeDays int    `toml:"LogMaxAgeDays"`

	AdminJWTSecret string `toml:"AdminJWTSecret"`

	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`

	ReserveFactorBps    uint64 `toml:"ReserveFactorBps"`
	LiquidationBonusBps uint64 `toml:"LiquidationBonusBps"`
}

// Load reads the configuration at path, writing a commented default file
// first when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown fields: %s", path, strings.Join(keys, ", "))
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./arclend-data"
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "dev"
	}
	if c.RateLimitPerSecond <= 0 {
		c.RateLimitPerSecond = 50
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 100
	}
	if c.LogMaxSizeMB <= 0 {
		c.LogMaxSizeMB = 100
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.GenesisFile = filepath.Join(filepath.Dir(path), "genesis.yaml")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
