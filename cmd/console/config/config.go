package config

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"
)

// TokenConfig describes one in-memory token to deploy.
type TokenConfig struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
}

// PoolConfig describes one pool to create and seed with liquidity.
// Amounts are decimal strings in base units.
type PoolConfig struct {
	TokenA  string `yaml:"token_a"`
	TokenB  string `yaml:"token_b"`
	FeeBps  uint64 `yaml:"fee_bps"`
	AmountA string `yaml:"amount_a"`
	AmountB string `yaml:"amount_b"`
}

// ConsoleConfig drives the demo console: which tokens to deploy, which
// pools to create, and the protocol fee configuration.
type ConsoleConfig struct {
	OwnerFeeBps uint64        `yaml:"owner_fee_bps"`
	FaucetUnits string        `yaml:"faucet_units"`
	Tokens      []TokenConfig `yaml:"tokens"`
	Pools       []PoolConfig  `yaml:"pools"`
}

// LoadConfig reads a configuration file from the given path and unmarshals
// it into a ConsoleConfig struct.
func LoadConfig(path string) (*ConsoleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ConsoleConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in demo setup: three tokens, one seeded pool
// and a 1% protocol fee.
func Default() *ConsoleConfig {
	return &ConsoleConfig{
		OwnerFeeBps: 1000,
		FaucetUnits: "10000000000000000000000",
		Tokens: []TokenConfig{
			{Name: "DAI Token", Symbol: "DAI"},
			{Name: "UNI Token", Symbol: "UNI"},
			{Name: "BAT Token", Symbol: "BAT"},
		},
		Pools: []PoolConfig{
			{TokenA: "UNI", TokenB: "DAI", FeeBps: 2000, AmountA: "50000000000000000000", AmountB: "100000000000000000000"},
		},
	}
}

// ParseAmount converts a decimal string into a big.Int.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
