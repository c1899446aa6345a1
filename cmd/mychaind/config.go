package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"

	"github.com/leejw51/mychain/chain/coin"
	"github.com/leejw51/mychain/chain/params"
)

// tomlSettings mirrors the teacher's config-loading convention (keys match
// Go field names verbatim, and an unknown field is a hard decode error
// rather than silently ignored).
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see %s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// nodeConfig is the on-disk TOML shape for mychaind: the network
// parameters governing every core operation, plus where to persist state
// and how to reach the enclave.
type nodeConfig struct {
	DataDir       string
	DBType        string
	ChainHexID    string
	EnclaveAddr   string // empty uses the in-process stub
	MetricsAddr   string // empty disables the prometheus exporter
	Params        networkParametersConfig
}

// networkParametersConfig is a TOML-friendly mirror of
// params.NetworkParameters (whose Coin/Milli fields don't round-trip
// through TOML directly).
type networkParametersConfig struct {
	FeeConstant            uint64
	FeeCoefficient         uint64
	RequiredStakeWhole     uint64
	UnbondingPeriodSeconds int64
	JailDurationSeconds    int64
	BlockSigningWindow     uint16
	MissedBlockThreshold   int
	LivenessSlashPercent   uint64 // milli-units, e.g. 100 = 10.0%
	ByzantineSlashPercent  uint64
	SlashWaitPeriodSeconds int64
	MaxValidators          int
}

func (c networkParametersConfig) toParams(chainHexID string) *params.NetworkParameters {
	requiredStake, _ := coin.NewCoin(coin.NewMilliFromIntegral(c.RequiredStakeWhole))
	return &params.NetworkParameters{
		Fee: coin.LinearFee{
			Constant:    coin.Milli(c.FeeConstant),
			Coefficient: coin.Milli(c.FeeCoefficient),
		},
		RequiredStake:   requiredStake,
		UnbondingPeriod: c.UnbondingPeriodSeconds,
		Jailing: params.JailingParams{
			JailDuration:         c.JailDurationSeconds,
			BlockSigningWindow:   c.BlockSigningWindow,
			MissedBlockThreshold: c.MissedBlockThreshold,
		},
		Slashing: params.SlashingParams{
			LivenessPercent:  coin.Milli(c.LivenessSlashPercent),
			ByzantinePercent: coin.Milli(c.ByzantineSlashPercent),
			SlashWaitPeriod:  c.SlashWaitPeriodSeconds,
		},
		MaxValidators: c.MaxValidators,
		ChainHexID:    chainHexID,
	}
}

func defaultNodeConfig() nodeConfig {
	return nodeConfig{
		DataDir:     "./mychain-data",
		DBType:      "badger",
		ChainHexID:  "mychain-devnet",
		MetricsAddr: ":9100",
		Params: networkParametersConfig{
			FeeConstant:            100,
			FeeCoefficient:         1,
			RequiredStakeWhole:     1_000_000,
			UnbondingPeriodSeconds: 60 * 60 * 24 * 21,
			JailDurationSeconds:    60 * 60 * 24,
			BlockSigningWindow:     100,
			MissedBlockThreshold:   50,
			LivenessSlashPercent:   100,
			ByzantineSlashPercent:  1000,
			SlashWaitPeriodSeconds: 60 * 60,
			MaxValidators:          100,
		},
	}
}

func loadNodeConfig(path string) (nodeConfig, error) {
	cfg := defaultNodeConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		if _, ok := err.(*toml.LineError); ok {
			return cfg, errors.New(path + ", " + err.Error())
		}
		return cfg, err
	}
	return cfg, nil
}
