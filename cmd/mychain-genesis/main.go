// Command mychain-genesis is the developer tooling surface for assembling
// a genesis file: it reads a developer-authored account/validator config
// and writes (or patches in place) the app_state section of a Tendermint
// genesis.json, mirroring the teacher's cmd/istanbul/genesis package (a
// small Option-driven genesis builder) adapted from an Ethereum-style
// blockchain.Genesis to this chain's StakingAccount app_state.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/naoina/toml"
	"github.com/urfave/cli"

	"github.com/leejw51/mychain/chain/account"
	"github.com/leejw51/mychain/chain/coin"
)

var (
	tendermintGenesisPathFlag = cli.StringFlag{Name: "tendermint-genesis-path", Usage: "path to an existing Tendermint genesis.json"}
	genesisDevConfigPathFlag  = cli.StringFlag{Name: "genesis-dev-config-path", Usage: "path to a TOML file describing genesis accounts and validators"}
	inPlaceFlag               = cli.BoolFlag{Name: "in-place", Usage: "patch tendermint-genesis-path in place instead of writing <tendermint-genesis-path>.out next to it"}
)

// devConfig is the developer-facing genesis description: whole-coin
// amounts and hex addresses/pubkeys instead of the wire encodings
// chain/account/chain/coin use internally.
type devConfig struct {
	ChainHexID string
	Accounts   []devAccount
}

type devAccount struct {
	Address         string
	BondedWhole     uint64
	UnbondedWhole   uint64
	ConsensusPubkey string // hex; empty means no council-node seat
	Name            string
}

// appState is the JSON shape embedded into genesis.json's app_state field.
type appState struct {
	ChainHexID string          `json:"chain_hex_id"`
	Accounts   []appStateEntry `json:"accounts"`
}

type appStateEntry struct {
	Address         string `json:"address"`
	BondedMilli     uint64 `json:"bonded_milli"`
	UnbondedMilli   uint64 `json:"unbonded_milli"`
	ConsensusPubkey string `json:"consensus_pubkey,omitempty"`
	Name            string `json:"name,omitempty"`
}

func main() {
	app := cli.NewApp()
	app.Name = "mychain-genesis"
	app.Usage = "generate or patch a chain genesis file"
	app.Commands = []cli.Command{
		{
			Name:  "generate",
			Usage: "build app_state from a dev config and merge it into a Tendermint genesis file",
			Flags: []cli.Flag{tendermintGenesisPathFlag, genesisDevConfigPathFlag, inPlaceFlag},
			Action: generate,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadDevConfig(path string) (devConfig, error) {
	var cfg devConfig
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("mychain-genesis: parse dev config: %w", err)
	}
	return cfg, nil
}

func buildAppState(cfg devConfig) (appState, error) {
	state := appState{ChainHexID: cfg.ChainHexID}
	for _, a := range cfg.Accounts {
		addrBytes, err := hex.DecodeString(a.Address)
		if err != nil || len(addrBytes) != 20 {
			return state, fmt.Errorf("mychain-genesis: account %q: invalid 20-byte address", a.Address)
		}
		bonded, err := coin.NewCoin(coin.NewMilliFromIntegral(a.BondedWhole))
		if err != nil {
			return state, fmt.Errorf("mychain-genesis: account %q: %w", a.Address, err)
		}
		unbonded, err := coin.NewCoin(coin.NewMilliFromIntegral(a.UnbondedWhole))
		if err != nil {
			return state, fmt.Errorf("mychain-genesis: account %q: %w", a.Address, err)
		}
		state.Accounts = append(state.Accounts, appStateEntry{
			Address:         a.Address,
			BondedMilli:     uint64(bonded.Milli()),
			UnbondedMilli:   uint64(unbonded.Milli()),
			ConsensusPubkey: a.ConsensusPubkey,
			Name:            a.Name,
		})
	}
	return state, nil
}

// decodeGenesisAccounts turns app_state JSON back into account.StakingAccount
// records, the form abci.InitChain consumes. It is unexported and has no
// caller in this repository; council-node fields of an entry are not
// decoded.
func decodeGenesisAccounts(state appState) ([]account.StakingAccount, error) {
	var out []account.StakingAccount
	for _, e := range state.Accounts {
		addrBytes, err := hex.DecodeString(e.Address)
		if err != nil {
			return nil, err
		}
		var addr account.Address
		copy(addr[:], addrBytes)
		bonded, _ := coin.NewCoin(coin.Milli(e.BondedMilli))
		unbonded, _ := coin.NewCoin(coin.Milli(e.UnbondedMilli))
		out = append(out, account.StakingAccount{Address: addr, Bonded: bonded, Unbonded: unbonded})
	}
	return out, nil
}

func generate(ctx *cli.Context) error {
	devPath := ctx.String(genesisDevConfigPathFlag.Name)
	tmPath := ctx.String(tendermintGenesisPathFlag.Name)
	if devPath == "" || tmPath == "" {
		return fmt.Errorf("mychain-genesis: both --%s and --%s are required", genesisDevConfigPathFlag.Name, tendermintGenesisPathFlag.Name)
	}

	devCfg, err := loadDevConfig(devPath)
	if err != nil {
		return err
	}
	state, err := buildAppState(devCfg)
	if err != nil {
		return err
	}

	raw, err := ioutil.ReadFile(tmPath)
	if err != nil {
		return fmt.Errorf("mychain-genesis: read tendermint genesis: %w", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("mychain-genesis: parse tendermint genesis: %w", err)
	}
	encodedState, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	doc["app_state"] = encodedState

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	outPath := tmPath
	if !ctx.Bool(inPlaceFlag.Name) {
		outPath = tmPath + ".out"
	}
	if err := ioutil.WriteFile(outPath, out, 0644); err != nil {
		return fmt.Errorf("mychain-genesis: write %s: %w", outPath, err)
	}
	fmt.Fprintf(os.Stdout, "wrote %s (%d accounts)\n", outPath, len(state.Accounts))
	return nil
}
