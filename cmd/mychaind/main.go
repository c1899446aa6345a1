// Command mychaind opens the proof-of-stake core state machine's storage,
// wires its enclave proxy, performs the startup handshake (genesis or
// resume) and serves metrics, then waits for a shutdown signal; it exposes
// no transport through which a consensus engine can send further requests.
// Flags and config loading follow the teacher's cmd/kcn entrypoint shape
// (urfave/cli app, TOML config file, badger/leveldb-backed DataDir), wired
// to this chain's Handler instead of klaytn's node stack.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/leejw51/mychain/chain/abci"
	"github.com/leejw51/mychain/chain/coin"
	"github.com/leejw51/mychain/chain/enclave"
	chainlog "github.com/leejw51/mychain/chain/log"
	"github.com/leejw51/mychain/chain/metrics"
	"github.com/leejw51/mychain/storage/database"
)

var logger = chainlog.NewModuleLogger(chainlog.Cmd)

var (
	configFlag = cli.StringFlag{Name: "config", Usage: "TOML configuration file", Value: "mychaind.toml"}
)

func main() {
	app := cli.NewApp()
	app.Name = "mychaind"
	app.Usage = "proof-of-stake core state machine node"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{configFlag}
	app.Commands = []cli.Command{dumpConfigCommand}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var dumpConfigCommand = cli.Command{
	Name:  "dumpconfig",
	Usage: "print the default configuration",
	Action: func(ctx *cli.Context) error {
		cfg := defaultNodeConfig()
		out, err := tomlSettings.Marshal(&cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func run(ctx *cli.Context) error {
	cfg, err := loadNodeConfig(ctx.String(configFlag.Name))
	if err != nil {
		logger.Warn("falling back to default config", "err", err)
		cfg = defaultNodeConfig()
	}

	dbType := database.BadgerDB
	if cfg.DBType == "leveldb" {
		dbType = database.LevelDB
	}
	db, err := database.NewPartitionedDBManager(cfg.DataDir, dbType)
	if err != nil {
		return fmt.Errorf("mychaind: open database: %w", err)
	}
	defer db.Close()

	var proxy enclave.Proxy
	if cfg.EnclaveAddr != "" {
		client, err := enclave.Dial(cfg.EnclaveAddr)
		if err != nil {
			return fmt.Errorf("mychaind: dial enclave: %w", err)
		}
		defer client.Close()
		proxy = client
	} else {
		logger.Warn("no enclave address configured, running with the in-process stub enclave")
		proxy = enclave.NewStub(cfg.ChainHexID, nil, coin.Zero)
	}

	handler := abci.New(db, proxy)

	info, err := handler.Info()
	if err != nil {
		return fmt.Errorf("mychaind: handshake: %w", err)
	}
	np := cfg.Params.toParams(cfg.ChainHexID)
	if info.LastBlockHeight == 0 {
		if _, err := handler.InitChain(cfg.ChainHexID, np, nil, abci.ConsensusInfo{}); err != nil {
			return fmt.Errorf("mychaind: init chain: %w", err)
		}
		logger.Info("genesis applied", "chainHexID", cfg.ChainHexID)
	} else {
		if err := handler.CheckChain(info.LastBlockAppHash); err != nil {
			return fmt.Errorf("mychaind: check chain: %w", err)
		}
		logger.Info("resumed chain", "height", info.LastBlockHeight, "appHash", fmt.Sprintf("%x", info.LastBlockAppHash))
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
		logger.Info("prometheus metrics exposed", "addr", cfg.MetricsAddr)
	}

	logger.Info("mychaind ready", "dataDir", cfg.DataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
	return nil
}
