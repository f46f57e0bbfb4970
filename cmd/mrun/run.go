package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dsnet/golib/unitconv"
	log "github.com/inconshreveable/log15"
	"github.com/urfave/cli/v2"

	"github.com/ArthurTh0mas/martinez/chain"
	"github.com/ArthurTh0mas/martinez/evm"
	"github.com/ArthurTh0mas/martinez/processor"
	"github.com/ArthurTh0mas/martinez/state"
)

var runCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "execute the given byte-code as a transaction",
	ArgsUsage: "<code-hex>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "interpreter",
			Usage: "the registered interpreter to execute with",
			Value: "mevm",
		},
		&cli.StringFlag{
			Name:  "chain-spec",
			Usage: "path of a chain specification file, mainnet if empty",
		},
		&cli.Uint64Flag{
			Name:  "block",
			Usage: "block height selecting the active revision",
			Value: 20_000_000,
		},
		&cli.Uint64Flag{
			Name:  "timestamp",
			Usage: "block timestamp selecting time-based revisions",
			Value: 1_700_000_000,
		},
		&cli.Uint64Flag{
			Name:  "gas",
			Usage: "gas limit of the transaction",
			Value: 10_000_000,
		},
		&cli.StringFlag{
			Name:  "input",
			Usage: "hex encoded call data",
		},
		&cli.IntFlag{
			Name:  "iterations",
			Usage: "number of repeated executions for throughput measurement",
			Value: 1,
		},
	},
}

func doRun(context *cli.Context) error {
	if context.Args().Len() < 1 {
		return fmt.Errorf("missing code argument")
	}
	code, err := decodeHex(context.Args().Get(0))
	if err != nil {
		return fmt.Errorf("invalid code: %w", err)
	}
	input, err := decodeHex(context.String("input"))
	if err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	spec := chain.Mainnet()
	if path := context.String("chain-spec"); path != "" {
		spec, err = chain.LoadSpec(path)
		if err != nil {
			return fmt.Errorf("failed to load chain spec: %w", err)
		}
	}

	interpreter, err := evm.NewInterpreter(context.String("interpreter"))
	if err != nil {
		return err
	}

	height := context.Uint64("block")
	timestamp := context.Uint64("timestamp")
	revision := spec.ResolveRevision(height, timestamp)
	log.Info("resolved chain context",
		"chain", spec.Name, "block", height, "revision", revision)

	var (
		sender    = evm.Address{0x01}
		recipient = evm.Address{0x02}
		gas       = evm.Gas(context.Uint64("gas"))
	)
	blockParams := evm.BlockParameters{
		ChainID:     evm.Word(evm.NewValue(spec.Params.ChainID)),
		BlockNumber: int64(height),
		Timestamp:   int64(timestamp),
		GasLimit:    gas,
		Revision:    revision,
	}
	transaction := evm.Transaction{
		Sender:    sender,
		Recipient: &recipient,
		Input:     input,
		GasLimit:  gas,
		GasPrice:  evm.NewValue(1),
	}

	store := state.NewMemoryState()
	store.SetCode(recipient, code)
	processor.ApplyBlockOverlays(spec.BlockSpec(height, timestamp), store)

	proc := processor.NewProcessor(interpreter, spec)

	iterations := context.Int("iterations")
	var totalGas evm.Gas
	var lastReceipt evm.Receipt
	start := time.Now()
	for i := 0; i < iterations; i++ {
		run := store.Clone()
		run.SetBalance(sender, evm.NewValue(1).Scale(uint64(gas)))
		transactionState := state.NewTransactionState(run)
		receipt, err := proc.Run(blockParams, transaction, transactionState)
		if err != nil {
			return fmt.Errorf("iteration %d failed: %w", i, err)
		}
		transactionState.Apply(run)
		totalGas += receipt.GasUsed
		lastReceipt = receipt
	}
	elapsed := time.Since(start)

	log.Info("execution finished",
		"success", lastReceipt.Success,
		"gasUsed", lastReceipt.GasUsed,
		"output", fmt.Sprintf("0x%x", lastReceipt.Output),
		"logs", len(lastReceipt.Logs),
	)
	if iterations > 1 {
		rate := float64(totalGas) / elapsed.Seconds()
		log.Info("throughput",
			"iterations", iterations,
			"gasPerSecond", unitconv.FormatPrefix(rate, unitconv.SI, 1),
		)
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
