// mrun executes EVM byte-code or transactions against an in-memory state,
// using any registered interpreter. It is the development driver of the
// execution engine and reports gas throughput of repeated runs.
package main

import (
	"fmt"
	"os"

	log "github.com/inconshreveable/log15"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"

	"github.com/ArthurTh0mas/martinez/evm"
	_ "github.com/ArthurTh0mas/martinez/interpreter/mevm"
	_ "github.com/ArthurTh0mas/martinez/processor"
)

func main() {
	app := &cli.App{
		Name:  "mrun",
		Usage: "run EVM byte-code against an in-memory chain state",
		Commands: []*cli.Command{
			&runCmd,
			&listCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("run failed", "err", err)
		os.Exit(1)
	}
}

var listCmd = cli.Command{
	Action: doList,
	Name:   "list",
	Usage:  "list the registered interpreters and processors",
}

func doList(*cli.Context) error {
	interpreters := maps.Keys(evm.GetAllRegisteredInterpreters())
	processors := maps.Keys(evm.GetAllRegisteredProcessorFactories())
	fmt.Printf("interpreters: %v\nprocessors: %v\n", interpreters, processors)
	return nil
}
