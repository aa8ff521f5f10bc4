package main

import (
	"fmt"
	"os"

	"github.com/zintix-labs/crashlab/sdk/perf"
)

// makefile runner
func main() {
	bindVar()
	path, err := perf.Run(executeSimulator, cfg.pprof, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if path != "" {
		fmt.Fprintln(os.Stderr, "profile written to", path)
	}
}
