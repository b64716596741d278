package main

import (
	"os"

	"github.com/rustyeddy/tradeflow/cmd/tradeflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
