package main

import (
	"os"

	"github.com/dvcrn/reasoning-proxy/cmd/reasoning-proxy/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
