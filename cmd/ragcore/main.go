// Command ragcore is the retrieval engine CLI.
package main

import (
	"os"

	"github.com/custodia-labs/ragcore/internal/adapters/driving/cli"
)

// version is overridden at build time:
//
//	go build -ldflags "-X main.version=1.2.3" ./cmd/ragcore
var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
