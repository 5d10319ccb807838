// Command storewise is the retail insights assistant CLI.
package main

import (
	"os"

	"github.com/storewise/storewise/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
