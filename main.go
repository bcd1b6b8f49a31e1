// Application entry point for the marketrelay commands.
package main

import (
	"fmt"
	"os"

	"github.com/erilali/marketrelay/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "marketrelay: %v\n", err)
		os.Exit(1)
	}
}
