// main is the entry point for the perfwatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/perfwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
