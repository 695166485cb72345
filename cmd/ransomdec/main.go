// Command ransomdec decrypts files encrypted by supported ransomware
// families using separately recovered key material.
package main

import (
	"fmt"
	"os"

	"github.com/forensix/ransomdec/internal/commands"
)

// version is set at build time.
var version = "dev"

func main() {
	if err := commands.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
