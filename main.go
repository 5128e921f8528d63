// ./main.go
package main

import (
	"github.com/xkilldash9x/pagepilot/cmd"
)

// main is the entry point for the pagepilot binary.
func main() {
	// Execute the root command defined in the cmd package.
	// All command-line parsing, configuration and wiring happens there.
	cmd.Execute()
}
