// Package main provides the scene classification CLI.
//
// Usage:
//
//	scenectl [flags] <command> [args]
//
// Commands:
//
//	analyze  - Extract features from a WAV file and classify the scene
//	config   - Show or validate pipeline configuration
package main

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-scene/cmd/scenectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
