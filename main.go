// Package main is the entry point for flowreader.
package main

import (
	"os"

	"firestige.xyz/flowreader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
