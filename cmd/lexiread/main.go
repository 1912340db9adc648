// Package main provides the lexiread CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/richinex/lexiread/cli"
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
