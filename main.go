// Package main is the entry point for the bitbar-devicepool dispatcher.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mozilla-it/bitbar-devicepool/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
