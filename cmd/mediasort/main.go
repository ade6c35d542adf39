package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	_ "time/tzdata"
)

// exitInterrupted follows the shell convention for SIGINT.
const exitInterrupted = 130

func main() {
	err := newRootCommand().Execute()
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		os.Exit(exitInterrupted)
	default:
		fmt.Fprintln(os.Stderr, "mediasort:", err)
		os.Exit(1)
	}
}
