// Command tether talks to the Claude Code CLI and keeps every conversation
// in a local session store, so any of them can be resumed later.
//
// Usage:
//
//	tether ask [--resume ID] PROMPT
//	tether chat [--resume ID]
//	tether list [--match GLOB]
//	tether show [--raw] ID
//	tether delete ID...
//	tether browse
//
// Configuration is read from ~/.config/tether/config.toml; see --help for
// the flags that override it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "tether: %v\n", err)
		os.Exit(1)
	}
}
