package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/tabbridge/bridge/internal/mdns"
)

// runDiscover implements the "tabbridge discover" command. It browses
// the local network for advertised bridges and prints what it finds.
func runDiscover(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(stderr)

	timeout := fs.Duration("timeout", 3*time.Second, "How long to browse for bridges")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tabbridge discover [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	fmt.Fprintf(stdout, "Browsing for bridges (%s)...\n", *timeout)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	bridges, err := mdns.Discover(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if len(bridges) == 0 {
		fmt.Fprintln(stdout, "No bridges found.")
		return 0
	}

	for _, b := range bridges {
		fmt.Fprintf(stdout, "  %s  ws://%s:%d  (protocol v%s)\n", b.Name, b.Host, b.Port, b.Version)
	}
	return 0
}
