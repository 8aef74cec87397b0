package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tabbridge/bridge/internal/bridge"
	"github.com/tabbridge/bridge/internal/config"
)

// runStart implements the "tabbridge start" command. It runs the bridge
// standalone: triggered events print to stdout, and actions can be
// invoked by writing JSON lines to stdin, one per action:
//
//	{"action":"NewTab","args":{"url":"https://example.com","active":true}}
//
// When embedded in an automation host the same bridge is driven through
// bridge.Host instead of stdin/stdout.
func runStart(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file (default: ~/.tabbridge/config.toml)")
	host := fs.String("host", "", "Interface to bind the WebSocket server to (default: localhost)")
	port := fs.Int("port", 0, "Port for the WebSocket server (default: 8000)")
	mdnsEnabled := fs.Bool("mdns", false, "Advertise the bridge via mDNS/Bonjour (LAN-visible)")
	logFile := fs.String("log-file", "", "Log file path (default: stderr)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tabbridge start [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	// Track which flags were explicitly set on the command line.
	// This allows us to distinguish "flag not specified" from "flag set
	// to default value".
	explicitFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicitFlags[f.Name] = true
	})

	// Load config file and merge with CLI flags.
	// CLI flags take precedence over file values.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if explicitFlags["mdns"] {
		cfg.MdnsEnabled = *mdnsEnabled
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	// Route the log package to the configured sink so server and bridge
	// diagnostics end up where the user asked.
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(stderr)
	}

	consoleHost := newConsoleHost(stdout)
	b := bridge.New(cfg, consoleHost)
	if err := b.Start(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Bridge listening on ws://%s\n", b.Addr())
	if cfg.MdnsEnabled {
		fmt.Fprintln(stdout, "mDNS advertisement: ENABLED (visible on LAN)")
	}
	fmt.Fprintln(stdout, "Waiting for a browser extension. Press Ctrl+C to stop.")

	// Drive actions from stdin so the bridge can be exercised without an
	// automation host attached.
	stdinDone := make(chan struct{})
	go func() {
		defer close(stdinDone)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			name, actionArgs, err := parseActionLine(line)
			if err != nil {
				fmt.Fprintf(stderr, "Bad action line: %v\n", err)
				continue
			}
			if err := consoleHost.invoke(name, actionArgs); err != nil {
				fmt.Fprintf(stderr, "Action %s: %v\n", name, err)
			}
		}
	}()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		fmt.Fprintf(stdout, "\nReceived signal %v, stopping...\n", sig)
	case <-stdinDone:
		fmt.Fprintln(stdout, "Input closed, stopping...")
	}

	if err := b.Stop(); err != nil {
		fmt.Fprintf(stderr, "Warning: shutdown error: %v\n", err)
	}
	return 0
}

// actionLine is the stdin wire shape for manual action invocation.
type actionLine struct {
	Action string         `json:"action"`
	Args   map[string]any `json:"args"`
}

func parseActionLine(line string) (string, map[string]any, error) {
	var al actionLine
	if err := json.Unmarshal([]byte(line), &al); err != nil {
		return "", nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if al.Action == "" {
		return "", nil, fmt.Errorf("missing action name")
	}
	if al.Args == nil {
		al.Args = map[string]any{}
	}
	return al.Action, al.Args, nil
}

// consoleHost adapts the bridge's Host interface to a terminal: events
// print to stdout and actions are looked up by name.
type consoleHost struct {
	stdout io.Writer

	mu      sync.Mutex
	actions map[string]bridge.ActionHandler
}

func newConsoleHost(stdout io.Writer) *consoleHost {
	return &consoleHost{
		stdout:  stdout,
		actions: make(map[string]bridge.ActionHandler),
	}
}

func (h *consoleHost) RegisterAction(name string, handler bridge.ActionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions[name] = handler
}

func (h *consoleHost) TriggerEvent(suffix string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if payload == nil {
		fmt.Fprintf(h.stdout, "Event TabBridge.%s\n", suffix)
		return
	}
	if data, err := json.Marshal(payload); err == nil {
		fmt.Fprintf(h.stdout, "Event TabBridge.%s %s\n", suffix, data)
	} else {
		fmt.Fprintf(h.stdout, "Event TabBridge.%s %v\n", suffix, payload)
	}
}

// Expand is the identity: the console host has no template language.
func (h *consoleHost) Expand(text string) string {
	return text
}

func (h *consoleHost) invoke(name string, args map[string]any) error {
	h.mu.Lock()
	handler, ok := h.actions[name]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown action %q", name)
	}
	return handler(args)
}
