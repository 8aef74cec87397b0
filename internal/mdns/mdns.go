// Package mdns provides optional mDNS/Bonjour service advertisement.
//
// When enabled, the bridge advertises itself on the local network using
// DNS-SD (DNS Service Discovery), allowing browser extensions on other
// machines to discover it without manual address entry. This is an
// opt-in feature.
//
// The mDNS advertisement includes:
//   - Service type: _tabbridge._tcp
//   - TXT records with protocol version and instance name
package mdns

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the mDNS service type for tabbridge instances.
// Follows the standard Bonjour naming convention: _<service>._<protocol>
const ServiceType = "_tabbridge._tcp"

// ProtocolVersion identifies the mDNS protocol version for compatibility.
const ProtocolVersion = "1"

// Config holds configuration for mDNS advertisement.
type Config struct {
	// Port is the server port to advertise (e.g., 8000).
	Port int

	// Name is a human-readable name for this bridge.
	// Defaults to the system hostname if empty.
	Name string
}

// Advertiser manages mDNS/DNS-SD service registration. It advertises the
// bridge on the local network so extensions can discover it without
// typed-in addresses.
type Advertiser struct {
	config Config
	server *zeroconf.Server
	mu     sync.Mutex
}

// NewAdvertiser creates a new mDNS advertiser with the given configuration.
func NewAdvertiser(cfg Config) *Advertiser {
	return &Advertiser{
		config: cfg,
	}
}

// Start begins advertising the service via mDNS.
//
// Start is safe to call multiple times; subsequent calls are no-ops
// if already running.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Already running
	if a.server != nil {
		return nil
	}

	name := a.config.Name
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			name = "tabbridge"
		} else {
			name = hostname
		}
	}

	// TXT records provide metadata to clients before they connect.
	txtRecords := []string{
		fmt.Sprintf("version=%s", ProtocolVersion),
		fmt.Sprintf("name=%s", name),
	}

	server, err := zeroconf.Register(
		name,        // Instance name (e.g., "office-desktop")
		ServiceType, // Service type
		"local.",    // Domain
		a.config.Port,
		txtRecords,
		nil, // Network interfaces (nil = all)
	)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}

	a.server = server
	return nil
}

// Stop stops the mDNS advertisement and unregisters the service.
// It is safe to call Stop multiple times or on an advertiser that
// was never started.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// IsRunning returns true if the advertiser is currently running.
func (a *Advertiser) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// DiscoveredBridge represents a bridge found via mDNS discovery.
type DiscoveredBridge struct {
	// Name is the human-readable name of the bridge.
	Name string

	// Host is the IP address or hostname.
	Host string

	// Port is the server port.
	Port int

	// Version is the protocol version.
	Version string
}

// Discover searches for tabbridge instances on the local network until
// the context expires and returns everything it found.
func Discover(ctx context.Context) ([]DiscoveredBridge, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	var (
		bridges []DiscoveredBridge
		mu      sync.Mutex
		wg      sync.WaitGroup
	)

	entries := make(chan *zeroconf.ServiceEntry)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			bridge := DiscoveredBridge{
				Name: entry.Instance,
				Port: entry.Port,
			}

			// Prefer IPv4 address
			if len(entry.AddrIPv4) > 0 {
				bridge.Host = entry.AddrIPv4[0].String()
			} else if len(entry.AddrIPv6) > 0 {
				bridge.Host = entry.AddrIPv6[0].String()
			}

			for _, txt := range entry.Text {
				switch {
				case strings.HasPrefix(txt, "version="):
					bridge.Version = strings.TrimPrefix(txt, "version=")
				case strings.HasPrefix(txt, "name="):
					bridge.Name = strings.TrimPrefix(txt, "name=")
				}
			}

			mu.Lock()
			bridges = append(bridges, bridge)
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	// zeroconf closes the entries channel when the context is done.
	<-ctx.Done()
	wg.Wait()

	return bridges, nil
}
