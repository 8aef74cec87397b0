// Package bridge ties the WebSocket server, the event dispatcher, and the
// tab actions together into a single lifecycle the host automation
// framework drives. The host starts the bridge once, invokes registered
// actions from its macros, and receives browser state back as triggered
// events.
package bridge

import (
	"log"

	"github.com/tabbridge/bridge/internal/actions"
	"github.com/tabbridge/bridge/internal/config"
	"github.com/tabbridge/bridge/internal/dispatch"
	"github.com/tabbridge/bridge/internal/mdns"
	"github.com/tabbridge/bridge/internal/server"
	"github.com/tabbridge/bridge/internal/session"
)

// ActionHandler executes one registered action. args carries the
// operation's parameters under their wire-level names; absent keys take
// the operation's defaults.
type ActionHandler func(args map[string]any) error

// Host is the automation framework the bridge plugs into. The bridge
// registers its actions with the host at Start and raises browser state
// changes through TriggerEvent.
type Host interface {
	// RegisterAction exposes a named action to the host's macros.
	RegisterAction(name string, handler ActionHandler)

	// TriggerEvent raises an event toward the host. suffix is the
	// event name below the plugin prefix; payload is the event data.
	TriggerEvent(suffix string, payload any)

	// Expand resolves the host's template syntax in action text
	// parameters. Implementations with no template language return the
	// input unchanged.
	Expand(text string) string
}

// Bridge owns the running server and its supporting pieces.
type Bridge struct {
	cfg  *config.Config
	host Host

	srv        *server.Server
	advertiser *mdns.Advertiser
	started    bool
}

// New creates a bridge for the given configuration and host.
func New(cfg *config.Config, host Host) *Bridge {
	return &Bridge{cfg: cfg, host: host}
}

// Start binds the WebSocket server, registers the bridge's actions with
// the host, and begins advertising over mDNS when enabled. It returns
// once the listener is bound; a bind failure is returned immediately.
func (b *Bridge) Start() error {
	if b.started {
		return nil
	}

	registry := session.NewRegistry()
	notifier := hostNotifier{host: b.host}
	dispatcher := dispatch.NewDispatcher(notifier)

	b.srv = server.New(b.cfg.Addr(), registry, dispatcher, notifier)
	if err := <-b.srv.StartAsync(); err != nil {
		b.srv = nil
		return err
	}

	acts := actions.New(b.srv, b.host.Expand)
	registerActions(b.host, acts)

	if b.cfg.MdnsEnabled {
		b.advertiser = mdns.NewAdvertiser(mdns.Config{Port: b.cfg.Port})
		if err := b.advertiser.Start(); err != nil {
			// Advertisement is best effort. The server is already up
			// and local extensions can still connect.
			log.Printf("mDNS advertisement unavailable: %v", err)
			b.advertiser = nil
		}
	}

	b.started = true
	return nil
}

// Stop shuts the server down and stops advertising. Calling Stop on a
// bridge that never started is a no-op. A stopped bridge can be started
// again.
func (b *Bridge) Stop() error {
	if !b.started {
		return nil
	}
	b.started = false

	if b.advertiser != nil {
		b.advertiser.Stop()
		b.advertiser = nil
	}

	err := b.srv.Stop()
	b.srv = nil
	return err
}

// Addr returns the bound listen address, or "" when the bridge is not
// running.
func (b *Bridge) Addr() string {
	if b.srv == nil {
		return ""
	}
	return b.srv.Addr()
}

// hostNotifier adapts the Host to the dispatcher's Notifier interface.
type hostNotifier struct {
	host Host
}

func (n hostNotifier) TriggerEvent(suffix string, payload any) {
	n.host.TriggerEvent(suffix, payload)
}
