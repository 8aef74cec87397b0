// Package actions implements the outward-facing tab operations the host
// automation framework invokes. Each operation normalizes its parameters,
// builds the corresponding wire command, and hands it to the server for
// transmission.
//
// Operations have no return value: delivery is fire-and-forget, and a
// missing peer silently swallows the command. Callers cannot observe
// whether a command actually reached the browser.
package actions

import (
	"log"

	"github.com/tabbridge/bridge/internal/protocol"
)

// Action names as the host registers them.
const (
	NameNewTab          = "NewTab"
	NameUpdateTab       = "UpdateTab"
	NameReloadTab       = "ReloadTab"
	NameMoveTab         = "MoveTab"
	NameRemoveTab       = "RemoveTab"
	NameQueryActiveTab  = "QueryActiveTab"
	NameQueryTabByIndex = "QueryTabByIndex"
	NameQueryTab        = "QueryTab"
	NameSendMessage     = "SendMessage"
)

// Sender transmits commands to the attached peer. *server.Server
// satisfies it.
type Sender interface {
	Send(cmd protocol.Command) error
	SendRaw(data []byte) error
}

// Expander expands templated text in URL parameters before a command is
// built. The host supplies its own expansion (payload references,
// variables); nil means the text is used verbatim.
type Expander func(string) string

// Actions is the set of tab operations exposed to the host.
type Actions struct {
	sender Sender
	expand Expander
}

// New creates the action set. expand may be nil.
func New(sender Sender, expand Expander) *Actions {
	if expand == nil {
		expand = func(s string) string { return s }
	}
	return &Actions{sender: sender, expand: expand}
}

// send transmits a command, logging the rare encode failure. Delivery
// errors never reach action callers.
func (a *Actions) send(cmd protocol.Command) {
	if err := a.sender.Send(cmd); err != nil {
		log.Printf("Action %s: %v", cmd.Name(), err)
	}
}

// normalizeTarget clamps a target selector to its two wire values.
func normalizeTarget(target int) int {
	if target == protocol.TargetIndex {
		return protocol.TargetIndex
	}
	return protocol.TargetActive
}

// normalizeIndex clamps a tab index to the non-negative range the
// extension expects.
func normalizeIndex(index int) int {
	if index < 0 {
		return 0
	}
	return index
}

// NewTab opens a new tab at the last position (target 0) or at index
// (target 1). The URL is template-expanded.
func (a *Actions) NewTab(url string, active, pinned bool, target, index int) {
	a.send(protocol.NewTab{
		URL:    a.expand(url),
		Active: active,
		Pinned: pinned,
		Target: normalizeTarget(target),
		Index:  normalizeIndex(index),
	})
}

// UpdateTab navigates the active tab (target 0) or the tab at index
// (target 1) to a new URL. The wire command it emits is NewUrl; the
// extension keys on that name. The URL is template-expanded.
func (a *Actions) UpdateTab(url string, active, pinned, muted bool, target, index int) {
	a.send(protocol.NewURL{
		URL:    a.expand(url),
		Active: active,
		Pinned: pinned,
		Muted:  muted,
		Target: normalizeTarget(target),
		Index:  normalizeIndex(index),
	})
}

// ReloadTab reloads the active tab or the tab at index, optionally
// bypassing the browser cache.
func (a *Actions) ReloadTab(target, index int, bypassCache bool) {
	a.send(protocol.ReloadTab{
		Target:      normalizeTarget(target),
		Index:       normalizeIndex(index),
		BypassCache: bypassCache,
	})
}

// MoveTab moves a single tab to a new index.
func (a *Actions) MoveTab(target, startIndex, endIndex int) {
	a.send(protocol.MoveTab{
		Target:     normalizeTarget(target),
		StartIndex: normalizeIndex(startIndex),
		EndIndex:   normalizeIndex(endIndex),
	})
}

// RemoveTab closes the active tab or the tab at index.
func (a *Actions) RemoveTab(target, index int) {
	a.send(protocol.RemoveTab{
		Target: normalizeTarget(target),
		Index:  normalizeIndex(index),
	})
}

// QueryActiveTab asks the peer to report the active tab's properties.
// The answer arrives later as QueryActiveTab/QueryActiveTabInfo
// notifications.
func (a *Actions) QueryActiveTab() {
	a.send(protocol.QueryActiveTab{})
}

// QueryTabByIndex asks the peer to report the properties of the tab at
// the given index.
func (a *Actions) QueryTabByIndex(index int) {
	a.send(protocol.QueryTabByIndex{Index: normalizeIndex(index)})
}

// QueryTab asks the peer to report the tabs matching a URL filter.
func (a *Actions) QueryTab(url string) {
	a.send(protocol.QueryTab{URL: url})
}

// SendMessage transmits a pre-formed text frame to the peer verbatim,
// bypassing the command codec. Useful for protocol experiments without a
// bridge release.
func (a *Actions) SendMessage(message string) {
	if err := a.sender.SendRaw([]byte(message)); err != nil {
		log.Printf("Action SendMessage: %v", err)
	}
}
