// Package protocol implements the wire codec for the bridge.
//
// Outbound Commands are JSON objects of the form
// {"command": <name>, "parameters": {...}} sent as WebSocket text frames.
// Two commands deviate from that envelope and are preserved as-is for
// compatibility with deployed browser extensions: QueryTabByIndex carries a
// top-level "data" field instead of "parameters", and QueryTab carries a
// top-level "url" field. QueryActiveTab has no second key at all.
//
// Inbound Events are JSON objects of the form {"command": <tag>, "data": {...}}.
// Decoding validates only the envelope; unknown command tags pass through
// and are ignored downstream.
package protocol

import (
	"encoding/json"

	apperrors "github.com/tabbridge/bridge/internal/errors"
)

// CommandName identifies an outbound command on the wire.
type CommandName string

const (
	// CommandNewTab opens a new tab.
	CommandNewTab CommandName = "NewTab"

	// CommandNewURL navigates a tab to a new URL. This is the wire name
	// emitted by the UpdateTab action.
	CommandNewURL CommandName = "NewUrl"

	// CommandReloadTab reloads the active tab or the tab at an index.
	CommandReloadTab CommandName = "ReloadTab"

	// CommandMoveTab moves a tab to a new index.
	CommandMoveTab CommandName = "MoveTab"

	// CommandRemoveTab closes a tab.
	CommandRemoveTab CommandName = "RemoveTab"

	// CommandQueryActiveTab requests the active tab's properties.
	CommandQueryActiveTab CommandName = "QueryActiveTab"

	// CommandQueryTabByIndex requests the properties of the tab at an index.
	CommandQueryTabByIndex CommandName = "QueryTabByIndex"

	// CommandQueryTab requests the tabs matching a URL filter.
	CommandQueryTab CommandName = "QueryTab"
)

// Tab targeting values shared by several commands. The browser extension
// interprets target 0 as "the active tab" (for NewTab: "the last position")
// and target 1 as "the tab at index".
const (
	TargetActive = 0
	TargetIndex  = 1
)

// Command is an outbound instruction to the browser peer. A Command is
// immutable once built: an action constructs it, Encode serializes it
// exactly once, and it is then discarded.
//
// Each concrete command knows its own wire envelope, so the shape
// asymmetries live here rather than leaking into callers.
type Command interface {
	// Name returns the wire command tag.
	Name() CommandName

	// envelope returns the complete wire object to serialize.
	envelope() any
}

// paramsEnvelope is the standard {"command": ..., "parameters": {...}} shape.
type paramsEnvelope struct {
	Command    CommandName `json:"command"`
	Parameters any         `json:"parameters"`
}

// bareEnvelope is the QueryActiveTab shape: a command tag and nothing else.
type bareEnvelope struct {
	Command CommandName `json:"command"`
}

// indexEnvelope is the QueryTabByIndex shape: a top-level integer "data"
// field where every sibling command uses "parameters".
type indexEnvelope struct {
	Command CommandName `json:"command"`
	Data    int         `json:"data"`
}

// urlEnvelope is the QueryTab shape: a top-level "url" filter field.
type urlEnvelope struct {
	Command CommandName `json:"command"`
	URL     string      `json:"url"`
}

// NewTab opens a new tab with the given properties.
type NewTab struct {
	URL    string
	Active bool
	Pinned bool
	Target int // 0 = last position, 1 = at Index
	Index  int
}

type newTabParams struct {
	URL    string `json:"url"`
	Active bool   `json:"active"`
	Pinned bool   `json:"pinned"`
	Target int    `json:"target"`
	Index  int    `json:"index"`
}

// Name returns the wire command tag.
func (c NewTab) Name() CommandName { return CommandNewTab }

func (c NewTab) envelope() any {
	return paramsEnvelope{
		Command: CommandNewTab,
		Parameters: newTabParams{
			URL:    c.URL,
			Active: c.Active,
			Pinned: c.Pinned,
			Target: c.Target,
			Index:  c.Index,
		},
	}
}

// NewURL navigates a tab to a new URL.
type NewURL struct {
	URL    string
	Active bool
	Pinned bool
	Muted  bool
	Target int // 0 = active tab, 1 = at Index
	Index  int
}

type newURLParams struct {
	URL    string `json:"url"`
	Active bool   `json:"active"`
	Pinned bool   `json:"pinned"`
	Muted  bool   `json:"muted"`
	Target int    `json:"target"`
	Index  int    `json:"index"`
}

// Name returns the wire command tag.
func (c NewURL) Name() CommandName { return CommandNewURL }

func (c NewURL) envelope() any {
	return paramsEnvelope{
		Command: CommandNewURL,
		Parameters: newURLParams{
			URL:    c.URL,
			Active: c.Active,
			Pinned: c.Pinned,
			Muted:  c.Muted,
			Target: c.Target,
			Index:  c.Index,
		},
	}
}

// ReloadTab reloads the active tab or the tab at Index.
type ReloadTab struct {
	Target      int // 0 = active tab, 1 = at Index
	Index       int
	BypassCache bool
}

type reloadTabParams struct {
	Target      int  `json:"target"`
	Index       int  `json:"index"`
	BypassCache bool `json:"bypasscache"`
}

// Name returns the wire command tag.
func (c ReloadTab) Name() CommandName { return CommandReloadTab }

func (c ReloadTab) envelope() any {
	return paramsEnvelope{
		Command: CommandReloadTab,
		Parameters: reloadTabParams{
			Target:      c.Target,
			Index:       c.Index,
			BypassCache: c.BypassCache,
		},
	}
}

// MoveTab moves a single tab from StartIndex to EndIndex.
type MoveTab struct {
	Target     int // 0 = active tab, 1 = at StartIndex
	StartIndex int
	EndIndex   int
}

type moveTabParams struct {
	Target     int `json:"target"`
	StartIndex int `json:"startindex"`
	EndIndex   int `json:"endindex"`
}

// Name returns the wire command tag.
func (c MoveTab) Name() CommandName { return CommandMoveTab }

func (c MoveTab) envelope() any {
	return paramsEnvelope{
		Command: CommandMoveTab,
		Parameters: moveTabParams{
			Target:     c.Target,
			StartIndex: c.StartIndex,
			EndIndex:   c.EndIndex,
		},
	}
}

// RemoveTab closes the active tab or the tab at Index.
type RemoveTab struct {
	Target int // 0 = active tab, 1 = at Index
	Index  int
}

type removeTabParams struct {
	Target int `json:"target"`
	Index  int `json:"index"`
}

// Name returns the wire command tag.
func (c RemoveTab) Name() CommandName { return CommandRemoveTab }

func (c RemoveTab) envelope() any {
	return paramsEnvelope{
		Command: CommandRemoveTab,
		Parameters: removeTabParams{
			Target: c.Target,
			Index:  c.Index,
		},
	}
}

// QueryActiveTab requests the active tab's properties. It carries no
// parameters key on the wire.
type QueryActiveTab struct{}

// Name returns the wire command tag.
func (c QueryActiveTab) Name() CommandName { return CommandQueryActiveTab }

func (c QueryActiveTab) envelope() any {
	return bareEnvelope{Command: CommandQueryActiveTab}
}

// QueryTabByIndex requests the properties of the tab at Index.
type QueryTabByIndex struct {
	Index int
}

// Name returns the wire command tag.
func (c QueryTabByIndex) Name() CommandName { return CommandQueryTabByIndex }

func (c QueryTabByIndex) envelope() any {
	return indexEnvelope{Command: CommandQueryTabByIndex, Data: c.Index}
}

// QueryTab requests the tabs matching a URL filter.
type QueryTab struct {
	URL string
}

// Name returns the wire command tag.
func (c QueryTab) Name() CommandName { return CommandQueryTab }

func (c QueryTab) envelope() any {
	return urlEnvelope{Command: CommandQueryTab, URL: c.URL}
}

// Encode serializes a Command to its UTF-8 JSON wire form.
func Encode(c Command) ([]byte, error) {
	data, err := json.Marshal(c.envelope())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeProtocolEncodeFailed,
			"failed to encode command "+string(c.Name()), err)
	}
	return data, nil
}

// Event is an inbound structured message from the peer. It is created by
// decoding a received frame, consumed once by the dispatcher, then discarded.
type Event struct {
	// Command is the event's tag. Decoding does not validate it against
	// the known set; unknown tags are silently ignored downstream.
	Command string

	// Data is the tag-specific payload. May be empty.
	Data map[string]any

	// Raw is the original frame text, preserved for notifications that
	// carry the full message through to the host.
	Raw string
}

// eventWire mirrors the inbound envelope. Command is a pointer so a frame
// that is valid JSON but has no command field can be told apart from an
// empty tag.
type eventWire struct {
	Command *string        `json:"command"`
	Data    map[string]any `json:"data"`
}

// Decode parses an inbound UTF-8 JSON frame into an Event.
// It fails with a protocol.malformed error if the frame is not valid JSON
// or lacks a command field.
func Decode(data []byte) (Event, error) {
	var wire eventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Event{}, apperrors.Malformed("frame is not valid JSON", err)
	}
	if wire.Command == nil {
		return Event{}, apperrors.Malformed("frame has no command field", nil)
	}

	return Event{
		Command: *wire.Command,
		Data:    wire.Data,
		Raw:     string(data),
	}, nil
}

// URL returns the event's data.url field.
// Returns a protocol.missing_field error if it is absent or not a string.
func (e Event) URL() (string, error) {
	v, ok := e.Data["url"]
	if !ok {
		return "", apperrors.MissingField("data.url", e.Command)
	}
	s, ok := v.(string)
	if !ok {
		return "", apperrors.MissingField("data.url", e.Command)
	}
	return s, nil
}

// Index returns the event's data.index field.
// Returns a protocol.missing_field error if it is absent or not a number.
func (e Event) Index() (int, error) {
	v, ok := e.Data["index"]
	if !ok {
		return 0, apperrors.MissingField("data.index", e.Command)
	}
	// encoding/json decodes all JSON numbers into float64.
	n, ok := v.(float64)
	if !ok {
		return 0, apperrors.MissingField("data.index", e.Command)
	}
	return int(n), nil
}
