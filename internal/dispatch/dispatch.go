// Package dispatch maps decoded inbound events to named host notifications.
//
// The mapping is a fixed table from event tag to an ordered list of
// emissions. Dispatching is stateless and has no side effects beyond the
// notifications themselves, so replaying the same event raises the same
// notifications again.
package dispatch

import (
	"github.com/tabbridge/bridge/internal/protocol"
)

// Notifier receives named, payload-carrying notifications for the host
// automation framework. The bridge's Host satisfies it.
type Notifier interface {
	TriggerEvent(suffix string, payload any)
}

// payloadKind selects how an emission derives its payload from the event.
type payloadKind int

const (
	// rawMessage carries the original frame text.
	rawMessage payloadKind = iota

	// dataURL carries the event's data.url string.
	dataURL

	// dataIndex carries the event's data.index integer.
	dataIndex
)

// emission is one notification an event tag raises.
type emission struct {
	suffix string
	kind   payloadKind
}

// table maps inbound event tags to the notifications they raise, in order.
// Tags not listed here are silently ignored.
//
// The "ActiveTabUrInfo" suffix for TabUpdated is a long-standing name that
// deployed host configurations key on; it stays as-is.
var table = map[string][]emission{
	"QueryActiveTab": {
		{suffix: "QueryActiveTabInfo", kind: rawMessage},
		{suffix: "QueryActiveTab", kind: dataURL},
	},
	"QueryTabByIndex": {
		{suffix: "QueryTabByIndex", kind: dataIndex},
		{suffix: "QueryTabByIndexInfo", kind: rawMessage},
	},
	"ActiveTab": {
		{suffix: "ActiveTabUrl", kind: dataURL},
		{suffix: "ActiveTabInfo", kind: rawMessage},
	},
	"TabUpdated": {
		{suffix: "ActiveTabUrl", kind: dataURL},
		{suffix: "ActiveTabUrInfo", kind: rawMessage},
	},
	"CreateNewTab": {
		{suffix: "CreateNewTab", kind: rawMessage},
	},
	"MoveTab": {
		{suffix: "MoveTab", kind: rawMessage},
	},
	"RemoveTab": {
		{suffix: "RemoveTab", kind: rawMessage},
	},
}

// Dispatcher interprets inbound events by command tag and raises the
// corresponding host notifications.
type Dispatcher struct {
	notifier Notifier
}

// NewDispatcher creates a dispatcher that emits through the given notifier.
func NewDispatcher(n Notifier) *Dispatcher {
	return &Dispatcher{notifier: n}
}

// Dispatch raises the notifications mapped to the event's tag.
//
// All payloads are resolved before anything is emitted: an event whose tag
// requires a field that is absent raises no notifications at all and
// returns a protocol.missing_field error for the caller to log. Unknown
// tags are a silent no-op.
func (d *Dispatcher) Dispatch(ev protocol.Event) error {
	emissions, ok := table[ev.Command]
	if !ok {
		return nil
	}

	payloads := make([]any, len(emissions))
	for i, em := range emissions {
		switch em.kind {
		case rawMessage:
			payloads[i] = ev.Raw
		case dataURL:
			url, err := ev.URL()
			if err != nil {
				return err
			}
			payloads[i] = url
		case dataIndex:
			idx, err := ev.Index()
			if err != nil {
				return err
			}
			payloads[i] = idx
		}
	}

	for i, em := range emissions {
		d.notifier.TriggerEvent(em.suffix, payloads[i])
	}
	return nil
}
