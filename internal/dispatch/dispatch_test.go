package dispatch

import (
	"reflect"
	"testing"

	apperrors "github.com/tabbridge/bridge/internal/errors"
	"github.com/tabbridge/bridge/internal/protocol"
)

// recordingNotifier captures notifications in emission order.
type recordingNotifier struct {
	suffixes []string
	payloads []any
}

func (n *recordingNotifier) TriggerEvent(suffix string, payload any) {
	n.suffixes = append(n.suffixes, suffix)
	n.payloads = append(n.payloads, payload)
}

func decode(t *testing.T, raw string) protocol.Event {
	t.Helper()
	ev, err := protocol.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return ev
}

func TestQueryActiveTabRaisesInfoThenURL(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(n)

	raw := `{"command":"QueryActiveTab","data":{"url":"http://x"}}`
	if err := d.Dispatch(decode(t, raw)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	wantSuffixes := []string{"QueryActiveTabInfo", "QueryActiveTab"}
	if !reflect.DeepEqual(n.suffixes, wantSuffixes) {
		t.Errorf("suffixes = %v, want %v", n.suffixes, wantSuffixes)
	}
	if n.payloads[0] != raw {
		t.Errorf("first payload = %v, want raw message", n.payloads[0])
	}
	if n.payloads[1] != "http://x" {
		t.Errorf("second payload = %v, want http://x", n.payloads[1])
	}
}

func TestQueryTabByIndexRaisesIndexThenInfo(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(n)

	raw := `{"command":"QueryTabByIndex","data":{"index":4}}`
	if err := d.Dispatch(decode(t, raw)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	wantSuffixes := []string{"QueryTabByIndex", "QueryTabByIndexInfo"}
	if !reflect.DeepEqual(n.suffixes, wantSuffixes) {
		t.Errorf("suffixes = %v, want %v", n.suffixes, wantSuffixes)
	}
	if n.payloads[0] != 4 {
		t.Errorf("first payload = %v, want 4", n.payloads[0])
	}
	if n.payloads[1] != raw {
		t.Errorf("second payload = %v, want raw message", n.payloads[1])
	}
}

func TestActiveTabAndTabUpdatedShareURLSuffix(t *testing.T) {
	tests := []struct {
		tag  string
		want []string
	}{
		{"ActiveTab", []string{"ActiveTabUrl", "ActiveTabInfo"}},
		{"TabUpdated", []string{"ActiveTabUrl", "ActiveTabUrInfo"}},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			n := &recordingNotifier{}
			d := NewDispatcher(n)

			raw := `{"command":"` + tt.tag + `","data":{"url":"http://y"}}`
			if err := d.Dispatch(decode(t, raw)); err != nil {
				t.Fatalf("Dispatch failed: %v", err)
			}
			if !reflect.DeepEqual(n.suffixes, tt.want) {
				t.Errorf("suffixes = %v, want %v", n.suffixes, tt.want)
			}
			if n.payloads[0] != "http://y" {
				t.Errorf("url payload = %v, want http://y", n.payloads[0])
			}
		})
	}
}

func TestRawOnlyTags(t *testing.T) {
	for _, tag := range []string{"CreateNewTab", "MoveTab", "RemoveTab"} {
		t.Run(tag, func(t *testing.T) {
			n := &recordingNotifier{}
			d := NewDispatcher(n)

			raw := `{"command":"` + tag + `","data":{}}`
			if err := d.Dispatch(decode(t, raw)); err != nil {
				t.Fatalf("Dispatch failed: %v", err)
			}
			if len(n.suffixes) != 1 || n.suffixes[0] != tag {
				t.Errorf("suffixes = %v, want [%s]", n.suffixes, tag)
			}
			if n.payloads[0] != raw {
				t.Errorf("payload = %v, want raw message", n.payloads[0])
			}
		})
	}
}

func TestUnknownTagIsSilentlyIgnored(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(n)

	if err := d.Dispatch(decode(t, `{"command":"Unknown","data":{}}`)); err != nil {
		t.Fatalf("unknown tag should not error, got %v", err)
	}
	if len(n.suffixes) != 0 {
		t.Errorf("expected no notifications, got %v", n.suffixes)
	}
}

func TestMissingRequiredFieldRaisesNothing(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(n)

	err := d.Dispatch(decode(t, `{"command":"ActiveTab","data":{}}`))
	if !apperrors.IsCode(err, apperrors.CodeProtocolMissingField) {
		t.Errorf("expected protocol.missing_field, got %v", err)
	}
	if len(n.suffixes) != 0 {
		t.Errorf("expected no notifications at all, got %v", n.suffixes)
	}
}

func TestDispatchIsIdempotentPerEvent(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(n)

	ev := decode(t, `{"command":"MoveTab","data":{}}`)
	if err := d.Dispatch(ev); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if err := d.Dispatch(ev); err != nil {
		t.Fatalf("replay Dispatch failed: %v", err)
	}

	want := []string{"MoveTab", "MoveTab"}
	if !reflect.DeepEqual(n.suffixes, want) {
		t.Errorf("suffixes = %v, want %v", n.suffixes, want)
	}
	if n.payloads[0] != n.payloads[1] {
		t.Error("replayed event should carry the same payload")
	}
}
