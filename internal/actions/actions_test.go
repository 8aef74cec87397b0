package actions

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tabbridge/bridge/internal/protocol"
)

type captureSender struct {
	frames []string
}

func (c *captureSender) Send(cmd protocol.Command) error {
	data, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}
	c.frames = append(c.frames, string(data))
	return nil
}

func (c *captureSender) SendRaw(data []byte) error {
	c.frames = append(c.frames, string(data))
	return nil
}

func (c *captureSender) last(t *testing.T) string {
	t.Helper()
	if len(c.frames) == 0 {
		t.Fatal("no frame sent")
	}
	return c.frames[len(c.frames)-1]
}

func decodeFrame(t *testing.T, frame string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(frame), &m); err != nil {
		t.Fatalf("frame is not valid JSON: %v\n%s", err, frame)
	}
	return m
}

func TestNewTabFrame(t *testing.T) {
	sender := &captureSender{}
	a := New(sender, nil)

	a.NewTab("https://example.com", true, false, 1, 3)

	m := decodeFrame(t, sender.last(t))
	if m["command"] != "NewTab" {
		t.Fatalf("command = %v, want NewTab", m["command"])
	}
	params, ok := m["parameters"].(map[string]any)
	if !ok {
		t.Fatalf("missing parameters object: %s", sender.last(t))
	}
	if params["url"] != "https://example.com" {
		t.Errorf("url = %v", params["url"])
	}
	if params["active"] != true || params["pinned"] != false {
		t.Errorf("flags = active:%v pinned:%v", params["active"], params["pinned"])
	}
	if params["target"] != float64(1) || params["index"] != float64(3) {
		t.Errorf("placement = target:%v index:%v", params["target"], params["index"])
	}
}

func TestUpdateTabEmitsNewUrl(t *testing.T) {
	sender := &captureSender{}
	a := New(sender, nil)

	a.UpdateTab("https://example.com/next", true, false, true, 0, 0)

	m := decodeFrame(t, sender.last(t))
	if m["command"] != "NewUrl" {
		t.Fatalf("command = %v, want NewUrl", m["command"])
	}
	params := m["parameters"].(map[string]any)
	if params["muted"] != true {
		t.Errorf("muted = %v, want true", params["muted"])
	}
}

func TestExpanderAppliesToURLsOnly(t *testing.T) {
	sender := &captureSender{}
	expand := func(s string) string { return strings.ReplaceAll(s, "{host}", "example.com") }
	a := New(sender, expand)

	a.NewTab("https://{host}/a", false, false, 0, 0)
	m := decodeFrame(t, sender.last(t))
	params := m["parameters"].(map[string]any)
	if params["url"] != "https://example.com/a" {
		t.Errorf("NewTab url = %v", params["url"])
	}

	a.UpdateTab("https://{host}/b", false, false, false, 0, 0)
	m = decodeFrame(t, sender.last(t))
	params = m["parameters"].(map[string]any)
	if params["url"] != "https://example.com/b" {
		t.Errorf("UpdateTab url = %v", params["url"])
	}

	// Query filters pass through untouched.
	a.QueryTab("https://{host}/c")
	m = decodeFrame(t, sender.last(t))
	if m["url"] != "https://{host}/c" {
		t.Errorf("QueryTab url = %v, want raw template", m["url"])
	}
}

func TestTargetAndIndexNormalization(t *testing.T) {
	sender := &captureSender{}
	a := New(sender, nil)

	a.RemoveTab(7, -2)

	m := decodeFrame(t, sender.last(t))
	params := m["parameters"].(map[string]any)
	if params["target"] != float64(0) {
		t.Errorf("target = %v, want 0", params["target"])
	}
	if params["index"] != float64(0) {
		t.Errorf("index = %v, want 0", params["index"])
	}
}

func TestQueryActiveTabIsBare(t *testing.T) {
	sender := &captureSender{}
	a := New(sender, nil)

	a.QueryActiveTab()

	frame := sender.last(t)
	m := decodeFrame(t, frame)
	if len(m) != 1 || m["command"] != "QueryActiveTab" {
		t.Fatalf("frame = %s, want bare command envelope", frame)
	}
}

func TestQueryTabByIndexTopLevelData(t *testing.T) {
	sender := &captureSender{}
	a := New(sender, nil)

	a.QueryTabByIndex(4)

	m := decodeFrame(t, sender.last(t))
	if m["command"] != "QueryTabByIndex" {
		t.Fatalf("command = %v", m["command"])
	}
	if m["data"] != float64(4) {
		t.Errorf("data = %v, want 4", m["data"])
	}
	if _, ok := m["parameters"]; ok {
		t.Error("unexpected parameters object")
	}
}

func TestSendMessagePassesBytesUnmodified(t *testing.T) {
	sender := &captureSender{}
	a := New(sender, nil)

	raw := `{"command":"Experimental","parameters":{"x":1}}`
	a.SendMessage(raw)

	if got := sender.last(t); got != raw {
		t.Errorf("frame = %s, want verbatim input", got)
	}
}

func TestReloadAndMoveFrames(t *testing.T) {
	sender := &captureSender{}
	a := New(sender, nil)

	a.ReloadTab(1, 2, true)
	m := decodeFrame(t, sender.last(t))
	params := m["parameters"].(map[string]any)
	if params["bypasscache"] != true {
		t.Errorf("bypasscache = %v", params["bypasscache"])
	}

	a.MoveTab(1, 2, 5)
	m = decodeFrame(t, sender.last(t))
	params = m["parameters"].(map[string]any)
	if params["startindex"] != float64(2) || params["endindex"] != float64(5) {
		t.Errorf("move = start:%v end:%v", params["startindex"], params["endindex"])
	}
}
