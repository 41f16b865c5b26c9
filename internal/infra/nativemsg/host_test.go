package nativemsg

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bryanwahyu/urlsentry/internal/application/coordinator"
	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/logging"
)

type fakeHandler struct{}

func (fakeHandler) OnNavigationCompleted(ctx context.Context, ev analysis.NavigationEvent) (*analysis.Result, error) {
	if ev.URL == "https://fail.example/" {
		return nil, coordinator.ErrSuperseded
	}
	return &analysis.Result{URL: ev.URL, Status: analysis.StatusSafe}, nil
}

func (fakeHandler) OnTabRemoved(ctx context.Context, tab analysis.TabID) error {
	if tab == 99 {
		return errors.New("store down")
	}
	return nil
}

func (fakeHandler) Handle(ctx context.Context, m coordinator.Message) coordinator.Reply {
	if m.Type == coordinator.ProceedAnyway {
		return coordinator.AckReply{Success: true}
	}
	return coordinator.ErrorReply{Error: "Unknown message type"}
}

func frame(t *testing.T, buf *bytes.Buffer, raw string) {
	t.Helper()
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(raw)))
	buf.Write(n[:])
	buf.WriteString(raw)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, map[string]string{"type": "health"}); err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(buf.Bytes()[:4]); int(got) != buf.Len()-4 {
		t.Fatalf("length prefix %d, payload %d", got, buf.Len()-4)
	}
	payload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"type":"health"}` {
		t.Fatalf("payload = %s", payload)
	}
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], MaxFrameSize+1)
	if _, err := ReadFrame(bytes.NewReader(n[:])); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("err = %v", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	frame(t, &buf, `{"type":"health"}`)
	if _, err := ReadFrame(bytes.NewReader(buf.Bytes()[:8])); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestServe(t *testing.T) {
	var in, out bytes.Buffer
	frame(t, &in, `{"type":"health","requestId":"h"}`)
	frame(t, &in, `{"type":"NAVIGATION_COMPLETED","requestId":"n","tabId":3,"frameId":0,"url":"https://example.com/"}`)
	frame(t, &in, `{"type":"NAVIGATION_COMPLETED","requestId":"s","tabId":3,"url":"https://fail.example/"}`)
	frame(t, &in, `{"type":"TAB_REMOVED","requestId":"r","tabId":3}`)
	frame(t, &in, `{"type":"TAB_REMOVED","requestId":"rf","tabId":99}`)
	frame(t, &in, `{"type":"PROCEED_ANYWAY","requestId":"p","tabId":3}`)
	frame(t, &in, `{"type":"NOPE","requestId":"u"}`)
	frame(t, &in, `not json`)

	h := NewHost(&in, &out, logging.Discard())
	h.Handler = fakeHandler{}
	h.Version = "test"
	if err := h.Serve(context.Background()); err != nil {
		t.Fatalf("serve: %v", err)
	}

	got := map[string]response{}
	var badJSON int
	for out.Len() > 0 {
		payload, err := ReadFrame(&out)
		if err != nil {
			t.Fatal(err)
		}
		var r response
		if err := json.Unmarshal(payload, &r); err != nil {
			t.Fatal(err)
		}
		if r.RequestID == "" {
			badJSON++
			continue
		}
		got[r.RequestID] = r
	}

	tests := []struct {
		id   string
		ok   bool
		code string
	}{
		{"h", true, ""},
		{"n", true, ""},
		{"s", false, "NOT_STORED"},
		{"r", true, ""},
		{"rf", false, "STORE"},
		{"p", true, ""},
		{"u", false, "ERROR"},
	}
	for _, tt := range tests {
		r, ok := got[tt.id]
		if !ok {
			t.Errorf("no response for %s", tt.id)
			continue
		}
		if r.OK != tt.ok || r.Code != tt.code {
			t.Errorf("%s: ok=%v code=%q, want ok=%v code=%q", tt.id, r.OK, r.Code, tt.ok, tt.code)
		}
	}
	if badJSON != 1 {
		t.Fatalf("bad json responses = %d, want 1", badJSON)
	}
	if v, _ := got["h"].Data.(map[string]any); v["version"] != "test" {
		t.Fatalf("health data = %#v", got["h"].Data)
	}
}

func TestHostPushes(t *testing.T) {
	var out bytes.Buffer
	h := NewHost(strings.NewReader(""), &out, logging.Discard())
	if err := h.SetBadge(context.Background(), 4, analysis.Badge{Text: "!", Color: "#f59e0b"}); err != nil {
		t.Fatal(err)
	}
	if err := h.SendWarning(context.Background(), 4, &analysis.Result{URL: "https://bad.example/", Status: analysis.StatusMalicious}); err != nil {
		t.Fatal(err)
	}

	var types []string
	for out.Len() > 0 {
		payload, err := ReadFrame(&out)
		if err != nil {
			t.Fatal(err)
		}
		var p struct {
			Type  string `json:"type"`
			TabID int    `json:"tabId"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			t.Fatal(err)
		}
		if p.TabID != 4 {
			t.Fatalf("tab = %d", p.TabID)
		}
		types = append(types, p.Type)
	}
	if strings.Join(types, ",") != "SET_BADGE,SHOW_WARNING" {
		t.Fatalf("types = %v", types)
	}
}
