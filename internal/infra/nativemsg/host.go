package nativemsg

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/bryanwahyu/urlsentry/internal/application/coordinator"
	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/logging"
)

const bufferSize = 1 << 16

// Inbound event types handled by the host itself; everything else goes to
// the coordinator's message dispatcher.
const (
	TypeNavigationCompleted = "NAVIGATION_COMPLETED"
	TypeTabRemoved          = "TAB_REMOVED"
	TypeHealth              = "health"
)

// Push types written without a request.
const (
	TypeSetBadge    = "SET_BADGE"
	TypeShowWarning = string(coordinator.ShowWarning)
)

// Handler is the coordinator as seen by the host.
type Handler interface {
	OnNavigationCompleted(ctx context.Context, ev analysis.NavigationEvent) (*analysis.Result, error)
	OnTabRemoved(ctx context.Context, tab analysis.TabID) error
	Handle(ctx context.Context, m coordinator.Message) coordinator.Reply
}

type envelope struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
}

type navigationRequest struct {
	envelope
	analysis.NavigationEvent
}

type messageRequest struct {
	RequestID string `json:"requestId,omitempty"`
	coordinator.Message
}

type response struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

type push struct {
	Type  string         `json:"type"`
	TabID analysis.TabID `json:"tabId"`
	Data  any            `json:"data"`
}

// Host reads frames from the browser and answers them. Requests run
// concurrently; writes are serialized. It doubles as the BadgeSink and
// WarningSender of the coordinator it serves.
type Host struct {
	Handler Handler
	Log     *logging.Logger
	Version string

	in  *bufio.Reader
	mu  sync.Mutex
	out *bufio.Writer
}

func NewHost(r io.Reader, w io.Writer, log *logging.Logger) *Host {
	return &Host{
		Log: log,
		in:  bufio.NewReaderSize(r, bufferSize),
		out: bufio.NewWriterSize(w, bufferSize),
	}
}

// Serve processes frames until EOF or ctx is done, then waits for requests
// in flight.
func (h *Host) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := ReadFrame(h.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := h.dispatch(ctx, payload)
			if err := h.write(resp); err != nil {
				h.Log.Error("write frame failed", "err", err)
			}
		}()
	}
}

func (h *Host) dispatch(ctx context.Context, payload []byte) (resp response) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return response{OK: false, Code: "BAD_JSON", Message: "invalid json"}
	}
	defer func() {
		if r := recover(); r != nil {
			h.Log.Error("request panicked", "type", env.Type, "panic", r)
			resp = response{OK: false, RequestID: env.RequestID, Code: "INTERNAL", Message: "internal error"}
		}
	}()

	switch env.Type {
	case TypeHealth:
		return response{OK: true, RequestID: env.RequestID, Data: map[string]string{"version": h.Version}}

	case TypeNavigationCompleted:
		var req navigationRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return response{OK: false, RequestID: env.RequestID, Code: "BAD_JSON", Message: "invalid json"}
		}
		res, err := h.Handler.OnNavigationCompleted(ctx, req.NavigationEvent)
		if err != nil {
			return response{OK: false, RequestID: env.RequestID, Code: "NOT_STORED", Message: err.Error()}
		}
		return response{OK: true, RequestID: env.RequestID, Data: res}

	case TypeTabRemoved:
		var req navigationRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return response{OK: false, RequestID: env.RequestID, Code: "BAD_JSON", Message: "invalid json"}
		}
		if err := h.Handler.OnTabRemoved(ctx, req.TabID); err != nil {
			return response{OK: false, RequestID: env.RequestID, Code: "STORE", Message: err.Error()}
		}
		return response{OK: true, RequestID: env.RequestID}
	}

	var req messageRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return response{OK: false, RequestID: env.RequestID, Code: "BAD_JSON", Message: "invalid json"}
	}
	reply := h.Handler.Handle(ctx, req.Message)
	if e, ok := reply.(coordinator.ErrorReply); ok {
		return response{OK: false, RequestID: env.RequestID, Code: "ERROR", Message: e.Error, Data: e}
	}
	return response{OK: true, RequestID: env.RequestID, Data: reply}
}

func (h *Host) write(v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := WriteFrame(h.out, v); err != nil {
		return err
	}
	return h.out.Flush()
}

func (h *Host) SetBadge(_ context.Context, tab analysis.TabID, b analysis.Badge) error {
	return h.write(push{Type: TypeSetBadge, TabID: tab, Data: b})
}

func (h *Host) SendWarning(_ context.Context, tab analysis.TabID, r *analysis.Result) error {
	return h.write(push{Type: TypeShowWarning, TabID: tab, Data: r})
}
