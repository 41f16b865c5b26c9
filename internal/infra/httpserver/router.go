package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/urlsentry/internal/application/coordinator"
	domai "github.com/bryanwahyu/urlsentry/internal/domain/ai"
	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/domain/reports"
	"github.com/bryanwahyu/urlsentry/internal/infra/push"
	"github.com/bryanwahyu/urlsentry/internal/logging"
	"github.com/bryanwahyu/urlsentry/internal/middleware"
)

// Analyzer runs a stateless analysis for POST /v1/analyze.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) *analysis.Result
}

// ReportReader serves GET /v1/reports/{id}.
type ReportReader interface {
	Get(ctx context.Context, id string) (*reports.Report, error)
}

// Options wires the router. Hub and Reports are optional.
type Options struct {
	Coordinator    *coordinator.Coordinator
	Engine         Analyzer
	Reports        ReportReader
	Hub            *push.Hub
	Health         map[string]middleware.HealthChecker
	APIKeys        map[string]string
	AllowedOrigins []string
	RateCapacity   int
	RateRefill     int
	Heartbeat      time.Duration
	Log            *logging.Logger
}

type Router struct {
	coord     *coordinator.Coordinator
	engine    Analyzer
	reports   ReportReader
	hub       *push.Hub
	heartbeat time.Duration
	log       *logging.Logger
}

func NewRouter(opts Options) http.Handler {
	r := &Router{
		coord:     opts.Coordinator,
		engine:    opts.Engine,
		reports:   opts.Reports,
		hub:       opts.Hub,
		heartbeat: opts.Heartbeat,
		log:       opts.Log,
	}
	if r.heartbeat <= 0 {
		r.heartbeat = 15 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"chrome-extension://*", "moz-extension://*"}
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware(opts.Log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Handle("/metrics/prometheus", middleware.PrometheusHandler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		if opts.RateCapacity > 0 {
			rt.Use(middleware.RateLimitMiddleware(opts.RateCapacity, max(1, opts.RateRefill)))
		}
		rt.Post("/messages", r.wrap(r.handleMessage))
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Post("/tabs/{tabID}/navigations", r.wrap(r.handleNavigation))
		rt.Get("/tabs/{tabID}/analysis", r.wrap(r.handleGetAnalysis))
		rt.Delete("/tabs/{tabID}", r.wrap(r.handleTabRemoved))
		rt.Get("/reports/{id}", r.wrap(r.handleGetReport))
		rt.Get("/events", r.wrap(r.handleEvents))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks an error as the client's fault.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var br badRequest
		switch {
		case errors.As(err, &br), errors.Is(err, reports.ErrInvalidReport):
			writeJSON(w, http.StatusBadRequest, coordinator.ErrorReply{Error: err.Error()})
		case errors.Is(err, reports.ErrNotFound), errors.Is(err, coordinator.ErrUnknownTab):
			writeJSON(w, http.StatusNotFound, coordinator.ErrorReply{Error: err.Error()})
		case errors.Is(err, coordinator.ErrSuperseded):
			writeJSON(w, http.StatusConflict, coordinator.ErrorReply{Error: err.Error()})
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeJSON(w, http.StatusTooManyRequests, coordinator.ErrorReply{Error: "ai quota exceeded"})
		default:
			r.log.Error("request failed", "path", req.URL.Path, "err", err)
			writeJSON(w, http.StatusInternalServerError, coordinator.ErrorReply{Error: "internal error"})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, req.Body, 1<<20)).Decode(v); err != nil {
		return badRequest{fmt.Errorf("invalid json: %w", err)}
	}
	return nil
}

func tabParam(req *http.Request) (analysis.TabID, error) {
	tab, err := middleware.ValidateTabID(chi.URLParam(req, "tabID"))
	if err != nil {
		return 0, badRequest{err}
	}
	return tab, nil
}

// POST /v1/messages
// Body: {"type": "GET_ANALYSIS", "tabId": 1, ...}
func (r *Router) handleMessage(w http.ResponseWriter, req *http.Request) error {
	var m coordinator.Message
	if err := decode(req, &m); err != nil {
		return err
	}
	if m.Type == coordinator.ReportWebsite {
		if err := middleware.ValidateReportURL(m.URL); err != nil {
			return badRequest{err}
		}
		m.Reason = middleware.SanitizeReason(m.Reason)
	}
	if m.Type == coordinator.GetReports {
		m.Limit = middleware.ValidateLimit(m.Limit)
	}

	reply := r.coord.Handle(req.Context(), m)
	if _, ok := reply.(coordinator.ErrorReply); ok {
		return writeJSON(w, http.StatusBadRequest, reply)
	}
	return writeJSON(w, http.StatusOK, reply)
}

// POST /v1/analyze
// Body: {"url": "https://..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL string `json:"url"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateURL(body.URL); err != nil {
		return badRequest{err}
	}
	return writeJSON(w, http.StatusOK, r.engine.Analyze(req.Context(), body.URL))
}

// POST /v1/tabs/{tabID}/navigations
// Body: {"frameId": 0, "url": "https://..."}
func (r *Router) handleNavigation(w http.ResponseWriter, req *http.Request) error {
	tab, err := tabParam(req)
	if err != nil {
		return err
	}
	var body struct {
		FrameID int    `json:"frameId"`
		URL     string `json:"url"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateURL(body.URL); err != nil {
		return badRequest{err}
	}

	res, err := r.coord.OnNavigationCompleted(req.Context(), analysis.NavigationEvent{TabID: tab, FrameID: body.FrameID, URL: body.URL})
	if err != nil {
		return err
	}
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/tabs/{tabID}/analysis
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	tab, err := tabParam(req)
	if err != nil {
		return err
	}
	reply := r.coord.Handle(req.Context(), coordinator.Message{Type: coordinator.GetAnalysis, TabID: tab})
	if _, ok := reply.(coordinator.PendingReply); ok {
		return writeJSON(w, http.StatusAccepted, reply)
	}
	return writeJSON(w, http.StatusOK, reply)
}

// DELETE /v1/tabs/{tabID}
func (r *Router) handleTabRemoved(w http.ResponseWriter, req *http.Request) error {
	tab, err := tabParam(req)
	if err != nil {
		return err
	}
	if err := r.coord.OnTabRemoved(req.Context(), tab); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/reports/{id}
func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) error {
	if r.reports == nil {
		return reports.ErrNotFound
	}
	rep, err := r.reports.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// GET /v1/events?tabId=
// Streams SET_BADGE and SHOW_WARNING events as SSE.
func (r *Router) handleEvents(w http.ResponseWriter, req *http.Request) error {
	if r.hub == nil {
		return writeJSON(w, http.StatusNotImplemented, coordinator.ErrorReply{Error: "push is disabled"})
	}
	var only analysis.TabID
	if v := req.URL.Query().Get("tabId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return badRequest{fmt.Errorf("invalid tabId: %q", v)}
		}
		only = analysis.TabID(id)
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming not supported")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	id, events, unsubscribe := r.hub.Subscribe()
	defer unsubscribe()
	fmt.Fprintf(w, "event: ready\ndata: {\"subscriber\":%q}\n\n", id)
	flusher.Flush()

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-req.Context().Done():
			return nil
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if only != 0 && ev.TabID != only {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				r.log.Warn("encode event failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
