// Package web serves the browser UI of the transparency portal agent.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime/debug"

	"transparencia-agent/internal/agent"
	"transparencia-agent/internal/metrics"
	"transparencia-agent/internal/session"
	"transparencia-agent/ui"
)

const sessionCookie = "session_id"

type Server struct {
	logger  *slog.Logger
	store   *session.Store
	stages  session.Stages
	metrics *metrics.Metrics
	tmpl    *template.Template
	static  fs.FS
}

// NewServer wires the UI to a session store and the pipeline stages.
// When m is not nil the stages are instrumented and /metrics is served.
func NewServer(logger *slog.Logger, store *session.Store, stages session.Stages, m *metrics.Metrics) (*Server, error) {
	tmpl, err := template.ParseFS(ui.Files, "html/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	static, err := fs.Sub(ui.Files, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}

	if m != nil {
		stages = m.Instrument(stages)
	}

	return &Server{
		logger:  logger,
		store:   store,
		stages:  stages,
		metrics: m,
		tmpl:    tmpl,
		static:  static,
	}, nil
}

// Handler returns the routed, logged HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(s.static)))
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/select", s.handleSelect)
	mux.HandleFunc("/download", s.handleDownload)
	mux.HandleFunc("/report.md", s.handleReport)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	return s.logRequests(mux)
}

// TemplateData is the page model. Downloads are only set on the response
// to the download request that produced them.
type TemplateData struct {
	City      string
	Region    string
	Session   session.Snapshot
	Downloads []agent.DownloadRecord
	Summary   session.Summary
}

func clientError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	trace := string(debug.Stack())
	s.logger.Error("Internal Server Error", "error", err, "trace", trace)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// render executes the page into a buffer first so a template failure
// still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, data TemplateData) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// lookupSession returns the caller's session, or nil when the request
// carries no cookie for a live session.
func (s *Server) lookupSession(r *http.Request) *session.Session {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	sess, ok := s.store.Get(c.Value)
	if !ok {
		return nil
	}
	return sess
}

// startSession creates a session and issues its cookie.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := s.store.Create()
	s.logger.DebugContext(r.Context(), "Session started", slog.String("session", sess.ID))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// snapshot reads sess, or the idle view when there is no session.
func snapshot(sess *session.Session) session.Snapshot {
	if sess == nil {
		return session.Snapshot{}
	}
	return sess.Snapshot()
}
