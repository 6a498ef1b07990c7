package web

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"transparencia-agent/internal/agent"
	"transparencia-agent/internal/report"
	"transparencia-agent/internal/session"
)

const maxRegionRunes = 2

func pageData(snap session.Snapshot) TemplateData {
	return TemplateData{
		City:    snap.Input.Locality,
		Region:  snap.Input.Region,
		Session: snap,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		clientError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	s.render(w, pageData(snapshot(s.lookupSession(r))))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		clientError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	in := agent.SearchInput{
		Locality: strings.TrimSpace(r.FormValue("cidade")),
		Region:   truncateRunes(strings.TrimSpace(r.FormValue("estado")), maxRegionRunes),
	}
	if !in.Complete() {
		s.logger.DebugContext(r.Context(), "Search skipped, incomplete input")
		data := pageData(snapshot(s.lookupSession(r)))
		data.City, data.Region = in.Locality, in.Region
		s.render(w, data)
		return
	}

	sess := s.lookupSession(r)
	if sess == nil {
		sess = s.startSession(w, r)
	}
	logger := s.logger.With(slog.String("session", sess.ID))

	if _, err := sess.Search(r.Context(), s.stages, in); err != nil {
		logger.WarnContext(r.Context(), "Search failed", slog.Any("error", err))
	} else {
		logger.InfoContext(r.Context(), "Search successful",
			slog.String("locality", in.Locality),
			slog.String("region", in.Region),
		)
	}

	s.render(w, pageData(sess.Snapshot()))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		clientError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		clientError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	sess := s.lookupSession(r)
	if sess != nil {
		sess.Select(formIndices(r, "portal"))
	}
	s.render(w, pageData(snapshot(sess)))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		clientError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		clientError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	var categories []agent.Category
	for _, v := range r.PostForm["categoria"] {
		categories = append(categories, agent.Category(v))
	}

	sess := s.lookupSession(r)
	if sess == nil {
		s.logger.DebugContext(r.Context(), "Download skipped, no session")
		s.render(w, pageData(session.Snapshot{}))
		return
	}
	logger := s.logger.With(slog.String("session", sess.ID))

	downloads, ok, err := sess.Download(r.Context(), s.stages, formIndices(r, "portal"), categories)
	switch {
	case err != nil:
		logger.WarnContext(r.Context(), "Download failed", slog.Any("error", err))
	case !ok:
		logger.DebugContext(r.Context(), "Download skipped, nothing selected")
	default:
		logger.InfoContext(r.Context(), "Download successful", slog.Int("files", len(downloads)))
	}

	data := pageData(sess.Snapshot())
	data.Downloads = downloads
	data.Summary = session.Summarize(downloads)
	s.render(w, data)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		clientError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	var buf bytes.Buffer
	if err := report.WriteMarkdown(&buf, snapshot(s.lookupSession(r)), nil); err != nil {
		s.serverError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="relatorio-transparencia.md"`)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// formIndices parses every integer value of key, skipping malformed ones.
func formIndices(r *http.Request, key string) []int {
	var out []int
	for _, v := range r.PostForm[key] {
		i, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		out = append(out, i)
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
