package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/recipelens/internal/session"
)

// maxFormBytes bounds a multipart request body. The session enforces the
// configured image limit on the file itself.
const maxFormBytes = 64 << 20

var workspaceFiles = []string{"partials/workspace.html", "partials/recipe.html"}

type pageData struct {
	State   session.State
	Backend string
	Notice  string
	Version int64
}

func (s *Server) newPageData(sess *session.Session, notice string) pageData {
	return pageData{
		State:   sess.Snapshot(),
		Backend: s.sessions.BackendName(),
		Notice:  notice,
		Version: time.Now().UnixNano(),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	files := append([]string{"base.html", "pages/index.html"}, workspaceFiles...)
	if err := s.renderPage(w, s.newPageData(sess, ""), files...); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// respond re-renders the workspace for HTMX requests and redirects plain form
// posts back to the page.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, sess *session.Session, notice string) {
	if r.Header.Get("HX-Request") != "true" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := s.renderPartial(w, "workspace", s.newPageData(sess, notice), workspaceFiles...); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file required", http.StatusBadRequest)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	// A rejected upload is stored on the session and shown with the page.
	_ = sess.UploadImage(r.Context(), file, header.Filename)
	s.respond(w, r, sess, "")
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	data, mediaType, ok := sess.Image()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write image failed", "session_id", sess.ID(), "error", err)
	}
}

func (s *Server) handleSetServings(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.SetServingCountInput(r.FormValue("servings"))
	s.respond(w, r, sess, "")
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	// Navigating away does not abort the call; the outcome still lands in
	// the session and the journal.
	_, err := sess.Submit(context.WithoutCancel(r.Context()))

	// Stored outcomes render from the session state. Only a busy rejection
	// is not stored, so it is shown as a notice.
	var notice string
	if errors.Is(err, session.ErrInProgress) {
		notice = err.Error()
	}
	s.respond(w, r, sess, notice)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
