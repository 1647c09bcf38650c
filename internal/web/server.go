package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/conorfennell/dailyquiz/internal/quiz"
	"github.com/conorfennell/dailyquiz/internal/schedule"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP server.
type Server struct {
	svc        *quiz.Service
	router     *http.ServeMux
	templates  *template.Template
	ledgerDays int
}

// page is the data every quiz fragment renders from.
type page struct {
	View   *quiz.View
	Result *quiz.AnswerResult
}

// NewServer creates and configures a new server. ledgerDays is how many
// days of scores the stats fragment shows.
func NewServer(svc *quiz.Service, ledgerDays int) (*Server, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		svc:        svc,
		router:     http.NewServeMux(),
		templates:  tpl,
		ledgerDays: ledgerDays,
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to create sub-filesystem for static assets: %w", err)
	}
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.HandleFunc("GET /{$}", s.handleIndex())
	s.router.HandleFunc("GET /question", s.handleQuestion())
	s.router.HandleFunc("POST /answer", s.handleAnswer())
	s.router.HandleFunc("GET /stats", s.handleStats())
	s.router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return nil
}

// handleIndex renders the full page around the current question.
func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.svc.Current(r.Context())
		if err != nil {
			s.serverError(w, "Error loading current question", err)
			return
		}
		s.render(w, "index", page{View: view})
	}
}

// handleQuestion renders the quiz fragment for HTMX swaps.
func (s *Server) handleQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.svc.Current(r.Context())
		if err != nil {
			s.serverError(w, "Error loading current question", err)
			return
		}
		s.render(w, "quiz", page{View: view})
	}
}

// handleAnswer grades a submitted choice and renders the outcome together
// with whatever comes next.
func (s *Server) handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID := strings.TrimSpace(r.PostFormValue("question_id"))
		choice := r.PostFormValue("choice")
		if questionID == "" || choice == "" {
			http.Error(w, "question_id and choice are required", http.StatusBadRequest)
			return
		}

		res, err := s.svc.Answer(r.Context(), questionID, choice)
		switch {
		case errors.Is(err, schedule.ErrQuestionMismatch):
			http.Error(w, "That question is no longer current", http.StatusConflict)
			return
		case err != nil:
			s.serverError(w, "Error recording answer", err)
			return
		}

		name := "quiz"
		if r.Header.Get("HX-Request") == "" {
			name = "index"
		}
		w.Header().Set("HX-Trigger", "answered")
		s.render(w, name, page{View: res.View, Result: res})
	}
}

// handleStats renders recent scores and progress counts.
func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := s.svc.Summary(r.Context(), s.ledgerDays)
		if err != nil {
			s.serverError(w, "Error loading stats", err)
			return
		}
		s.render(w, "stats", sum)
	}
}

// render executes a template into a buffer first so a template error can
// still produce a 500.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.serverError(w, "Error rendering template", err, "template", name)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error, args ...any) {
	slog.Error(msg, append([]any{"error", err}, args...)...)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
