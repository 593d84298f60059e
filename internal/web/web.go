// Package web implements the control page used to pick a pattern, its delay
// and its colors.
package web

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"
	"libdb.so/strobbie/internal/pattern"
)

// Controller is the part of the daemon the web surface talks to. Calls may
// block until the control loop gets around to them, so they take the
// request context.
type Controller interface {
	// Snapshot returns the active engine configuration.
	Snapshot(ctx context.Context) (pattern.State, error)
	// Apply validates, applies and persists a new engine configuration.
	Apply(ctx context.Context, state pattern.State) error
	// Actions returns the selectable pattern names.
	Actions() []pattern.Name
}

// Options configures a Server.
type Options struct {
	// Version is shown in the page heading.
	Version string
	// DeviceName is shown under the heading and used as the page title.
	DeviceName string
	// Middleware wraps every route, if set.
	Middleware func(http.Handler) http.Handler
}

// Server serves the control page, the frame preview and a health check.
type Server struct {
	http.Handler
	ctrl    Controller
	preview *Preview
	opts    Options
	logger  *slog.Logger
}

// New creates a server. preview may be nil, in which case the preview route
// is not served.
func New(ctrl Controller, preview *Preview, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		ctrl:    ctrl,
		preview: preview,
		opts:    opts,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)
	if preview != nil {
		mux.Handle("/preview", preview)
	}

	s.Handler = mux
	if opts.Middleware != nil {
		s.Handler = opts.Middleware(mux)
	}

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		state, err := s.ctrl.Snapshot(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		s.render(w, http.StatusOK, draftFromState(state), "")

	case http.MethodPost:
		s.handleForm(w, r)

	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	do := r.PostForm.Get(fieldDo)

	switch {
	case do == doAdd:
		d := readDraftLenient(r.PostForm)
		d.add()
		s.render(w, http.StatusOK, d, "")

	case do == doUpdate:
		d, err := readDraftStrict(r.PostForm)
		if err != nil {
			s.logger.Debug("rejected update", "err", err)
			s.render(w, http.StatusBadRequest, readDraftLenient(r.PostForm), err.Error())
			return
		}

		state, err := d.State()
		if err == nil {
			err = s.ctrl.Apply(r.Context(), state)
		}
		if err != nil {
			if errors.Is(err, pattern.ErrUnknownPattern) {
				s.render(w, http.StatusBadRequest, d, err.Error())
				return
			}
			s.fail(w, err)
			return
		}

		s.logger.Info(
			"configuration updated",
			"action", state.Action,
			"delay", state.Delay,
			"colors", len(d.Colors))

		s.render(w, http.StatusOK, d, "")

	default:
		i, ok := parseRemove(do)
		if !ok {
			http.Error(w, "unknown form action", http.StatusBadRequest)
			return
		}
		d := readDraftLenient(r.PostForm)
		d.remove(i)
		s.render(w, http.StatusOK, d, "")
	}
}

func (s *Server) render(w http.ResponseWriter, code int, d draft, errMsg string) {
	var buf bytes.Buffer
	if err := renderPage(&buf, s, d, errMsg); err != nil {
		s.fail(w, errors.Wrap(err, "failed to render page"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	buf.WriteTo(w)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = http.StatusServiceUnavailable
	}
	s.logger.Warn("request failed", "err", err)
	http.Error(w, err.Error(), code)
}
