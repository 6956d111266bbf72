// Package devserver serves built bundles with an HTML page per entry.
package devserver

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/bundlecfg/internal/assets"
	"github.com/wolfeidau/bundlecfg/internal/logger"
)

//go:embed templates/*.html
var templates embed.FS

// Config holds the listener and page settings.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
	Title       string
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Status describes the outcome of the most recent build.
type Status struct {
	Entries []string  `json:"entries"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
	BuiltAt time.Time `json:"builtAt,omitzero"`
}

// Server renders entry pages and serves the output directory.
type Server struct {
	cfg      Config
	pipeline *assets.Pipeline
	tmpl     *template.Template
	logger   zerolog.Logger

	mu     sync.RWMutex
	status Status
}

// New creates a server for the pipeline's outputs.
func New(cfg Config, pipeline *assets.Pipeline, log zerolog.Logger) (*Server, error) {
	funcs := template.FuncMap{
		"marshal": marshal,
		"js": func(s string) template.JS {
			return template.JS(s) //nolint:gosec
		},
	}

	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}

	if cfg.Title == "" {
		cfg.Title = "bundlecfg"
	}

	return &Server{
		cfg:      cfg,
		pipeline: pipeline,
		tmpl:     tmpl,
		logger:   log,
		status:   Status{Entries: pipeline.EntryNames()},
	}, nil
}

// Rebuilt records a build result. It matches assets.RebuildFunc.
func (s *Server) Rebuilt(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.OK = err == nil
	s.status.Error = ""
	if err != nil {
		s.status.Error = err.Error()
	}
	s.status.BuiltAt = time.Now().UTC()
}

// Status returns the most recent build status.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Handler returns the routed handler wrapped in logging, CORS and
// compression middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		s.renderEntry(w, r, s.pipeline.EntryNames()[0])
	})
	mux.HandleFunc("GET /entries/{name}", func(w http.ResponseWriter, r *http.Request) {
		s.renderEntry(w, r, r.PathValue("name"))
	})
	mux.HandleFunc("GET /_status", s.handleStatus)
	mux.Handle("GET /", http.FileServer(http.Dir(s.pipeline.OutputDir())))

	var handler http.Handler = mux
	handler = gzhttp.GzipHandler(handler)
	if len(s.cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
		}).Handler(handler)
	}
	return logger.HTTPRequests(s.logger)(handler)
}

func (s *Server) renderEntry(w http.ResponseWriter, r *http.Request, name string) {
	scripts, err := s.pipeline.Scripts(name)
	switch {
	case errors.Is(err, assets.ErrUnknownEntry):
		http.NotFound(w, r)
		return
	case errors.Is(err, assets.ErrNotBuilt):
		http.Error(w, "Bundle not built yet", http.StatusServiceUnavailable)
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to load scripts")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	stylesheets, err := s.pipeline.Stylesheets(name)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to load stylesheets")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Title":       s.cfg.Title,
		"Entry":       name,
		"Scripts":     scripts,
		"Stylesheets": stylesheets,
		"Context": map[string]any{
			"entry":   name,
			"entries": s.pipeline.EntryNames(),
		},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "page.html", data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render template")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.Status()
	w.Header().Set("Content-Type", "application/json")
	if !status.OK && !status.BuiltAt.IsZero() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("Starting dev server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info().Msg("Shutting down dev server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func marshal(value any) string {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		panic(errors.New("context can only be json serializable"))
	}

	return buf.String()
}
