package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"calgrid/internal/auth"
	"calgrid/internal/calendar"
	"calgrid/internal/config"
	"calgrid/internal/jump"
	"calgrid/internal/locale"
	appLog "calgrid/internal/log"
	"calgrid/internal/metrics"
	"calgrid/internal/viewmodel"
)

// Refresher re-imports subscribed feeds. *ics.Syncer implements it.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Server exposes one calendar session over a JSON API and an HTML page.
type Server struct {
	cfg       *config.Config
	session   *viewmodel.Session
	metrics   *metrics.Metrics
	refresher Refresher
	jump      *jump.Parser
	loc       *time.Location
	mux       *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics enables /metrics and request counting.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRefresher enables POST /api/refresh.
func WithRefresher(r Refresher) Option {
	return func(s *Server) { s.refresher = r }
}

// NewServer constructs a new Server around sess.
func NewServer(cfg *config.Config, sess *viewmodel.Session, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:     cfg,
		session: sess,
		jump:    jump.New(),
		loc:     resolveLocationOrLocal(cfg.Timezone),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the routes wrapped with request counting and, when
// configured, HTTP Basic Auth (everything except /health).
func (s *Server) Handler() http.Handler {
	h := s.PageHandler()
	if creds := s.credentials(); creds.Enabled() {
		appLog.Info("HTTP basic auth enabled", "user", creds.Username, "hashed", creds.PasswordHash != "")
		return auth.Middleware(creds, "calgrid", []string{"/health"}, h)
	}
	return h
}

// PageHandler returns the routes without authentication, for in-process
// consumers such as the PNG snapshot.
func (s *Server) PageHandler() http.Handler {
	return s.countRequests(s.mux)
}

func (s *Server) credentials() auth.Credentials {
	if s.cfg.BasicAuth == nil {
		return auth.Credentials{}
	}
	return auth.Credentials{
		Username:     s.cfg.BasicAuth.Username,
		Password:     s.cfg.BasicAuth.Password,
		PasswordHash: s.cfg.BasicAuth.PasswordHash,
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("GET /api/grid", s.handleGrid)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/navigate", s.handleNavigate)
	s.mux.HandleFunc("POST /api/today", s.handleToday)
	s.mux.HandleFunc("POST /api/select", s.handleSelect)
	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleAddEvent)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	s.mux.HandleFunc("GET /calendar.ics", s.handleExport)
	s.mux.HandleFunc("GET /calendar", s.handleCalendarPage)
	s.mux.HandleFunc("POST /calendar/navigate", s.handlePageNavigate)
	s.mux.HandleFunc("POST /calendar/select", s.handlePageSelect)
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// formatter picks the label locale: ?lang= first, then the configured
// locale, then Accept-Language.
func (s *Server) formatter(r *http.Request) *locale.Formatter {
	return locale.New(r.URL.Query().Get("lang"), s.cfg.Locale, r.Header.Get("Accept-Language"))
}

// render builds the View of the current state.
func (s *Server) render(r *http.Request) viewmodel.View {
	return s.renderState(r, s.session.State())
}

func (s *Server) renderState(r *http.Request, st viewmodel.State) viewmodel.View {
	if s.metrics != nil {
		s.metrics.GridBuilds.Inc()
	}
	return st.Render(s.now(), s.formatter(r))
}

// now reads the session clock in the configured timezone, so "today"
// follows the calendar's zone rather than the host's.
func (s *Server) now() time.Time {
	return s.session.Clock().Now().In(s.loc)
}

// countRequests increments the per-route request counter.
func (s *Server) countRequests(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequestTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// navigable reports whether moving active by offset months stays within
// the supported years.
func navigable(active calendar.Date, offset int) bool {
	const span = (calendar.MaxYear - calendar.MinYear + 1) * 12
	if offset > span || offset < -span {
		return false
	}
	return calendar.MonthInRange(active.Year, int(active.Month)-1+offset)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// decodeJSON reads a small JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
