// Package server exposes the operational HTTP surface: health, Prometheus
// metrics and a manual rollover trigger.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/lifecycle"
	"weekly-planner/internal/service"
	"weekly-planner/internal/week"
)

type Server struct {
	mu       sync.Mutex
	server   *http.Server
	addr     string
	rollover *service.RolloverService
	logger   *slog.Logger
}

func New(addr string, rollover *service.RolloverService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, rollover: rollover, logger: logger}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, s.accessLog)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Post("/rollover", s.handleRollover)
	})
	return r
}

// ListenAndServe serves until Shutdown; ctx becomes the base context of
// every request.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("starting http server", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}
		level := slog.LevelInfo
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, http.StatusText(ww.Status()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes_written", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

type rolloverUserResult struct {
	UserID      uint     `json:"user_id"`
	Moved       []uint   `json:"moved"`
	Reinstanced []uint   `json:"reinstanced"`
	Failed      []uint   `json:"failed"`
	Errors      []string `json:"errors,omitempty"`
}

type rolloverResponse struct {
	From  string               `json:"from"`
	To    string               `json:"to"`
	Users []rolloverUserResult `json:"users"`
}

// handleRollover runs the weekly rollover now. Optional query parameters
// from and to (ISO weeks) override the previous/current week pair.
func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	var (
		reports []*lifecycle.RolloverReport
		err     error
	)
	fromRaw, toRaw := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if fromRaw != "" || toRaw != "" {
		from, perr := week.Parse(fromRaw)
		if perr != nil {
			writeError(w, perr)
			return
		}
		to, perr := week.Parse(toRaw)
		if perr != nil {
			writeError(w, perr)
			return
		}
		reports, err = s.rollover.Run(r.Context(), from, to)
	} else {
		reports, err = s.rollover.RunForAllUsers(r.Context())
	}
	if err != nil && len(reports) == 0 {
		writeError(w, err)
		return
	}

	resp := rolloverResponse{Users: make([]rolloverUserResult, 0, len(reports))}
	for _, report := range reports {
		resp.From, resp.To = report.From.String(), report.To.String()
		result := rolloverUserResult{
			UserID:      report.UserID,
			Moved:       refIDs(report.Moved),
			Reinstanced: refIDs(report.Reinstanced),
			Failed:      make([]uint, 0, len(report.Failures)),
		}
		for _, f := range report.Failures {
			result.Failed = append(result.Failed, f.TaskID)
			result.Errors = append(result.Errors, f.Err.Error())
		}
		resp.Users = append(resp.Users, result)
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

func refIDs(refs []lifecycle.TaskRef) []uint {
	ids := make([]uint, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.TaskID)
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.CodeOf(err) {
	case apperr.InvalidArgument, apperr.InvalidDate:
		status = http.StatusBadRequest
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": apperr.Message(err)})
}
