// Package api provides a read-only HTTP API over stored simulation runs:
// run metadata, per-timestep census, the event log and the age structure of
// the saved population.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/chitwan-abm/internal/engine"
	"github.com/talgya/chitwan-abm/internal/errors"
	"github.com/talgya/chitwan-abm/internal/persistence"
)

// Server serves stored runs over HTTP.
type Server struct {
	DB           *persistence.DB
	Addr         string
	RatePerMin   int // per client; 0 disables rate limiting
	AllowOrigins []string
}

// Handler builds the route table. ctx bounds background work such as the
// rate limiter's sweep.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/runs/latest", s.handleLatest)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/census", s.handleCensus)
	mux.HandleFunc("GET /api/v1/runs/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/runs/{id}/pyramid", s.handlePyramid)

	var h http.Handler = mux
	if s.RatePerMin > 0 {
		h = RateLimitMiddleware(NewRateLimiter(ctx, s.RatePerMin), h)
	}
	return corsMiddleware(s.AllowOrigins, h)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "rate_per_min", s.RatePerMin)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("HTTP API shutting down")
	return srv.Shutdown(shutdownCtx)
}

// corsMiddleware adds CORS headers for allowed frontend origins. Origins
// listed in the CORS_ORIGINS env var (comma-separated) are allowed as well.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool)
	for _, o := range origins {
		allowed[o] = true
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowed[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type runSummary struct {
	ID        string `json:"id"`
	Seed      int64  `json:"seed"`
	StartedAt string `json:"started_at"`
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.DB.Runs()
	if err != nil {
		serverError(w, "list runs", err)
		return
	}
	out := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, runSummary{ID: run.ID, Seed: run.Seed, StartedAt: run.StartedAt})
	}
	writeJSON(w, out)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	id, err := s.DB.LatestRun()
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "no runs recorded", http.StatusNotFound)
		return
	}
	if err != nil {
		serverError(w, "latest run", err)
		return
	}
	s.writeRun(w, id)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.writeRun(w, r.PathValue("id"))
}

func (s *Server) writeRun(w http.ResponseWriter, id string) {
	run, ok := s.lookupRun(w, id)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{
		"id":         run.ID,
		"seed":       run.Seed,
		"started_at": run.StartedAt,
		"config":     run.Config,
	})
}

// handleCensus returns census rows, optionally limited to [from, to].
func (s *Server) handleCensus(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r.PathValue("id"))
	if !ok {
		return
	}
	from := queryInt(r, "from", 0)
	to := queryInt(r, "to", int(^uint(0)>>1))

	rows, err := s.DB.CensusHistory(run.ID)
	if err != nil {
		serverError(w, "census history", err)
		return
	}
	out := make([]engine.StepStats, 0, len(rows))
	for _, row := range rows {
		if row.Timestep >= from && row.Timestep <= to {
			out = append(out, row)
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r.PathValue("id"))
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	events, err := s.DB.RecentEvents(run.ID, limit)
	if err != nil {
		serverError(w, "recent events", err)
		return
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handlePyramid(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r.PathValue("id"))
	if !ok {
		return
	}
	width := queryInt(r, "width", 5)
	if width <= 0 || width > 100 {
		http.Error(w, "width must be in [1, 100]", http.StatusBadRequest)
		return
	}
	bands, err := s.DB.AgeStructure(run.ID, width)
	if err != nil {
		serverError(w, "age structure", err)
		return
	}
	if bands == nil {
		bands = []persistence.AgeBand{}
	}
	writeJSON(w, bands)
}

func (s *Server) lookupRun(w http.ResponseWriter, id string) (persistence.Run, bool) {
	run, err := s.DB.GetRun(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "run not found", http.StatusNotFound)
		return run, false
	}
	if err != nil {
		serverError(w, "get run", err)
		return run, false
	}
	return run, true
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func serverError(w http.ResponseWriter, what string, err error) {
	slog.Error("api query failed", "query", what, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
