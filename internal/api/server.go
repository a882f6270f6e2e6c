// Package api serves the validation engine over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/gait/synth"
	"github.com/banshee-data/gait.report/internal/gait/tuning"
	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/rangestore"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// RunStore persists validation runs. *db.DB implements it.
type RunStore interface {
	RecordRun(ctx context.Context, rec db.RunRecord) (string, error)
	ListRuns(ctx context.Context, limit int) ([]db.RunRecord, error)
	GetRun(ctx context.Context, id string) (*db.RunRecord, error)
}

// Options tunes request defaults.
type Options struct {
	// Synth supplies defaults for /api/synthesize; Mode is taken per request.
	Synth synth.Options
	// BufferFactor is used by /api/tune.
	BufferFactor float64
	// MaxSynthSteps caps num_steps on /api/synthesize.
	MaxSynthSteps int
	// MaxSynthPoints caps num_points on /api/synthesize.
	MaxSynthPoints int
	// MaxSynthSamples caps num_steps*num_points on /api/synthesize.
	MaxSynthSamples int
}

// DefaultOptions returns the options used when NewServer gets a zero value.
func DefaultOptions() Options {
	return Options{
		Synth:           synth.DefaultOptions(),
		BufferFactor:    tuning.DefaultBufferFactor,
		MaxSynthSteps:   10000,
		MaxSynthPoints:  1000,
		MaxSynthSamples: 2_000_000,
	}
}

type Server struct {
	ranges *rangestore.Cache
	runs   RunStore
	opts   Options
}

// NewServer returns a server reading range tables from ranges. runs may be
// nil, in which case run history endpoints answer 503.
func NewServer(ranges *rangestore.Cache, runs RunStore, opts Options) *Server {
	def := DefaultOptions()
	if opts.BufferFactor == 0 {
		opts.BufferFactor = def.BufferFactor
	}
	if opts.MaxSynthSteps <= 0 {
		opts.MaxSynthSteps = def.MaxSynthSteps
	}
	if opts.MaxSynthPoints <= 0 {
		opts.MaxSynthPoints = def.MaxSynthPoints
	}
	if opts.MaxSynthSamples <= 0 {
		opts.MaxSynthSamples = def.MaxSynthSamples
	}
	if opts.Synth == (synth.Options{}) {
		opts.Synth = def.Synth
	}
	return &Server{ranges: ranges, runs: runs, opts: opts}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/validate", s.handleValidate)
	mux.HandleFunc("/api/tune", s.handleTune)
	mux.HandleFunc("/api/synthesize", s.handleSynthesize)
	mux.HandleFunc("/api/tasks", s.handleTasks)
	mux.HandleFunc("/api/runs", s.handleListRuns)
	mux.HandleFunc("/api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("/charts/matrix", s.handleMatrixChart)
	return mux
}

// Handler returns the mux wrapped in LoggingMiddleware.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.ServeMux())
}
