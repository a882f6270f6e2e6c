package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/gait.report/internal/chart"
	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/classify"
	"github.com/banshee-data/gait.report/internal/gait/synth"
	"github.com/banshee-data/gait.report/internal/gait/tuning"
	"github.com/banshee-data/gait.report/internal/gait/validate"
	"github.com/banshee-data/gait.report/internal/httputil"
	"github.com/banshee-data/gait.report/internal/monitoring"
)

// validateRequest is the body of /api/validate and /api/tune. Task selects a
// single task; when empty every task in Tasks is checked. Ranges overrides
// the configured range table for this request only.
type validateRequest struct {
	Mode   string                     `json:"mode"`
	Task   string                     `json:"task,omitempty"`
	Data   [][][]float64              `json:"data"`
	Tasks  []string                   `json:"tasks"`
	Ranges map[string]gait.TaskRanges `json:"ranges,omitempty"`
	Record bool                       `json:"record,omitempty"`
}

type validateResponse struct {
	RunID      string               `json:"run_id,omitempty"`
	Mode       gait.Mode            `json:"mode"`
	Checks     int                  `json:"checks"`
	Violations []validate.Violation `json:"violations"`
	Features   []string             `json:"features"`
	Colors     [][]classify.Color   `json:"colors"`
	Overview   []classify.Color     `json:"overview"`
}

type synthesizeRequest struct {
	Mode      string  `json:"mode"`
	Task      string  `json:"task"`
	NumSteps  int     `json:"num_steps"`
	NumPoints int     `json:"num_points,omitempty"`
	Seed      *uint64 `json:"seed,omitempty"`
}

type synthesizeResponse struct {
	Mode  gait.Mode       `json:"mode"`
	Tasks []string        `json:"tasks"`
	Data  *gait.StepArray `json:"data"`
}

// prepared is a decoded and shape-checked validation request.
type prepared struct {
	mode    gait.Mode
	task    string
	data    *gait.StepArray
	mapping gait.StepTaskMapping
	table   *gait.RangeTable
}

func (s *Server) prepare(req validateRequest) (*prepared, error) {
	mode, err := gait.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	data, err := gait.FromNested(req.Data)
	if err != nil {
		return nil, err
	}
	if len(req.Tasks) != data.Steps {
		return nil, fmt.Errorf("tasks has %d entries for %d steps", len(req.Tasks), data.Steps)
	}

	var table *gait.RangeTable
	if req.Ranges != nil {
		table, err = gait.NewRangeTable(req.Ranges)
	} else {
		table, err = s.ranges.Get(mode)
	}
	if err != nil {
		return nil, err
	}
	if req.Task != "" {
		if _, err := table.Task(req.Task); err != nil {
			return nil, err
		}
	}
	return &prepared{
		mode:    mode,
		task:    req.Task,
		data:    data,
		mapping: gait.MappingFromTasks(req.Tasks),
		table:   table,
	}, nil
}

func (s *Server) run(r *http.Request, p *prepared) (validate.Result, error) {
	v, err := validate.NewValidator(p.mode)
	if err != nil {
		return validate.Result{}, err
	}
	if p.task != "" {
		return v.Validate(p.data, p.table, p.task, p.mapping)
	}
	return v.ValidateAll(r.Context(), p.data, p.table, p.mapping)
}

// isRequestError reports whether err came from a malformed request rather
// than from the engine or its configuration.
func isRequestError(err error) bool {
	var cfg *gait.ConfigurationError
	return !errors.As(err, &cfg)
}

func (s *Server) writePrepareError(w http.ResponseWriter, err error) {
	if httputil.StatusFor(err) == http.StatusInternalServerError && isRequestError(err) {
		// Shape and decoding errors carry no sentinel.
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteError(w, err)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req validateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	p, err := s.prepare(req)
	if err != nil {
		s.writePrepareError(w, err)
		return
	}
	result, err := s.run(r, p)
	if err != nil {
		s.writePrepareError(w, err)
		return
	}

	matrix, err := classify.Classify(result.Violations, p.mapping, p.mode)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	overview, err := classify.ClassifyOverview(result.Violations, p.mapping, p.mode)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	resp := validateResponse{
		Mode:       p.mode,
		Checks:     result.Checks,
		Violations: result.Violations,
		Features:   matrix.Features(),
		Colors:     matrix.Rows(),
		Overview:   overview,
	}
	if resp.Violations == nil {
		resp.Violations = []validate.Violation{}
	}

	if req.Record {
		if s.runs == nil {
			httputil.WriteJSONError(w, http.StatusServiceUnavailable, "run history is disabled")
			return
		}
		report := tuning.NewAggregator(s.opts.BufferFactor).Export(result.Violations, p.mapping)
		id, err := s.runs.RecordRun(r.Context(), db.RunRecord{
			Mode:       p.mode,
			Task:       p.task,
			NumSteps:   p.data.Steps,
			Checks:     result.Checks,
			Mapping:    p.mapping,
			Violations: result.Violations,
			Targets:    report.Targets,
		})
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to record run: %v", err))
			return
		}
		resp.RunID = id
		monitoring.Debugf("recorded run %s: %d violations", id, len(result.Violations))
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) handleTune(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req validateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	p, err := s.prepare(req)
	if err != nil {
		s.writePrepareError(w, err)
		return
	}
	result, err := s.run(r, p)
	if err != nil {
		s.writePrepareError(w, err)
		return
	}
	report := tuning.NewAggregator(s.opts.BufferFactor).Export(result.Violations, p.mapping)
	httputil.WriteJSONOK(w, report)
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req synthesizeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	mode, err := gait.ParseMode(req.Mode)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.NumSteps <= 0 || req.NumSteps > s.opts.MaxSynthSteps {
		httputil.BadRequest(w, fmt.Sprintf("num_steps must be in [1, %d]", s.opts.MaxSynthSteps))
		return
	}

	table, err := s.ranges.Get(mode)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ranges, err := table.Task(req.Task)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	opts := s.opts.Synth
	opts.Mode = mode
	if req.NumPoints != 0 {
		opts.NumPoints = req.NumPoints
	}
	if opts.NumPoints > s.opts.MaxSynthPoints {
		httputil.BadRequest(w, fmt.Sprintf("num_points must be at most %d", s.opts.MaxSynthPoints))
		return
	}
	if req.NumSteps*opts.NumPoints > s.opts.MaxSynthSamples {
		httputil.BadRequest(w, fmt.Sprintf("num_steps*num_points must be at most %d", s.opts.MaxSynthSamples))
		return
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	data, err := synth.CreateValidData(ranges, req.NumSteps, opts)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	tasks := make([]string, req.NumSteps)
	for i := range tasks {
		tasks[i] = req.Task
	}
	httputil.WriteJSONOK(w, synthesizeResponse{Mode: mode, Tasks: tasks, Data: data})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	mode, err := gait.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	table, err := s.ranges.Get(mode)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"mode":     mode,
		"tasks":    table.Tasks(),
		"features": mode.MustFeatures(),
	})
}

func (s *Server) requireRuns(w http.ResponseWriter) bool {
	if s.runs == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "run history is disabled")
		return false
	}
	return true
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireRuns(w) {
		return
	}
	limit := db.DefaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request, id string) (*db.RunRecord, bool) {
	if id == "" {
		httputil.BadRequest(w, "missing run id")
		return nil, false
	}
	rec, err := s.runs.GetRun(r.Context(), id)
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, err.Error())
		return nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve run: %v", err))
		return nil, false
	}
	return rec, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireRuns(w) {
		return
	}
	rec, ok := s.lookupRun(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, rec)
}

func (s *Server) handleMatrixChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireRuns(w) {
		return
	}
	rec, ok := s.lookupRun(w, r, r.URL.Query().Get("run"))
	if !ok {
		return
	}
	matrix, err := classify.Classify(rec.Violations, rec.Mapping, rec.Mode)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := fmt.Sprintf("Run %s", rec.ID)
	if err := chart.WriteMatrixHTML(w, matrix, title); err != nil {
		monitoring.Logf("failed to render chart for run %s: %v", rec.ID, err)
	}
}
