// Package httpapi is a thin chi-based HTTP surface over the job engine,
// a host convenience layer rather than part of the engine's own
// invariants: it translates JSON requests into job/workflow calls and
// keeps jobs in an in-memory store between requests, since job
// persistence is out of scope for the library itself.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/flowforge/engine/internal/job"
	"github.com/flowforge/engine/internal/queue"
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/telemetry"
	"github.com/flowforge/engine/internal/workflow"
)

// Server holds the dependencies the job handlers need: a Runner to drive
// in-process execution (in a goroutine started by POST /jobs/{id}/run)
// and an in-memory store of created jobs. queue is
// optional: when set, POST /jobs/{id}/enqueue hands a job to a separate
// worker process instead of running it in this one.
type Server struct {
	runner *job.Runner
	store  *store
	logger *slog.Logger
	queue  *queue.Queue
}

// NewServer builds a Server. logger may be nil (falls back to
// slog.Default()).
func NewServer(runner *job.Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: runner, store: newStore(), logger: logger}
}

// WithQueue attaches a Queue the server can hand jobs off to for
// asynchronous worker execution, enabling POST /jobs/{id}/enqueue.
func (s *Server) WithQueue(q *queue.Queue) *Server {
	s.queue = q
	return s
}

// Router builds the chi router exposing the job endpoints: request ID,
// recoverer, timeout, CORS, and optional tracing middleware around the
// job resource routes.
func (s *Server) Router(telemetryProvider *telemetry.Provider) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if telemetryProvider != nil && telemetryProvider.IsEnabled() {
		r.Use(telemetry.HTTPMiddleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.handleCreateJob)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetJob)
			r.Post("/run", s.handleRunJob)
			r.Post("/enqueue", s.handleEnqueueJob)
			r.Post("/cancel", s.handleCancelJob)
			r.Post("/reset", s.handleResetJob)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	steps, err := req.ToSteps()
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	state, err := job.InitializeJobWithInputs(req.ToInputSpecs(), job.CheckAndFixMissingVariables(steps, nil, nil), req.toInputValues())
	if err != nil {
		handleEngineError(w, s.logger, err)
		return
	}

	jobSteps := make([]job.JobStep, len(steps))
	for i, st := range steps {
		jobSteps[i] = job.JobStep{Step: st, Status: job.StepPending}
	}

	j := job.Job{
		JobID:      uuid.NewString(),
		WorkflowID: req.WorkflowID,
		Name:       req.Name,
		Status:     job.StatusPending,
		Steps:      jobSteps,
		State:      state,
		CreatedAt:  time.Now(),
	}

	s.store.put(j)
	s.logger.Info("job created", "job_id", j.JobID, "workflow_id", j.WorkflowID, "step_count", len(jobSteps))
	writeData(w, http.StatusCreated, toJobView(j))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := s.store.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	writeData(w, http.StatusOK, toJobView(j))
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := s.store.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	if j.Status == job.StatusRunning {
		writeError(w, http.StatusConflict, "ALREADY_RUNNING", "job is already running")
		return
	}

	// Jobs run in the background against their own context, not the
	// request's: the dispatcher may call out to slow tools (LLMs, HTTP),
	// so the HTTP request returns immediately and the caller polls GetJob
	// for status, and the run must survive past chi's Timeout middleware
	// cancelling the request context. CancelJob reaches the run loop by
	// calling cancel, observed as ctx.Err() between steps.
	ctx, cancel := context.WithCancel(context.Background())
	s.store.setCancelFunc(id, cancel)

	go func() {
		defer cancel()
		out := s.runner.RunJob(ctx, j)
		s.store.update(out)
	}()

	running := j
	running.Status = job.StatusRunning
	writeData(w, http.StatusAccepted, toJobView(running))
}

func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusNotImplemented, "QUEUE_NOT_CONFIGURED", "this server has no worker queue configured")
		return
	}

	id := chi.URLParam(r, "id")
	j, ok := s.store.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	if j.Status == job.StatusRunning {
		writeError(w, http.StatusConflict, "ALREADY_RUNNING", "job is already running")
		return
	}

	inputs := make(map[string]schema.Value)
	for _, v := range j.State {
		if v.IOType == workflow.IOInput && v.HasValue {
			inputs[v.Name] = v.Value
		}
	}

	if _, err := s.queue.Enqueue(r.Context(), queue.Submission{
		JobID:      j.JobID,
		WorkflowID: j.WorkflowID,
		Inputs:     inputs,
	}); err != nil {
		s.logger.Error("failed to enqueue job", "job_id", j.JobID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to enqueue job")
		return
	}

	writeData(w, http.StatusAccepted, map[string]string{"status": "enqueued"})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.get(id); !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	if !s.store.cancel(id) {
		writeError(w, http.StatusConflict, "NOT_RUNNING", "job is not running")
		return
	}
	writeData(w, http.StatusAccepted, map[string]string{"status": "cancel_requested"})
}

func (s *Server) handleResetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := s.store.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	if j.Status == job.StatusRunning {
		writeError(w, http.StatusConflict, "ALREADY_RUNNING", "cannot reset a running job")
		return
	}

	mode := job.ResetHard
	if r.URL.Query().Get("mode") == string(job.ResetSoft) {
		mode = job.ResetSoft
	}

	j.State = job.Reset(j.State, mode)
	j.Status = job.StatusPending
	j.ErrorMessage = ""
	j.StartedAt = nil
	j.CompletedAt = nil
	for i := range j.Steps {
		j.Steps[i].Status = job.StepPending
		j.Steps[i].Executions = nil
		j.Steps[i].LatestExecution = nil
		j.Steps[i].ErrorMessage = ""
		j.Steps[i].StartedAt = nil
		j.Steps[i].CompletedAt = nil
	}

	s.store.update(j)
	writeData(w, http.StatusOK, toJobView(j))
}
