package job

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowforge/engine/internal/engineerr"
	"github.com/flowforge/engine/internal/events"
	"github.com/flowforge/engine/internal/tool"
	"github.com/flowforge/engine/internal/workflow"
)

const defaultSafetyCap = 100

var tracer = otel.Tracer("flowforge/job")

// Runner drives RunJob with the dependencies it needs: a tool dispatcher
// and an optional structured logger. A nil Logger falls back to
// slog.Default(), matching the nil-safe convention used across the
// engine's constructors.
type Runner struct {
	Registry  *tool.Registry
	Logger    *slog.Logger
	SafetyCap int
	Now       func() time.Time
	Observer  events.Observer
}

// RunnerOption configures a Runner via functional options.
type RunnerOption func(*Runner)

// WithLogger overrides the Runner's logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.Logger = l }
}

// WithSafetyCap overrides the default 100-iteration run-loop cap.
func WithSafetyCap(n int) RunnerOption {
	return func(r *Runner) { r.SafetyCap = n }
}

// WithClock overrides the time source RunJob stamps records with,
// letting tests supply a deterministic clock.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.Now = now }
}

// WithObserver attaches an events.Observer notified of job/step lifecycle
// transitions as RunJob executes.
func WithObserver(o events.Observer) RunnerOption {
	return func(r *Runner) { r.Observer = o }
}

// NewRunner builds a Runner around registry.
func NewRunner(registry *tool.Registry, opts ...RunnerOption) *Runner {
	r := &Runner{Registry: registry, SafetyCap: defaultSafetyCap}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.Observer == nil {
		r.Observer = events.NoopObserver{}
	}
	return r
}

// RunJob drives j's steps to completion (or failure), respecting ctx
// cancellation. The loop checks ctx between step executions; ctx is also
// passed to each tool executor, which may stop early when it is
// cancelled. It returns the updated Job; j itself is not mutated.
func (r *Runner) RunJob(ctx context.Context, j Job) Job {
	ctx, span := tracer.Start(ctx, "job.run", trace.WithAttributes(
		attribute.String("job_id", j.JobID),
		attribute.String("workflow_id", j.WorkflowID),
	))
	defer span.End()

	out := cloneJob(j)
	out.Status = StatusRunning
	started := r.Now()
	out.StartedAt = &started
	r.Logger.Info("job started", "job_id", out.JobID, "workflow_id", out.WorkflowID, "step_count", len(out.Steps))
	r.Observer.OnJobStatusChange(events.New(out.JobID, events.TypeJobStatusChange, events.JobStatusChangeData{Status: string(StatusRunning)}))
	for i := range out.Steps {
		out.Steps[i].Executions = nil
		out.Steps[i].LatestExecution = nil
	}
	out.ExecutionProgress = ExecutionProgress{CurrentStep: 0, TotalSteps: len(out.Steps)}

	wf := workflow.Workflow{Steps: stepsOf(out.Steps), State: out.State}

	currentIndex := 0
	stepCount := 0

	for currentIndex < len(wf.Steps) && stepCount < r.SafetyCap {
		if ctx.Err() != nil {
			out.Status = StatusFailed
			out.ErrorMessage = "Job cancelled by user"
			completed := r.Now()
			out.CompletedAt = &completed
			span.SetStatus(codes.Error, out.ErrorMessage)
			r.Observer.OnJobStatusChange(events.New(out.JobID, events.TypeJobStatusChange, events.JobStatusChangeData{Status: string(StatusFailed)}))
			return out
		}

		stepID := wf.Steps[currentIndex].StepID
		stepType := string(wf.Steps[currentIndex].StepType)
		r.Observer.OnStepStart(events.New(out.JobID, events.TypeStepStart, events.StepStartData{StepID: stepID, StepType: stepType}))

		stepStart := r.Now()
		result := workflow.ExecuteStepSimple(ctx, r.Registry, wf, currentIndex)
		stepEnd := r.Now()

		r.Observer.OnStepEnd(events.New(out.JobID, events.TypeStepEnd, events.StepEndData{
			StepID:     stepID,
			Success:    result.Success,
			Error:      result.Error,
			DurationMS: stepEnd.Sub(stepStart).Milliseconds(),
		}))

		exec := StepExecutionResult{
			StepID:      stepID,
			Success:     result.Success,
			Outputs:     result.Outputs,
			Error:       result.Error,
			Inputs:      result.Inputs,
			StartedAt:   stepStart,
			CompletedAt: stepEnd,
		}

		jobStepIdx := findJobStep(out.Steps, stepID)
		if jobStepIdx >= 0 {
			out.Steps[jobStepIdx].Executions = append(out.Steps[jobStepIdx].Executions, exec)
			out.Steps[jobStepIdx].LatestExecution = &out.Steps[jobStepIdx].Executions[len(out.Steps[jobStepIdx].Executions)-1]
			if result.Success {
				out.Steps[jobStepIdx].Status = StepCompleted
			} else {
				out.Steps[jobStepIdx].Status = StepFailed
				out.Steps[jobStepIdx].ErrorMessage = result.Error
			}
			ca := stepEnd
			out.Steps[jobStepIdx].CompletedAt = &ca
		}

		wf.State = result.UpdatedState
		out.State = result.UpdatedState
		out.ExecutionProgress.CurrentStep = stepCount + 1
		for outputName := range result.Outputs {
			r.Observer.OnStateChange(events.New(out.JobID, events.TypeStateChange, events.StateChangeData{VariableName: outputName}))
		}

		if !result.Success {
			out.Status = StatusFailed
			out.ErrorMessage = result.Error
			completed := r.Now()
			out.CompletedAt = &completed
			r.Logger.Error("job step failed", "job_id", out.JobID, "step_id", stepID, "error", result.Error)
			span.SetStatus(codes.Error, result.Error)
			r.Observer.OnJobStatusChange(events.New(out.JobID, events.TypeJobStatusChange, events.JobStatusChangeData{Status: string(StatusFailed)}))
			return out
		}

		currentIndex = result.NextStepIndex
		stepCount++
	}

	if currentIndex < len(wf.Steps) {
		failErr := engineerr.New(engineerr.InfiniteLoopSuspected, "run loop exceeded safety cap")
		out.Status = StatusFailed
		out.ErrorMessage = failErr.Error()
		completed := r.Now()
		out.CompletedAt = &completed
		r.Logger.Warn("job hit safety cap", "job_id", out.JobID, "cap", r.SafetyCap)
		span.SetStatus(codes.Error, out.ErrorMessage)
		r.Observer.OnJobStatusChange(events.New(out.JobID, events.TypeJobStatusChange, events.JobStatusChangeData{Status: string(StatusFailed)}))
		return out
	}

	out.Status = StatusCompleted
	completed := r.Now()
	out.CompletedAt = &completed
	r.Logger.Info("job completed", "job_id", out.JobID, "steps_executed", stepCount)
	r.Observer.OnJobStatusChange(events.New(out.JobID, events.TypeJobStatusChange, events.JobStatusChangeData{Status: string(StatusCompleted)}))
	return out
}

func stepsOf(jobSteps []JobStep) []workflow.Step {
	out := make([]workflow.Step, len(jobSteps))
	for i, js := range jobSteps {
		out[i] = js.Step
	}
	return out
}

func findJobStep(steps []JobStep, stepID string) int {
	for i, s := range steps {
		if s.StepID == stepID {
			return i
		}
	}
	return -1
}

func cloneJob(j Job) Job {
	out := j
	out.Steps = make([]JobStep, len(j.Steps))
	copy(out.Steps, j.Steps)
	out.State = make([]workflow.Variable, len(j.State))
	for i, v := range j.State {
		cp := v
		cp.Value = v.Value.Clone()
		out.State[i] = cp
	}
	return out
}
