// Package job implements the job engine: the higher-level driver that
// owns a Job's lifecycle (pending -> running -> completed/failed),
// validates inputs against declared schemas, drives the workflow engine's
// step loop with a safety cap, and records per-step execution history.
package job

import (
	"time"

	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/workflow"
)

// Status is a Job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepStatus is a JobStep's own lifecycle state, distinct from the Job's.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepExecutionResult is one recorded invocation of a step, capturing the
// resolved inputs as observed at the moment of execution even when the
// step ultimately failed.
type StepExecutionResult struct {
	StepID      string
	Success     bool
	Outputs     map[string]schema.Value
	Error       string
	Inputs      map[string]schema.Value
	StartedAt   time.Time
	CompletedAt time.Time
}

// JobStep extends a workflow.Step with per-job execution bookkeeping.
type JobStep struct {
	workflow.Step

	Status          StepStatus
	StartedAt       *time.Time
	CompletedAt     *time.Time
	ErrorMessage    string
	LatestExecution *StepExecutionResult
	Executions      []StepExecutionResult
}

// ExecutionProgress reports how far a running job has advanced.
type ExecutionProgress struct {
	CurrentStep int
	TotalSteps  int
}

// Job is a Workflow snapshot plus its own runtime state: steps, variable
// store, input variables, and lifecycle status.
type Job struct {
	JobID             string
	WorkflowID        string
	Name              string
	Description       string
	Status            Status
	Steps             []JobStep
	State             []workflow.Variable
	InputVariables    []workflow.Variable
	ExecutionProgress ExecutionProgress
	ErrorMessage      string
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
}

// InputVariableSpec is a declared input slot on the owning Workflow,
// consulted by InitializeJobWithInputs to validate caller-supplied input
// values before a run starts.
type InputVariableSpec struct {
	Name     string
	Schema   schema.Schema
	Required bool
}
