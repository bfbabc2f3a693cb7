// Package workflow implements the stateless step semantics that run
// against a Workflow value: parameter binding, output writing, condition
// evaluation, jump-count bookkeeping, and single-step execution. Every
// operation here is pure — it returns a new Workflow/state rather than
// mutating its argument — so the job engine can drive it from a
// sequential run loop without fear of aliasing.
package workflow

import (
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/tool"
)

// IOType discriminates how a Variable was produced.
type IOType string

const (
	IOInput      IOType = "input"
	IOOutput     IOType = "output"
	IOEvaluation IOType = "evaluation"
)

// Variable is one named slot in a workflow's state.
type Variable struct {
	Name        string
	VariableID  string
	Schema      schema.Schema
	Value       schema.Value
	HasValue    bool
	IOType      IOType
	Description string
}

// StepType discriminates the two kinds of step.
type StepType string

const (
	StepAction     StepType = "ACTION"
	StepEvaluation StepType = "EVALUATION"
)

// Condition is one branch test inside an EvaluationConfig.
type Condition struct {
	ConditionID     string
	Variable        string // VariablePath string, e.g. "result.status"
	Operator        Operator
	Value           schema.Value
	TargetStepIndex *int
}

// Operator is the closed set of condition comparisons.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
)

// DefaultAction is what an evaluation step does when no condition fires.
type DefaultAction string

const (
	ActionContinue DefaultAction = "continue"
	ActionEnd      DefaultAction = "end"
)

// EvaluationConfig configures an EVALUATION step's branching.
type EvaluationConfig struct {
	Conditions    []Condition
	DefaultAction DefaultAction
	MaximumJumps  int
}

// Step is one entry in a Workflow's ordered step list.
type Step struct {
	StepID            string
	SequenceNumber    int
	StepType          StepType
	Label             string
	Description       string
	Tool              *tool.Signature
	ToolID            string
	PromptTemplateID  string
	ParameterMappings map[string]string // tool parameter name -> VariablePath string
	OutputMappings    map[string]string // tool output name (possibly dotted) -> workflow variable name
	EvaluationConfig  *EvaluationConfig
}

// ShortID returns the first 8 characters of StepID, used to name the
// engine-managed eval_<id> and jump_count_<id> bookkeeping variables.
func (s Step) ShortID() string {
	if len(s.StepID) <= 8 {
		return s.StepID
	}
	return s.StepID[:8]
}

// Workflow is the value the engine's pure operations act on.
type Workflow struct {
	WorkflowID  string
	Name        string
	Description string
	Status      string
	Steps       []Step
	State       []Variable
}

// NextAction is the outcome of evaluating a step's conditions.
type NextAction string

const (
	NextContinue NextAction = "continue"
	NextJump     NextAction = "jump"
	NextEnd      NextAction = "end"
)

// EvaluationOutcome is the result of EvaluateConditions.
type EvaluationOutcome struct {
	NextAction      NextAction
	Reason          string
	TargetStepIndex *int
}

// StepResult is what ExecuteStepSimple returns for one invocation.
type StepResult struct {
	Success       bool
	Error         string
	Inputs        map[string]schema.Value
	Outputs       map[string]schema.Value
	UpdatedState  []Variable
	NextStepIndex int
}
