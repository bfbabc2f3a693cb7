// Package workflowdef is the JSON-decodable wire shape of a workflow
// definition, shared by every host surface that accepts one from the
// outside (the HTTP API's create-job body, the worker's queued job
// definitions): the engine's own workflow.Step/EvaluationConfig types
// carry no json tags since they're a library's internal value types, not
// a wire format.
package workflowdef

import (
	"fmt"

	"github.com/flowforge/engine/internal/job"
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/tool"
	"github.com/flowforge/engine/internal/workflow"
)

// Step is the wire shape of a workflow.Step.
type Step struct {
	StepID            string                   `json:"step_id"`
	StepType          string                   `json:"step_type"`
	Label             string                   `json:"label,omitempty"`
	ToolID            string                   `json:"tool_id,omitempty"`
	ToolType          string                   `json:"tool_type,omitempty"`
	ToolOutputs       map[string]schema.Schema `json:"tool_outputs,omitempty"`
	ParameterMappings map[string]string        `json:"parameter_mappings,omitempty"`
	OutputMappings    map[string]string        `json:"output_mappings,omitempty"`
	EvaluationConfig  *EvaluationConfig        `json:"evaluation_config,omitempty"`
}

// Condition is the wire shape of a workflow.Condition.
type Condition struct {
	Variable        string      `json:"variable"`
	Operator        string      `json:"operator"`
	Value           interface{} `json:"value"`
	TargetStepIndex *int        `json:"target_step_index,omitempty"`
}

// EvaluationConfig is the wire shape of a workflow.EvaluationConfig.
// MaximumJumps is a pointer so an omitted field can be told apart from an
// explicit 0: omitted defaults to workflow.DefaultMaximumJumps, matching
// the documented default, while an explicit 0 really does forbid jumping.
type EvaluationConfig struct {
	Conditions    []Condition `json:"conditions"`
	DefaultAction string      `json:"default_action"`
	MaximumJumps  *int        `json:"maximum_jumps,omitempty"`
}

// InputSpec is the wire shape of a job.InputVariableSpec.
type InputSpec struct {
	Name     string        `json:"name"`
	Schema   schema.Schema `json:"schema"`
	Required bool          `json:"required"`
}

// Definition is a full workflow: its declared inputs and ordered steps.
type Definition struct {
	WorkflowID string      `json:"workflow_id"`
	Name       string      `json:"name"`
	InputSpecs []InputSpec `json:"input_specs"`
	Steps      []Step      `json:"steps"`
}

// ToSteps converts the wire steps to workflow.Step values.
func (d Definition) ToSteps() ([]workflow.Step, error) {
	steps := make([]workflow.Step, len(d.Steps))
	for i, s := range d.Steps {
		converted, err := s.toStep()
		if err != nil {
			return nil, err
		}
		steps[i] = converted
	}
	return steps, nil
}

// ToInputSpecs converts the wire input specs to job.InputVariableSpec values.
func (d Definition) ToInputSpecs() []job.InputVariableSpec {
	specs := make([]job.InputVariableSpec, len(d.InputSpecs))
	for i, s := range d.InputSpecs {
		specs[i] = job.InputVariableSpec{Name: s.Name, Schema: s.Schema, Required: s.Required}
	}
	return specs
}

func (s Step) toStep() (workflow.Step, error) {
	stepType := workflow.StepType(s.StepType)
	if stepType != workflow.StepAction && stepType != workflow.StepEvaluation {
		return workflow.Step{}, fmt.Errorf("step %q: invalid step_type %q", s.StepID, s.StepType)
	}

	step := workflow.Step{
		StepID:            s.StepID,
		StepType:          stepType,
		Label:             s.Label,
		ToolID:            s.ToolID,
		ParameterMappings: s.ParameterMappings,
		OutputMappings:    s.OutputMappings,
	}

	if s.ToolID != "" {
		step.Tool = &tool.Signature{ToolType: s.ToolType, Outputs: s.ToolOutputs}
	}

	if s.EvaluationConfig != nil {
		cfg, err := s.EvaluationConfig.toConfig()
		if err != nil {
			return workflow.Step{}, fmt.Errorf("step %q: %w", s.StepID, err)
		}
		step.EvaluationConfig = &cfg
	}

	return step, nil
}

func (c EvaluationConfig) toConfig() (workflow.EvaluationConfig, error) {
	conditions := make([]workflow.Condition, len(c.Conditions))
	for i, cond := range c.Conditions {
		conditions[i] = workflow.Condition{
			Variable:        cond.Variable,
			Operator:        workflow.Operator(cond.Operator),
			Value:           schema.FromInterface(cond.Value),
			TargetStepIndex: cond.TargetStepIndex,
		}
	}

	action := workflow.DefaultAction(c.DefaultAction)
	if action == "" {
		action = workflow.ActionEnd
	}

	maximumJumps := workflow.DefaultMaximumJumps
	if c.MaximumJumps != nil {
		maximumJumps = *c.MaximumJumps
	}

	return workflow.EvaluationConfig{
		Conditions:    conditions,
		DefaultAction: action,
		MaximumJumps:  maximumJumps,
	}, nil
}
