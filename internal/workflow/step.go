package workflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/tool"
)

// DefaultMaximumJumps is the jump budget workflowdef gives an evaluation
// step whose definition omits maximum_jumps. ExecuteStepSimple uses
// EvaluationConfig.MaximumJumps as given (0 allows no jumps) and falls
// back to this value only when EvaluationConfig is nil.
const DefaultMaximumJumps = 3

var tracer = otel.Tracer("flowforge/workflow")

// ExecuteStepSimple is the atomic unit of progress: callers invoke it
// repeatedly to drive a workflow forward. It does not mutate wf; every
// returned StepResult carries its own UpdatedState.
func ExecuteStepSimple(ctx context.Context, registry *tool.Registry, wf Workflow, stepIndex int) StepResult {
	if stepIndex < 0 || stepIndex >= len(wf.Steps) {
		return StepResult{
			Success:       false,
			Error:         "Invalid step index",
			UpdatedState:  cloneState(wf.State),
			NextStepIndex: stepIndex + 1,
		}
	}

	step := wf.Steps[stepIndex]

	ctx, span := tracer.Start(ctx, "workflow.step", trace.WithAttributes(
		attribute.String("step_id", step.StepID),
		attribute.String("step_type", string(step.StepType)),
		attribute.Int("step_index", stepIndex),
	))
	defer span.End()

	clearedState := ClearStepOutputs(step, wf.State)

	var result StepResult
	switch step.StepType {
	case StepEvaluation:
		result = executeEvaluationStep(step, stepIndex, wf, clearedState)
	case StepAction:
		result = executeActionStep(ctx, registry, step, stepIndex, wf, clearedState)
	default:
		result = StepResult{
			Success:       false,
			Error:         fmt.Sprintf("unknown step type %q", step.StepType),
			UpdatedState:  clearedState,
			NextStepIndex: stepIndex + 1,
		}
	}

	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
	}
	return result
}

func executeEvaluationStep(step Step, stepIndex int, wf Workflow, clearedState []Variable) StepResult {
	outcome := EvaluateConditions(step, Workflow{Steps: wf.Steps, State: clearedState})

	outputs := map[string]schema.Value{
		"next_action": schema.String(string(outcome.NextAction)),
		"reason":      schema.String(outcome.Reason),
	}

	var nextIndex int
	state := clearedState

	switch outcome.NextAction {
	case NextJump:
		maximumJumps := DefaultMaximumJumps
		if step.EvaluationConfig != nil {
			maximumJumps = step.EvaluationConfig.MaximumJumps
		}

		decision := ManageJumpCount(step, clearedState, stepIndex, *outcome.TargetStepIndex, outcome.Reason, maximumJumps)

		outputs["max_jumps_reached"] = schema.Bool(!decision.CanJump)
		outputs["_jump_info"] = schema.String(fmt.Sprintf(
			"is_jump=%t from=%d to=%d reason=%s",
			decision.Info.IsJump, decision.Info.FromStep, decision.Info.ToStep, decision.Info.Reason,
		))

		nextIndex = decision.Info.ToStep
		state = GetUpdatedWorkflowStateFromResults(step, outputs, decision.UpdatedState)

	case NextEnd:
		nextIndex = len(wf.Steps)
		state = GetUpdatedWorkflowStateFromResults(step, outputs, clearedState)

	default: // NextContinue
		nextIndex = stepIndex + 1
		state = GetUpdatedWorkflowStateFromResults(step, outputs, clearedState)
	}

	return StepResult{
		Success:       true,
		Outputs:       outputs,
		UpdatedState:  state,
		NextStepIndex: nextIndex,
	}
}

func executeActionStep(ctx context.Context, registry *tool.Registry, step Step, stepIndex int, wf Workflow, clearedState []Variable) StepResult {
	if step.ToolID == "" || step.Tool == nil {
		return StepResult{
			Success:       false,
			Error:         "No tool configured for this step",
			UpdatedState:  clearedState,
			NextStepIndex: stepIndex + 1,
		}
	}

	resolvedParams := GetResolvedParameters(step, Workflow{Steps: wf.Steps, State: clearedState})
	if step.Tool.ToolType == "llm" {
		resolvedParams = InjectPromptTemplateID(step, resolvedParams)
	}

	outputs, err := registry.Execute(ctx, step.ToolID, *step.Tool, resolvedParams)
	if err != nil {
		return StepResult{
			Success:       false,
			Error:         err.Error(),
			Inputs:        resolvedParams,
			UpdatedState:  clearedState,
			NextStepIndex: stepIndex + 1,
		}
	}

	updatedState := GetUpdatedWorkflowStateFromResults(step, outputs, clearedState)

	return StepResult{
		Success:       true,
		Inputs:        resolvedParams,
		Outputs:       outputs,
		UpdatedState:  updatedState,
		NextStepIndex: stepIndex + 1,
	}
}
