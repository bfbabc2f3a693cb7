package job

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/engine/internal/events"
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/tool"
	"github.com/flowforge/engine/internal/workflow"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newRunnerRegistry() *tool.Registry {
	return tool.NewRegistry(nil)
}

func TestRunJob_SuccessPath(t *testing.T) {
	registry := newRunnerRegistry()
	registry.Register("echo", tool.ExecutorFunc(func(_ context.Context, params tool.Parameters) (map[string]schema.Value, error) {
		return map[string]schema.Value{"out": params.Regular["in"]}, nil
	}))

	j := Job{
		JobID:  "job-1",
		Status: StatusPending,
		State: []workflow.Variable{
			{Name: "greeting", HasValue: true, Value: schema.String("hi")},
			{Name: "result", HasValue: false},
		},
		Steps: []JobStep{
			{
				Status: StepPending,
				Step: workflow.Step{
					StepID:   "step-1",
					StepType: workflow.StepAction,
					ToolID:   "echo",
					Tool: &tool.Signature{
						ToolType: "simple",
						Outputs:  map[string]schema.Schema{"out": schema.Scalar(schema.TypeString)},
					},
					ParameterMappings: map[string]string{"in": "greeting"},
					OutputMappings:    map[string]string{"out": "result"},
				},
			},
		},
	}

	runner := NewRunner(registry, WithClock(fixedClock(time.Unix(1000, 0))))
	out := runner.RunJob(context.Background(), j)

	require.Equal(t, StatusCompleted, out.Status)
	require.NotNil(t, out.StartedAt)
	require.NotNil(t, out.CompletedAt)
	assert.Equal(t, 1, out.ExecutionProgress.CurrentStep)
	assert.Equal(t, 1, out.ExecutionProgress.TotalSteps)

	require.Len(t, out.Steps[0].Executions, 1)
	assert.True(t, out.Steps[0].Executions[0].Success)
	assert.Equal(t, StepCompleted, out.Steps[0].Status)
	assert.Equal(t, out.Steps[0].LatestExecution, &out.Steps[0].Executions[0])

	// original job untouched
	assert.Equal(t, StatusPending, j.Status)
	assert.Nil(t, j.StartedAt)
}

func TestRunJob_ToolFailure(t *testing.T) {
	registry := newRunnerRegistry()
	registry.Register("broken", tool.ExecutorFunc(func(_ context.Context, _ tool.Parameters) (map[string]schema.Value, error) {
		return nil, fmt.Errorf("boom")
	}))

	j := Job{
		JobID: "job-2",
		Steps: []JobStep{
			{Step: workflow.Step{StepID: "step-1", StepType: workflow.StepAction, ToolID: "broken", Tool: &tool.Signature{}}},
		},
	}

	runner := NewRunner(registry)
	out := runner.RunJob(context.Background(), j)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.ErrorMessage, "boom")
	assert.Equal(t, StepFailed, out.Steps[0].Status)
	require.Len(t, out.Steps[0].Executions, 1)
	assert.False(t, out.Steps[0].Executions[0].Success)
}

func TestRunJob_SafetyCapTripsInfiniteLoop(t *testing.T) {
	registry := newRunnerRegistry()

	target := 0
	j := Job{
		JobID: "job-3",
		Steps: []JobStep{
			{
				Step: workflow.Step{
					StepID:   "loopstep",
					StepType: workflow.StepEvaluation,
					EvaluationConfig: &workflow.EvaluationConfig{
						DefaultAction: workflow.ActionEnd,
						MaximumJumps:  1000,
						Conditions: []workflow.Condition{
							{Variable: "always", Operator: workflow.OpEquals, Value: schema.Bool(true), TargetStepIndex: &target},
						},
					},
				},
			},
		},
		State: []workflow.Variable{{Name: "always", HasValue: true, Value: schema.Bool(true)}},
	}

	runner := NewRunner(registry, WithSafetyCap(5))
	out := runner.RunJob(context.Background(), j)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.ErrorMessage, "infinite_loop_suspected")
}

func TestRunJob_Cancellation(t *testing.T) {
	registry := newRunnerRegistry()
	registry.Register("noop", tool.ExecutorFunc(func(_ context.Context, _ tool.Parameters) (map[string]schema.Value, error) {
		return map[string]schema.Value{}, nil
	}))

	j := Job{
		JobID: "job-4",
		Steps: []JobStep{
			{Step: workflow.Step{StepID: "s1", StepType: workflow.StepAction, ToolID: "noop", Tool: &tool.Signature{}}},
			{Step: workflow.Step{StepID: "s2", StepType: workflow.StepAction, ToolID: "noop", Tool: &tool.Signature{}}},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(registry)
	out := runner.RunJob(ctx, j)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, "Job cancelled by user", out.ErrorMessage)
	assert.Empty(t, out.Steps[0].Executions)
}

func TestRunJob_NotifiesObserver(t *testing.T) {
	registry := newRunnerRegistry()
	registry.Register("noop", tool.ExecutorFunc(func(_ context.Context, _ tool.Parameters) (map[string]schema.Value, error) {
		return map[string]schema.Value{"out": schema.String("x")}, nil
	}))

	j := Job{
		JobID: "job-5",
		Steps: []JobStep{
			{Step: workflow.Step{
				StepID: "s1", StepType: workflow.StepAction, ToolID: "noop",
				Tool:           &tool.Signature{Outputs: map[string]schema.Schema{"out": schema.Scalar(schema.TypeString)}},
				OutputMappings: map[string]string{"out": "result"},
			}},
		},
		State: []workflow.Variable{{Name: "result", HasValue: false}},
	}

	ch := make(chan events.Event, 16)
	runner := NewRunner(registry, WithObserver(events.NewChannelObserver(ch)))
	out := runner.RunJob(context.Background(), j)

	require.Equal(t, StatusCompleted, out.Status)
	close(ch)

	var types []events.Type
	for e := range ch {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, events.TypeJobStatusChange)
	assert.Contains(t, types, events.TypeStepStart)
	assert.Contains(t, types, events.TypeStepEnd)
}

func TestRunJob_UncancelledContextRunsToCompletion(t *testing.T) {
	registry := newRunnerRegistry()
	registry.Register("noop", tool.ExecutorFunc(func(_ context.Context, _ tool.Parameters) (map[string]schema.Value, error) {
		return map[string]schema.Value{}, nil
	}))

	j := Job{
		Steps: []JobStep{
			{Step: workflow.Step{StepID: "s1", StepType: workflow.StepAction, ToolID: "noop", Tool: &tool.Signature{}}},
		},
	}

	runner := NewRunner(registry)
	out := runner.RunJob(context.Background(), j)
	assert.Equal(t, StatusCompleted, out.Status)
}

func stateValue(t *testing.T, state []workflow.Variable, name string) schema.Value {
	t.Helper()
	for _, v := range state {
		if v.Name == name {
			require.True(t, v.HasValue, "variable %q has no value", name)
			return v.Value
		}
	}
	t.Fatalf("no variable named %q in state", name)
	return schema.Value{}
}

func TestRunJob_EmptyWorkflowCompletesImmediately(t *testing.T) {
	runner := NewRunner(newRunnerRegistry())
	out := runner.RunJob(context.Background(), Job{JobID: "job-empty"})

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 0, out.ExecutionProgress.TotalSteps)
	assert.Empty(t, GetFinalOutputVariables(out))
}

func TestRunJob_ConditionalJumpToEnd(t *testing.T) {
	registry := newRunnerRegistry()
	registry.Register("echo", tool.ExecutorFunc(func(_ context.Context, params tool.Parameters) (map[string]schema.Value, error) {
		return map[string]schema.Value{"out": params.Regular["in"]}, nil
	}))

	echoSig := &tool.Signature{
		ToolType: "utility",
		Outputs:  map[string]schema.Schema{"out": schema.Scalar(schema.TypeString)},
	}
	endIndex := 3
	j := Job{
		JobID: "job-jump",
		State: []workflow.Variable{
			{Name: "n", IOType: workflow.IOInput, HasValue: true, Value: schema.String("stop")},
			{Name: "y", IOType: workflow.IOOutput},
			{Name: "z", IOType: workflow.IOOutput},
		},
		Steps: []JobStep{
			{Step: workflow.Step{
				StepID: "step-a", StepType: workflow.StepAction, ToolID: "echo", Tool: echoSig,
				ParameterMappings: map[string]string{"in": "n"},
				OutputMappings:    map[string]string{"out": "y"},
			}},
			{Step: workflow.Step{
				StepID: "step-b", StepType: workflow.StepEvaluation,
				EvaluationConfig: &workflow.EvaluationConfig{
					DefaultAction: workflow.ActionContinue,
					MaximumJumps:  2,
					Conditions: []workflow.Condition{
						{ConditionID: "c1", Variable: "y", Operator: workflow.OpEquals, Value: schema.String("stop"), TargetStepIndex: &endIndex},
					},
				},
			}},
			{Step: workflow.Step{
				StepID: "step-c", StepType: workflow.StepAction, ToolID: "echo", Tool: echoSig,
				ParameterMappings: map[string]string{"in": "n"},
				OutputMappings:    map[string]string{"out": "z"},
			}},
		},
	}

	runner := NewRunner(registry)
	out := runner.RunJob(context.Background(), j)

	require.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, schema.String("stop"), stateValue(t, out.State, "y"))
	assert.Equal(t, schema.Number(1), stateValue(t, out.State, "jump_count_step-b"))
	// step C was jumped over
	assert.Empty(t, out.Steps[2].Executions)

	// with a non-matching input the job walks A -> B -> C and never jumps
	j.State[0].Value = schema.String("go")
	out = runner.RunJob(context.Background(), j)
	require.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, schema.String("go"), stateValue(t, out.State, "y"))
	assert.Equal(t, schema.String("go"), stateValue(t, out.State, "z"))
	require.Len(t, out.Steps[2].Executions, 1)
}

func TestRunJob_StructuredOutputPathWithSelfHealing(t *testing.T) {
	registry := newRunnerRegistry()
	registry.Register("analyze", tool.ExecutorFunc(func(_ context.Context, _ tool.Parameters) (map[string]schema.Value, error) {
		return map[string]schema.Value{
			"analysis": schema.ObjectValue(map[string]schema.Value{
				"score": schema.Number(7.2),
				"tag":   schema.String("ok"),
			}),
		}, nil
	}))

	steps := []workflow.Step{{
		StepID: "step-1", StepType: workflow.StepAction, ToolID: "analyze",
		Tool: &tool.Signature{
			ToolType: "utility",
			Outputs: map[string]schema.Schema{
				"analysis": schema.Object(map[string]schema.Schema{
					"score": schema.Scalar(schema.TypeNumber),
					"tag":   schema.Scalar(schema.TypeString),
				}),
			},
		},
		OutputMappings: map[string]string{"analysis.score": "last_score"},
	}}

	// last_score is absent from state until the heal pass creates it.
	state := CheckAndFixMissingVariables(steps, nil, nil)
	j := Job{
		JobID: "job-heal",
		State: state,
		Steps: []JobStep{{Step: steps[0]}},
	}

	runner := NewRunner(registry)
	out := runner.RunJob(context.Background(), j)

	require.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, schema.Number(7.2), stateValue(t, out.State, "last_score"))
}
