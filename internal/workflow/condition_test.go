package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/engine/internal/schema"
)

func TestEvaluateConditions_NoConfig(t *testing.T) {
	outcome := EvaluateConditions(Step{}, Workflow{})
	assert.Equal(t, NextContinue, outcome.NextAction)
	assert.Equal(t, "No evaluation configuration", outcome.Reason)
}

func TestEvaluateConditions_NoConditions_DefaultAction(t *testing.T) {
	step := Step{EvaluationConfig: &EvaluationConfig{DefaultAction: ActionEnd}}
	outcome := EvaluateConditions(step, Workflow{})
	assert.Equal(t, NextEnd, outcome.NextAction)
}

func TestEvaluateConditions_FirstTruthyWins(t *testing.T) {
	wf := Workflow{State: []Variable{
		{Name: "status", HasValue: true, Value: schema.String("retry")},
	}}

	target1, target2 := 2, 5
	step := Step{
		EvaluationConfig: &EvaluationConfig{
			DefaultAction: ActionContinue,
			Conditions: []Condition{
				{Variable: "status", Operator: OpEquals, Value: schema.String("done"), TargetStepIndex: &target1},
				{Variable: "status", Operator: OpEquals, Value: schema.String("retry"), TargetStepIndex: &target2},
			},
		},
	}

	outcome := EvaluateConditions(step, wf)
	require.Equal(t, NextJump, outcome.NextAction)
	require.NotNil(t, outcome.TargetStepIndex)
	assert.Equal(t, 5, *outcome.TargetStepIndex)
}

func TestEvaluateConditions_UnresolvedVariableSkipped(t *testing.T) {
	step := Step{
		EvaluationConfig: &EvaluationConfig{
			DefaultAction: ActionEnd,
			Conditions: []Condition{
				{Variable: "missing", Operator: OpEquals, Value: schema.String("x")},
			},
		},
	}
	outcome := EvaluateConditions(step, Workflow{})
	assert.Equal(t, NextEnd, outcome.NextAction)
}

func TestEvaluateConditions_ContinueWithoutTarget(t *testing.T) {
	wf := Workflow{State: []Variable{
		{Name: "status", HasValue: true, Value: schema.String("ok")},
	}}
	step := Step{
		EvaluationConfig: &EvaluationConfig{
			DefaultAction: ActionEnd,
			Conditions: []Condition{
				{Variable: "status", Operator: OpEquals, Value: schema.String("ok")},
			},
		},
	}
	outcome := EvaluateConditions(step, wf)
	assert.Equal(t, NextContinue, outcome.NextAction)
	assert.Nil(t, outcome.TargetStepIndex)
}

func TestApplyOperator_Equals_Coercion(t *testing.T) {
	tests := []struct {
		name  string
		left  schema.Value
		right schema.Value
		want  bool
	}{
		{"string true equals bool true", schema.String("true"), schema.Bool(true), true},
		{"string 5 equals number 5", schema.String("5"), schema.Number(5), true},
		{"strict string equality", schema.String("x"), schema.String("x"), true},
		{"mismatched strings", schema.String("x"), schema.String("y"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyOperator(OpEquals, tt.left, tt.right))
		})
	}
}

func TestApplyOperator_NumericComparisons(t *testing.T) {
	assert.True(t, applyOperator(OpGreaterThan, schema.Number(5), schema.Number(3)))
	assert.False(t, applyOperator(OpGreaterThan, schema.String("nan"), schema.Number(3)))
	assert.True(t, applyOperator(OpLessThan, schema.Number(1), schema.Number(3)))
}

func TestApplyOperator_Contains(t *testing.T) {
	assert.True(t, applyOperator(OpContains, schema.String("hello world"), schema.String("world")))
	assert.False(t, applyOperator(OpContains, schema.Number(5), schema.String("5")))
	assert.True(t, applyOperator(OpNotContains, schema.String("hello"), schema.String("zzz")))
}
