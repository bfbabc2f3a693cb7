package workflow

import (
	"strconv"
	"strings"

	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/varpath"
)

// EvaluateConditions implements the branching decision for an EVALUATION
// step: the first condition whose variable resolves and whose operator
// test is truthy wins. Conditions are tried in declared order.
func EvaluateConditions(step Step, wf Workflow) EvaluationOutcome {
	cfg := step.EvaluationConfig
	if cfg == nil {
		return EvaluationOutcome{NextAction: NextContinue, Reason: "No evaluation configuration"}
	}
	if len(cfg.Conditions) == 0 {
		return EvaluationOutcome{NextAction: toNextAction(cfg.DefaultAction)}
	}

	vars := toVarpathVariables(wf.State)

	for _, cond := range cfg.Conditions {
		path, err := varpath.Parse(cond.Variable)
		if err != nil {
			continue
		}
		resolved := varpath.Resolve(vars, path)
		if !resolved.ValidPath {
			continue
		}

		if !applyOperator(cond.Operator, resolved.Value, cond.Value) {
			continue
		}

		if cond.TargetStepIndex != nil {
			target := *cond.TargetStepIndex
			return EvaluationOutcome{NextAction: NextJump, Reason: conditionReason(cond), TargetStepIndex: &target}
		}
		return EvaluationOutcome{NextAction: NextContinue, Reason: conditionReason(cond)}
	}

	return EvaluationOutcome{NextAction: toNextAction(cfg.DefaultAction)}
}

func conditionReason(cond Condition) string {
	if cond.ConditionID != "" {
		return "condition " + cond.ConditionID + " matched"
	}
	return "condition on " + cond.Variable + " matched"
}

func toNextAction(a DefaultAction) NextAction {
	if a == ActionEnd {
		return NextEnd
	}
	return NextContinue
}

func applyOperator(op Operator, left, right schema.Value) bool {
	switch op {
	case OpEquals:
		return valuesEqual(left, right)
	case OpNotEquals:
		return !valuesEqual(left, right)
	case OpGreaterThan:
		l, lok := toFloat(left)
		r, rok := toFloat(right)
		return lok && rok && l > r
	case OpLessThan:
		l, lok := toFloat(left)
		r, rok := toFloat(right)
		return lok && rok && l < r
	case OpContains:
		return stringContains(left, right)
	case OpNotContains:
		return !stringContains(left, right)
	default:
		return false
	}
}

// valuesEqual implements the boolean/number-aware string coercion named
// in the operator table: "true" <-> true, "5" <-> 5, otherwise strict
// type+value equality for scalars. Objects, arrays and files never
// compare equal.
func valuesEqual(left, right schema.Value) bool {
	if left.Kind == right.Kind {
		return rawEqual(left, right)
	}

	if left.Kind == schema.KindBool || right.Kind == schema.KindBool {
		lb, lok := toBool(left)
		rb, rok := toBool(right)
		return lok && rok && lb == rb
	}

	if left.Kind == schema.KindNumber || right.Kind == schema.KindNumber {
		lf, lok := toFloat(left)
		rf, rok := toFloat(right)
		return lok && rok && lf == rf
	}

	return false
}

func rawEqual(left, right schema.Value) bool {
	switch left.Kind {
	case schema.KindString:
		return left.Str == right.Str
	case schema.KindNumber:
		return left.Num == right.Num
	case schema.KindBool:
		return left.Bool == right.Bool
	case schema.KindNull:
		return true
	default:
		return false
	}
}

func toFloat(v schema.Value) (float64, bool) {
	switch v.Kind {
	case schema.KindNumber:
		return v.Num, true
	case schema.KindString:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case schema.KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func toBool(v schema.Value) (bool, bool) {
	switch v.Kind {
	case schema.KindBool:
		return v.Bool, true
	case schema.KindString:
		switch v.Str {
		case "true":
			return true, true
		case "false":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

func stringContains(left, right schema.Value) bool {
	if left.Kind != schema.KindString || right.Kind != schema.KindString {
		return false
	}
	return strings.Contains(left.Str, right.Str)
}
