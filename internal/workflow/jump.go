package workflow

import "github.com/flowforge/engine/internal/schema"

// JumpInfo annotates an evaluation step's outcome with what actually
// happened, for display/debugging.
type JumpInfo struct {
	IsJump   bool
	FromStep int
	ToStep   int
	Reason   string
}

// JumpDecision is the result of ManageJumpCount.
type JumpDecision struct {
	JumpCount    int
	CanJump      bool
	UpdatedState []Variable
	Info         JumpInfo
}

const maxJumpsReachedReason = "maximum jumps reached"

// ManageJumpCount reads and updates the jump_count_<shortID> bookkeeping
// variable for an evaluation step, admitting the jump only while count is
// below maximumJumps. Denied jumps route to from+1 instead of to.
func ManageJumpCount(step Step, state []Variable, from, to int, reason string, maximumJumps int) JumpDecision {
	counterName := "jump_count_" + step.ShortID()
	out := cloneState(state)

	count := 0
	idx := findVariable(out, counterName)
	if idx >= 0 && out[idx].HasValue && out[idx].Value.Kind == schema.KindNumber {
		count = int(out[idx].Value.Num)
	}

	canJump := count < maximumJumps
	newCount := count
	if canJump {
		newCount = count + 1
	}

	if idx >= 0 {
		out[idx].Value = schema.Number(float64(newCount))
		out[idx].HasValue = true
	} else {
		out = append(out, Variable{
			Name:     counterName,
			Schema:   schema.Scalar(schema.TypeNumber),
			Value:    schema.Number(float64(newCount)),
			HasValue: true,
			IOType:   IOEvaluation,
		})
	}

	toStep := from + 1
	infoReason := maxJumpsReachedReason
	if canJump {
		toStep = to
		infoReason = reason
	}

	return JumpDecision{
		JumpCount:    newCount,
		CanJump:      canJump,
		UpdatedState: out,
		Info: JumpInfo{
			IsJump:   canJump,
			FromStep: from,
			ToStep:   toStep,
			Reason:   infoReason,
		},
	}
}
