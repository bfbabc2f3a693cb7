package job

import (
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/workflow"
)

// ResetMode selects how much of a job's state Reset clears.
type ResetMode string

const (
	// ResetSoft clears all output values while preserving inputs and
	// engine bookkeeping, so jump counters survive a rerun.
	ResetSoft ResetMode = "soft"

	// ResetHard performs a soft reset and additionally removes every
	// evaluation-type variable (eval_* and jump_count_* bookkeeping).
	// This is the default for user-initiated restarts.
	ResetHard ResetMode = "hard"
)

// Reset returns a new state per mode. It never mutates state.
func Reset(state []workflow.Variable, mode ResetMode) []workflow.Variable {
	out := make([]workflow.Variable, 0, len(state))

	for _, v := range state {
		if mode == ResetHard && (v.IOType == workflow.IOEvaluation || isEngineManaged(v.Name)) {
			continue
		}

		cp := v
		if v.IOType == workflow.IOOutput {
			cp.HasValue = false
			cp.Value = schema.Value{}
		}
		out = append(out, cp)
	}

	return out
}
