package httpapi

import (
	"github.com/flowforge/engine/internal/job"
	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/workflowdef"
)

// createJobRequest is the body of POST /jobs: a workflow definition (steps
// and declared inputs, shared with the worker's queue consumer via
// workflowdef) plus the actual input values to bind, since this engine
// doesn't persist workflow definitions — the caller supplies them each
// time.
type createJobRequest struct {
	workflowdef.Definition
	Inputs map[string]interface{} `json:"inputs"`
}

func (r createJobRequest) toInputValues() map[string]schema.Value {
	values := make(map[string]schema.Value, len(r.Inputs))
	for name, raw := range r.Inputs {
		values[name] = schema.FromInterface(raw)
	}
	return values
}

// jobView is the JSON representation returned by GetJob and friends.
type jobView struct {
	JobID        string                 `json:"job_id"`
	WorkflowID   string                 `json:"workflow_id"`
	Name         string                 `json:"name,omitempty"`
	Status       job.Status             `json:"status"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Progress     job.ExecutionProgress  `json:"progress"`
	State        map[string]interface{} `json:"state"`
	Steps        []jobStepView          `json:"steps"`
}

type jobStepView struct {
	StepID       string `json:"step_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func toJobView(j job.Job) jobView {
	state := make(map[string]interface{}, len(j.State))
	for _, v := range j.State {
		if v.HasValue {
			state[v.Name] = v.Value.ToInterface()
		}
	}

	steps := make([]jobStepView, len(j.Steps))
	for i, s := range j.Steps {
		steps[i] = jobStepView{
			StepID:       s.StepID,
			Status:       string(s.Status),
			ErrorMessage: s.ErrorMessage,
		}
	}

	return jobView{
		JobID:        j.JobID,
		WorkflowID:   j.WorkflowID,
		Name:         j.Name,
		Status:       j.Status,
		ErrorMessage: j.ErrorMessage,
		Progress:     j.ExecutionProgress,
		State:        state,
		Steps:        steps,
	}
}
