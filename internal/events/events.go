// Package events defines the optional observer hooks a host can attach
// to a running job: lifecycle notifications it can use to stream
// progress to a UI or persist execution history, without the job/
// workflow engine depending on any particular transport.
package events

import (
	"encoding/json"
	"time"
)

// Type identifies the kind of lifecycle event.
type Type string

const (
	TypeJobStatusChange Type = "job:status_change"
	TypeStepStart       Type = "step:start"
	TypeStepEnd         Type = "step:end"
	TypeStateChange     Type = "state:change"
)

// Event is one observed lifecycle transition.
type Event struct {
	JobID     string          `json:"job_id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New builds an Event, silently producing an empty Data payload if data
// cannot be marshaled (mirrors how a best-effort telemetry event should
// never itself fail a job run).
func New(jobID string, t Type, data interface{}) Event {
	raw, _ := json.Marshal(data)
	return Event{JobID: jobID, Type: t, Timestamp: time.Now(), Data: raw}
}

// JobStatusChangeData is the payload for TypeJobStatusChange.
type JobStatusChangeData struct {
	Status string `json:"status"`
}

// StepStartData is the payload for TypeStepStart.
type StepStartData struct {
	StepID   string `json:"step_id"`
	StepType string `json:"step_type"`
}

// StepEndData is the payload for TypeStepEnd.
type StepEndData struct {
	StepID     string `json:"step_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// StateChangeData is the payload for TypeStateChange, naming the
// variable written rather than carrying its full value (large file
// values would otherwise bloat every state-change event).
type StateChangeData struct {
	VariableName string `json:"variable_name"`
}

// Observer receives lifecycle events during RunJob. Every method must
// return quickly and must not block on I/O the caller doesn't control;
// RunJob calls these synchronously between steps.
type Observer interface {
	OnJobStatusChange(e Event)
	OnStepStart(e Event)
	OnStepEnd(e Event)
	OnStateChange(e Event)
}

// NoopObserver implements Observer with no-ops, used as the default
// when a host doesn't need execution events.
type NoopObserver struct{}

func (NoopObserver) OnJobStatusChange(Event) {}
func (NoopObserver) OnStepStart(Event)       {}
func (NoopObserver) OnStepEnd(Event)         {}
func (NoopObserver) OnStateChange(Event)     {}

// ChannelObserver forwards every event to a single channel, dropping
// events rather than blocking the run loop if the channel is full.
type ChannelObserver struct {
	events chan<- Event
}

// NewChannelObserver builds an Observer that forwards to events.
func NewChannelObserver(events chan<- Event) *ChannelObserver {
	return &ChannelObserver{events: events}
}

func (o *ChannelObserver) emit(e Event) {
	if o == nil || o.events == nil {
		return
	}
	select {
	case o.events <- e:
	default:
	}
}

func (o *ChannelObserver) OnJobStatusChange(e Event) { o.emit(e) }
func (o *ChannelObserver) OnStepStart(e Event)       { o.emit(e) }
func (o *ChannelObserver) OnStepEnd(e Event)         { o.emit(e) }
func (o *ChannelObserver) OnStateChange(e Event)     { o.emit(e) }
