package models

import "encoding/json"

// PipelineState is the lifecycle position of the current request
type PipelineState string

const (
	StateIdle      PipelineState = "idle"
	StateSending   PipelineState = "sending"
	StateSucceeded PipelineState = "succeeded"
	StateFailed    PipelineState = "failed"
)

// ExecutionResult is the outcome of one successful send. Time is measured by
// the client; RelayTime is what the relay reported for the upstream call alone.
type ExecutionResult struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Data       json.RawMessage   `json:"data"`
	Time       string            `json:"time"`
	Size       string            `json:"size"`
	RelayTime  string            `json:"relayTime,omitempty"`
	DurationMS int64             `json:"-"`
}

// Outcome is a consistent view of the pipeline: at most one of Result and
// Error is set, and neither while Sending.
type Outcome struct {
	State  PipelineState    `json:"state"`
	Result *ExecutionResult `json:"result"`
	Error  string           `json:"error,omitempty"`
}
