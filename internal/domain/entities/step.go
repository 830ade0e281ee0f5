package entities

import "time"

// StepStatus is the outcome of a single provisioning step
type StepStatus string

// Step outcomes. A skipped step was never reached because an earlier
// step failed.
const (
	StepSuccess StepStatus = "success"
	StepFailure StepStatus = "failure"
	StepSkipped StepStatus = "skipped"
)

// StepResult records the outcome of one named provisioning step
type StepResult struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	Message  string        `json:"message,omitempty"`
}
