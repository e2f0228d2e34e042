package core

// StepStatus is the outcome of one workflow node in a test run.
type StepStatus string

const (
	StepSucceeded StepStatus = "success"
	StepFailed    StepStatus = "failed"
	// StepSkipped marks the trigger, which only fires from platform events
	StepSkipped StepStatus = "skipped"
	// StepNotRun marks nodes after the first failure
	StepNotRun StepStatus = "not_run"
)

// StepResult reports a single node of a workflow run.
type StepResult struct {
	NodeID     string         `json:"nodeId"`
	Name       string         `json:"name"`
	Type       NodeType       `json:"type"`
	Status     StepStatus     `json:"status"`
	Input      any            `json:"input,omitempty" swaggertype:"object"`
	Output     any            `json:"output,omitempty" swaggertype:"object"`
	Error      *PlatformError `json:"error,omitempty"`
	DurationMS int64          `json:"durationMs"`
}

// RunResult is the outcome of test-running a workflow. Runs are not persisted.
type RunResult struct {
	WorkflowID string       `json:"workflowId"`
	Success    bool         `json:"success"`
	Steps      []StepResult `json:"steps"`
	DurationMS int64        `json:"durationMs"`
}
