package models

import "time"

// SessionStatus is the lifecycle state of an execution session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionPaused    SessionStatus = "paused"
)

// IsTerminal reports whether no further nodes will run without a resume.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionPaused
}

// TriggerSource tells how a session was started.
type TriggerSource string

const (
	TriggerSourceWebhook  TriggerSource = "webhook"
	TriggerSourceManual   TriggerSource = "manual"
	TriggerSourceSchedule TriggerSource = "schedule"
)

// ExecutionMode controls how external-effect nodes behave during a run.
type ExecutionMode string

const (
	ModeLive      ExecutionMode = "live"
	ModeIntercept ExecutionMode = "intercept"
	ModeSkip      ExecutionMode = "skip"
)

// ExecutionOptions tune a single run.
type ExecutionOptions struct {
	Mode ExecutionMode `json:"mode,omitempty"`
	// SkipNodes limits skip mode to the listed nodes; empty means every non-trigger node.
	SkipNodes   []string                  `json:"skip_nodes,omitempty"`
	MockOutputs map[string]map[string]any `json:"mock_outputs,omitempty"`
}

// ExecutionSession is one run of a workflow.
type ExecutionSession struct {
	ID            string           `json:"id"`
	WorkflowID    string           `json:"workflow_id"`
	OwnerID       string           `json:"owner_id"`
	TriggerNodeID string           `json:"trigger_node_id"`
	TriggerSource TriggerSource    `json:"trigger_source"`
	InputData     map[string]any   `json:"input_data,omitempty"`
	Options       ExecutionOptions `json:"options"`
	Status        SessionStatus    `json:"status"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	StartedAt     *time.Time       `json:"started_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// ExecutionContext is what a node sees while it runs.
type ExecutionContext struct {
	SessionID   string         `json:"session_id"`
	WorkflowID  string         `json:"workflow_id"`
	OwnerID     string         `json:"owner_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	NodeOutputs map[string]any `json:"node_outputs,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// NodeExecutionResult is the outcome of one node execution.
type NodeExecutionResult struct {
	Success        bool           `json:"success"`
	Output         map[string]any `json:"output,omitempty"`
	Error          string         `json:"error,omitempty"`
	PauseExecution bool           `json:"pause_execution,omitempty"`
	PathTaken      string         `json:"path_taken,omitempty"`
	SelectedPaths  []string       `json:"selected_paths,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(output map[string]any) NodeExecutionResult {
	return NodeExecutionResult{Success: true, Output: output}
}

// Failed builds a failed result.
func Failed(message string) NodeExecutionResult {
	return NodeExecutionResult{Success: false, Error: message}
}

// StepStatus is the state of a node inside a session.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepPaused    StepStatus = "paused"
)

// StepStart is written to the execution history before a node runs.
type StepStart struct {
	SessionID string         `json:"session_id"`
	NodeID    string         `json:"node_id"`
	NodeType  string         `json:"node_type"`
	Label     string         `json:"label"`
	Config    map[string]any `json:"config,omitempty"`
	Preview   map[string]any `json:"preview,omitempty"`
}

// StepCompletion is written to the execution history after a node ran.
type StepCompletion struct {
	SessionID    string         `json:"session_id"`
	NodeID       string         `json:"node_id"`
	Status       StepStatus     `json:"status"`
	Output       map[string]any `json:"output,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ErrorDetail  map[string]any `json:"error_detail,omitempty"`
}

// ExecutionStep is the stored history entry of one node in one session.
type ExecutionStep struct {
	SessionID    string         `json:"session_id"`
	NodeID       string         `json:"node_id"`
	NodeType     string         `json:"node_type"`
	Label        string         `json:"label"`
	Status       StepStatus     `json:"status"`
	Config       map[string]any `json:"config,omitempty"`
	Preview      map[string]any `json:"preview,omitempty"`
	Output       map[string]any `json:"output,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ErrorDetail  map[string]any `json:"error_detail,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Apply folds a completion into the step.
func (s *ExecutionStep) Apply(completion StepCompletion, at time.Time) {
	s.Status = completion.Status
	s.Output = completion.Output
	s.ErrorMessage = completion.ErrorMessage
	s.ErrorDetail = completion.ErrorDetail
	s.CompletedAt = &at
}
