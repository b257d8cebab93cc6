package models

import "time"

// ExecutionStatus mirrors the CodePipeline execution status values.
const (
	StatusSucceeded  ExecutionStatus = "Succeeded"
	StatusFailed     ExecutionStatus = "Failed"
	StatusInProgress ExecutionStatus = "InProgress"
	StatusStopped    ExecutionStatus = "Stopped"
	StatusCancelled  ExecutionStatus = "Cancelled"
	StatusSuperseded ExecutionStatus = "Superseded"
	StatusUnknown    ExecutionStatus = "Unknown"
)

type ExecutionStatus string

func (s ExecutionStatus) String() string {
	return string(s)
}

// ParseExecutionStatus maps an arbitrary status string onto the known set,
// falling back to StatusUnknown for anything unrecognized or empty.
func ParseExecutionStatus(s string) ExecutionStatus {
	switch ExecutionStatus(s) {
	case StatusSucceeded, StatusFailed, StatusInProgress, StatusStopped, StatusCancelled, StatusSuperseded:
		return ExecutionStatus(s)
	default:
		return StatusUnknown
	}
}

// PendingApproval identifies one manual-approval action waiting on a decision.
// The token is single-use and expires on the AWS side.
type PendingApproval struct {
	PipelineName string `json:"pipelineName"`
	StageName    string `json:"stageName"`
	ActionName   string `json:"actionName"`
	Token        string `json:"token"`
}

// PipelineExecutionSummary is one execution record for a pipeline, newest
// executions carrying an optional pending approval.
type PipelineExecutionSummary struct {
	ExecutionID     string           `json:"pipelineExecutionId"`
	Status          ExecutionStatus  `json:"status"`
	StartTime       *time.Time       `json:"startTime,omitempty"`
	LastUpdateTime  *time.Time       `json:"lastUpdateTime,omitempty"`
	PendingApproval *PendingApproval `json:"pendingApproval,omitempty"`
}

// PipelineStatus holds the recent executions of one pipeline, newest first.
type PipelineStatus struct {
	PipelineName string                     `json:"pipelineName"`
	Executions   []PipelineExecutionSummary `json:"executions"`
}

// SyncSnapshot is the persisted result of one poll cycle. Error is only set
// when the whole cycle failed before producing results; a snapshot never
// carries both an error and a populated pipeline list.
type SyncSnapshot struct {
	LastUpdated      time.Time        `json:"lastUpdated"`
	Pipelines        []PipelineStatus `json:"pipelines"`
	TotalPipelines   int              `json:"totalPipelines"`
	MatchedPipelines int              `json:"matchedPipelines"`
	Error            string           `json:"error,omitempty"`
}
