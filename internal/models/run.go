package models

import "time"

type Operation string

const (
	OpClean      Operation = "clean"
	OpGenerate   Operation = "generate"
	OpRegenerate Operation = "regenerate"
	OpBuild      Operation = "build"
	OpDebug      Operation = "debug"
	OpRun        Operation = "run"
	OpLaunch     Operation = "launch"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// OperationRun records one build or debug invocation.
type OperationRun struct {
	ID          int64
	Operation   Operation
	ProjectName string
	Status      RunStatus
	ExitCode    *int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}
