package models

import "time"

// Step labels reported in RunStatus.CurrentDoc.
const (
	StepExtracting = "extracting"
	StepChunking   = "chunking"
	StepArchiving  = "archiving"
	StepEmbedding  = "embedding"
	StepSaving     = "saving"
)

type CurrentDocument struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Step string `json:"step"`
}

// RunStatus is a snapshot of the background vectorization run.
type RunStatus struct {
	IsRunning          bool             `json:"is_running"`
	TotalDocs          int              `json:"total_docs"`
	ProcessedDocs      int              `json:"processed_docs"`
	FailedDocs         int              `json:"failed_docs"`
	CurrentDoc         *CurrentDocument `json:"current_doc"`
	StartTime          *time.Time       `json:"start_time"`
	Canceled           bool             `json:"canceled"`
	ProgressPercentage int              `json:"progress_percentage"`
}

// Progress returns floor((processed+failed)/total*100), or 0 for an empty run.
func (s RunStatus) Progress() int {
	if s.TotalDocs <= 0 {
		return 0
	}
	return (s.ProcessedDocs + s.FailedDocs) * 100 / s.TotalDocs
}
