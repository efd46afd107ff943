package models

import "time"

type IntentType string

const (
	IntentMCPAction      IntentType = "mcp_action"
	IntentVectorSearch   IntentType = "vector_search"
	IntentFolderAnalysis IntentType = "folder_analysis"
)

type ActionType string

const (
	ActionCreateFile      ActionType = "create_file"
	ActionCreateFolder    ActionType = "create_folder"
	ActionSearchDocuments ActionType = "search_documents"
	ActionAnalyzeFolder   ActionType = "analyze_folder"
	ActionOther           ActionType = "other"
)

type IntentParameters struct {
	FileName       string `json:"file_name,omitempty"`
	FolderName     string `json:"folder_name,omitempty"`
	ParentFolder   string `json:"parent_folder,omitempty"`
	Content        string `json:"content,omitempty"`
	SearchKeywords string `json:"search_keywords,omitempty"`
	AnalysisType   string `json:"analysis_type,omitempty"`
}

// IntentAnalysis is the structured classification of a free-text command.
type IntentAnalysis struct {
	IntentType IntentType       `json:"intent_type" validate:"required,oneof=mcp_action vector_search folder_analysis"`
	Confidence float64          `json:"confidence" validate:"gte=0,lte=1"`
	ActionType ActionType       `json:"action_type" validate:"required,oneof=create_file create_folder search_documents analyze_folder other"`
	Parameters IntentParameters `json:"parameters"`
	Reasoning  string           `json:"reasoning"`
}

type DispatchRequest struct {
	Command string `json:"command" validate:"required,max=500"`
}

// DispatchResult is returned for every command; Error is set instead of
// Result when the action did not happen.
type DispatchResult struct {
	Command      string           `json:"command"`
	Action       ActionType       `json:"action"`
	Parameters   IntentParameters `json:"parameters"`
	Intent       *IntentAnalysis  `json:"intent,omitempty"`
	ClassifiedBy string           `json:"classified_by"`
	Success      bool             `json:"success"`
	Result       string           `json:"result,omitempty"`
	Error        string           `json:"error,omitempty"`
	Node         *DocumentNode    `json:"node,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}
