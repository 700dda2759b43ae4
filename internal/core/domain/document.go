package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// DocumentCategory separates the user's own policies from the general
// insurance knowledge corpus. Personal documents are boosted during
// retrieval when the query has personal intent.
type DocumentCategory string

const (
	CategoryGeneralKnowledge DocumentCategory = "general_knowledge"
	CategoryPersonalPolicy   DocumentCategory = "personal_policy"
)

type Document struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	MimeType    string           `json:"mime_type"`
	StoragePath string           `json:"storage_path"`
	Category    DocumentCategory `json:"category"`
	Policy      PolicyMetadata   `json:"policy"`
	Status      DocumentStatus   `json:"status"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// PolicyMetadata is extracted from the document text during processing.
type PolicyMetadata struct {
	PolicyType    string `json:"policy_type,omitempty"`
	PolicyNumber  string `json:"policy_number,omitempty"`
	Policyholder  string `json:"policyholder,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
	State         string `json:"state,omitempty"`
}
