package api

import "time"

// ApproveRequest is the request body for approving a proposal.
type ApproveRequest struct {
	Path string `json:"path" example:"00. Inbox/1. Review Queue/Refactor - note.md" validate:"required"`
}

// ProposalItem is a proposal in API responses (aliased from the service layer).
type ProposalItem = Proposal

// ProposalListResponse wraps the review queue listing.
type ProposalListResponse struct {
	Proposals []ProposalItem `json:"proposals" validate:"required"`
	Total     int            `json:"total" example:"3" validate:"required"`
}

// StatusResponse mirrors Status for swag.
type StatusResponse struct {
	Notes           int       `json:"notes" example:"412"`
	PendingReview   int       `json:"pending_review" example:"2"`
	Approved        int       `json:"approved" example:"1"`
	LastMaintenance time.Time `json:"last_maintenance,omitempty"`
}

// PipelineRunResponse summarizes a full pipeline pass.
type PipelineRunResponse struct {
	Filed     int  `json:"filed" example:"1"`
	Written   int  `json:"written" example:"3"`
	Ingested  int  `json:"ingested" example:"2"`
	Failed    int  `json:"failed" example:"0"`
	Committed bool `json:"committed" example:"true"`
}

// IngestRunResponse summarizes an ingest pass.
type IngestRunResponse struct {
	Ingested int `json:"ingested" example:"2"`
	Failed   int `json:"failed" example:"0"`
}

// FilerRunResponse summarizes a filing pass.
type FilerRunResponse struct {
	Filed   int `json:"filed" example:"1"`
	Written int `json:"written" example:"3"`
	Failed  int `json:"failed" example:"0"`
}

// MaintenanceRunResponse summarizes a maintenance pass.
type MaintenanceRunResponse struct {
	Scanned  int `json:"scanned" example:"14"`
	Cooled   int `json:"cooled" example:"5"`
	Proposed int `json:"proposed" example:"9"`
	Failed   int `json:"failed" example:"0"`
}

// AuditCandidate is one scored file in an audit response.
type AuditCandidate struct {
	Path         string   `json:"path" example:"20. Projects/meeting.md"`
	Score        int      `json:"score" example:"80"`
	Reasons      []string `json:"reasons" example:"Missing aliases/tags,Generic Filename"`
	ExpectedCode string   `json:"expected_code,omitempty" example:"P010"`
}

// AuditResponse wraps audit results.
type AuditResponse struct {
	Candidates []AuditCandidate `json:"candidates" validate:"required"`
	Total      int              `json:"total" example:"14" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"20. Projects/P010 - roadmap.md" validate:"required"`
	Title   string `json:"title" example:"Roadmap" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
