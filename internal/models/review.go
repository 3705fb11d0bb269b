package models

import "time"

// ReviewStatus is a reviewer's decision on a modified file.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusAccepted ReviewStatus = "accepted"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Valid reports whether s is a known review status.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusAccepted, ReviewStatusRejected:
		return true
	}
	return false
}

// Change is one discrete edit applied by a fix.
type Change struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // addition, modification, deletion
	Line        int    `json:"line"`
	Content     string `json:"content"`
	OldContent  string `json:"old_content,omitempty"`
	Description string `json:"description"`
}

// ModifiedFile records an oracle-proposed fix awaiting human review.
type ModifiedFile struct {
	ID              string       `json:"id"`
	SessionID       string       `json:"session_id"`
	FileName        string       `json:"file_name"`
	OriginalContent string       `json:"original_content"`
	ModifiedContent string       `json:"modified_content"`
	Changes         []Change     `json:"changes"`
	IssuesFixed     []string     `json:"issues_fixed"`
	ReviewStatus    ReviewStatus `json:"review_status"`
	CreatedAt       time.Time    `json:"created_at"`
}
