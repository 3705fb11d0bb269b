package models

import "time"

// SessionStatusActive is the only status a session carries today.
const SessionStatusActive = "active"

// ReviewSession groups the documents, analyses and modified files of one
// review. Sessions are never deleted.
type ReviewSession struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	SelectedModel string    `json:"selected_model"`
	DocumentIDs   []string  `json:"document_ids,omitempty"`
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
