package models

import "time"

// DocumentKind separates source code from requirements documents.
type DocumentKind string

const (
	DocumentKindCode DocumentKind = "code"
	DocumentKindSRS  DocumentKind = "srs"
)

// Valid reports whether k is a known document kind.
func (k DocumentKind) Valid() bool {
	return k == DocumentKindCode || k == DocumentKindSRS
}

// Document is an uploaded file owned by a review session. Documents are
// immutable once stored.
type Document struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"session_id"`
	Name       string       `json:"name"`
	Kind       DocumentKind `json:"type"`
	Size       int64        `json:"size"`
	MediaType  string       `json:"mime_type"`
	Content    string       `json:"content,omitempty"`
	UploadedAt time.Time    `json:"upload_timestamp"`
}

// DocumentStats summarizes the documents of a session.
type DocumentStats struct {
	TotalFiles int            `json:"total_files"`
	CodeFiles  int            `json:"code_files"`
	SRSFiles   int            `json:"srs_files"`
	TotalSize  int64          `json:"total_size"`
	Languages  map[string]int `json:"languages"`
}
