package main

import "time"

// Client-side views of the server responses.

type errorBody struct {
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

type issue struct {
	Field    string `json:"field"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type document struct {
	Version   int64          `json:"version"`
	Checksum  string         `json:"checksum"`
	UpdatedAt time.Time      `json:"updated_at"`
	Values    map[string]any `json:"values"`
	Overrides map[string]any `json:"overrides"`
	Issues    []issue        `json:"issues,omitempty"`
	Warning   string         `json:"warning,omitempty"`
}

type writeRequest struct {
	Values  map[string]any `json:"values"`
	Replace bool           `json:"replace,omitempty"`
}

type backupInfo struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Version   int64     `json:"version"`
	Checksum  string    `json:"checksum"`
	CreatedBy string    `json:"created_by,omitempty"`
	Note      string    `json:"note,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type backupList struct {
	Items  []backupInfo `json:"items"`
	Size   int          `json:"size"`
	Total  int64        `json:"total"`
	Offset int          `json:"offset"`
}

type previewRequest struct {
	Session  string         `json:"session"`
	Sequence int64          `json:"sequence"`
	Values   map[string]any `json:"values"`
}

type previewResult struct {
	Session  string  `json:"session"`
	Sequence int64   `json:"sequence"`
	CSS      string  `json:"css"`
	Checksum string  `json:"checksum"`
	Fallback bool    `json:"fallback"`
	Issues   []issue `json:"issues,omitempty"`
}

type theme struct {
	Name        string         `json:"name"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Values      map[string]any `json:"values"`
}

type themeList struct {
	Themes []theme `json:"themes"`
	Size   int     `json:"size"`
}
