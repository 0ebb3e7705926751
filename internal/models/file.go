package models

import (
	"strings"
	"time"
)

type File struct {
	ID               int       `json:"id"`
	DisplayName      string    `json:"display_name"`
	Category         string    `json:"category"`
	OriginalFilename string    `json:"original_filename"`
	Locator          string    `json:"storage_locator"`
	UploadedBy       string    `json:"uploaded_by"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// Matches reports whether query occurs, ignoring case, in the display name,
// the category or the original filename. An empty query matches everything.
func (f *File) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(f.DisplayName), q) ||
		strings.Contains(strings.ToLower(f.Category), q) ||
		strings.Contains(strings.ToLower(f.OriginalFilename), q)
}
