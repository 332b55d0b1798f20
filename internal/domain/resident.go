package domain

import "strings"

// Resident is owned by the backend; this side only reads it and updates
// name and face_count.
type Resident struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	FaceCount int    `json:"face_count"`
}

type ResidentInput struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	FaceCount int    `json:"face_count"`
}

// MatchesName compares names the way the dashboard does: trimmed and case-insensitive.
func (r Resident) MatchesName(name string) bool {
	return NormalizeName(r.Name) == NormalizeName(name)
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DatasetStatus reports whether face samples exist on the backend for a name.
type DatasetStatus struct {
	Exists    bool `json:"exists"`
	FaceCount int  `json:"face_count"`
}

// UploadResult is the backend's answer to one sample batch.
type UploadResult struct {
	Message   string `json:"message,omitempty"`
	FaceCount int    `json:"face_count"`
	Saved     int    `json:"saved"`
	Skipped   int    `json:"skipped"`
}
