// Package profile defines the records produced by a profile acquisition and
// the classified errors an acquisition can fail with.
package profile

import "strings"

// Sentinel values used when a field cannot be resolved from the page.
const (
	NotFound  = "Not found"
	NoSummary = "No summary found"

	UnknownRole     = "Unknown role"
	UnknownCompany  = "Unknown company"
	UnknownDuration = "Unknown duration"
	UnknownSchool   = "Unknown school"
	UnknownDegree   = "Unknown degree"
	UnknownYears    = "Unknown years"
)

// Credentials authenticate against the target site when it shows an auth wall.
// They live for one acquisition call and are never persisted or logged.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ExperienceItem is one position listed in the Experience section.
type ExperienceItem struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Duration string `json:"duration"`
}

// EducationItem is one entry listed in the Education section.
type EducationItem struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Years  string `json:"years"`
}

// Record is the structured profile pulled from the rendered page.
type Record struct {
	Name            string           `json:"name"`
	Headline        string           `json:"headline"`
	Location        string           `json:"location"`
	Summary         string           `json:"summary"`
	Experience      []ExperienceItem `json:"experience"`
	Education       []EducationItem  `json:"education"`
	Skills          []string         `json:"skills"`
	Recommendations int              `json:"recommendations"`
}

// ScoreResult is the suitability assessment computed from a Record.
type ScoreResult struct {
	Score    int    `json:"score"`
	Analysis string `json:"analysis"`
}

// Result is the final output handed to callers: the record plus its score,
// flattened into a single JSON object.
type Result struct {
	Record
	ScoreResult
}

// NewResult joins a normalized record with its score.
func NewResult(rec Record, score ScoreResult) Result {
	return Result{Record: rec, ScoreResult: score}
}

// IsPlaceholder reports whether the experience entry is the sentinel row
// inserted by Normalize.
func (e ExperienceItem) IsPlaceholder() bool {
	return e.Title == NotFound && e.Company == NotFound && e.Duration == NotFound
}

// IsPlaceholder reports whether the education entry is the sentinel row
// inserted by Normalize.
func (e EducationItem) IsPlaceholder() bool {
	return e.School == NotFound && e.Degree == NotFound && e.Years == NotFound
}

// HasSummary reports whether a real summary was extracted.
func (r Record) HasSummary() bool {
	s := strings.TrimSpace(r.Summary)
	return s != "" && s != NoSummary && s != NotFound
}
