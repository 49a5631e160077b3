package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Audit actions recorded in a profile's history.
const (
	ActionProfileUpdate   = "Profile Update"
	ActionEnrolmentUpdate = "Enrolment Update"
	ActionProjectCreated  = "Project Created"
	ActionProjectUpdate   = "Project Update"
)

// HistoryTimeLayout is fixed-width so that lexical order of stored
// timestamps matches chronological order.
const HistoryTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ProfileFields are the identity and location fields written when a profile
// is submitted. They become read-only once the form locks.
type ProfileFields struct {
	SchoolID       string    `json:"school_id" validate:"required,len=6,numeric"`
	SchoolName     string    `json:"school_name" validate:"required,max=255"`
	Hierarchy      Hierarchy `json:"hierarchy"`
	MotherSchoolID string    `json:"mother_school_id,omitempty" validate:"omitempty,max=32"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
}

// Profile is the persisted school profile aggregate.
type Profile struct {
	ProfileFields
	SubmittedBy string         `json:"submitted_by"`
	SubmittedAt time.Time      `json:"submitted_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Enrollment  Enrollment     `json:"enrollment"`
	History     []HistoryEntry `json:"history"`
}

// Location returns the profile coordinates as a point, or nil when either
// coordinate is missing.
func (p *Profile) Location() *Point {
	return NewPoint(p.Latitude, p.Longitude)
}

// HistoryEntry is one immutable audit record.
type HistoryEntry struct {
	Timestamp time.Time
	User      string
	Action    string
	Detail    string
}

type historyEntryJSON struct {
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
}

// MarshalJSON writes the entry in its stored form.
func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(historyEntryJSON{
		Timestamp: e.Timestamp.UTC().Format(HistoryTimeLayout),
		User:      e.User,
		Action:    e.Action,
		Detail:    e.Detail,
	})
}

// UnmarshalJSON reads an entry in its stored form.
func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	var raw historyEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return fmt.Errorf("invalid history timestamp %q: %w", raw.Timestamp, err)
	}
	*e = HistoryEntry{
		Timestamp: ts.UTC(),
		User:      raw.User,
		Action:    raw.Action,
		Detail:    raw.Detail,
	}
	return nil
}

// ActivityEntry is a history entry projected across all schools.
type ActivityEntry struct {
	SchoolID   string       `json:"school_id"`
	SchoolName string       `json:"school_name"`
	Entry      HistoryEntry `json:"entry"`
}

// ProfileSummary is the dashboard view of one submitted profile.
type ProfileSummary struct {
	SchoolID        string    `json:"school_id"`
	SchoolName      string    `json:"school_name"`
	Region          string    `json:"region"`
	Division        string    `json:"division"`
	SubmittedBy     string    `json:"submitted_by"`
	SubmittedAt     time.Time `json:"submitted_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	TotalEnrollment int       `json:"total_enrollment"`
}
