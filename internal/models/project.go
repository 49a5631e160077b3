package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle stage of an infrastructure project.
type ProjectStatus string

const (
	StatusNotYetStarted      ProjectStatus = "Not Yet Started"
	StatusUnderProcurement   ProjectStatus = "Under Procurement"
	StatusOngoing            ProjectStatus = "Ongoing"
	StatusForFinalInspection ProjectStatus = "For Final Inspection"
	StatusCompleted          ProjectStatus = "Completed"
)

// ProjectStatuses lists every valid status in lifecycle order.
var ProjectStatuses = []ProjectStatus{
	StatusNotYetStarted,
	StatusUnderProcurement,
	StatusOngoing,
	StatusForFinalInspection,
	StatusCompleted,
}

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// DateLayout is the layout of calendar dates on projects.
const DateLayout = "2006-01-02"

// Project is a school infrastructure project tracked by an engineer.
// Dates are calendar dates in DateLayout; empty means unset.
type Project struct {
	ID                       uuid.UUID     `json:"id"`
	SchoolID                 string        `json:"school_id"`
	Name                     string        `json:"project_name" validate:"required,max=255"`
	Status                   ProjectStatus `json:"status" validate:"required,projectstatus"`
	AccomplishmentPercentage *int          `json:"accomplishment_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	StatusAsOf               string        `json:"status_as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TargetCompletionDate     string        `json:"target_completion_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ContractorName           string        `json:"contractor_name,omitempty" validate:"max=255"`
	Allocation               *float64      `json:"allocation,omitempty" validate:"omitempty,gte=0"`
	OtherRemarks             string        `json:"other_remarks,omitempty"`
	EngineerID               string        `json:"engineer_id,omitempty"`
	CreatedAt                time.Time     `json:"created_at"`
	UpdatedAt                time.Time     `json:"updated_at"`
}

// Delayed reports whether the project is past its target date without
// being completed, as of now.
func (p Project) Delayed(now time.Time) bool {
	if p.Status == StatusCompleted || p.TargetCompletionDate == "" {
		return false
	}
	target, err := time.Parse(DateLayout, p.TargetCompletionDate)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return target.Before(today)
}

// ProjectStats aggregates project progress for the dashboard.
type ProjectStats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Ongoing        int     `json:"ongoing"`
	Delayed        int     `json:"delayed"`
	CompletionRate float64 `json:"completion_rate"`
}

// ComputeProjectStats tallies projects as of now. CompletionRate is a
// percentage rounded to one decimal place.
func ComputeProjectStats(projects []Project, now time.Time) ProjectStats {
	var stats ProjectStats
	for _, p := range projects {
		stats.Total++
		switch p.Status {
		case StatusCompleted:
			stats.Completed++
		case StatusOngoing:
			stats.Ongoing++
		}
		if p.Delayed(now) {
			stats.Delayed++
		}
	}
	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total) * 100
		stats.CompletionRate = float64(int(rate*10+0.5)) / 10
	}
	return stats
}
