package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/insighted/schoolprofile/internal/models"
	"github.com/insighted/schoolprofile/internal/repository"
)

// DependentPatch is a change to a record that belongs to a submitted
// profile. Apply runs inside the audited transaction, after the parent
// profile has been read and locked, and returns the history detail.
type DependentPatch interface {
	Action() string
	Validate(v *validator.Validate) error
	Apply(ctx context.Context, tx repository.ProfileTx, profile *models.Profile, at time.Time) (detail string, err error)
}

// EnrollmentPatch merges the set fields into the school's enrollment record.
type EnrollmentPatch struct {
	Enrollment models.Enrollment
}

func (p *EnrollmentPatch) Action() string { return models.ActionEnrolmentUpdate }

func (p *EnrollmentPatch) Validate(v *validator.Validate) error {
	return validateStruct(v, p.Enrollment)
}

func (p *EnrollmentPatch) Apply(ctx context.Context, tx repository.ProfileTx, profile *models.Profile, at time.Time) (string, error) {
	merged := profile.Enrollment.Merge(p.Enrollment)
	if err := tx.SaveEnrollment(ctx, profile.SchoolID, merged, at); err != nil {
		return "", err
	}
	return p.Enrollment.Describe(), nil
}

// NewProjectPatch registers a project under the school. After Apply,
// Project holds the stored record.
type NewProjectPatch struct {
	Project models.Project
}

func (p *NewProjectPatch) Action() string { return models.ActionProjectCreated }

func (p *NewProjectPatch) Validate(v *validator.Validate) error {
	return validateStruct(v, p.Project)
}

func (p *NewProjectPatch) Apply(ctx context.Context, tx repository.ProfileTx, profile *models.Profile, at time.Time) (string, error) {
	if p.Project.ID == uuid.Nil {
		p.Project.ID = uuid.New()
	}
	p.Project.SchoolID = profile.SchoolID
	p.Project.CreatedAt = at
	p.Project.UpdatedAt = at

	if err := tx.InsertProject(ctx, p.Project); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created project %s (%s)", p.Project.Name, p.Project.Status), nil
}

// ProjectUpdate holds the project fields to change. Nil fields are left
// unchanged.
type ProjectUpdate struct {
	Status                   *models.ProjectStatus `json:"status" validate:"omitempty,projectstatus"`
	AccomplishmentPercentage *int                  `json:"accomplishment_percentage" validate:"omitempty,gte=0,lte=100"`
	StatusAsOf               *string               `json:"status_as_of" validate:"omitempty,datetime=2006-01-02"`
	TargetCompletionDate     *string               `json:"target_completion_date" validate:"omitempty,datetime=2006-01-02"`
	ContractorName           *string               `json:"contractor_name" validate:"omitempty,max=255"`
	Allocation               *float64              `json:"allocation" validate:"omitempty,gte=0"`
	OtherRemarks             *string               `json:"other_remarks"`
}

func (u ProjectUpdate) applyTo(p *models.Project) {
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.AccomplishmentPercentage != nil {
		p.AccomplishmentPercentage = u.AccomplishmentPercentage
	}
	if u.StatusAsOf != nil {
		p.StatusAsOf = *u.StatusAsOf
	}
	if u.TargetCompletionDate != nil {
		p.TargetCompletionDate = *u.TargetCompletionDate
	}
	if u.ContractorName != nil {
		p.ContractorName = *u.ContractorName
	}
	if u.Allocation != nil {
		p.Allocation = u.Allocation
	}
	if u.OtherRemarks != nil {
		p.OtherRemarks = *u.OtherRemarks
	}
}

// ProjectStatusPatch applies a ProjectUpdate to one project of the school.
// After Apply, Project holds the stored record.
type ProjectStatusPatch struct {
	ProjectID uuid.UUID
	Update    ProjectUpdate
	Project   *models.Project
}

func (p *ProjectStatusPatch) Action() string { return models.ActionProjectUpdate }

func (p *ProjectStatusPatch) Validate(v *validator.Validate) error {
	return validateStruct(v, p.Update)
}

func (p *ProjectStatusPatch) Apply(ctx context.Context, tx repository.ProfileTx, profile *models.Profile, at time.Time) (string, error) {
	project, err := tx.GetProject(ctx, profile.SchoolID, p.ProjectID, true)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, p.ProjectID)
	}

	p.Update.applyTo(project)
	project.UpdatedAt = at
	if err := tx.UpdateProject(ctx, *project); err != nil {
		return "", err
	}
	p.Project = project
	return describeProjectStatus(*project), nil
}

// describeProjectStatus renders "Updated status to Ongoing (40%)".
func describeProjectStatus(p models.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Updated status to %s", p.Status)
	if p.AccomplishmentPercentage != nil {
		fmt.Fprintf(&b, " (%d%%)", *p.AccomplishmentPercentage)
	}
	return b.String()
}
