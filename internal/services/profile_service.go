package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/insighted/schoolprofile/internal/logger"
	"github.com/insighted/schoolprofile/internal/metrics"
	"github.com/insighted/schoolprofile/internal/models"
	"github.com/insighted/schoolprofile/internal/repository"
)

// DefaultActivityPageSize bounds the activity feed when no page size is configured.
const DefaultActivityPageSize = 50

// Submission outcomes recorded in metrics.
const (
	outcomeCreated  = "created"
	outcomeAmended  = "amended"
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeFailed   = "failed"
)

var profileTracer = otel.Tracer("schoolprofile/services/profile")

// ProfileService defines the school profile operations.
type ProfileService interface {
	// CheckExists reports whether a profile was submitted for schoolID.
	// Returns ErrInvalidSchoolID for malformed identifiers.
	CheckExists(ctx context.Context, schoolID string) (bool, error)

	// GetProfile returns the stored profile or ErrProfileNotFound.
	GetProfile(ctx context.Context, schoolID string) (*models.Profile, error)

	// GetBySubmitter returns the latest profile submitted by submitter or
	// ErrProfileNotFound.
	GetBySubmitter(ctx context.Context, submitter string) (*models.Profile, error)

	// SubmitOrAmend writes the identity and location fields and appends one
	// history entry, atomically. Returns the stored profile.
	// Returns ErrValidation for rejected input and ErrPersistence when the
	// store fails, in which case nothing was written.
	SubmitOrAmend(ctx context.Context, fields models.ProfileFields, submitter string) (*models.Profile, error)

	// AmendDependent applies patch to a record of an existing profile and
	// appends one history entry, atomically. Returns ErrProfileNotFound,
	// without writing anything, when the profile does not exist.
	AmendDependent(ctx context.Context, schoolID string, patch DependentPatch, submitter string) (*models.Profile, error)

	// AmendEnrollment merges enrollment into the school's enrollment record.
	AmendEnrollment(ctx context.Context, schoolID string, enrollment models.Enrollment, submitter string) (*models.Profile, error)

	// CreateProject registers a new project under the school.
	CreateProject(ctx context.Context, schoolID string, project models.Project, submitter string) (*models.Project, error)

	// UpdateProject changes a project's status fields. Returns
	// ErrProjectNotFound when the project does not belong to the school.
	UpdateProject(ctx context.Context, schoolID string, projectID uuid.UUID, update ProjectUpdate, submitter string) (*models.Project, error)

	ListProjects(ctx context.Context, schoolID string) ([]models.Project, error)

	// RecentActivity returns history entries across schools, most recent
	// first. limit is clamped to the configured page size.
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error)

	ListSummaries(ctx context.Context) ([]models.ProfileSummary, error)

	// ProjectStats aggregates every project as of now.
	ProjectStats(ctx context.Context) (models.ProjectStats, error)
}

// ProfileOption configures the profile service.
type ProfileOption func(*profileService)

// WithClock sets the time source for history timestamps.
func WithClock(now func() time.Time) ProfileOption {
	return func(s *profileService) { s.now = now }
}

// WithActivityPageSize sets the maximum activity page.
func WithActivityPageSize(n int) ProfileOption {
	return func(s *profileService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

type profileService struct {
	store    repository.ProfileStore
	validate *validator.Validate
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
	pageSize int
}

// NewProfileService creates a new instance of ProfileService.
func NewProfileService(store repository.ProfileStore, m *metrics.Metrics, log *logger.Logger, opts ...ProfileOption) ProfileService {
	s := &profileService{
		store:    store,
		validate: NewValidator(),
		metrics:  m,
		log:      log,
		now:      time.Now,
		pageSize: DefaultActivityPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time at the precision history entries keep.
func (s *profileService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *profileService) CheckExists(ctx context.Context, schoolID string) (bool, error) {
	if err := validateSchoolID(s.validate, schoolID); err != nil {
		return false, err
	}
	exists, err := s.store.Exists(ctx, schoolID)
	if err != nil {
		s.log.Error("Failed to check profile existence", err, map[string]interface{}{
			"school_id": schoolID,
		})
		return false, persistenceError(err)
	}
	return exists, nil
}

func (s *profileService) GetProfile(ctx context.Context, schoolID string) (*models.Profile, error) {
	if err := validateSchoolID(s.validate, schoolID); err != nil {
		return nil, err
	}
	p, err := s.store.FindByID(ctx, schoolID)
	if err != nil {
		s.log.Error("Failed to read profile", err, map[string]interface{}{
			"school_id": schoolID,
		})
		return nil, persistenceError(err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (s *profileService) GetBySubmitter(ctx context.Context, submitter string) (*models.Profile, error) {
	p, err := s.store.FindBySubmitter(ctx, submitter)
	if err != nil {
		s.log.Error("Failed to read profile by submitter", err, map[string]interface{}{
			"submitter": submitter,
		})
		return nil, persistenceError(err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (s *profileService) SubmitOrAmend(ctx context.Context, fields models.ProfileFields, submitter string) (*models.Profile, error) {
	ctx, span := profileTracer.Start(ctx, "profile.SubmitOrAmend", trace.WithAttributes(
		attribute.String("school.id", fields.SchoolID),
	))
	defer span.End()

	if err := validateSchoolID(s.validate, fields.SchoolID); err != nil {
		s.metrics.ObserveSubmission(outcomeInvalid)
		return nil, err
	}
	if err := validateStruct(s.validate, fields); err != nil {
		s.metrics.ObserveSubmission(outcomeInvalid)
		return nil, err
	}

	at := s.timestamp()
	entry := models.HistoryEntry{
		Timestamp: at,
		User:      submitter,
		Action:    models.ActionProfileUpdate,
	}

	created := false
	profile, err := repository.AuditedUpdate(ctx, s.store, fields.SchoolID, entry,
		func(ctx context.Context, tx repository.ProfileTx) (string, error) {
			existing, err := tx.GetProfile(ctx, fields.SchoolID, true)
			if err != nil {
				return "", err
			}
			created = existing == nil
			if err := tx.UpsertProfile(ctx, fields, submitter, at); err != nil {
				return "", err
			}
			if created {
				return "Submitted school profile", nil
			}
			return "Amended school profile", nil
		})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.metrics.ObserveSubmission(outcomeFailed)
		s.log.Error("Failed to submit profile", err, map[string]interface{}{
			"school_id": fields.SchoolID,
			"submitter": submitter,
		})
		return nil, persistenceError(err)
	}

	outcome := outcomeAmended
	if created {
		outcome = outcomeCreated
	}
	s.metrics.ObserveSubmission(outcome)
	span.SetAttributes(attribute.String("profile.outcome", outcome))

	s.log.Info("Profile saved", map[string]interface{}{
		"school_id": fields.SchoolID,
		"submitter": submitter,
		"outcome":   outcome,
		"history":   len(profile.History),
	})
	return profile, nil
}

func (s *profileService) AmendDependent(ctx context.Context, schoolID string, patch DependentPatch, submitter string) (*models.Profile, error) {
	action := patch.Action()
	ctx, span := profileTracer.Start(ctx, "profile.AmendDependent", trace.WithAttributes(
		attribute.String("school.id", schoolID),
		attribute.String("history.action", action),
	))
	defer span.End()

	if err := validateSchoolID(s.validate, schoolID); err != nil {
		s.metrics.ObserveAmendment(action, outcomeInvalid)
		return nil, err
	}
	if err := patch.Validate(s.validate); err != nil {
		s.metrics.ObserveAmendment(action, outcomeInvalid)
		return nil, err
	}

	at := s.timestamp()
	entry := models.HistoryEntry{
		Timestamp: at,
		User:      submitter,
		Action:    action,
	}

	profile, err := repository.AuditedUpdate(ctx, s.store, schoolID, entry,
		func(ctx context.Context, tx repository.ProfileTx) (string, error) {
			parent, err := tx.GetProfile(ctx, schoolID, true)
			if err != nil {
				return "", err
			}
			if parent == nil {
				return "", ErrProfileNotFound
			}
			return patch.Apply(ctx, tx, parent, at)
		})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.amendError(err, schoolID, action, submitter)
	}

	s.metrics.ObserveAmendment(action, outcomeOK)
	s.log.Info("Dependent record amended", map[string]interface{}{
		"school_id": schoolID,
		"submitter": submitter,
		"action":    action,
	})
	return profile, nil
}

// amendError maps a failed amendment onto the service errors.
func (s *profileService) amendError(err error, schoolID, action, submitter string) error {
	switch {
	case errors.Is(err, ErrProfileNotFound), errors.Is(err, repository.ErrNotFound):
		s.metrics.ObserveAmendment(action, outcomeNotFound)
		s.log.Debug("Amendment target not found", map[string]interface{}{
			"school_id": schoolID,
			"action":    action,
		})
		if errors.Is(err, ErrProfileNotFound) {
			return err
		}
		return fmt.Errorf("%w: %s", ErrProfileNotFound, schoolID)
	case errors.Is(err, ErrProjectNotFound):
		s.metrics.ObserveAmendment(action, outcomeNotFound)
		return err
	default:
		s.metrics.ObserveAmendment(action, outcomeFailed)
		s.log.Error("Failed to amend dependent record", err, map[string]interface{}{
			"school_id": schoolID,
			"action":    action,
			"submitter": submitter,
		})
		return persistenceError(err)
	}
}

func (s *profileService) AmendEnrollment(ctx context.Context, schoolID string, enrollment models.Enrollment, submitter string) (*models.Profile, error) {
	return s.AmendDependent(ctx, schoolID, &EnrollmentPatch{Enrollment: enrollment}, submitter)
}

func (s *profileService) CreateProject(ctx context.Context, schoolID string, project models.Project, submitter string) (*models.Project, error) {
	patch := &NewProjectPatch{Project: project}
	if _, err := s.AmendDependent(ctx, schoolID, patch, submitter); err != nil {
		return nil, err
	}
	return &patch.Project, nil
}

func (s *profileService) UpdateProject(ctx context.Context, schoolID string, projectID uuid.UUID, update ProjectUpdate, submitter string) (*models.Project, error) {
	patch := &ProjectStatusPatch{ProjectID: projectID, Update: update}
	if _, err := s.AmendDependent(ctx, schoolID, patch, submitter); err != nil {
		return nil, err
	}
	return patch.Project, nil
}

func (s *profileService) ListProjects(ctx context.Context, schoolID string) ([]models.Project, error) {
	if err := validateSchoolID(s.validate, schoolID); err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjects(ctx, schoolID)
	if err != nil {
		s.log.Error("Failed to list projects", err, map[string]interface{}{
			"school_id": schoolID,
		})
		return nil, persistenceError(err)
	}
	return projects, nil
}

func (s *profileService) RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}
	entries, err := s.store.RecentActivity(ctx, limit)
	if err != nil {
		s.log.Error("Failed to read activity feed", err, map[string]interface{}{
			"limit": limit,
		})
		return nil, persistenceError(err)
	}
	return entries, nil
}

func (s *profileService) ListSummaries(ctx context.Context) ([]models.ProfileSummary, error) {
	summaries, err := s.store.ListSummaries(ctx)
	if err != nil {
		s.log.Error("Failed to list profile summaries", err, nil)
		return nil, persistenceError(err)
	}
	return summaries, nil
}

func (s *profileService) ProjectStats(ctx context.Context) (models.ProjectStats, error) {
	projects, err := s.store.ListAllProjects(ctx)
	if err != nil {
		s.log.Error("Failed to list projects for stats", err, nil)
		return models.ProjectStats{}, persistenceError(err)
	}
	return models.ComputeProjectStats(projects, s.now()), nil
}
