package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/insighted/schoolprofile/internal/models"
)

// ErrNotFound is returned by transactional writes that target a missing row.
// Read methods return nil, nil instead.
var ErrNotFound = errors.New("record not found")

// ProfileStore persists school profiles, their dependent records and the
// per-school audit history.
type ProfileStore interface {
	// Exists reports whether a profile has been submitted for schoolID.
	Exists(ctx context.Context, schoolID string) (bool, error)

	// FindByID returns the profile, or nil, nil when none exists.
	FindByID(ctx context.Context, schoolID string) (*models.Profile, error)

	// FindBySubmitter returns the most recently updated profile submitted by
	// the given user, or nil, nil.
	FindBySubmitter(ctx context.Context, submitter string) (*models.Profile, error)

	// ListSummaries returns every profile, most recently updated first.
	ListSummaries(ctx context.Context) ([]models.ProfileSummary, error)

	// RecentActivity returns up to limit history entries across all schools,
	// most recent first.
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error)

	// ListProjects returns the projects of one school, oldest first.
	ListProjects(ctx context.Context, schoolID string) ([]models.Project, error)

	// ListAllProjects returns every project, oldest first.
	ListAllProjects(ctx context.Context) ([]models.Project, error)

	// WithTx runs fn in a transaction. It commits when fn returns nil and
	// rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx ProfileTx) error) error

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// ProfileTx is the set of operations available inside a transaction.
type ProfileTx interface {
	// GetProfile reads a profile, locking the row for the rest of the
	// transaction when forUpdate is set. Returns nil, nil when absent.
	GetProfile(ctx context.Context, schoolID string, forUpdate bool) (*models.Profile, error)

	// UpsertProfile inserts the profile with an empty history, or overwrites
	// its identity and location fields. SubmittedAt is kept on update.
	UpsertProfile(ctx context.Context, fields models.ProfileFields, submitter string, at time.Time) error

	// SaveEnrollment replaces the stored enrollment record.
	SaveEnrollment(ctx context.Context, schoolID string, enrollment models.Enrollment, at time.Time) error

	InsertProject(ctx context.Context, project models.Project) error

	// GetProject returns the project, or nil, nil when absent or owned by
	// another school.
	GetProject(ctx context.Context, schoolID string, id uuid.UUID, forUpdate bool) (*models.Project, error)

	UpdateProject(ctx context.Context, project models.Project) error

	// AppendHistory appends entry to the school's history. ErrNotFound when
	// the profile does not exist.
	AppendHistory(ctx context.Context, schoolID string, entry models.HistoryEntry) error
}
