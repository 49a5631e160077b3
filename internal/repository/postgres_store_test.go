package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insighted/schoolprofile/internal/models"
)

var profileCols = []string{
	"school_id", "school_name", "region", "province", "municipality", "barangay",
	"division", "district", "legislative_district", "mother_school_id", "latitude", "longitude",
	"submitted_by", "submitted_at", "updated_at", "enrollment", "history_logs",
}

var projectCols = []string{
	"id", "school_id", "project_name", "status", "accomplishment_percentage",
	"status_as_of", "target_completion_date", "contractor_name", "allocation",
	"other_remarks", "engineer_id", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func profileRow(history string) *pgxmock.Rows {
	return pgxmock.NewRows(profileCols).AddRow(
		"100001", "Example ES", "Region I", "Ilocos Norte", "Laoag City", "Barangay 1",
		"Ilocos Norte", "Laoag I", "1st District", "", 18.19, nil,
		"user-a", baseTime, baseTime, []byte(`{"es_total":120}`), []byte(history),
	)
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS school_profiles").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_school_profiles_submitted_by").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS school_projects").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_school_projects_school_id").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MigrateError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS school_profiles").WillReturnError(errors.New("permission denied"))

	err := store.Migrate(context.Background())
	assert.ErrorContains(t, err, "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Exists(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("100001").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.Exists(context.Background(), "100001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM school_profiles WHERE school_id = \\$1").
		WithArgs("100001").
		WillReturnRows(profileRow(`[{"timestamp":"2026-06-01T09:30:00.000Z","user":"user-a","action":"Profile Update"}]`))

	p, err := store.FindByID(context.Background(), "100001")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Example ES", p.SchoolName)
	assert.Equal(t, "1st District", p.Hierarchy.LegislativeDistrict)
	require.NotNil(t, p.Latitude)
	assert.InDelta(t, 18.19, *p.Latitude, 1e-9)
	assert.Nil(t, p.Longitude)
	assert.Equal(t, 120, *p.Enrollment.ESTotal)
	require.Len(t, p.History, 1)
	assert.Equal(t, baseTime, p.History[0].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM school_profiles").
		WithArgs("999999").
		WillReturnError(pgx.ErrNoRows)

	p, err := store.FindByID(context.Background(), "999999")
	assert.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AuditedSubmit(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	fields := sampleFields("100001")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO school_profiles .+ ON CONFLICT \\(school_id\\) DO UPDATE").
		WithArgs("100001", fields.SchoolName, "Region I", "Ilocos Norte", "Laoag City", "Barangay 1",
			"Ilocos Norte", "Laoag I", "1st District", "100000", fields.Latitude, fields.Longitude,
			"user-a", baseTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE school_profiles\\s+SET history_logs = history_logs \\|\\| jsonb_build_array").
		WithArgs("100001", pgxmock.AnyArg(), baseTime).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT .+ FROM school_profiles WHERE school_id = \\$1").
		WithArgs("100001").
		WillReturnRows(profileRow(`[{"timestamp":"2026-06-01T09:30:00.000Z","user":"user-a","action":"Profile Update"}]`))
	mock.ExpectCommit()

	p, err := AuditedUpdate(ctx, store, "100001", submitEntry("user-a", baseTime),
		func(ctx context.Context, tx ProfileTx) (string, error) {
			return "", tx.UpsertProfile(ctx, fields, "user-a", baseTime)
		})
	require.NoError(t, err)
	assert.Len(t, p.History, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AuditedUpdateRollsBackOnMissingProfile(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM school_profiles WHERE school_id = \\$1 FOR UPDATE").
		WithArgs("999999").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := AuditedUpdate(ctx, store, "999999", submitEntry("user-a", baseTime),
		func(ctx context.Context, tx ProfileTx) (string, error) {
			p, err := tx.GetProfile(ctx, "999999", true)
			if err != nil {
				return "", err
			}
			if p == nil {
				return "", ErrNotFound
			}
			return "", nil
		})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendHistoryZeroRows(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE school_profiles\\s+SET history_logs").
		WithArgs("999999", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := store.WithTx(ctx, func(tx ProfileTx) error {
		return tx.AppendHistory(ctx, "999999", submitEntry("user-a", baseTime))
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BeginError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := store.WithTx(context.Background(), func(ProfileTx) error { return nil })
	assert.ErrorContains(t, err, "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveEnrollment(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	grand := 300

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE school_profiles SET enrollment = \\$2::jsonb").
		WithArgs("100001", `{"grand_total":300}`, baseTime).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := store.WithTx(ctx, func(tx ProfileTx) error {
		return tx.SaveEnrollment(ctx, "100001", models.Enrollment{GrandTotal: &grand}, baseTime)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecentActivity(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("jsonb_array_elements\\(p.history_logs\\) WITH ORDINALITY").
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"school_id", "school_name", "entry"}).
			AddRow("100002", "Batac ES", []byte(`{"timestamp":"2026-06-01T10:00:00.000Z","user":"user-b","action":"Enrolment Update","detail":"ES total: 10"}`)).
			AddRow("100001", "Example ES", []byte(`{"timestamp":"2026-06-01T09:30:00.000Z","user":"user-a","action":"Profile Update"}`)))

	activity, err := store.RecentActivity(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, "Batac ES", activity[0].SchoolName)
	assert.Equal(t, models.ActionEnrolmentUpdate, activity[0].Entry.Action)
	assert.Equal(t, "ES total: 10", activity[0].Entry.Detail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSummaries(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT school_id, school_name, region, division").
		WillReturnRows(pgxmock.NewRows([]string{
			"school_id", "school_name", "region", "division", "submitted_by", "submitted_at", "updated_at", "enrollment",
		}).AddRow("100001", "Example ES", "Region I", "Ilocos Norte", "user-a", baseTime, baseTime, []byte(`{"es_total":100,"jhs_total":50}`)))

	summaries, err := store.ListSummaries(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 150, summaries[0].TotalEnrollment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProjects(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM school_projects WHERE school_id = \\$1").
		WithArgs("100001").
		WillReturnRows(pgxmock.NewRows(projectCols).
			AddRow(id.String(), "100001", "Water system", "Ongoing", int64(40),
				"2026-05-30", "2026-09-01", "ACME Builders", 1500000.0,
				"", "eng-1", baseTime, baseTime).
			AddRow(uuid.New().String(), "100001", "Perimeter fence", "Not Yet Started", nil,
				"", "", "", nil, "", "eng-1", baseTime, baseTime))

	projects, err := store.ListProjects(context.Background(), "100001")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, id, projects[0].ID)
	assert.Equal(t, models.StatusOngoing, projects[0].Status)
	assert.Equal(t, 40, *projects[0].AccomplishmentPercentage)
	assert.InDelta(t, 1500000.0, *projects[0].Allocation, 1e-6)
	assert.Equal(t, "2026-09-01", projects[0].TargetCompletionDate)
	assert.Nil(t, projects[1].AccomplishmentPercentage)
	assert.Nil(t, projects[1].Allocation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProjectNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE school_projects SET").
		WithArgs(id, "100001",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := store.WithTx(ctx, func(tx ProfileTx) error {
		return tx.UpdateProject(ctx, models.Project{ID: id, SchoolID: "100001", UpdatedAt: time.Now()})
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
