package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/insighted/schoolprofile/internal/models"
)

// PgxPool is the subset of *pgxpool.Pool used by PostgresStore.
type PgxPool interface {
	pgxQuerier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the PostgreSQL ProfileStore. The pool is owned by the
// caller until Close.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore creates a ProfileStore backed by pool.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS school_profiles (
		school_id            TEXT PRIMARY KEY,
		school_name          TEXT NOT NULL,
		region               TEXT NOT NULL DEFAULT '',
		province             TEXT NOT NULL DEFAULT '',
		municipality         TEXT NOT NULL DEFAULT '',
		barangay             TEXT NOT NULL DEFAULT '',
		division             TEXT NOT NULL DEFAULT '',
		district             TEXT NOT NULL DEFAULT '',
		legislative_district TEXT NOT NULL DEFAULT '',
		mother_school_id     TEXT NOT NULL DEFAULT '',
		latitude             DOUBLE PRECISION,
		longitude            DOUBLE PRECISION,
		submitted_by         TEXT NOT NULL,
		submitted_at         TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL,
		enrollment           JSONB NOT NULL DEFAULT '{}'::jsonb,
		history_logs         JSONB NOT NULL DEFAULT '[]'::jsonb
	)`,
	`CREATE INDEX IF NOT EXISTS idx_school_profiles_submitted_by ON school_profiles (submitted_by)`,
	`CREATE TABLE IF NOT EXISTS school_projects (
		id                        UUID PRIMARY KEY,
		school_id                 TEXT NOT NULL REFERENCES school_profiles (school_id),
		project_name              TEXT NOT NULL,
		status                    TEXT NOT NULL,
		accomplishment_percentage INTEGER,
		status_as_of              DATE,
		target_completion_date    DATE,
		contractor_name           TEXT NOT NULL DEFAULT '',
		allocation                DOUBLE PRECISION,
		other_remarks             TEXT NOT NULL DEFAULT '',
		engineer_id               TEXT NOT NULL DEFAULT '',
		created_at                TIMESTAMPTZ NOT NULL,
		updated_at                TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_school_projects_school_id ON school_projects (school_id)`,
}

const pgProfileColumns = `school_id, school_name, region, province, municipality, barangay,
	division, district, legislative_district, mother_school_id, latitude, longitude,
	submitted_by, submitted_at, updated_at, enrollment, history_logs`

const pgProjectColumns = `id, school_id, project_name, status, accomplishment_percentage,
	COALESCE(TO_CHAR(status_as_of, 'YYYY-MM-DD'), ''),
	COALESCE(TO_CHAR(target_completion_date, 'YYYY-MM-DD'), ''),
	contractor_name, allocation, other_remarks, engineer_id, created_at, updated_at`

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, schoolID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM school_profiles WHERE school_id = $1)`, schoolID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check profile %s: %w", schoolID, err)
	}
	return exists, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, schoolID string) (*models.Profile, error) {
	return pgGetProfile(ctx, s.pool, schoolID, false)
}

func (s *PostgresStore) FindBySubmitter(ctx context.Context, submitter string) (*models.Profile, error) {
	query := `SELECT ` + pgProfileColumns + `
		FROM school_profiles
		WHERE submitted_by = $1
		ORDER BY updated_at DESC
		LIMIT 1`

	p, err := pgScanProfile(s.pool.QueryRow(ctx, query, submitter))
	if err != nil {
		return nil, fmt.Errorf("failed to query profile by submitter: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListSummaries(ctx context.Context) ([]models.ProfileSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT school_id, school_name, region, division, submitted_by, submitted_at, updated_at, enrollment
		FROM school_profiles
		ORDER BY updated_at DESC, school_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	summaries := []models.ProfileSummary{}
	for rows.Next() {
		var sum models.ProfileSummary
		var enrollment []byte
		if err := rows.Scan(&sum.SchoolID, &sum.SchoolName, &sum.Region, &sum.Division,
			&sum.SubmittedBy, &sum.SubmittedAt, &sum.UpdatedAt, &enrollment); err != nil {
			return nil, fmt.Errorf("failed to scan profile summary: %w", err)
		}
		sum.SubmittedAt = sum.SubmittedAt.UTC()
		sum.UpdatedAt = sum.UpdatedAt.UTC()
		if sum.TotalEnrollment, err = decodeEnrollmentTotal(enrollment); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return summaries, nil
}

func (s *PostgresStore) RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	// Ties on timestamp fall back to append order within a school.
	rows, err := s.pool.Query(ctx, `
		SELECT p.school_id, p.school_name, h.entry
		FROM school_profiles p
		CROSS JOIN LATERAL jsonb_array_elements(p.history_logs) WITH ORDINALITY AS h(entry, ord)
		ORDER BY h.entry->>'timestamp' DESC, h.ord DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	activity := []models.ActivityEntry{}
	for rows.Next() {
		var schoolID, schoolName string
		var raw []byte
		if err := rows.Scan(&schoolID, &schoolName, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a, err := decodeActivity(schoolID, schoolName, raw)
		if err != nil {
			return nil, err
		}
		activity = append(activity, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	return activity, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, schoolID string) ([]models.Project, error) {
	return pgListProjects(ctx, s.pool, `WHERE school_id = $1`, schoolID)
}

func (s *PostgresStore) ListAllProjects(ctx context.Context) ([]models.Project, error) {
	return pgListProjects(ctx, s.pool, ``)
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx ProfileTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&pgTx{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// pgTx implements ProfileTx on a pgx transaction.
type pgTx struct {
	q pgxQuerier
}

func (t *pgTx) GetProfile(ctx context.Context, schoolID string, forUpdate bool) (*models.Profile, error) {
	return pgGetProfile(ctx, t.q, schoolID, forUpdate)
}

func (t *pgTx) UpsertProfile(ctx context.Context, f models.ProfileFields, submitter string, at time.Time) error {
	h := f.Hierarchy
	_, err := t.q.Exec(ctx, `
		INSERT INTO school_profiles (
			school_id, school_name, region, province, municipality, barangay,
			division, district, legislative_district, mother_school_id, latitude, longitude,
			submitted_by, submitted_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (school_id) DO UPDATE SET
			school_name          = EXCLUDED.school_name,
			region               = EXCLUDED.region,
			province             = EXCLUDED.province,
			municipality         = EXCLUDED.municipality,
			barangay             = EXCLUDED.barangay,
			division             = EXCLUDED.division,
			district             = EXCLUDED.district,
			legislative_district = EXCLUDED.legislative_district,
			mother_school_id     = EXCLUDED.mother_school_id,
			latitude             = EXCLUDED.latitude,
			longitude            = EXCLUDED.longitude,
			submitted_by         = EXCLUDED.submitted_by,
			updated_at           = EXCLUDED.updated_at`,
		f.SchoolID, f.SchoolName, h.Region, h.Province, h.Municipality, h.Barangay,
		h.Division, h.District, h.LegislativeDistrict, f.MotherSchoolID, f.Latitude, f.Longitude,
		submitter, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", f.SchoolID, err)
	}
	return nil
}

func (t *pgTx) SaveEnrollment(ctx context.Context, schoolID string, e models.Enrollment, at time.Time) error {
	doc, err := encodeEnrollment(e)
	if err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx,
		`UPDATE school_profiles SET enrollment = $2::jsonb, updated_at = $3 WHERE school_id = $1`,
		schoolID, doc, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to save enrollment for %s: %w", schoolID, err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertProject(ctx context.Context, p models.Project) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO school_projects (`+pgProjectInsertColumns+`)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::date, NULLIF($7, '')::date, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.SchoolID, p.Name, string(p.Status), p.AccomplishmentPercentage,
		p.StatusAsOf, p.TargetCompletionDate, p.ContractorName, p.Allocation,
		p.OtherRemarks, p.EngineerID, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert project %s: %w", p.ID, err)
	}
	return nil
}

const pgProjectInsertColumns = `id, school_id, project_name, status, accomplishment_percentage,
	status_as_of, target_completion_date, contractor_name, allocation, other_remarks,
	engineer_id, created_at, updated_at`

func (t *pgTx) GetProject(ctx context.Context, schoolID string, id uuid.UUID, forUpdate bool) (*models.Project, error) {
	query := `SELECT ` + pgProjectColumns + ` FROM school_projects WHERE id = $1 AND school_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := pgScanProject(t.q.QueryRow(ctx, query, id, schoolID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project %s: %w", id, err)
	}
	return p, nil
}

func (t *pgTx) UpdateProject(ctx context.Context, p models.Project) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE school_projects SET
			project_name = $3,
			status = $4,
			accomplishment_percentage = $5,
			status_as_of = NULLIF($6, '')::date,
			target_completion_date = NULLIF($7, '')::date,
			contractor_name = $8,
			allocation = $9,
			other_remarks = $10,
			updated_at = $11
		WHERE id = $1 AND school_id = $2`,
		p.ID, p.SchoolID, p.Name, string(p.Status), p.AccomplishmentPercentage,
		p.StatusAsOf, p.TargetCompletionDate, p.ContractorName, p.Allocation,
		p.OtherRemarks, p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update project %s: %w", p.ID, err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) AppendHistory(ctx context.Context, schoolID string, entry models.HistoryEntry) error {
	doc, err := encodeHistoryEntry(entry)
	if err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `
		UPDATE school_profiles
		SET history_logs = history_logs || jsonb_build_array($2::jsonb),
			updated_at = $3
		WHERE school_id = $1`,
		schoolID, doc, entry.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to append history for %s: %w", schoolID, err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func pgGetProfile(ctx context.Context, q pgxQuerier, schoolID string, forUpdate bool) (*models.Profile, error) {
	query := `SELECT ` + pgProfileColumns + ` FROM school_profiles WHERE school_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := pgScanProfile(q.QueryRow(ctx, query, schoolID))
	if err != nil {
		return nil, fmt.Errorf("failed to query profile %s: %w", schoolID, err)
	}
	return p, nil
}

// pgScanProfile returns nil, nil on no rows.
func pgScanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var lat, lng pgtype.Float8
	var enrollment, history []byte

	err := row.Scan(
		&p.SchoolID, &p.SchoolName,
		&p.Hierarchy.Region, &p.Hierarchy.Province, &p.Hierarchy.Municipality, &p.Hierarchy.Barangay,
		&p.Hierarchy.Division, &p.Hierarchy.District, &p.Hierarchy.LegislativeDistrict,
		&p.MotherSchoolID, &lat, &lng,
		&p.SubmittedBy, &p.SubmittedAt, &p.UpdatedAt,
		&enrollment, &history,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Latitude = float8Ptr(lat)
	p.Longitude = float8Ptr(lng)
	p.SubmittedAt = p.SubmittedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if err := decodeDocuments(&p, enrollment, history); err != nil {
		return nil, err
	}
	return &p, nil
}

func pgListProjects(ctx context.Context, q pgxQuerier, where string, args ...any) ([]models.Project, error) {
	rows, err := q.Query(ctx, `SELECT `+pgProjectColumns+` FROM school_projects `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := pgScanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func pgScanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	var status string
	var pct pgtype.Int4
	var allocation pgtype.Float8

	err := row.Scan(
		&p.ID, &p.SchoolID, &p.Name, &status, &pct,
		&p.StatusAsOf, &p.TargetCompletionDate,
		&p.ContractorName, &allocation, &p.OtherRemarks, &p.EngineerID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = models.ProjectStatus(status)
	if pct.Valid {
		v := int(pct.Int32)
		p.AccomplishmentPercentage = &v
	}
	p.Allocation = float8Ptr(allocation)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func float8Ptr(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
