package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/insighted/schoolprofile/internal/models"
)

// sqliteTimeLayout keeps stored timestamps sortable as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is the embedded ProfileStore. Open the database with
// database.OpenSQLite so write transactions take the lock at BEGIN.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a ProfileStore backed by db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlScanner interface {
	Scan(dest ...any) error
}

var sqliteSchema = []string{
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
		latitude             REAL,
		longitude            REAL,
		submitted_by         TEXT NOT NULL,
		submitted_at         TEXT NOT NULL,
		updated_at           TEXT NOT NULL,
		enrollment           TEXT NOT NULL DEFAULT '{}',
		history_logs         TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_school_profiles_submitted_by ON school_profiles (submitted_by)`,
	`CREATE TABLE IF NOT EXISTS school_projects (
		id                        TEXT PRIMARY KEY,
		school_id                 TEXT NOT NULL REFERENCES school_profiles (school_id),
		project_name              TEXT NOT NULL,
		status                    TEXT NOT NULL,
		accomplishment_percentage INTEGER,
		status_as_of              TEXT,
		target_completion_date    TEXT,
		contractor_name           TEXT NOT NULL DEFAULT '',
		allocation                REAL,
		other_remarks             TEXT NOT NULL DEFAULT '',
		engineer_id               TEXT NOT NULL DEFAULT '',
		created_at                TEXT NOT NULL,
		updated_at                TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_school_projects_school_id ON school_projects (school_id)`,
}

const sqliteProfileColumns = `school_id, school_name, region, province, municipality, barangay,
	division, district, legislative_district, mother_school_id, latitude, longitude,
	submitted_by, submitted_at, updated_at, enrollment, history_logs`

const sqliteProjectColumns = `id, school_id, project_name, status, accomplishment_percentage,
	COALESCE(status_as_of, ''), COALESCE(target_completion_date, ''),
	contractor_name, allocation, other_remarks, engineer_id, created_at, updated_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Exists(ctx context.Context, schoolID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM school_profiles WHERE school_id = ?)`, schoolID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check profile %s: %w", schoolID, err)
	}
	return exists, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, schoolID string) (*models.Profile, error) {
	return sqliteGetProfile(ctx, s.db, schoolID)
}

func (s *SQLiteStore) FindBySubmitter(ctx context.Context, submitter string) (*models.Profile, error) {
	query := `SELECT ` + sqliteProfileColumns + `
		FROM school_profiles
		WHERE submitted_by = ?
		ORDER BY updated_at DESC
		LIMIT 1`

	p, err := sqliteScanProfile(s.db.QueryRowContext(ctx, query, submitter))
	if err != nil {
		return nil, fmt.Errorf("failed to query profile by submitter: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListSummaries(ctx context.Context) ([]models.ProfileSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT school_id, school_name, region, division, submitted_by, submitted_at, updated_at, enrollment
		FROM school_profiles
		ORDER BY updated_at DESC, school_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []models.ProfileSummary{}
	for rows.Next() {
		var sum models.ProfileSummary
		var submittedAt, updatedAt string
		var enrollment []byte
		if err := rows.Scan(&sum.SchoolID, &sum.SchoolName, &sum.Region, &sum.Division,
			&sum.SubmittedBy, &submittedAt, &updatedAt, &enrollment); err != nil {
			return nil, fmt.Errorf("failed to scan profile summary: %w", err)
		}
		if sum.SubmittedAt, err = parseSQLiteTime(submittedAt); err != nil {
			return nil, err
		}
		if sum.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
			return nil, err
		}
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

func (s *SQLiteStore) RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.school_id, p.school_name, h.value
		FROM school_profiles AS p, json_each(p.history_logs) AS h
		ORDER BY json_extract(h.value, '$.timestamp') DESC, h.key DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

func (s *SQLiteStore) ListProjects(ctx context.Context, schoolID string) ([]models.Project, error) {
	return sqliteListProjects(ctx, s.db, `WHERE school_id = ?`, schoolID)
}

func (s *SQLiteStore) ListAllProjects(ctx context.Context) ([]models.Project, error) {
	return sqliteListProjects(ctx, s.db, ``)
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx ProfileTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&sqliteTx{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// sqliteTx implements ProfileTx. Row locks are unnecessary: the transaction
// already holds the database write lock.
type sqliteTx struct {
	q sqlQuerier
}

func (t *sqliteTx) GetProfile(ctx context.Context, schoolID string, _ bool) (*models.Profile, error) {
	return sqliteGetProfile(ctx, t.q, schoolID)
}

func (t *sqliteTx) UpsertProfile(ctx context.Context, f models.ProfileFields, submitter string, at time.Time) error {
	h := f.Hierarchy
	ts := formatSQLiteTime(at)
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO school_profiles (
			school_id, school_name, region, province, municipality, barangay,
			division, district, legislative_district, mother_school_id, latitude, longitude,
			submitted_by, submitted_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (school_id) DO UPDATE SET
			school_name          = excluded.school_name,
			region               = excluded.region,
			province             = excluded.province,
			municipality         = excluded.municipality,
			barangay             = excluded.barangay,
			division             = excluded.division,
			district             = excluded.district,
			legislative_district = excluded.legislative_district,
			mother_school_id     = excluded.mother_school_id,
			latitude             = excluded.latitude,
			longitude            = excluded.longitude,
			submitted_by         = excluded.submitted_by,
			updated_at           = excluded.updated_at`,
		f.SchoolID, f.SchoolName, h.Region, h.Province, h.Municipality, h.Barangay,
		h.Division, h.District, h.LegislativeDistrict, f.MotherSchoolID,
		nullFloat(f.Latitude), nullFloat(f.Longitude),
		submitter, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", f.SchoolID, err)
	}
	return nil
}

func (t *sqliteTx) SaveEnrollment(ctx context.Context, schoolID string, e models.Enrollment, at time.Time) error {
	doc, err := encodeEnrollment(e)
	if err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx,
		`UPDATE school_profiles SET enrollment = json(?), updated_at = ? WHERE school_id = ?`,
		doc, formatSQLiteTime(at), schoolID)
	if err != nil {
		return fmt.Errorf("failed to save enrollment for %s: %w", schoolID, err)
	}
	return expectOneRow(res)
}

func (t *sqliteTx) InsertProject(ctx context.Context, p models.Project) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO school_projects (
			id, school_id, project_name, status, accomplishment_percentage,
			status_as_of, target_completion_date, contractor_name, allocation, other_remarks,
			engineer_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.SchoolID, p.Name, string(p.Status), nullInt(p.AccomplishmentPercentage),
		p.StatusAsOf, p.TargetCompletionDate, p.ContractorName, nullFloat(p.Allocation),
		p.OtherRemarks, p.EngineerID, formatSQLiteTime(p.CreatedAt), formatSQLiteTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert project %s: %w", p.ID, err)
	}
	return nil
}

func (t *sqliteTx) GetProject(ctx context.Context, schoolID string, id uuid.UUID, _ bool) (*models.Project, error) {
	row := t.q.QueryRowContext(ctx,
		`SELECT `+sqliteProjectColumns+` FROM school_projects WHERE id = ? AND school_id = ?`,
		id.String(), schoolID)
	p, err := sqliteScanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project %s: %w", id, err)
	}
	return p, nil
}

func (t *sqliteTx) UpdateProject(ctx context.Context, p models.Project) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE school_projects SET
			project_name = ?,
			status = ?,
			accomplishment_percentage = ?,
			status_as_of = NULLIF(?, ''),
			target_completion_date = NULLIF(?, ''),
			contractor_name = ?,
			allocation = ?,
			other_remarks = ?,
			updated_at = ?
		WHERE id = ? AND school_id = ?`,
		p.Name, string(p.Status), nullInt(p.AccomplishmentPercentage),
		p.StatusAsOf, p.TargetCompletionDate, p.ContractorName, nullFloat(p.Allocation),
		p.OtherRemarks, formatSQLiteTime(p.UpdatedAt),
		p.ID.String(), p.SchoolID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project %s: %w", p.ID, err)
	}
	return expectOneRow(res)
}

func (t *sqliteTx) AppendHistory(ctx context.Context, schoolID string, entry models.HistoryEntry) error {
	doc, err := encodeHistoryEntry(entry)
	if err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx, `
		UPDATE school_profiles
		SET history_logs = json_insert(history_logs, '$[#]', json(?)),
			updated_at = ?
		WHERE school_id = ?`,
		doc, formatSQLiteTime(entry.Timestamp), schoolID)
	if err != nil {
		return fmt.Errorf("failed to append history for %s: %w", schoolID, err)
	}
	return expectOneRow(res)
}

func sqliteGetProfile(ctx context.Context, q sqlQuerier, schoolID string) (*models.Profile, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+sqliteProfileColumns+` FROM school_profiles WHERE school_id = ?`, schoolID)
	p, err := sqliteScanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile %s: %w", schoolID, err)
	}
	return p, nil
}

// sqliteScanProfile returns nil, nil on no rows.
func sqliteScanProfile(row sqlScanner) (*models.Profile, error) {
	var p models.Profile
	var lat, lng sql.NullFloat64
	var submittedAt, updatedAt string
	var enrollment, history []byte

	err := row.Scan(
		&p.SchoolID, &p.SchoolName,
		&p.Hierarchy.Region, &p.Hierarchy.Province, &p.Hierarchy.Municipality, &p.Hierarchy.Barangay,
		&p.Hierarchy.Division, &p.Hierarchy.District, &p.Hierarchy.LegislativeDistrict,
		&p.MotherSchoolID, &lat, &lng,
		&p.SubmittedBy, &submittedAt, &updatedAt,
		&enrollment, &history,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Latitude = floatPtr(lat)
	p.Longitude = floatPtr(lng)
	if p.SubmittedAt, err = parseSQLiteTime(submittedAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return nil, err
	}
	if err := decodeDocuments(&p, enrollment, history); err != nil {
		return nil, err
	}
	return &p, nil
}

func sqliteListProjects(ctx context.Context, q sqlQuerier, where string, args ...any) ([]models.Project, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+sqliteProjectColumns+` FROM school_projects `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []models.Project{}
	for rows.Next() {
		p, err := sqliteScanProject(rows)
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

func sqliteScanProject(row sqlScanner) (*models.Project, error) {
	var p models.Project
	var id, status, createdAt, updatedAt string
	var pct sql.NullInt64
	var allocation sql.NullFloat64

	err := row.Scan(
		&id, &p.SchoolID, &p.Name, &status, &pct,
		&p.StatusAsOf, &p.TargetCompletionDate,
		&p.ContractorName, &allocation, &p.OtherRemarks, &p.EngineerID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid project id %q: %w", id, err)
	}
	p.Status = models.ProjectStatus(status)
	if pct.Valid {
		v := int(pct.Int64)
		p.AccomplishmentPercentage = &v
	}
	p.Allocation = floatPtr(allocation)
	if p.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return ErrNotFound
	}
	return nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
