package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/nathangreen1632/CareerGistPRO/common/errors"
	"github.com/nathangreen1632/CareerGistPRO/common/models"
)

// Fixed width so that lexical order on the TEXT column is chronological.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS jobs (
		id            TEXT PRIMARY KEY,
		source_id     TEXT NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		company       TEXT NOT NULL DEFAULT '',
		location      TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		summary       TEXT NOT NULL DEFAULT '',
		apply_url     TEXT NOT NULL DEFAULT '',
		logo_url      TEXT NOT NULL DEFAULT '',
		posted_at     TEXT,
		salary_min    REAL,
		salary_max    REAL,
		salary_period TEXT NOT NULL DEFAULT '',
		benefits      TEXT NOT NULL DEFAULT '[]',
		saved         INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		CONSTRAINT jobs_source_id_key UNIQUE (source_id)
	);
	CREATE INDEX IF NOT EXISTS jobs_unseen_recent_idx ON jobs (saved, created_at DESC, id);
`

const sqliteJobColumns = `id, source_id, title, company, location, description, summary,
	apply_url, logo_url, posted_at, salary_min, salary_max, salary_period, benefits, saved, created_at`

// SQLite implements Gateway on an embedded database file. It is used for
// local runs without Postgres.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// SQLite allows a single writer; serialize at the pool instead of retrying SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	logger.Info("opened sqlite job store", zap.String("path", path))
	return &SQLite{db: db, logger: logger, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) FindBySourceID(ctx context.Context, sourceID string) (*models.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteJobColumns+` FROM jobs WHERE source_id = ?`, normalizeSourceID(sourceID))
	return scanSQLiteJob(row)
}

func (s *SQLite) FindByID(ctx context.Context, id string) (*models.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteJobColumns+` FROM jobs WHERE id = ?`, id)
	return scanSQLiteJob(row)
}

func (s *SQLite) UpsertIfAbsent(ctx context.Context, sourceID string, fields Fields) (*models.JobRecord, UpsertOutcome, error) {
	sourceID = normalizeSourceID(sourceID)
	if sourceID == "" {
		return nil, 0, apperrors.InvalidInput("source id is required", nil)
	}

	existing, err := s.FindBySourceID(ctx, sourceID)
	if err == nil {
		return existing, AlreadyExisted, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, 0, fmt.Errorf("lookup %q: %w", sourceID, err)
	}

	rec := newRecord(sourceID, fields, s.now())
	benefits, err := json.Marshal(rec.Benefits)
	if err != nil {
		return nil, 0, fmt.Errorf("encode benefits: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO jobs (`+sqliteJobColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_id) DO NOTHING
		 RETURNING `+sqliteJobColumns,
		rec.ID, rec.SourceID, rec.Title, rec.Company, rec.Location, rec.Description, rec.Summary,
		rec.ApplyURL, rec.LogoURL, formatNullTime(rec.PostedAt), rec.SalaryMin, rec.SalaryMax, rec.SalaryPeriod,
		string(benefits), rec.Saved, rec.CreatedAt.Format(sqliteTimeLayout),
	)

	created, err := scanSQLiteJob(row)
	if err == nil {
		return created, Created, nil
	}
	if !errors.Is(err, ErrNotFound) && !isSQLiteUniqueViolation(err) {
		return nil, 0, fmt.Errorf("insert %q: %w", sourceID, err)
	}

	s.logger.Debug("concurrent insert detected, returning existing job",
		zap.String("source_id", sourceID))

	existing, err = s.FindBySourceID(ctx, sourceID)
	if err != nil {
		return nil, 0, fmt.Errorf("refetch %q: %w", sourceID, err)
	}
	return existing, AlreadyExisted, nil
}

func (s *SQLite) ListUnseen(ctx context.Context, limit int) ([]models.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteJobColumns+`
		 FROM jobs
		 WHERE saved = 0
		 ORDER BY created_at DESC, id
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listUnseen query: %w", err)
	}
	defer rows.Close()

	jobs := make([]models.JobRecord, 0, limit)
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listUnseen scan: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (s *SQLite) MarkSaved(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET saved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("markSaved: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("markSaved: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row rowScanner) (*models.JobRecord, error) {
	var (
		j         models.JobRecord
		postedAt  sql.NullString
		salaryMin sql.NullFloat64
		salaryMax sql.NullFloat64
		benefits  string
		createdAt string
	)
	err := row.Scan(
		&j.ID, &j.SourceID, &j.Title, &j.Company, &j.Location, &j.Description, &j.Summary,
		&j.ApplyURL, &j.LogoURL, &postedAt, &salaryMin, &salaryMax, &j.SalaryPeriod,
		&benefits, &j.Saved, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if postedAt.Valid {
		if t, err := time.Parse(sqliteTimeLayout, postedAt.String); err == nil {
			j.PostedAt = &t
		}
	}
	if salaryMin.Valid {
		j.SalaryMin = &salaryMin.Float64
	}
	if salaryMax.Valid {
		j.SalaryMax = &salaryMax.Float64
	}
	if err := json.Unmarshal([]byte(benefits), &j.Benefits); err != nil {
		return nil, fmt.Errorf("decode benefits: %w", err)
	}
	if j.Benefits == nil {
		j.Benefits = []string{}
	}
	if j.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	return &j, nil
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(sqliteTimeLayout), Valid: true}
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
