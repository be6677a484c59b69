package jobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	apperrors "github.com/nathangreen1632/CareerGistPRO/common/errors"
	"github.com/nathangreen1632/CareerGistPRO/common/models"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

const pgJobColumns = `id::text, source_id, title, company, location, description, summary,
	apply_url, logo_url, posted_at, salary_min, salary_max, salary_period, benefits, saved, created_at`

// Postgres implements Gateway on the jobs table (see migration 001).
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger, now: time.Now}
}

func (p *Postgres) FindBySourceID(ctx context.Context, sourceID string) (*models.JobRecord, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgJobColumns+` FROM jobs WHERE source_id = $1`, normalizeSourceID(sourceID))
	return scanPgJob(row)
}

func (p *Postgres) FindByID(ctx context.Context, id string) (*models.JobRecord, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgJobColumns+` FROM jobs WHERE id = $1::uuid`, id)
	job, err := scanPgJob(row)
	if isInvalidUUID(err) {
		return nil, ErrNotFound
	}
	return job, err
}

func (p *Postgres) UpsertIfAbsent(ctx context.Context, sourceID string, fields Fields) (*models.JobRecord, UpsertOutcome, error) {
	sourceID = normalizeSourceID(sourceID)
	if sourceID == "" {
		return nil, 0, apperrors.InvalidInput("source id is required", nil)
	}

	existing, err := p.FindBySourceID(ctx, sourceID)
	if err == nil {
		return existing, AlreadyExisted, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, 0, fmt.Errorf("lookup %q: %w", sourceID, err)
	}

	rec := newRecord(sourceID, fields, p.now())
	row := p.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, source_id, title, company, location, description, summary,
		                   apply_url, logo_url, posted_at, salary_min, salary_max, salary_period,
		                   benefits, saved, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (source_id) DO NOTHING
		 RETURNING `+pgJobColumns,
		rec.ID, rec.SourceID, rec.Title, rec.Company, rec.Location, rec.Description, rec.Summary,
		rec.ApplyURL, rec.LogoURL, rec.PostedAt, rec.SalaryMin, rec.SalaryMax, rec.SalaryPeriod,
		rec.Benefits, rec.Saved, rec.CreatedAt,
	)

	created, err := scanPgJob(row)
	if err == nil {
		return created, Created, nil
	}
	if !errors.Is(err, ErrNotFound) && !isUniqueViolation(err) {
		return nil, 0, fmt.Errorf("insert %q: %w", sourceID, err)
	}

	// Another writer inserted the same source id between the lookup and the insert.
	p.logger.Debug("concurrent insert detected, returning existing job",
		zap.String("source_id", sourceID))

	existing, err = p.FindBySourceID(ctx, sourceID)
	if err != nil {
		return nil, 0, fmt.Errorf("refetch %q: %w", sourceID, err)
	}
	return existing, AlreadyExisted, nil
}

func (p *Postgres) ListUnseen(ctx context.Context, limit int) ([]models.JobRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+pgJobColumns+`
		 FROM jobs
		 WHERE saved = false
		 ORDER BY created_at DESC, id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listUnseen query: %w", err)
	}
	defer rows.Close()

	jobs := make([]models.JobRecord, 0, limit)
	for rows.Next() {
		job, err := scanPgJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listUnseen scan: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (p *Postgres) MarkSaved(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE jobs SET saved = true WHERE id = $1::uuid`, id)
	if isInvalidUUID(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("markSaved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPgJob(row pgx.Row) (*models.JobRecord, error) {
	var j models.JobRecord
	err := row.Scan(
		&j.ID, &j.SourceID, &j.Title, &j.Company, &j.Location, &j.Description, &j.Summary,
		&j.ApplyURL, &j.LogoURL, &j.PostedAt, &j.SalaryMin, &j.SalaryMax, &j.SalaryPeriod,
		&j.Benefits, &j.Saved, &j.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if j.Benefits == nil {
		j.Benefits = []string{}
	}
	return &j, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// isInvalidUUID reports a malformed id rejected by the ::uuid cast. No row can
// match such an id.
func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
