package signals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nathangreen1632/CareerGistPRO/common/models"
)

const invalidTextRepresentation = "22P02"

// PostgresSnapshots stores signals in the favorites table (see migration 002).
type PostgresSnapshots struct {
	pool *pgxpool.Pool
}

func NewPostgresSnapshots(pool *pgxpool.Pool) *PostgresSnapshots {
	return &PostgresSnapshots{pool: pool}
}

func (s *PostgresSnapshots) Insert(ctx context.Context, signal models.AffinitySignal) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO favorites (user_id, job_id, title, company, location, description, summary,
		                        salary_min, salary_max, salary_period, created_at)
		 VALUES ($1, $2::uuid, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (user_id, job_id) DO NOTHING`,
		signal.UserID, signal.JobID, signal.Title, signal.Company, signal.Location,
		signal.Description, signal.Summary, signal.SalaryMin, signal.SalaryMax,
		signal.SalaryPeriod, signal.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert favorite: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresSnapshots) Delete(ctx context.Context, userID, jobID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND job_id = $2::uuid`, userID, jobID)
	if isInvalidUUID(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresSnapshots) ListByUser(ctx context.Context, userID string) ([]models.AffinitySignal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, job_id::text, title, company, location, description, summary,
		        salary_min, salary_max, salary_period, created_at
		 FROM favorites
		 WHERE user_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}

	signals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.AffinitySignal, error) {
		var s models.AffinitySignal
		err := row.Scan(&s.UserID, &s.JobID, &s.Title, &s.Company, &s.Location, &s.Description,
			&s.Summary, &s.SalaryMin, &s.SalaryMax, &s.SalaryPeriod, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan favorites: %w", err)
	}
	return signals, nil
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
