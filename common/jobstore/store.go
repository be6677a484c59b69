// Package jobstore is the only write path for JobRecords. Uniqueness of
// source_id is enforced by the storage layer; UpsertIfAbsent turns a lost
// insert race into an AlreadyExisted outcome instead of an error.
package jobstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nathangreen1632/CareerGistPRO/common/models"
)

var ErrNotFound = errors.New("job not found")

// UpsertOutcome tells the caller whether UpsertIfAbsent created the record.
type UpsertOutcome int

const (
	Created UpsertOutcome = iota + 1
	AlreadyExisted
)

func (o UpsertOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExisted:
		return "already_existed"
	default:
		return "unknown"
	}
}

// Fields are the caller-supplied attributes of a new record. Zero values are
// stored as empty strings, NULL numerics and an empty benefits list.
type Fields struct {
	Title        string
	Company      string
	Location     string
	Description  string
	Summary      string
	ApplyURL     string
	LogoURL      string
	PostedAt     *time.Time
	SalaryMin    *float64
	SalaryMax    *float64
	SalaryPeriod string
	Benefits     []string
	Saved        bool
}

type Gateway interface {
	FindBySourceID(ctx context.Context, sourceID string) (*models.JobRecord, error)
	FindByID(ctx context.Context, id string) (*models.JobRecord, error)
	UpsertIfAbsent(ctx context.Context, sourceID string, fields Fields) (*models.JobRecord, UpsertOutcome, error)
	// ListUnseen returns up to limit records with saved = false, newest first.
	ListUnseen(ctx context.Context, limit int) ([]models.JobRecord, error)
	MarkSaved(ctx context.Context, id string) error
}

// newRecord builds the row UpsertIfAbsent will try to insert.
func newRecord(sourceID string, f Fields, now time.Time) models.JobRecord {
	benefits := f.Benefits
	if benefits == nil {
		benefits = []string{}
	}
	return models.JobRecord{
		ID:           uuid.NewString(),
		SourceID:     sourceID,
		Title:        f.Title,
		Company:      f.Company,
		Location:     f.Location,
		Description:  f.Description,
		Summary:      f.Summary,
		ApplyURL:     f.ApplyURL,
		LogoURL:      f.LogoURL,
		PostedAt:     f.PostedAt,
		SalaryMin:    f.SalaryMin,
		SalaryMax:    f.SalaryMax,
		SalaryPeriod: f.SalaryPeriod,
		Benefits:     benefits,
		Saved:        f.Saved,
		CreatedAt:    now.UTC(),
	}
}

func normalizeSourceID(sourceID string) string {
	return strings.TrimSpace(sourceID)
}
