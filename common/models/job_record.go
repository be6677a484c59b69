// Package models holds the records shared by the ingestion and processing services.
package models

import "time"

// JobRecord is the canonical, deduplicated form of one upstream listing.
// SourceID is unique across the store.
type JobRecord struct {
	ID           string     `json:"id"`
	SourceID     string     `json:"sourceId"`
	Title        string     `json:"title"`
	Company      string     `json:"company"`
	Location     string     `json:"location"`
	Description  string     `json:"description"`
	Summary      string     `json:"summary"`
	ApplyURL     string     `json:"applyUrl"`
	LogoURL      string     `json:"logoUrl,omitempty"`
	PostedAt     *time.Time `json:"postedAt,omitempty"`
	SalaryMin    *float64   `json:"salaryMin"`
	SalaryMax    *float64   `json:"salaryMax"`
	SalaryPeriod string     `json:"salaryPeriod,omitempty"`
	Benefits     []string   `json:"benefits"`
	Saved        bool       `json:"saved"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// AffinitySignal is a snapshot of a job taken when a user favorited it.
// It is not updated when the JobRecord changes later.
type AffinitySignal struct {
	UserID       string    `json:"userId"`
	JobID        string    `json:"jobId"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	Summary      string    `json:"summary"`
	SalaryMin    *float64  `json:"salaryMin"`
	SalaryMax    *float64  `json:"salaryMax"`
	SalaryPeriod string    `json:"salaryPeriod,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SnapshotOf copies the scoring-relevant fields of job into a signal for userID.
func SnapshotOf(userID string, job JobRecord) AffinitySignal {
	return AffinitySignal{
		UserID:       userID,
		JobID:        job.ID,
		Title:        job.Title,
		Company:      job.Company,
		Location:     job.Location,
		Description:  job.Description,
		Summary:      job.Summary,
		SalaryMin:    job.SalaryMin,
		SalaryMax:    job.SalaryMax,
		SalaryPeriod: job.SalaryPeriod,
	}
}

// ScoredCandidate is a recommendation result. Score is in [0,100].
type ScoredCandidate struct {
	Job   JobRecord `json:"job"`
	Score int       `json:"score"`
}
