package models

import "time"

const (
	SubjectJobCreated      = "jobs.created"
	SubjectRunReport       = "ingestion.runs"
	SubjectRecommendations = "recommendations.get"
	SubjectFavoriteAdded   = "favorites.add"
	SubjectFavoriteRemoved = "favorites.remove"
)

// JobCreatedEvent is published once per JobRecord, when the upsert created it.
type JobCreatedEvent struct {
	JobID     string    `json:"jobId"`
	SourceID  string    `json:"sourceId"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	Location  string    `json:"location"`
	Query     string    `json:"query"`
	Page      int       `json:"page"`
	RawData   string    `json:"rawData"`
	CreatedAt time.Time `json:"createdAt"`
}

// RunReport summarises one ingestion run once it reached Done or Aborted.
type RunReport struct {
	RunID          string    `json:"runId"`
	Query          string    `json:"query"`
	FirstPage      int       `json:"firstPage"`
	LastPage       int       `json:"lastPage"`
	PagesFetched   int       `json:"pagesFetched"`
	PagesFromCache int       `json:"pagesFromCache"`
	PagesFailed    int       `json:"pagesFailed"`
	RateLimited    int       `json:"rateLimited"`
	Created        int       `json:"created"`
	Existing       int       `json:"existing"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	FinalState     string    `json:"finalState"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// RecommendationRequest is the payload of a recommendations.get request.
type RecommendationRequest struct {
	UserID string `json:"userId"`
}

// FavoriteRequest is the payload of favorites.add and favorites.remove.
// Job is only read by favorites.add, JobID only by favorites.remove.
type FavoriteRequest struct {
	UserID   string    `json:"userId"`
	SourceID string    `json:"sourceId,omitempty"`
	JobID    string    `json:"jobId,omitempty"`
	Job      JobRecord `json:"job,omitempty"`
}

// Reply wraps request-reply responses sent over NATS.
type Reply struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}
