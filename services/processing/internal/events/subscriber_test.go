package events

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/common/errors"
	"github.com/nathangreen1632/CareerGistPRO/common/jobstore"
	"github.com/nathangreen1632/CareerGistPRO/common/models"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/config"
)

type fakeArchiver struct {
	jobs, runs [][]byte
	err        error
}

func (a *fakeArchiver) ProcessJobCreated(_ context.Context, data []byte) error {
	a.jobs = append(a.jobs, data)
	return a.err
}

func (a *fakeArchiver) ProcessRunReport(_ context.Context, data []byte) error {
	a.runs = append(a.runs, data)
	return a.err
}

type fakeRecommender struct {
	userID string
}

func (r *fakeRecommender) RecommendForUser(_ context.Context, userID string) []models.ScoredCandidate {
	r.userID = userID
	return []models.ScoredCandidate{{Job: models.JobRecord{ID: "j1"}, Score: 42}}
}

type fakeFavorites struct {
	sourceID string
	fields   jobstore.Fields
	removed  string
	err      error
}

func (f *fakeFavorites) Favorite(_ context.Context, userID, sourceID string, fields jobstore.Fields) (*models.JobRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sourceID = sourceID
	f.fields = fields
	return &models.JobRecord{ID: "j9", SourceID: sourceID, Title: fields.Title, Saved: true}, nil
}

func (f *fakeFavorites) Unfavorite(_ context.Context, userID, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = jobID
	return nil
}

func newTestHandler() (*Handler, *fakeArchiver, *fakeRecommender, *fakeFavorites) {
	a, r, f := &fakeArchiver{}, &fakeRecommender{}, &fakeFavorites{}
	return &Handler{
		logger:      zap.NewNop(),
		tracer:      telemetry.GetTracer("test"),
		config:      &config.Config{RequestTimeout: time.Second, NATSQueueGroup: "test"},
		archiver:    a,
		recommender: r,
		favorites:   f,
	}, a, r, f
}

func TestRecommend(t *testing.T) {
	h, _, r, _ := newTestHandler()

	reply := h.recommend(context.Background(), []byte(`{"userId":"u1"}`))

	assert.Empty(t, reply.Error)
	assert.Equal(t, "u1", r.userID)
	candidates, ok := reply.Data.([]models.ScoredCandidate)
	require.True(t, ok)
	assert.Equal(t, 42, candidates[0].Score)
}

func TestRecommend_RejectsBadRequests(t *testing.T) {
	h, _, r, _ := newTestHandler()

	assert.NotEmpty(t, h.recommend(context.Background(), []byte(`{}`)).Error)
	assert.NotEmpty(t, h.recommend(context.Background(), []byte(`nope`)).Error)
	assert.Empty(t, r.userID)
}

func TestAddFavorite(t *testing.T) {
	h, _, _, f := newTestHandler()

	reply := h.addFavorite(context.Background(), []byte(`{
		"userId": "u1",
		"job": {"sourceId": "adz-7", "title": "Platform Engineer", "location": "Austin, TX", "benefits": ["it-jobs"]}
	}`))

	assert.Empty(t, reply.Error)
	assert.Equal(t, "adz-7", f.sourceID)
	assert.Equal(t, "Platform Engineer", f.fields.Title)
	assert.Equal(t, []string{"it-jobs"}, f.fields.Benefits)
	job, ok := reply.Data.(*models.JobRecord)
	require.True(t, ok)
	assert.Equal(t, "j9", job.ID)
}

func TestAddFavorite_PropagatesErrors(t *testing.T) {
	h, _, _, f := newTestHandler()
	f.err = errors.InvalidInput("source id is required", nil)

	reply := h.addFavorite(context.Background(), []byte(`{"userId":"u1"}`))

	assert.Contains(t, reply.Error, "INVALID_INPUT")
	assert.Nil(t, reply.Data)
}

func TestRemoveFavorite(t *testing.T) {
	h, _, _, f := newTestHandler()

	reply := h.removeFavorite(context.Background(), []byte(`{"userId":"u1","jobId":"j9"}`))

	assert.Empty(t, reply.Error)
	assert.Equal(t, "j9", f.removed)
}

func TestHandleJobCreated(t *testing.T) {
	h, a, _, _ := newTestHandler()

	h.handleJobCreated(&nats.Msg{Subject: models.SubjectJobCreated, Data: []byte(`{"jobId":"j1"}`)})
	h.handleRunReport(&nats.Msg{Subject: models.SubjectRunReport, Data: []byte(`{"runId":"r1"}`)})

	require.Len(t, a.jobs, 1)
	require.Len(t, a.runs, 1)
	assert.JSONEq(t, `{"jobId":"j1"}`, string(a.jobs[0]))
}

func TestHandleJobCreated_ErrorIsSwallowed(t *testing.T) {
	h, a, _, _ := newTestHandler()
	a.err = stderrors.New("clickhouse down")

	assert.NotPanics(t, func() {
		h.handleJobCreated(&nats.Msg{Subject: models.SubjectJobCreated, Data: []byte(`{}`)})
	})
}

func TestMessageAttributes(t *testing.T) {
	attrs := messageAttributes(&nats.Msg{
		Subject: models.SubjectRecommendations,
		Reply:   "_INBOX.abc",
		Data:    []byte(`{"userId":"u1"}`),
	})

	require.Len(t, attrs, 3)
	assert.Equal(t, "nats.subject", string(attrs[0].Key))
	assert.Equal(t, models.SubjectRecommendations, attrs[0].Value.AsString())
	assert.Equal(t, int64(15), attrs[1].Value.AsInt64())
	assert.True(t, attrs[2].Value.AsBool())

	attrs = messageAttributes(&nats.Msg{Subject: models.SubjectJobCreated})
	assert.False(t, attrs[2].Value.AsBool())
}
