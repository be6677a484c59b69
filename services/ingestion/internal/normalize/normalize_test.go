package normalize

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/models"
)

func decode(t *testing.T, payload string) models.RawListing {
	t.Helper()
	var raw models.RawListing
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	return raw
}

func TestNormalize_FullListing(t *testing.T) {
	raw := decode(t, `{
		"id": "5012345",
		"title": "Backend  Engineer – Platform",
		"description": "Python,\n kubernetes   microservices",
		"company": {"display_name": "Acme", "logo": "https://img/acme.png"},
		"location": {"display_name": "Austin, TX", "area": ["US", "Texas", "Austin"]},
		"redirect_url": "https://adzuna.example/r/1",
		"created": "2025-05-01T10:00:00Z",
		"salary_min": 100000,
		"salary_max": 140000,
		"salary_is_predicted": "1",
		"category": {"tag": "it-jobs", "label": "IT Jobs"}
	}`)

	listing, ok := Normalize(raw)
	require.True(t, ok)
	assert.Equal(t, "5012345", listing.SourceID)

	f := listing.Fields
	assert.Equal(t, "Backend Engineer - Platform", f.Title)
	assert.Equal(t, "Acme", f.Company)
	assert.Equal(t, "https://img/acme.png", f.LogoURL)
	assert.Equal(t, "Austin, TX", f.Location)
	assert.Equal(t, "Python, kubernetes microservices", f.Description)
	assert.Equal(t, f.Description, f.Summary)
	assert.Equal(t, "https://adzuna.example/r/1", f.ApplyURL)
	require.NotNil(t, f.PostedAt)
	assert.True(t, f.PostedAt.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 100000.0, *f.SalaryMin)
	assert.Equal(t, 140000.0, *f.SalaryMax)
	assert.Equal(t, SalaryPredicted, f.SalaryPeriod)
	assert.Equal(t, []string{"it-jobs"}, f.Benefits)
	assert.False(t, f.Saved)
}

func TestNormalize_Fallbacks(t *testing.T) {
	listing, ok := Normalize(decode(t, `{"id": 77, "company": {}, "salary_is_predicted": 0}`))
	require.True(t, ok)

	f := listing.Fields
	assert.Equal(t, "77", listing.SourceID)
	assert.Equal(t, UnknownTitle, f.Title)
	assert.Equal(t, UnknownCompany, f.Company)
	assert.Equal(t, UnknownLocation, f.Location)
	assert.Equal(t, "", f.Description)
	assert.Equal(t, "", f.Summary)
	assert.Nil(t, f.PostedAt)
	assert.Nil(t, f.SalaryMin)
	assert.Equal(t, SalaryActual, f.SalaryPeriod)
	assert.Equal(t, []string{}, f.Benefits)
}

func TestNormalize_MissingIDIsRejected(t *testing.T) {
	_, ok := Normalize(decode(t, `{"title": "Orphan"}`))
	assert.False(t, ok)

	_, ok = Normalize(decode(t, `{"id": "   "}`))
	assert.False(t, ok)
}

func TestNormalize_SummaryIsTruncated(t *testing.T) {
	long := strings.Repeat("é", 300)
	listing, ok := Normalize(models.RawListing{ID: "1", Description: &long})
	require.True(t, ok)
	assert.Equal(t, 250, len([]rune(listing.Fields.Summary)))
	assert.Equal(t, 300, len([]rune(listing.Fields.Description)))
}

func TestNormalize_UnparseableDate(t *testing.T) {
	created := "last tuesday"
	listing, ok := Normalize(models.RawListing{ID: "1", Created: &created})
	require.True(t, ok)
	assert.Nil(t, listing.Fields.PostedAt)
}
