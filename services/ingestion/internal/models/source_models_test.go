package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawListingDecodesLooseIDs(t *testing.T) {
	payload := `{"results":[
		{"id":"4011","title":"Go Developer","salary_is_predicted":"1"},
		{"id":4012,"salary_is_predicted":0,"company":{"display_name":"Acme"}},
		{"id":null}
	],"count":3}`

	var page Page
	require.NoError(t, json.Unmarshal([]byte(payload), &page))
	require.Len(t, page.Results, 3)

	assert.Equal(t, FlexString("4011"), page.Results[0].ID)
	assert.Equal(t, "Go Developer", *page.Results[0].Title)
	assert.Equal(t, FlexString("1"), page.Results[0].SalaryIsPredicted)

	assert.Equal(t, FlexString("4012"), page.Results[1].ID)
	assert.Nil(t, page.Results[1].Title)
	assert.Equal(t, "Acme", *page.Results[1].Company.DisplayName)

	assert.Equal(t, FlexString(""), page.Results[2].ID)
	assert.Equal(t, 3, page.Count)
}

func TestRawListingRejectsObjectID(t *testing.T) {
	var page Page
	err := json.Unmarshal([]byte(`{"results":[{"id":{"nested":true}}]}`), &page)
	assert.Error(t, err)
}

func TestSearchQueryCacheKey(t *testing.T) {
	q := SearchQuery{Title: "Full Stack Engineer", Location: "United States", Radius: 25}
	assert.Equal(t, "jobs:full stack engineer:united states:25:7", q.CacheKey(7))
	assert.NotEqual(t, q.CacheKey(1), q.CacheKey(2))
}
