// Package normalize turns loosely shaped upstream listings into the fields
// stored by the job store. All defaulting happens here.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/nathangreen1632/CareerGistPRO/common/jobstore"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/models"
)

const (
	UnknownTitle    = "No title provided"
	UnknownCompany  = "Unknown Company"
	UnknownLocation = "Unknown Location"

	SalaryPredicted = "predicted"
	SalaryActual    = "actual"

	summaryLength = 250
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	dashPattern       = regexp.MustCompile(`[\x{2013}\x{2014}\x{2015}]`)
)

// Listing is a normalized upstream result ready for UpsertIfAbsent.
type Listing struct {
	SourceID string
	Fields   jobstore.Fields
}

// Normalize applies the defaulting rules to raw. ok is false when the
// listing has no id and therefore cannot be deduplicated.
func Normalize(raw models.RawListing) (Listing, bool) {
	sourceID := strings.TrimSpace(string(raw.ID))
	if sourceID == "" {
		return Listing{}, false
	}

	description := normalizeText(deref(raw.Description))

	fields := jobstore.Fields{
		Title:        orDefault(normalizeText(deref(raw.Title)), UnknownTitle),
		Company:      UnknownCompany,
		Location:     UnknownLocation,
		Description:  description,
		Summary:      summarize(description, summaryLength),
		ApplyURL:     strings.TrimSpace(deref(raw.RedirectURL)),
		PostedAt:     parseTime(deref(raw.Created)),
		SalaryMin:    raw.SalaryMin,
		SalaryMax:    raw.SalaryMax,
		SalaryPeriod: SalaryActual,
		Benefits:     []string{},
	}

	if raw.Company != nil {
		fields.Company = orDefault(normalizeText(deref(raw.Company.DisplayName)), UnknownCompany)
		fields.LogoURL = strings.TrimSpace(deref(raw.Company.Logo))
	}
	if raw.Location != nil {
		fields.Location = orDefault(normalizeText(deref(raw.Location.DisplayName)), UnknownLocation)
	}
	if strings.TrimSpace(string(raw.SalaryIsPredicted)) == "1" {
		fields.SalaryPeriod = SalaryPredicted
	}
	if raw.Category != nil {
		if tag := strings.TrimSpace(deref(raw.Category.Tag)); tag != "" {
			fields.Benefits = []string{tag}
		}
	}

	return Listing{SourceID: sourceID, Fields: fields}, true
}

func normalizeText(text string) string {
	text = dashPattern.ReplaceAllString(text, "-")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// summarize returns the first n runes of text.
func summarize(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return strings.TrimSpace(string(runes[:n]))
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
