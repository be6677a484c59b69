package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nathangreen1632/CareerGistPRO/common/cache"
)

// SearchQuery identifies one upstream search; a run walks its pages.
type SearchQuery struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Radius   int    `json:"radius"`
}

func (q SearchQuery) String() string {
	return fmt.Sprintf("%s@%s~%d", q.Title, q.Location, q.Radius)
}

// CacheKey is the result cache key of one page of q.
func (q SearchQuery) CacheKey(page int) string {
	return cache.Key("jobs", q.Title, q.Location, strconv.Itoa(q.Radius), strconv.Itoa(page))
}

// Page is one upstream search response page.
type Page struct {
	Results []RawListing `json:"results"`
	Count   int          `json:"count"`
}

func (p Page) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

func (p *Page) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, p)
}

// RawListing mirrors a single Adzuna result. Every field is optional
// upstream; defaults are applied once, in the normalize package.
type RawListing struct {
	ID                FlexString   `json:"id"`
	Title             *string      `json:"title,omitempty"`
	Description       *string      `json:"description,omitempty"`
	Company           *RawCompany  `json:"company,omitempty"`
	Location          *RawLocation `json:"location,omitempty"`
	RedirectURL       *string      `json:"redirect_url,omitempty"`
	Created           *string      `json:"created,omitempty"`
	SalaryMin         *float64     `json:"salary_min,omitempty"`
	SalaryMax         *float64     `json:"salary_max,omitempty"`
	SalaryIsPredicted FlexString   `json:"salary_is_predicted,omitempty"`
	Category          *RawCategory `json:"category,omitempty"`
}

type RawCompany struct {
	DisplayName *string `json:"display_name,omitempty"`
	Logo        *string `json:"logo,omitempty"`
}

type RawLocation struct {
	DisplayName *string  `json:"display_name,omitempty"`
	Area        []string `json:"area,omitempty"`
}

type RawCategory struct {
	Tag   *string `json:"tag,omitempty"`
	Label *string `json:"label,omitempty"`
}

// FlexString accepts a JSON string or number. Adzuna has sent both for ids
// and the salary_is_predicted flag.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*s = FlexString(num.String())
	return nil
}
