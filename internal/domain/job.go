package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID is assigned by the record store on creation. The store emits it as a
// number or a string depending on how the record was created.
type ID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Job is one tracked job application.
type Job struct {
	ID          ID     `json:"id,omitempty"`
	// NumericID records that the store sent the id as a JSON number, so it
	// can be written back with the same type.
	NumericID   bool   `json:"-"`
	Role        string `json:"role"`
	CompanyName string `json:"companyName"`
	Location    string `json:"location"`
	Status      Status `json:"status"`
	DateApplied string `json:"dateApplied"`
	Details     string `json:"details"`
}

// DatePlaceholder is shown wherever dateApplied is empty or unparsable.
const DatePlaceholder = "No Date"

// DateLayout is the format written for new applications.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate parses the ISO-8601 forms the store holds.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AppliedAt returns the parsed application date.
func (j Job) AppliedAt() (time.Time, bool) {
	return ParseDate(j.DateApplied)
}

// FormatDate renders raw for display, falling back to DatePlaceholder.
func FormatDate(raw string) string {
	t, ok := ParseDate(raw)
	if !ok {
		return DatePlaceholder
	}
	return t.Format("Jan 2, 2006")
}

// DateInput renders raw as the value of a date input field.
func DateInput(raw string) string {
	t, ok := ParseDate(raw)
	if !ok {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
