package lake

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseDate attempts to parse a plant date into a time.Time.
// Returns time.Time{} (zero value) if parsing fails.
func ParseDate(text string) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t
		}
	}

	return time.Time{}
}

// Time returns the parsed plant date, or the zero time if it cannot be parsed
func (p *Plant) Time() time.Time {
	return ParseDate(p.Date)
}
