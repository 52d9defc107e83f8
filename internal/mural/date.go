package mural

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrNoDate = errors.New("no date")

// dateLayouts are tried in order. Go matches month names case-insensitively.
var dateLayouts = []string{
	"2006-1-2",
	"2.1.2006",
	"2/1/2006",
	"2006/1/2",
	"2006.1.2",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2 January, 2006",
}

// turkishMonths maps Turkish month names (with and without diacritics) to
// the English names the time package understands.
var turkishMonths = map[string]string{
	"ocak": "January", "şubat": "February", "subat": "February", "mart": "March",
	"nisan": "April", "mayıs": "May", "mayis": "May", "haziran": "June",
	"temmuz": "July", "ağustos": "August", "agustos": "August", "eylül": "September",
	"eylul": "September", "ekim": "October", "kasım": "November", "kasim": "November",
	"aralık": "December", "aralik": "December",
}

func translateMonths(s string) string {
	words := strings.Fields(cases.Lower(language.Turkish).String(s))
	changed := false
	for i, w := range words {
		trimmed := strings.TrimRight(w, ",")
		if en, ok := turkishMonths[trimmed]; ok {
			words[i] = en + w[len(trimmed):]
			changed = true
		}
	}
	if !changed {
		return s
	}
	return strings.Join(words, " ")
}

// ParseDate parses free-form date text into a UTC calendar date.
func ParseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, ErrNoDate
	}
	text = translateMonths(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
