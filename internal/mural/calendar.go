package mural

import (
	"net/url"
	"strings"
	"time"
)

// CalendarLinkUnavailable is returned instead of a URL when the date cannot
// be parsed. It is not navigable.
const CalendarLinkUnavailable = "#"

const calendarBaseURL = "https://calendar.google.com/calendar/render"

const calendarDateLayout = "20060102"

// CalendarLink builds a hosted-calendar "quick add" URL for an all-day event
// on the given date.
func CalendarLink(title, date, details string) string {
	d, err := ParseDate(date)
	if err != nil {
		return CalendarLinkUnavailable
	}
	return calendarLinkForDate(title, d, details)
}

func calendarLinkForDate(title string, d time.Time, details string) string {
	// The end date is exclusive for all-day events.
	start := d.Format(calendarDateLayout)
	end := d.AddDate(0, 0, 1).Format(calendarDateLayout)

	var b strings.Builder
	b.WriteString(calendarBaseURL)
	b.WriteString("?action=TEMPLATE&text=")
	b.WriteString(escapeComponent(title))
	b.WriteString("&dates=")
	b.WriteString(start)
	b.WriteByte('/')
	b.WriteString(end)
	b.WriteString("&details=")
	b.WriteString(escapeComponent(details))
	return b.String()
}

func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// CalendarDetails is the event description built from the record.
func (r Record) CalendarDetails() string {
	var lines []string
	if r.Notes != "" {
		lines = append(lines, r.Notes)
	}
	if r.Budget != "" {
		lines = append(lines, ColumnBudget+": "+r.Budget)
	}
	if r.Location != "" {
		lines = append(lines, ColumnLocation+": "+r.Location)
	}
	if r.Link != "" {
		lines = append(lines, ColumnLink+": "+r.Link)
	}
	return strings.Join(lines, "\n")
}

// CalendarLink returns the calendar URL for the record, or
// CalendarLinkUnavailable when it has no usable date.
func (r Record) CalendarLink() string {
	if r.Date == nil {
		return CalendarLink(r.Title(), r.DateText, r.CalendarDetails())
	}
	return calendarLinkForDate(r.Title(), *r.Date, r.CalendarDetails())
}
