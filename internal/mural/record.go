package mural

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Column headers used by the grid, the card list and the CSV export.
const (
	ColumnName     = "Proje"
	ColumnDate     = "Tarih"
	ColumnBudget   = "Bütçe"
	ColumnLocation = "Konum"
	ColumnLink     = "Link"
	ColumnNotes    = "Notlar"
	ColumnStatus   = "Durum"
)

// DefaultColumns are shown for an empty table.
var DefaultColumns = []string{ColumnName, ColumnDate, ColumnBudget, ColumnLocation, ColumnLink, ColumnNotes}

// canonicalColumns is the fixed order of the typed record fields.
var canonicalColumns = []string{ColumnName, ColumnDate, ColumnBudget, ColumnLocation, ColumnLink, ColumnNotes, ColumnStatus}

// DisplayDateLayout is the DD.MM.YYYY format used when showing dates.
const DisplayDateLayout = "02.01.2006"

// ISODateLayout is used for exports.
const ISODateLayout = "2006-01-02"

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidDate   = errors.New("invalid date")
)

// Status is the workflow state of a mural project.
type Status string

const (
	StatusNone     Status = ""
	StatusNew      Status = "Yeni"
	StatusApplied  Status = "Başvuruldu"
	StatusAccepted Status = "Kabul Edildi"
	StatusRejected Status = "Reddedildi"
)

// Statuses is the closed set of selectable statuses, in display order.
var Statuses = []Status{StatusNew, StatusApplied, StatusAccepted, StatusRejected}

// ParseStatus matches text against the closed status set, ignoring case and
// diacritics. Empty text yields StatusNone.
func ParseStatus(text string) (Status, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return StatusNone, nil
	}
	key := normalizeKey(text)
	for _, s := range Statuses {
		if normalizeKey(string(s)) == key {
			return s, nil
		}
	}
	return StatusNone, fmt.Errorf("%w: %q", ErrInvalidStatus, text)
}

// Display returns the label shown for the status. Unset reads as new.
func (s Status) Display() string {
	if s == StatusNone {
		return string(StatusNew)
	}
	return string(s)
}

// ExtraField is a key the model emitted that has no canonical column.
type ExtraField struct {
	Key   string
	Value string
}

// Record is one extracted mural project. Every field is optional.
type Record struct {
	Name     string
	Date     *time.Time // nil when the date text could not be parsed
	DateText string     // date as emitted by the model or typed by the user
	Budget   string
	Location string
	Link     string
	Notes    string
	Status   Status
	Extra    []ExtraField

	// Source refers to the image the record was extracted from. For
	// Telegram photos this is the file ID, otherwise the file name.
	Source string

	// Keys lists the keys of the originating JSON object in emitted order.
	Keys []string

	// Warnings collects coercion problems worth showing to the user.
	Warnings []string
}

func (r *Record) warnf(format string, a ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, a...))
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	if r.Date != nil {
		d := *r.Date
		c.Date = &d
	}
	c.Extra = slices.Clone(r.Extra)
	c.Keys = slices.Clone(r.Keys)
	c.Warnings = slices.Clone(r.Warnings)
	return c
}

// IsEmpty reports whether the record carries no values at all.
func (r Record) IsEmpty() bool {
	if r.Name != "" || r.DateText != "" || r.Date != nil || r.Budget != "" ||
		r.Location != "" || r.Link != "" || r.Notes != "" || r.Status != StatusNone {
		return false
	}
	for _, e := range r.Extra {
		if e.Value != "" {
			return false
		}
	}
	return true
}

// DateString returns the date in ISO form when parsed, the raw text otherwise.
func (r Record) DateString() string {
	if r.Date != nil {
		return r.Date.Format(ISODateLayout)
	}
	return r.DateText
}

// DisplayDate returns the date formatted as DD.MM.YYYY when parsed.
func (r Record) DisplayDate() string {
	if r.Date != nil {
		return r.Date.Format(DisplayDateLayout)
	}
	return r.DateText
}

// HasLink reports whether Link is a navigable http(s) URL.
func (r Record) HasLink() bool {
	return IsURL(r.Link)
}

// Title returns the project name or a generic fallback.
func (r Record) Title() string {
	if r.Name != "" {
		return r.Name
	}
	return "Mural Projesi"
}

// Get returns the text value of a column.
func (r Record) Get(column string) string {
	switch column {
	case ColumnName:
		return r.Name
	case ColumnDate:
		return r.DateString()
	case ColumnBudget:
		return r.Budget
	case ColumnLocation:
		return r.Location
	case ColumnLink:
		return r.Link
	case ColumnNotes:
		return r.Notes
	case ColumnStatus:
		return string(r.Status)
	}
	for _, e := range r.Extra {
		if e.Key == column {
			return e.Value
		}
	}
	return ""
}

// Set updates a column from user input. Date and status values are
// validated; an empty date clears it.
func (r *Record) Set(column, value string) error {
	value = strings.TrimSpace(value)
	switch column {
	case ColumnName:
		r.Name = value
	case ColumnDate:
		if value == "" {
			r.Date = nil
			r.DateText = ""
			return nil
		}
		d, err := ParseDate(value)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, value)
		}
		r.Date = &d
		r.DateText = value
	case ColumnBudget:
		r.Budget = value
	case ColumnLocation:
		r.Location = value
	case ColumnLink:
		r.Link = value
	case ColumnNotes:
		r.Notes = value
	case ColumnStatus:
		s, err := ParseStatus(value)
		if err != nil {
			return err
		}
		r.Status = s
	default:
		for i := range r.Extra {
			if r.Extra[i].Key == column {
				r.Extra[i].Value = value
				return nil
			}
		}
		r.Extra = append(r.Extra, ExtraField{Key: column, Value: value})
	}
	return nil
}

// hasColumn reports whether the record provides a column, either with a
// value or because the source object carried a key mapping to it.
func (r Record) hasColumn(column string) bool {
	if r.Get(column) != "" {
		return true
	}
	for _, k := range r.Keys {
		if col, ok := columnForKey(k); ok && col == column {
			return true
		}
	}
	return false
}

// Columns returns the table columns for a set of records: canonical columns
// present in any record in canonical order, then extra keys in first-seen
// order. An empty set yields DefaultColumns.
func Columns(records []Record) []string {
	if len(records) == 0 {
		return slices.Clone(DefaultColumns)
	}
	var cols []string
	for _, col := range canonicalColumns {
		for _, r := range records {
			if r.hasColumn(col) {
				cols = append(cols, col)
				break
			}
		}
	}
	seen := make(map[string]bool)
	for _, r := range records {
		for _, e := range r.Extra {
			if !seen[e.Key] && !slices.Contains(canonicalColumns, e.Key) {
				seen[e.Key] = true
				cols = append(cols, e.Key)
			}
		}
	}
	if len(cols) == 0 {
		return slices.Clone(DefaultColumns)
	}
	return cols
}

// IsURL reports whether s is an absolute http or https URL.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
