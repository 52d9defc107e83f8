package web

import (
	"fmt"
	"html/template"
	"slices"

	"github.com/raine/mural-table-bot/internal/board"
	"github.com/raine/mural-table-bot/internal/mural"
)

type cellKind string

const (
	cellText   cellKind = "text"
	cellDate   cellKind = "date"
	cellStatus cellKind = "status"
	cellLink   cellKind = "link"
)

type cellView struct {
	Column string
	Value  string
	Kind   cellKind
	// set for link cells holding a URL
	URL string
}

type rowView struct {
	Number      int
	Index       int // board index used in form actions
	Cells       []cellView
	CalendarURL string // empty when the date is not usable
}

type reportLine struct {
	Image   string
	Message string
	Failed  bool
}

type pageData struct {
	Columns  []string
	Rows     []rowView
	Statuses []mural.Status
	Flash    string
	Report   []reportLine
	Summary  string
	Done     bool
}

var templateFuncs = template.FuncMap{
	"statusSelected": func(current string, s mural.Status) bool {
		return current == string(s)
	},
}

// newPageData renders the board sorted by date. It must not modify the board.
func newPageData(s *Session) pageData {
	entries := s.Board.SortedEntries()
	records := make([]mural.Record, len(entries))
	for i, e := range entries {
		records[i] = e.Record
	}
	columns := gridColumns(records)

	data := pageData{
		Columns:  columns,
		Statuses: mural.Statuses,
		Flash:    s.flash,
	}
	for i, e := range entries {
		data.Rows = append(data.Rows, newRowView(i+1, e, columns))
	}
	if s.report != nil {
		data.Done = true
		data.Report, data.Summary = reportLines(*s.report)
	}
	return data
}

// gridColumns are the default columns and the status column, which are
// always editable in the grid, followed by any extra columns.
func gridColumns(records []mural.Record) []string {
	columns := append(slices.Clone(mural.DefaultColumns), mural.ColumnStatus)
	for _, col := range mural.Columns(records) {
		if !slices.Contains(columns, col) {
			columns = append(columns, col)
		}
	}
	return columns
}

// displayValue is the text shown in a grid input. Dates read as DD.MM.YYYY.
func displayValue(r mural.Record, column string) string {
	if column == mural.ColumnDate {
		return r.DisplayDate()
	}
	return r.Get(column)
}

func newRowView(number int, e board.Entry, columns []string) rowView {
	row := rowView{Number: number, Index: e.Index}
	for _, col := range columns {
		cell := cellView{Column: col, Value: displayValue(e.Record, col), Kind: cellText}
		switch col {
		case mural.ColumnDate:
			// Unparsed text is shown as typed, without the date hint.
			if e.Record.Date != nil || e.Record.DateText == "" {
				cell.Kind = cellDate
			}
		case mural.ColumnStatus:
			cell.Kind = cellStatus
		case mural.ColumnLink:
			cell.Kind = cellLink
			if e.Record.HasLink() {
				cell.URL = e.Record.Link
			}
		}
		row.Cells = append(row.Cells, cell)
	}
	if link := e.Record.CalendarLink(); link != mural.CalendarLinkUnavailable {
		row.CalendarURL = link
	}
	return row
}

func reportLines(report board.BatchReport) ([]reportLine, string) {
	var lines []reportLine
	for _, o := range report.Outcomes {
		switch o.Status {
		case board.OutcomeFailed:
			lines = append(lines, reportLine{Image: o.Image, Message: board.FailureReason(o.Err), Failed: true})
		case board.OutcomeEmpty:
			lines = append(lines, reportLine{Image: o.Image, Message: board.MsgNoData})
		}
		if o.Rejected > 0 {
			lines = append(lines, reportLine{Image: o.Image, Message: fmt.Sprintf(MsgRecordsRejected, o.Rejected)})
		}
	}
	return lines, fmt.Sprintf(MsgRecordsAdded, report.Added())
}
