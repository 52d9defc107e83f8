package mural

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ExportFileName is the fixed download name of the CSV export.
const ExportFileName = "mural_projeleri.csv"

// WriteCSV writes a header row of Columns(records) and one row per record.
func WriteCSV(w io.Writer, records []Record) error {
	cols := Columns(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	row := make([]string, len(cols))
	for _, r := range records {
		for i, col := range cols {
			row[i] = r.Get(col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
