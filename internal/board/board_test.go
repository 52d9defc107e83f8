package board

import (
	"testing"
	"time"

	"github.com/raine/mural-table-bot/internal/mural"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := mural.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func TestBoard_AppendAndRecordsCopy(t *testing.T) {
	b := New()
	b.Append(mural.Record{Name: "A"}, mural.Record{Name: "B"})
	require.Equal(t, 2, b.Len())

	records := b.Records()
	records[0].Name = "changed"
	records = append(records, mural.Record{Name: "C"})

	again := b.Records()
	assert.Equal(t, "A", again[0].Name)
	assert.Len(t, again, 2)
}

func TestBoard_RemoveUpdateClear(t *testing.T) {
	b := New()
	b.Append(mural.Record{Name: "A"}, mural.Record{Name: "B"}, mural.Record{Name: "C"})

	require.NoError(t, b.Remove(1))
	assert.Equal(t, []string{"A", "C"}, names(b.Records()))
	assert.ErrorIs(t, b.Remove(5), ErrNoSuchRow)
	assert.ErrorIs(t, b.Remove(-1), ErrNoSuchRow)

	require.NoError(t, b.Update(1, mural.ColumnDate, "03.04.2025"))
	rec, err := b.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-03", rec.DateString())

	assert.ErrorIs(t, b.Update(1, mural.ColumnStatus, "belki"), mural.ErrInvalidStatus)
	assert.ErrorIs(t, b.Update(9, mural.ColumnName, "x"), ErrNoSuchRow)

	require.NoError(t, b.Replace(0, mural.Record{Name: "Z"}))
	assert.Equal(t, []string{"Z", "C"}, names(b.Records()))

	b.Clear()
	assert.Zero(t, b.Len())
}

func TestBoard_SortedEntriesKeepIndexes(t *testing.T) {
	b := New()
	b.Append(
		mural.Record{Name: "undated"},
		mural.Record{Name: "late", Date: date(t, "2025-06-01")},
		mural.Record{Name: "early", Date: date(t, "2025-01-01")},
	)

	entries := b.SortedEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "early", entries[0].Record.Name)
	assert.Equal(t, 2, entries[0].Index)
	assert.Equal(t, "late", entries[1].Record.Name)
	assert.Equal(t, 1, entries[1].Index)
	assert.Equal(t, "undated", entries[2].Record.Name)
	assert.Equal(t, 0, entries[2].Index)

	assert.Equal(t, []string{"undated", "late", "early"}, names(b.Records()), "sorting does not reorder the board")
}

func names(records []mural.Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}
