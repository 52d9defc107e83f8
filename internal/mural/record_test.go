package mural

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("KABUL EDILDI")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, s)

	s, err = ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, StatusNone, s)
	assert.Equal(t, "Yeni", s.Display())

	_, err = ParseStatus("Beklemede")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRecord_Set(t *testing.T) {
	var rec Record

	require.NoError(t, rec.Set(ColumnDate, "01.05.2025"))
	assert.Equal(t, "2025-05-01", rec.DateString())
	assert.Equal(t, "01.05.2025", rec.DisplayDate())

	assert.ErrorIs(t, rec.Set(ColumnDate, "bir gün"), ErrInvalidDate)
	assert.Equal(t, "2025-05-01", rec.DateString(), "failed edit keeps the old value")

	require.NoError(t, rec.Set(ColumnDate, ""))
	assert.Nil(t, rec.Date)

	assert.ErrorIs(t, rec.Set(ColumnStatus, "belki"), ErrInvalidStatus)
	require.NoError(t, rec.Set(ColumnStatus, "Reddedildi"))
	assert.Equal(t, StatusRejected, rec.Status)

	require.NoError(t, rec.Set("Sponsor", "City"))
	require.NoError(t, rec.Set("Sponsor", "County"))
	assert.Equal(t, []ExtraField{{Key: "Sponsor", Value: "County"}}, rec.Extra)
}

func TestRecord_CloneIsDeep(t *testing.T) {
	d := mustDate(t, "2025-05-01")
	rec := Record{Name: "A", Date: &d, Extra: []ExtraField{{Key: "k", Value: "v"}}}

	c := rec.Clone()
	c.Extra[0].Value = "changed"
	*c.Date = c.Date.AddDate(1, 0, 0)

	assert.Equal(t, "v", rec.Extra[0].Value)
	assert.Equal(t, "2025-05-01", rec.DateString())
}

func TestColumns(t *testing.T) {
	assert.Equal(t, DefaultColumns, Columns(nil))

	records := []Record{
		{Name: "A", Keys: []string{"Proje", "Tarih"}},
		{Budget: "5", Extra: []ExtraField{{Key: "Sponsor", Value: "x"}}},
		{Status: StatusApplied, Extra: []ExtraField{{Key: "Sponsor"}, {Key: "Ekip"}}},
	}
	assert.Equal(t, []string{"Proje", "Tarih", "Bütçe", "Durum", "Sponsor", "Ekip"}, Columns(records))
}

func TestSortByDate(t *testing.T) {
	d1 := mustDate(t, "2025-01-10")
	d2 := mustDate(t, "2024-06-01")
	records := []Record{
		{Name: "no date 1"},
		{Name: "late", Date: &d1},
		{Name: "no date 2", DateText: "yakında"},
		{Name: "early", Date: &d2},
	}

	sorted := SortByDate(records)

	var names []string
	for _, r := range sorted {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"early", "late", "no date 1", "no date 2"}, names)
	assert.Equal(t, "no date 1", records[0].Name, "input is not reordered")
}

func TestWriteCSV(t *testing.T) {
	d := mustDate(t, "2025-05-01")
	records := []Record{
		{Name: "Wall A", Date: &d, DateText: "2025-05-01", Budget: "$500", Location: "NY", Link: "http://x", Notes: "line1\nline2, quoted \"x\"",
			Keys: []string{"Proje", "Tarih", "Bütçe", "Konum", "Link", "Notlar"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Proje", "Tarih", "Bütçe", "Konum", "Link", "Notlar"}, rows[0])
	assert.Equal(t, []string{"Wall A", "2025-05-01", "$500", "NY", "http://x", "line1\nline2, quoted \"x\""}, rows[1])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Proje,Tarih,Bütçe,Konum,Link,Notlar\n", buf.String())
}
