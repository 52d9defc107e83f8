package board

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/raine/mural-table-bot/internal/llm"
	"github.com/raine/mural-table-bot/internal/mural"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const scenarioA = "```json\n" + `[{"Proje":"Wall A","Tarih":"2025-05-01","Bütçe":"$500","Konum":"NY","Link":"http://x","Notlar":"n"}]` + "\n```"

func TestProcessor_ScenarioA(t *testing.T) {
	img := pngImage(t, 1)
	analyzer := new(mockAnalyzer)
	analyzer.On("ExtractRecords", mock.Anything, img, "image/png").Return(extraction(t, scenarioA), nil)

	b := New()
	report := NewProcessor(analyzer).Run(context.Background(), b, []Image{{Name: "a.png", Data: img}}, nil)

	analyzer.AssertExpectations(t)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, OutcomeRecords, report.Outcomes[0].Status)
	assert.Equal(t, 1, report.Added())
	assert.InDelta(t, 0.001, report.CostUSD, 1e-9)

	records := b.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "a.png", records[0].Source)

	var buf bytes.Buffer
	require.NoError(t, mural.WriteCSV(&buf, records))
	assert.Equal(t, "Proje,Tarih,Bütçe,Konum,Link,Notlar\nWall A,2025-05-01,$500,NY,http://x,n\n", buf.String())

	link := records[0].CalendarLink()
	assert.Contains(t, link, "dates=20250501/20250502")
	assert.Contains(t, link, "text=Wall%20A")
}

func TestProcessor_ReadFailureKeepsUploadOrder(t *testing.T) {
	img := pngImage(t, 5)
	analyzer := new(mockAnalyzer)
	analyzer.On("ExtractRecords", mock.Anything, img, "image/png").Return(extraction(t, `[{"Proje":"B"}]`), nil).Once()
	readErr := errors.New("dosya çok büyük")

	var seen []string
	b := New()
	report := NewProcessor(analyzer).Run(context.Background(), b,
		[]Image{{Name: "1-big.png", Err: readErr}, {Name: "2-ok.png", Data: img}},
		func(done, total int, o Outcome) {
			seen = append(seen, o.Image)
		})

	analyzer.AssertExpectations(t)
	assert.Equal(t, []string{"1-big.png", "2-ok.png"}, seen)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, OutcomeFailed, report.Outcomes[0].Status)
	assert.ErrorIs(t, report.Outcomes[0].Err, readErr)
	assert.Equal(t, "dosya çok büyük", FailureReason(report.Outcomes[0].Err))
	assert.Equal(t, OutcomeRecords, report.Outcomes[1].Status)
	assert.Equal(t, 1, b.Len())
}

func TestProcessor_ScenarioB_FailureIsIsolated(t *testing.T) {
	first, second := pngImage(t, 1), pngImage(t, 2)
	analyzer := new(mockAnalyzer)
	analyzer.On("ExtractRecords", mock.Anything, first, "image/png").Return(extraction(t, `[{"Proje":"A"}]`), nil)
	analyzer.On("ExtractRecords", mock.Anything, second, "image/png").
		Return(nil, fmt.Errorf("gemini-2.5-flash: %w: %w", llm.ErrModelCall, errors.New("500 internal")))

	var progress []int
	b := New()
	report := NewProcessor(analyzer).Run(context.Background(), b,
		[]Image{{Name: "first.png", Data: first}, {Name: "second.png", Data: second}},
		func(done, total int, o Outcome) {
			assert.Equal(t, 2, total)
			progress = append(progress, done)
		})

	assert.Equal(t, []int{1, 2}, progress)
	assert.Equal(t, 1, b.Len())
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "second.png", failed[0].Image)
	assert.ErrorIs(t, failed[0].Err, llm.ErrModelCall)
}

func TestProcessor_ScenarioC_EmptyArray(t *testing.T) {
	img := pngImage(t, 3)
	analyzer := new(mockAnalyzer)
	analyzer.On("ExtractRecords", mock.Anything, img, "image/png").Return(extraction(t, `[]`), nil)

	b := New()
	b.Append(mural.Record{Name: "existing"})
	report := NewProcessor(analyzer).Run(context.Background(), b, []Image{{Name: "blank.png", Data: img}}, nil)

	require.Len(t, report.Empty(), 1)
	assert.Equal(t, "blank.png", report.Empty()[0].Image)
	assert.Nil(t, report.Empty()[0].Err)
	assert.Equal(t, []string{"existing"}, names(b.Records()))
}

func TestProcessor_UndecodableImageSkipsAnalyzer(t *testing.T) {
	good := pngImage(t, 4)
	analyzer := new(mockAnalyzer)
	analyzer.On("ExtractRecords", mock.Anything, good, "image/png").Return(extraction(t, `[{"Proje":"A"},{"Proje":"B"}]`), nil)

	b := New()
	report := NewProcessor(analyzer).Run(context.Background(), b, []Image{
		{Name: "broken.jpg", Data: []byte("not an image")},
		{Name: "good.png", Data: good, Source: "file-id-1"},
	}, nil)

	analyzer.AssertNumberOfCalls(t, "ExtractRecords", 1)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, OutcomeFailed, report.Outcomes[0].Status)
	assert.ErrorIs(t, report.Outcomes[0].Err, ErrUndecodableImage)
	assert.Equal(t, OutcomeRecords, report.Outcomes[1].Status)
	assert.Equal(t, 2, report.Outcomes[1].Records)

	for _, r := range b.Records() {
		assert.Equal(t, "file-id-1", r.Source)
	}
}

func TestProcessor_MalformedResponse(t *testing.T) {
	img := pngImage(t, 5)
	analyzer := new(mockAnalyzer)
	_, _, parseErr := llm.ParseRecords(`{"Proje":"A"}`)
	analyzer.On("ExtractRecords", mock.Anything, img, "image/png").Return(nil, parseErr)

	b := New()
	report := NewProcessor(analyzer).Run(context.Background(), b, []Image{{Name: "x.png", Data: img}}, nil)

	assert.Zero(t, b.Len())
	require.Len(t, report.Failed(), 1)
	assert.ErrorIs(t, report.Failed()[0].Err, llm.ErrMalformedResponse)
}

func TestProcessor_PanicInAnalyzerIsContained(t *testing.T) {
	img := pngImage(t, 6)
	analyzer := new(mockAnalyzer)
	analyzer.On("ExtractRecords", mock.Anything, img, "image/png").Panic("boom")

	b := New()
	report := NewProcessor(analyzer).Run(context.Background(), b, []Image{{Name: "x.png", Data: img}}, nil)

	require.Len(t, report.Failed(), 1)
	assert.Contains(t, report.Failed()[0].Err.Error(), "boom")
}

func TestRenderingIsIdempotent(t *testing.T) {
	b := New()
	d := date(t, "2025-05-01")
	b.Append(
		mural.Record{Name: "B"},
		mural.Record{Name: "A", Date: d, Extra: []mural.ExtraField{{Key: "Sponsor", Value: "x"}}},
	)
	before := b.Records()

	for range 3 {
		_ = b.SortedEntries()
		_ = mural.SortByDate(b.Records())
		var buf bytes.Buffer
		require.NoError(t, mural.WriteCSV(&buf, b.Records()))
	}

	assert.Equal(t, before, b.Records())
}
