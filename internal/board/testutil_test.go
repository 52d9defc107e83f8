package board

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/raine/mural-table-bot/internal/llm"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) ExtractRecords(ctx context.Context, imageData []byte, mimeType string) (*llm.Extraction, error) {
	args := m.Called(ctx, imageData, mimeType)
	ext, _ := args.Get(0).(*llm.Extraction)
	return ext, args.Error(1)
}

// pngImage returns a tiny PNG whose pixel colour makes the bytes unique.
func pngImage(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: shade, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func extraction(t *testing.T, text string) *llm.Extraction {
	t.Helper()
	records, rejected, err := llm.ParseRecords(text)
	require.NoError(t, err)
	return &llm.Extraction{Records: records, Rejected: rejected, Model: "gemini-2.5-flash", Usage: llm.Usage{CostUSD: 0.001}}
}
