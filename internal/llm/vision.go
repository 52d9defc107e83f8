package llm

import (
	"context"
	"errors"

	"github.com/raine/mural-table-bot/internal/mural"
)

// Failure classes of an extraction. Errors returned by an Analyzer wrap one
// of these.
var (
	ErrModelCall         = errors.New("model call failed")
	ErrEmptyResponse     = errors.New("empty model response")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrTimeout           = errors.New("model call timed out")
	ErrAllModelsFailed   = errors.New("all models failed")
)

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Rejection is an array element that could not be turned into a record.
type Rejection struct {
	Index  int
	Reason string
}

// Extraction is the successful result of analyzing one image. Records may be
// empty, meaning the model found nothing.
type Extraction struct {
	Records  []mural.Record
	Rejected []Rejection
	Model    string
	Usage    Usage
	Cached   bool

	// Response is the fence-stripped model text the records were parsed
	// from. It is what the vision cache stores.
	Response string
}

// Analyzer turns a screenshot of mural project listings into records.
type Analyzer interface {
	ExtractRecords(ctx context.Context, imageData []byte, mimeType string) (*Extraction, error)
}
