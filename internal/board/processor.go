package board

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/raine/mural-table-bot/internal/llm"
	"github.com/rs/zerolog/log"
)

var ErrUndecodableImage = errors.New("image could not be decoded")

// Image is one uploaded file of a batch.
type Image struct {
	Name string // shown in per-image reports
	Data []byte
	// Source is stored on every record extracted from the image. Telegram
	// uses the photo file ID so the card can show the photo again.
	Source string
	// Err is set when the file could not be read. The image is reported as
	// failed in its place in the batch without calling the analyzer.
	Err error
}

// OutcomeStatus classifies the result for one image.
type OutcomeStatus int

const (
	OutcomeRecords OutcomeStatus = iota
	OutcomeEmpty
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeRecords:
		return "records"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("OutcomeStatus(%d)", int(s))
}

// Outcome describes what happened to one image of a batch.
type Outcome struct {
	Image    string
	Status   OutcomeStatus
	Records  int
	Rejected int
	Warnings int
	Model    string
	Cached   bool
	CostUSD  float64
	Err      error
}

// BatchReport lists per-image outcomes in upload order.
type BatchReport struct {
	Outcomes []Outcome
	CostUSD  float64
}

// Added returns the number of records appended to the board.
func (r BatchReport) Added() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Records
	}
	return n
}

// Failed returns the outcomes of images that could not be processed.
func (r BatchReport) Failed() []Outcome {
	return r.filter(OutcomeFailed)
}

// Empty returns the outcomes of images where nothing was found.
func (r BatchReport) Empty() []Outcome {
	return r.filter(OutcomeEmpty)
}

func (r BatchReport) filter(status OutcomeStatus) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// ProgressFunc is called after each image with the number of images done.
type ProgressFunc func(done, total int, outcome Outcome)

// Processor runs batches of images through an analyzer.
type Processor struct {
	analyzer llm.Analyzer
}

func NewProcessor(analyzer llm.Analyzer) *Processor {
	return &Processor{analyzer: analyzer}
}

// Run analyzes images in order and appends every extracted record to b. A
// failing image never stops the batch. progress may be nil.
func (p *Processor) Run(ctx context.Context, b *Board, images []Image, progress ProgressFunc) BatchReport {
	report := BatchReport{Outcomes: make([]Outcome, 0, len(images))}
	start := time.Now()

	for i, img := range images {
		outcome := p.processImage(ctx, b, img)
		if outcome.Err != nil {
			log.Warn().Err(outcome.Err).Str("image", img.Name).Msg("image processing failed")
		}
		report.Outcomes = append(report.Outcomes, outcome)
		report.CostUSD += outcome.CostUSD
		if progress != nil {
			progress(i+1, len(images), outcome)
		}
	}

	log.Info().
		Int("imageCount", len(images)).
		Int("recordsAdded", report.Added()).
		Int("failed", len(report.Failed())).
		Float64("costUSD", report.CostUSD).
		Dur("duration", time.Since(start)).
		Msg("batch processed")
	return report
}

func (p *Processor) processImage(ctx context.Context, b *Board, img Image) (outcome Outcome) {
	outcome = Outcome{Image: img.Name, Status: OutcomeFailed}
	defer func() {
		if r := recover(); r != nil {
			outcome.Status = OutcomeFailed
			outcome.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	if img.Err != nil {
		outcome.Err = img.Err
		return outcome
	}

	mimeType, err := sniffImage(img.Data)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	ext, err := p.analyzer.ExtractRecords(ctx, img.Data, mimeType)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Model = ext.Model
	outcome.Cached = ext.Cached
	outcome.CostUSD = ext.Usage.CostUSD
	outcome.Rejected = len(ext.Rejected)
	if len(ext.Records) == 0 {
		outcome.Status = OutcomeEmpty
		return outcome
	}

	for i := range ext.Records {
		if img.Source != "" {
			ext.Records[i].Source = img.Source
		} else {
			ext.Records[i].Source = img.Name
		}
		outcome.Warnings += len(ext.Records[i].Warnings)
	}
	b.Append(ext.Records...)
	outcome.Status = OutcomeRecords
	outcome.Records = len(ext.Records)
	return outcome
}

// sniffImage checks that data decodes as a JPEG or PNG and returns its MIME
// type.
func sniffImage(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	switch format {
	case "jpeg":
		return "image/jpeg", nil
	case "png":
		return "image/png", nil
	}
	return "", fmt.Errorf("%w: unsupported format %s", ErrUndecodableImage, format)
}
