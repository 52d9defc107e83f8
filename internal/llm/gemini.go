package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultAnalyzeTimeout bounds a single model call.
const DefaultAnalyzeTimeout = 90 * time.Second

// Gemini pricing (USD per million tokens)
type modelPrice struct {
	input  float64
	output float64
}

var geminiPrices = map[string]modelPrice{
	"gemini-2.5-flash":      {input: 0.30, output: 2.50},
	"gemini-2.5-flash-lite": {input: 0.10, output: 0.40},
	"gemini-2.5-pro":        {input: 1.25, output: 10.00},
	"gemini-1.5-flash":      {input: 0.075, output: 0.30},
	"gemini-1.5-pro":        {input: 1.25, output: 5.00},
}

var extractionPrompt = strings.TrimSpace(dedent.Dedent(`
	Bu resmi analiz et. Mural projelerini tablo verisi olarak çıkar.
	Resimdeki her proje için listeye bir nesne ekle. Resimde proje yoksa boş liste [] döndür.
	Bilinmeyen alanları boş metin olarak bırak, tahmin etme.
	ÇIKTI FORMATI (Sadece saf JSON listesi):
	[
	  {
	    "Proje": "Proje Adı",
	    "Tarih": "YYYY-MM-DD",
	    "Bütçe": "Para birimiyle",
	    "Konum": "Şehir/Eyalet",
	    "Link": "Varsa link",
	    "Notlar": "Detay"
	  }
	]
`))

// contentGenerator is the part of the genai client the analyzer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAnalyzer extracts records with Google's Gemini API. Models are tried
// in order until one answers.
type GeminiAnalyzer struct {
	gen     contentGenerator
	models  []string
	timeout time.Duration
}

// NewGeminiClient creates a genai client for the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiAnalyzer creates an analyzer trying models in the given order.
// A non-positive timeout uses DefaultAnalyzeTimeout.
func NewGeminiAnalyzer(client *genai.Client, models []string, timeout time.Duration) *GeminiAnalyzer {
	return newGeminiAnalyzer(client.Models, models, timeout)
}

func newGeminiAnalyzer(gen contentGenerator, models []string, timeout time.Duration) *GeminiAnalyzer {
	if timeout <= 0 {
		timeout = DefaultAnalyzeTimeout
	}
	if len(models) == 0 {
		models = []string{DefaultModel}
	}
	return &GeminiAnalyzer{gen: gen, models: models, timeout: timeout}
}

// Models returns the substitution order.
func (g *GeminiAnalyzer) Models() []string {
	return append([]string(nil), g.models...)
}

// ExtractRecords implements the Analyzer interface.
func (g *GeminiAnalyzer) ExtractRecords(ctx context.Context, imageData []byte, mimeType string) (ext *Extraction, err error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: no image data", ErrModelCall)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("panic in vision llm call")
			ext, err = nil, fmt.Errorf("%w: %v", ErrModelCall, r)
		}
	}()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(extractionPrompt),
			genai.NewPartFromBytes(imageData, mimeType),
		}, genai.RoleUser),
	}

	var lastErr error
	for i, model := range g.models {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelCall, ctx.Err())
		}

		start := time.Now()
		result, err := g.generate(ctx, model, contents)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("model", model).Int("attempt", i+1).Msg("vision llm call failed, trying next model")
			continue
		}

		usage := usageFromResponse(model, result)
		log.Info().
			Str("model", model).
			Int("imageBytes", len(imageData)).
			Int64("inputTokens", usage.InputTokens).
			Int64("outputTokens", usage.OutputTokens).
			Float64("costUSD", usage.CostUSD).
			Dur("duration", time.Since(start)).
			Msg("vision llm call")

		text := responseText(result)
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%s: %w", model, ErrEmptyResponse)
		}

		records, rejected, err := ParseRecords(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", model, err)
		}
		return &Extraction{
			Records:  records,
			Rejected: rejected,
			Model:    model,
			Usage:    usage,
			Response: StripCodeFence(text),
		}, nil
	}

	if len(g.models) == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %w", ErrAllModelsFailed, lastErr)
}

// generate performs one bounded model call.
func (g *GeminiAnalyzer) generate(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.gen.GenerateContent(callCtx, model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%s: %w after %s", model, ErrTimeout, g.timeout)
		}
		return nil, fmt.Errorf("%s: %w: %w", model, ErrModelCall, err)
	}
	return result, nil
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	c := result.Candidates[0]
	if c.Content == nil || len(c.Content.Parts) == 0 {
		return ""
	}
	return result.Text()
}

func usageFromResponse(model string, result *genai.GenerateContentResponse) Usage {
	usage := Usage{}
	if result == nil || result.UsageMetadata == nil {
		return usage
	}
	usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
	usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
	usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
	if p, ok := geminiPrices[model]; ok {
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, p.input, p.output)
	}
	return usage
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
