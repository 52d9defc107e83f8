package llm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultModel is used when model listing is disabled or fails.
const DefaultModel = "gemini-2.5-flash"

// DefaultModelPreference orders models from fastest to most capable, with a
// legacy vision model last.
var DefaultModelPreference = []string{"gemini-2.5-flash", "gemini-2.5-pro", "gemini-1.5-flash"}

// ModelPolicy controls how the model is picked at startup.
type ModelPolicy string

const (
	// PolicyStatic uses the configured default without network access.
	PolicyStatic ModelPolicy = "static"
	// PolicyDynamic lists the available models and picks the first preferred one.
	PolicyDynamic ModelPolicy = "dynamic"
)

// ParseModelPolicy validates a policy name. Empty means dynamic.
func ParseModelPolicy(s string) (ModelPolicy, error) {
	switch ModelPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyDynamic:
		return PolicyDynamic, nil
	case PolicyStatic:
		return PolicyStatic, nil
	}
	return "", fmt.Errorf("unknown model policy %q", s)
}

// ModelSelection is the configuration ResolveModel works from.
type ModelSelection struct {
	Policy     ModelPolicy
	Preference []string
	Default    string
}

// ModelInfo describes a model returned by the provider.
type ModelInfo struct {
	Name        string
	DisplayName string
	Actions     []string
}

// SupportsGeneration reports whether the model can generate content.
func (m ModelInfo) SupportsGeneration() bool {
	return slices.Contains(m.Actions, "generateContent")
}

// ModelLister lists models available to the configured credential.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// GenaiModelLister lists models through the genai client.
type GenaiModelLister struct {
	client *genai.Client
}

func NewGenaiModelLister(client *genai.Client) *GenaiModelLister {
	return &GenaiModelLister{client: client}
}

func (l *GenaiModelLister) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	for m, err := range l.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		models = append(models, ModelInfo{
			Name:        NormalizeModelName(m.Name),
			DisplayName: m.DisplayName,
			Actions:     m.SupportedActions,
		})
	}
	return models, nil
}

// NormalizeModelName strips the "models/" resource prefix.
func NormalizeModelName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "models/")
}

// SelectModel returns the first preferred model present in available, or
// fallback when none is.
func SelectModel(available map[string]bool, preference []string, fallback string) string {
	for _, name := range preference {
		if available[NormalizeModelName(name)] {
			return NormalizeModelName(name)
		}
	}
	return fallback
}

// GenerationModels filters models down to the generation-capable ones.
func GenerationModels(models []ModelInfo) []ModelInfo {
	var out []ModelInfo
	for _, m := range models {
		if m.SupportsGeneration() {
			out = append(out, m)
		}
	}
	return out
}

// ResolveModel picks the model to use. A listing failure is not fatal: it
// is logged and the default model is returned.
func ResolveModel(ctx context.Context, lister ModelLister, sel ModelSelection) string {
	if sel.Policy == PolicyStatic || lister == nil {
		return sel.Default
	}

	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Str("model", sel.Default).Msg("model listing failed, using default model")
		return sel.Default
	}

	available := make(map[string]bool)
	for _, m := range GenerationModels(models) {
		available[m.Name] = true
	}
	model := SelectModel(available, sel.Preference, sel.Default)
	log.Info().Str("model", model).Int("availableModels", len(available)).Msg("resolved model")
	return model
}

// CandidateModels returns the substitution order: the resolved model first,
// then the rest of the preference list without duplicates.
func CandidateModels(resolved string, preference []string) []string {
	out := []string{resolved}
	for _, name := range preference {
		name = NormalizeModelName(name)
		if name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
