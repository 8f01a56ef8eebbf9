package schemas

import "context"

// ModelTier selects which class of model should serve a generation request.
type ModelTier string

const (
	// TierFast is for cheap, low-latency calls (classification, extraction).
	TierFast ModelTier = "fast"
	// TierPowerful is for synthesis and anything quality-sensitive.
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions carries per-request sampling overrides.
type GenerationOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	// ForceJSONFormat asks the provider for a JSON-only response where the
	// API supports it (Gemini response_mime_type, Ollama format).
	ForceJSONFormat bool `json:"force_json_format,omitempty"`
}

// GenerationRequest is the provider-agnostic prompt envelope.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt,omitempty"`
	UserPrompt   string            `json:"user_prompt"`
	Tier         ModelTier         `json:"tier,omitempty"`
	Options      GenerationOptions `json:"options,omitempty"`
}

// LLMClient is implemented by every model backend and by the tier router.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Embedder produces dense vectors for a batch of texts. Implemented by the
// Ollama client; consumed by the citation embedding retriever.
type Embedder interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}
