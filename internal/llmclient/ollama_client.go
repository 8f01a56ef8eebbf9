package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/config"
)

// OllamaClient implements schemas.LLMClient (and schemas.Embedder) against a
// local or remote Ollama server.
type OllamaClient struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	config     config.LLMModelConfig
}

// -- Ollama API Request/Response Structures (Internal to this file) --

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaClient initializes the client. The endpoint is the base URL of
// the Ollama server (e.g. http://localhost:11434).
func NewOllamaClient(cfg config.LLMModelConfig, logger *zap.Logger) (*OllamaClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("Ollama endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("Ollama model name is required")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &OllamaClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		config:   cfg,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		limiter: limiter,
		logger:  logger.Named("llm_client.ollama"),
	}, nil
}

// Generate sends a completion request to /api/generate and returns the
// generated text, retrying transient failures with exponential backoff.
func (c *OllamaClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	payload := ollamaGenerateRequest{
		Model:  c.config.Model,
		Prompt: req.UserPrompt,
		System: req.SystemPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: c.config.Temperature,
			TopP:        c.config.TopP,
			TopK:        c.config.TopK,
			NumCtx:      c.config.NumCtx,
			NumPredict:  c.config.MaxTokens,
		},
	}
	if req.Options.Temperature > 0 {
		payload.Options.Temperature = req.Options.Temperature
	}
	if req.Options.ForceJSONFormat {
		payload.Format = "json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second

	var responseContent string

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		respBody, err := c.post(ctx, "/api/generate", body)
		if err != nil {
			return err
		}

		var responsePayload ollamaGenerateResponse
		if err := json.Unmarshal(respBody, &responsePayload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}

		c.logger.Info("LLM generation complete (Ollama)",
			zap.String("model", c.config.Model),
			zap.Int("prompt_tokens", responsePayload.PromptEvalCount),
			zap.Int("completion_tokens", responsePayload.EvalCount),
		)

		responseContent = strings.TrimSpace(responsePayload.Response)
		return nil
	}

	if err = backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}

	return responseContent, nil
}

// Embed sends a batch of texts to /api/embed and returns one vector per
// input. The model argument overrides the configured model so that a single
// client can serve several embedding models.
func (c *OllamaClient) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if model == "" {
		model = c.config.Model
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed payload: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	respBody, err := c.post(ctx, "/api/embed", body)
	if err != nil {
		return nil, err
	}

	var responsePayload ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &responsePayload); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}

	if len(responsePayload.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(responsePayload.Embeddings), len(texts))
	}
	return responsePayload.Embeddings, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("Network error during Ollama request, retrying...", zap.Error(err))
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(respBody))
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
			return nil, err // Transient errors, retry.
		default:
			return nil, backoff.Permanent(err)
		}
	}
	return respBody, nil
}
