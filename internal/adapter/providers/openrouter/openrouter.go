// Package openrouter lists models from the public OpenRouter catalog.
package openrouter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/httpclient"
)

// DefaultBaseURL is the OpenRouter API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter adapter lists models from the OpenRouter /models endpoint.
type OpenRouter struct {
	baseURL string
	client  *httpclient.Client
}

// New creates the adapter. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, client *httpclient.Client) *OpenRouter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenRouter{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (o *OpenRouter) Info() adapter.SourceInfo {
	return adapter.SourceInfo{
		ID:              "openrouter",
		DisplayName:     "OpenRouter",
		Website:         "https://openrouter.ai",
		DefaultCurrency: "USD",
	}
}

// HealthCheck fetches the models endpoint with a short timeout.
func (o *OpenRouter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := o.client.Get(ctx, o.baseURL+"/models", nil)
	return err
}

// MinExpectedModels returns the minimum listing count for OpenRouter.
func (o *OpenRouter) MinExpectedModels() int { return 100 }

type modelsResponse struct {
	Data []apiModel `json:"data"`
}

type apiModel struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ContextLength int     `json:"context_length"`
	Pricing       pricing `json:"pricing"`
	TopProvider   struct {
		ContextLength       int `json:"context_length"`
		MaxCompletionTokens int `json:"max_completion_tokens"`
	} `json:"top_provider"`
}

// pricing values are USD per token, encoded as strings.
type pricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
	Request    string `json:"request"`
}

func (o *OpenRouter) FetchModels(ctx context.Context) ([]adapter.RawModel, error) {
	var resp modelsResponse
	if err := o.client.GetJSON(ctx, o.baseURL+"/models", nil, &resp); err != nil {
		return nil, fmt.Errorf("openrouter models: %w", err)
	}

	models := make([]adapter.RawModel, 0, len(resp.Data))
	for _, am := range resp.Data {
		// Negative prices mark router meta-models such as openrouter/auto.
		in, okIn := perMillion(am.Pricing.Prompt)
		out, okOut := perMillion(am.Pricing.Completion)
		if !okIn || !okOut {
			continue
		}

		window := am.ContextLength
		if window == 0 {
			window = am.TopProvider.ContextLength
		}

		m := adapter.RawModel{
			SourceID:      "openrouter",
			DisplayName:   displayName(am.ID),
			Brand:         inferBrand(am.ID),
			ContextWindow: window,
			InputPrice:    in,
			OutputPrice:   out,
			Currency:      "USD",
			Extra:         map[string]any{"slug": am.ID},
		}
		if am.TopProvider.MaxCompletionTokens > 0 {
			m.Extra["max_completion_tokens"] = am.TopProvider.MaxCompletionTokens
		}
		models = append(models, m)
	}

	slog.Info("openrouter fetch complete", "api_models", len(resp.Data), "models", len(models))
	return models, nil
}

// perMillion converts a per-token price string to USD per million tokens.
func perMillion(s string) (float64, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v * 1e6, true
}

// displayName drops the vendor prefix: "openai/gpt-4o" becomes "gpt-4o".
func displayName(id string) string {
	if _, name, ok := strings.Cut(id, "/"); ok {
		return name
	}
	return id
}

var vendorBrands = map[string]string{
	"openai":     "OpenAI",
	"anthropic":  "Anthropic",
	"google":     "Google",
	"meta-llama": "Meta",
	"mistralai":  "Mistral",
	"deepseek":   "DeepSeek",
	"qwen":       "Qwen",
	"x-ai":       "xAI",
	"cohere":     "Cohere",
	"perplexity": "Perplexity",
	"moonshotai": "Moonshot",
	"z-ai":       "GLM",
}

func inferBrand(id string) string {
	vendor, _, ok := strings.Cut(id, "/")
	if !ok {
		return "Unknown"
	}
	if b, ok := vendorBrands[vendor]; ok {
		return b
	}
	return vendor
}
