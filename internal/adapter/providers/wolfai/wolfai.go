// Package wolfai reads the New-API style pricing endpoint published by
// wolfai.top.
package wolfai

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/httpclient"
)

// DefaultBaseURL is the public WolfAI site.
const DefaultBaseURL = "https://wolfai.top"

// ratioUSDPerMillion is the New-API convention: a model_ratio of 1 costs
// $2 per million prompt tokens.
const ratioUSDPerMillion = 2.0

// WolfAI adapter lists models from the WolfAI pricing API.
type WolfAI struct {
	baseURL string
	client  *httpclient.Client
}

// New creates the adapter. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, client *httpclient.Client) *WolfAI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &WolfAI{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (w *WolfAI) Info() adapter.SourceInfo {
	return adapter.SourceInfo{
		ID:              "wolfai",
		DisplayName:     "WolfAI",
		Website:         DefaultBaseURL,
		DefaultCurrency: "USD",
	}
}

// HealthCheck fetches the pricing endpoint with a short timeout.
func (w *WolfAI) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := w.client.Get(ctx, w.pricingURL(), w.headers())
	return err
}

// MinExpectedModels returns the minimum listing count for WolfAI.
func (w *WolfAI) MinExpectedModels() int { return 20 }

type pricingResponse struct {
	Success bool         `json:"success"`
	Data    []pricingRow `json:"data"`
}

type pricingRow struct {
	ModelName       string  `json:"model_name"`
	QuotaType       int     `json:"quota_type"`
	ModelRatio      float64 `json:"model_ratio"`
	CompletionRatio float64 `json:"completion_ratio"`
	ModelPrice      float64 `json:"model_price"`
	Tags            string  `json:"tags"`
	Description     string  `json:"description"`
	VendorID        int     `json:"vendor_id"`
}

func (w *WolfAI) FetchModels(ctx context.Context) ([]adapter.RawModel, error) {
	var resp pricingResponse
	if err := w.client.GetJSON(ctx, w.pricingURL(), w.headers(), &resp); err != nil {
		return nil, fmt.Errorf("wolfai pricing: %w", err)
	}

	models := make([]adapter.RawModel, 0, len(resp.Data))
	for _, row := range resp.Data {
		if row.ModelName == "" {
			continue
		}
		models = append(models, w.toRaw(row))
	}

	slog.Info("wolfai fetch complete", "rows", len(resp.Data), "models", len(models))
	return models, nil
}

func (w *WolfAI) toRaw(row pricingRow) adapter.RawModel {
	m := adapter.RawModel{
		SourceID:      "wolfai",
		DisplayName:   row.ModelName,
		Brand:         inferBrand(row.ModelName),
		ContextWindow: inferContextWindow(row.ModelName, row.Tags),
		Currency:      "USD",
		Extra: map[string]any{
			"quota_type": row.QuotaType,
			"vendor_id":  row.VendorID,
		},
	}
	if row.Tags != "" {
		m.Extra["tags"] = row.Tags
	}

	if row.QuotaType == 0 {
		m.InputPrice = row.ModelRatio * ratioUSDPerMillion
		m.OutputPrice = m.InputPrice * row.CompletionRatio
		m.Extra["model_ratio"] = row.ModelRatio
		m.Extra["completion_ratio"] = row.CompletionRatio
	} else {
		// Fixed price per call.
		m.InputPrice = row.ModelPrice
		m.OutputPrice = row.ModelPrice
		m.Extra["billing"] = "per_request"
	}
	return m
}

func (w *WolfAI) pricingURL() string { return w.baseURL + "/api/pricing" }

func (w *WolfAI) headers() map[string]string {
	return map[string]string{"Referer": w.baseURL + "/"}
}

// brandKeywords is checked in order; the first substring match wins.
var brandKeywords = []struct{ key, brand string }{
	{"gpt", "OpenAI"},
	{"claude", "Anthropic"},
	{"gemini", "Google"},
	{"deepseek", "DeepSeek"},
	{"qwen", "Qwen"},
	{"glm", "GLM"},
	{"llama", "Meta"},
	{"grok", "xAI"},
	{"o1", "OpenAI"},
	{"o3", "OpenAI"},
	{"o4", "OpenAI"},
	{"dall-e", "OpenAI"},
	{"text-embedding", "OpenAI"},
	{"tts", "OpenAI"},
	{"whisper", "OpenAI"},
	{"mj", "Midjourney"},
	{"qwq", "Qwen"},
}

func inferBrand(name string) string {
	lower := strings.ToLower(name)
	for _, kw := range brandKeywords {
		if strings.Contains(lower, kw.key) {
			return kw.brand
		}
	}
	return "Unknown"
}

// contextRe matches a size suffix such as 128k, 1m or 16.4k that is not part
// of a longer word.
var contextRe = regexp.MustCompile(`(\d+(?:\.\d+)?)(k|m|万)(?:[^a-z]|$)`)

// inferContextWindow reads a context size from the name or tags. Zero means
// unknown and is defaulted during normalization.
func inferContextWindow(name, tags string) int {
	m := contextRe.FindStringSubmatch(strings.ToLower(name + " " + tags))
	if m == nil {
		return 0
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	switch m[2] {
	case "m":
		val *= 1_000_000
	case "万":
		val *= 10_000
	default:
		val *= 1_000
	}
	return int(val)
}
