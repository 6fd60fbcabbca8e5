// Package dmx reads the DMXAPI completion-ratio table.
package dmx

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/httpclient"
)

// DefaultBaseURL is the public DMXAPI site.
const DefaultBaseURL = "https://www.dmxapi.cn"

// DMX adapter lists models from the DMXAPI pricing endpoint.
type DMX struct {
	baseURL string
	client  *httpclient.Client
}

// New creates the adapter. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, client *httpclient.Client) *DMX {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &DMX{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (d *DMX) Info() adapter.SourceInfo {
	return adapter.SourceInfo{
		ID:              "dmx",
		DisplayName:     "DMXAPI",
		Website:         DefaultBaseURL,
		DefaultCurrency: "USD",
	}
}

// HealthCheck fetches the pricing endpoint with a short timeout.
func (d *DMX) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := d.client.Get(ctx, d.baseURL+"/api/pricing", nil)
	return err
}

// MinExpectedModels returns the minimum listing count for DMXAPI.
func (d *DMX) MinExpectedModels() int { return 20 }

type pricingResponse struct {
	Data struct {
		// Values are either a bare ratio or {PromptRatio, CompletionRatio}.
		ModelCompletionRatio map[string]any `json:"model_completion_ratio"`
	} `json:"data"`
}

// skipWords mark non-text models that carry no token pricing.
var skipWords = []string{"image", "audio", "video", "dall-e", "mj_", "kling_", "flux"}

func (d *DMX) FetchModels(ctx context.Context) ([]adapter.RawModel, error) {
	var resp pricingResponse
	if err := d.client.GetJSON(ctx, d.baseURL+"/api/pricing", map[string]string{"Referer": d.baseURL + "/"}, &resp); err != nil {
		return nil, fmt.Errorf("dmx pricing: %w", err)
	}

	table := resp.Data.ModelCompletionRatio
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	slices.Sort(names)

	var models []adapter.RawModel
	skipped := 0
	for _, name := range names {
		if shouldSkip(name) {
			skipped++
			continue
		}
		in, out, ok := parsePricing(table[name])
		if !ok {
			slog.Debug("dmx: unrecognized pricing entry", "model", name)
			skipped++
			continue
		}
		models = append(models, adapter.RawModel{
			SourceID:      "dmx",
			DisplayName:   name,
			Brand:         inferBrand(name),
			ContextWindow: inferContextWindow(name),
			InputPrice:    in,
			OutputPrice:   out,
			Currency:      "USD",
		})
	}

	slog.Info("dmx fetch complete", "entries", len(table), "models", len(models), "skipped", skipped)
	return models, nil
}

func shouldSkip(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range skipWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// parsePricing converts one table value. Bare ratios of 1000 or more are
// micro-dollar amounts; smaller ones are taken as-is.
func parsePricing(v any) (in, out float64, ok bool) {
	switch p := v.(type) {
	case float64:
		if p >= 1000 {
			p /= 1e6
		}
		return p, p, true
	case map[string]any:
		prompt, okIn := number(p["PromptRatio"])
		completion, okOut := number(p["CompletionRatio"])
		if !okIn && !okOut {
			return 0, 0, false
		}
		return prompt / 1e6, completion / 1e6, true
	default:
		return 0, 0, false
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var brandKeywords = []struct{ key, brand string }{
	{"gpt", "OpenAI"},
	{"o1", "OpenAI"},
	{"o3", "OpenAI"},
	{"o4", "OpenAI"},
	{"claude", "Anthropic"},
	{"gemini", "Google"},
	{"deepseek", "DeepSeek"},
	{"qwen", "Qwen"},
	{"glm", "GLM"},
	{"doubao", "Doubao"},
	{"ernie", "ERNIE"},
	{"hunyuan", "Hunyuan"},
	{"moonshot", "Moonshot"},
	{"kimi", "Moonshot"},
	{"abab", "MiniMax"},
	{"baichuan", "Baichuan"},
	{"spark", "iFLYTEK"},
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

var contextRe = regexp.MustCompile(`(?i)(\d+)k`)

// inferContextWindow reads an explicit NNk size from the name, then falls
// back to family defaults. Zero means unknown.
func inferContextWindow(name string) int {
	if m := contextRe.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 1000
	}
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "gpt-4"):
		return 128000
	case strings.Contains(lower, "gpt-3.5"):
		return 16000
	case strings.Contains(lower, "claude"):
		return 200000
	case strings.Contains(lower, "gemini"), strings.Contains(lower, "deepseek"):
		return 128000
	default:
		return 0
	}
}
