// Package aihubmix reads the AIHubMix model info endpoint. Prices are the
// site's raw billing ratios and are tagged with the "ratio" currency.
package aihubmix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/htmlutil"
	"github.com/everstacklabs/pricehub/internal/httpclient"
)

// DefaultBaseURL is the public AIHubMix site.
const DefaultBaseURL = "https://aihubmix.com"

// minUsefulWindow is the smallest inferred window worth reporting; anything
// smaller is likely a version number rather than a size.
const minUsefulWindow = 4096

// ErrUnsuccessful is returned when the endpoint answers with success=false.
var ErrUnsuccessful = errors.New("aihubmix: unsuccessful response")

// AIHubMix adapter lists models from the AIHubMix model info endpoint.
type AIHubMix struct {
	baseURL string
	client  *httpclient.Client
}

// New creates the adapter. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, client *httpclient.Client) *AIHubMix {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &AIHubMix{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (a *AIHubMix) Info() adapter.SourceInfo {
	return adapter.SourceInfo{
		ID:              "aihubmix",
		DisplayName:     "AIHubMix",
		Website:         DefaultBaseURL,
		DefaultCurrency: "ratio",
	}
}

// HealthCheck fetches the model info endpoint with a short timeout.
func (a *AIHubMix) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := a.client.Get(ctx, a.baseURL+"/call/mdl_info", a.headers())
	return err
}

// MinExpectedModels returns the minimum listing count for AIHubMix.
func (a *AIHubMix) MinExpectedModels() int { return 20 }

type infoResponse struct {
	Success bool      `json:"success"`
	Data    []infoRow `json:"data"`
}

type infoRow struct {
	Model           string `json:"model"`
	ModelName       string `json:"model_name"`
	Developer       string `json:"developer"`
	ContextLength   any    `json:"context_length"`
	Desc            string `json:"desc"`
	DescEN          string `json:"desc_en"`
	ModelRatio      any    `json:"model_ratio"`
	CompletionRatio any    `json:"completion_ratio"`
}

func (r infoRow) name() string {
	if r.Model != "" {
		return r.Model
	}
	return r.ModelName
}

func (a *AIHubMix) FetchModels(ctx context.Context) ([]adapter.RawModel, error) {
	var resp infoResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/call/mdl_info", a.headers(), &resp); err != nil {
		return nil, fmt.Errorf("aihubmix model info: %w", err)
	}
	if !resp.Success {
		return nil, ErrUnsuccessful
	}

	models := make([]adapter.RawModel, 0, len(resp.Data))
	for _, row := range resp.Data {
		input, _ := number(row.ModelRatio)
		output, ok := number(row.CompletionRatio)
		if !ok {
			output = input
		}

		brand := row.Developer
		if brand == "" {
			brand = "Unknown"
		}

		// Empty names are passed through and rejected during normalization.
		models = append(models, adapter.RawModel{
			SourceID:           "aihubmix",
			DisplayName:        row.name(),
			Brand:              brand,
			ContextWindow:      inferContextWindow(row),
			InputPrice:         input,
			OutputPrice:        output,
			Currency:           "ratio",
			TrainingDataAmount: parseDataAmount(row.Desc),
		})
	}

	slog.Info("aihubmix fetch complete", "models", len(models))
	return models, nil
}

func (a *AIHubMix) headers() map[string]string {
	return map[string]string{"Referer": a.baseURL + "/models"}
}

var (
	descContextRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)([0-9]+[kmb]?)\s*(?:令牌|tokens?|上下文|contexts?)`),
		regexp.MustCompile(`(?i)(?:支持|context|window).*?([0-9]+[kmb]?)\s*(?:令牌|token)`),
		regexp.MustCompile(`(?i)上下文长度.*?([0-9]+[kmb]?)`),
		regexp.MustCompile(`(?i)context.*?length.*?([0-9]+[kmb]?)`),
	}
	// Name suffixes in b are parameter counts, not context sizes.
	nameContextRe = regexp.MustCompile(`(?i)[-_]([0-9]+[km]?)(?:$|[-_])`)
)

// inferContextWindow tries the explicit field, then the description, then
// the model name. Zero means unknown.
func inferContextWindow(row infoRow) int {
	switch v := row.ContextLength.(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case string:
		if n, ok := htmlutil.ParseTokenCount(strings.ReplaceAll(v, " ", "")); ok && n > 0 {
			return n
		}
	}

	desc := row.Desc
	if desc == "" {
		desc = row.DescEN
	}
	for _, re := range descContextRes {
		if m := re.FindStringSubmatch(desc); m != nil {
			if n, ok := htmlutil.ParseTokenCount(m[1]); ok && n > minUsefulWindow {
				return n
			}
		}
	}

	if m := nameContextRe.FindStringSubmatch(row.name()); m != nil {
		if n, ok := htmlutil.ParseTokenCount(m[1]); ok && n > minUsefulWindow {
			return n
		}
	}
	return 0
}

var dataAmountRe = regexp.MustCompile(`(?i)([0-9.]+)\s*([kmgt]b)`)

// parseDataAmount reads a training corpus size from the description and
// returns it in GB.
func parseDataAmount(desc string) *int {
	m := dataAmountRe.FindStringSubmatch(desc)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	switch strings.ToUpper(m[2]) {
	case "TB":
		v *= 1000
	case "MB":
		v /= 1000
	case "KB":
		v /= 1_000_000
	}
	n := int(v)
	return &n
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
