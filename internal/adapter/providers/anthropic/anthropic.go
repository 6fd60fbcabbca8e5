// Package anthropic reads Claude pricing from Anthropic's pricing docs, with
// a built-in list when the page cannot be used.
package anthropic

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/httpclient"
)

// DefaultPricingURL is the Anthropic pricing docs page.
const DefaultPricingURL = "https://docs.anthropic.com/en/docs/about-claude/pricing"

const defaultContextWindow = 200000

// Anthropic adapter lists Claude models and their USD prices.
type Anthropic struct {
	pricingURL string
	client     *httpclient.Client
}

// New creates the adapter. An empty pricingURL selects DefaultPricingURL.
func New(pricingURL string, client *httpclient.Client) *Anthropic {
	if pricingURL == "" {
		pricingURL = DefaultPricingURL
	}
	return &Anthropic{pricingURL: pricingURL, client: client}
}

func (a *Anthropic) Info() adapter.SourceInfo {
	return adapter.SourceInfo{
		ID:              "anthropic",
		DisplayName:     "Anthropic",
		Website:         "https://www.anthropic.com",
		DefaultCurrency: "USD",
	}
}

// HealthCheck fetches the pricing page with a short timeout.
func (a *Anthropic) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := a.client.Get(ctx, a.pricingURL, nil)
	return err
}

// MinExpectedModels returns the minimum model count for Anthropic.
func (a *Anthropic) MinExpectedModels() int { return 2 }

// FetchModels scrapes the pricing table. A failed or empty scrape falls back
// to the built-in list, so the source only fails when ctx is done.
func (a *Anthropic) FetchModels(ctx context.Context) ([]adapter.RawModel, error) {
	models, err := a.fetchFromDocs(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("anthropic docs scraping failed, using built-in prices", "error", err)
		return fallbackModels(), nil
	}
	if len(models) == 0 {
		slog.Warn("anthropic docs scraping: no pricing rows found, using built-in prices")
		return fallbackModels(), nil
	}
	return models, nil
}

// fallbackModels is the published list as of the last manual update.
func fallbackModels() []adapter.RawModel {
	return []adapter.RawModel{
		claude("Claude-4-Opus", 15, 75),
		claude("Claude-4-Sonnet", 3, 15),
		claude("Claude-3.5-Sonnet", 3, 15),
		claude("Claude-3.5-Haiku", 0.8, 4),
	}
}

func claude(name string, in, out float64) adapter.RawModel {
	return adapter.RawModel{
		SourceID:      "anthropic",
		DisplayName:   name,
		Brand:         "Anthropic",
		ContextWindow: defaultContextWindow,
		InputPrice:    in,
		OutputPrice:   out,
		Currency:      "USD",
	}
}

var deprecatedRe = regexp.MustCompile(`(?i)\s*\((deprecated|retired)\)`)

// canonicalName turns a docs label such as "Claude Sonnet 4 (deprecated)"
// into "Claude-Sonnet-4".
func canonicalName(label string) string {
	label = deprecatedRe.ReplaceAllString(label, "")
	return strings.Join(strings.Fields(label), "-")
}
