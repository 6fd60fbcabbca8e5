package anthropic

import (
	"context"
	"log/slog"
	"strings"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/htmlutil"
)

// fetchFromDocs scrapes the pricing tables. The first row seen for a model
// wins, which on the docs page is the standard-rate table.
func (a *Anthropic) fetchFromDocs(ctx context.Context) ([]adapter.RawModel, error) {
	doc, err := htmlutil.Fetch(ctx, a.client, a.pricingURL)
	if err != nil {
		return nil, err
	}

	var models []adapter.RawModel
	seen := make(map[string]bool)
	for _, row := range htmlutil.TableRows(doc, "table") {
		m, ok := parseDocsRow(row)
		if !ok || seen[m.DisplayName] {
			continue
		}
		seen[m.DisplayName] = true
		models = append(models, m)
	}

	slog.Info("anthropic docs scraping complete", "models_from_docs", len(models))
	return models, nil
}

// parseDocsRow extracts a model from a pricing table row. Rows without a
// Claude name or without both prices are skipped.
func parseDocsRow(row htmlutil.Row) (adapter.RawModel, bool) {
	name := row.Get("model", "model name", "name")
	if !strings.Contains(strings.ToLower(name), "claude") {
		return adapter.RawModel{}, false
	}

	in, okIn := htmlutil.ParsePriceDollars(row.Get("base input tokens", "input", "input price", "input cost"))
	out, okOut := htmlutil.ParsePriceDollars(row.Get("output tokens", "output", "output price", "output cost"))
	if !okIn || !okOut {
		return adapter.RawModel{}, false
	}

	m := claude(canonicalName(name), in, out)
	if window, ok := htmlutil.ParseTokenCount(row.Get("context window", "context")); ok && window > 0 {
		m.ContextWindow = window
	}
	return m, true
}
