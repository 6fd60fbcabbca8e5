package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everstacklabs/pricehub/internal/httpclient"
)

const modelsFixture = `{
  "data": [
    {"id": "anthropic/claude-3.5-sonnet", "name": "Anthropic: Claude 3.5 Sonnet", "context_length": 200000,
     "pricing": {"prompt": "0.000003", "completion": "0.000015"}},
    {"id": "meta-llama/llama-3.1-70b-instruct", "context_length": 0,
     "pricing": {"prompt": "0.00000012", "completion": "0.0000003"},
     "top_provider": {"context_length": 131072, "max_completion_tokens": 8192}},
    {"id": "openrouter/auto", "pricing": {"prompt": "-1", "completion": "-1"}},
    {"id": "nousresearch/hermes-3", "context_length": 4096, "pricing": {"prompt": "0", "completion": "0"}}
  ]
}`

func TestFetchModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(modelsFixture))
	}))
	defer srv.Close()

	models, err := New(srv.URL, httpclient.New()).FetchModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 3)

	claude := models[0]
	assert.Equal(t, "claude-3.5-sonnet", claude.DisplayName)
	assert.Equal(t, "Anthropic", claude.Brand)
	assert.InDelta(t, 3.0, claude.InputPrice, 1e-9)
	assert.InDelta(t, 15.0, claude.OutputPrice, 1e-9)

	llama := models[1]
	assert.Equal(t, "Meta", llama.Brand)
	assert.Equal(t, 131072, llama.ContextWindow)
	assert.Equal(t, 8192, llama.Extra["max_completion_tokens"])

	assert.Equal(t, "nousresearch", models[2].Brand)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "gpt-4o", displayName("openai/gpt-4o"))
	assert.Equal(t, "gpt-4o", displayName("gpt-4o"))
}
