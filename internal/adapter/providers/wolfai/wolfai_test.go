package wolfai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/everstacklabs/pricehub/internal/httpclient"
)

const pricingFixture = `{
  "success": true,
  "data": [
    {"model_name": "gpt-4o", "quota_type": 0, "model_ratio": 1.25, "completion_ratio": 4, "tags": "128K,vision", "vendor_id": 1},
    {"model_name": "claude-3-5-sonnet-20241022", "quota_type": 0, "model_ratio": 1.5, "completion_ratio": 5, "tags": "200k"},
    {"model_name": "mj_imagine", "quota_type": 1, "model_price": 0.1},
    {"model_name": "", "quota_type": 0, "model_ratio": 1}
  ]
}`

func TestFetchModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pricing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(pricingFixture))
	}))
	defer srv.Close()

	models, err := New(srv.URL, httpclient.New()).FetchModels(context.Background())
	if err != nil {
		t.Fatalf("FetchModels: %v", err)
	}
	if len(models) != 3 {
		t.Fatalf("got %d models, want 3", len(models))
	}

	gpt := models[0]
	if gpt.Brand != "OpenAI" || gpt.ContextWindow != 128000 {
		t.Errorf("gpt-4o = %+v", gpt)
	}
	if gpt.InputPrice != 2.5 || gpt.OutputPrice != 10 {
		t.Errorf("gpt-4o prices = %v/%v, want 2.5/10", gpt.InputPrice, gpt.OutputPrice)
	}

	mj := models[2]
	if mj.Brand != "Midjourney" || mj.InputPrice != 0.1 || mj.Extra["billing"] != "per_request" {
		t.Errorf("mj_imagine = %+v", mj)
	}
}

func TestFetchModelsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := New(srv.URL, httpclient.New()).FetchModels(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestInferBrand(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"gpt-4o-mini", "OpenAI"},
		{"Claude-3-Opus", "Anthropic"},
		{"gemini-2.0-flash", "Google"},
		{"qwq-32b", "Qwen"},
		{"o3-mini", "OpenAI"},
		{"grok-3", "xAI"},
		{"yi-large", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferBrand(tt.name); got != tt.want {
				t.Errorf("inferBrand(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestInferContextWindow(t *testing.T) {
	tests := []struct {
		name, tags string
		want       int
	}{
		{"gpt-4-32k", "", 32000},
		{"gemini-1.5-pro", "1m", 1000000},
		{"moonshot-v1-128k", "", 128000},
		{"qwen-long", "1万", 10000},
		{"model", "16.4k", 16400},
		{"gpt-4o-mini", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferContextWindow(tt.name, tt.tags); got != tt.want {
				t.Errorf("inferContextWindow(%q, %q) = %d, want %d", tt.name, tt.tags, got, tt.want)
			}
		})
	}
}
