package anthropic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/everstacklabs/pricehub/internal/httpclient"
)

const pricingPage = `<html><body><article>
<table>
<thead><tr><th>Model</th><th>Base Input Tokens</th><th>Output Tokens</th></tr></thead>
<tbody>
<tr><td>Claude Opus 4.1</td><td>$15 / MTok</td><td>$75 / MTok</td></tr>
<tr><td>Claude Sonnet 4</td><td>$3 / MTok</td><td>$15 / MTok</td></tr>
<tr><td>Claude Haiku 3.5 (deprecated)</td><td>$0.80 / MTok</td><td>$4 / MTok</td></tr>
<tr><td>Batch discount</td><td>50%</td><td>50%</td></tr>
</tbody>
</table>
</article></body></html>`

func TestFetchModelsFromDocs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(pricingPage))
	}))
	defer srv.Close()

	models, err := New(srv.URL, httpclient.New()).FetchModels(context.Background())
	if err != nil {
		t.Fatalf("FetchModels: %v", err)
	}
	if len(models) != 3 {
		t.Fatalf("got %d models, want 3", len(models))
	}

	want := []struct {
		name    string
		in, out float64
	}{
		{"Claude-Opus-4.1", 15, 75},
		{"Claude-Sonnet-4", 3, 15},
		{"Claude-Haiku-3.5", 0.8, 4},
	}
	for i, w := range want {
		m := models[i]
		if m.DisplayName != w.name || m.InputPrice != w.in || m.OutputPrice != w.out {
			t.Errorf("models[%d] = %s %v/%v, want %s %v/%v", i, m.DisplayName, m.InputPrice, m.OutputPrice, w.name, w.in, w.out)
		}
		if m.ContextWindow != defaultContextWindow || m.Currency != "USD" {
			t.Errorf("models[%d] = %+v", i, m)
		}
	}
}

func TestFetchModelsFallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"upstream error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"no pricing table", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			models, err := New(srv.URL, httpclient.New()).FetchModels(context.Background())
			if err != nil {
				t.Fatalf("FetchModels: %v", err)
			}
			if len(models) != len(fallbackModels()) {
				t.Fatalf("got %d models, want fallback list", len(models))
			}
			found := false
			for _, m := range models {
				if m.DisplayName == "Claude-3.5-Sonnet" && m.InputPrice == 3 && m.OutputPrice == 15 {
					found = true
				}
			}
			if !found {
				t.Error("fallback list should include Claude-3.5-Sonnet at 3/15")
			}
		})
	}
}

func TestFetchModelsCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(pricingPage))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(srv.URL, httpclient.New()).FetchModels(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Claude Sonnet 4", "Claude-Sonnet-4"},
		{"Claude Haiku 3 (Deprecated)", "Claude-Haiku-3"},
		{"  Claude   Opus 4 ", "Claude-Opus-4"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := canonicalName(tt.in); got != tt.want {
				t.Errorf("canonicalName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
