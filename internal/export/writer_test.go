package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/everstacklabs/pricehub/internal/model"
)

func sonnet() *Model {
	return &Model{
		Name:                "Claude-3.5-Sonnet",
		Brand:               "Anthropic",
		ContextWindow:       200000,
		RecommendedProvider: "aihubmix",
		Providers: []model.ProviderOffer{
			{ProviderID: "wolfai", DisplayLabel: "WolfAI (claude-3-5-sonnet)", InputPrice: 3, OutputPrice: 15, Currency: "USD"},
			{ProviderID: "aihubmix", DisplayLabel: "AiHubMix (Claude-3.5-Sonnet)", InputPrice: 1.5, OutputPrice: 7.5, Currency: "ratio"},
		},
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Claude-3.5-Sonnet", "claude-3.5-sonnet"},
		{"GPT 4 Turbo", "gpt-4-turbo"},
		{"  meta-llama/Llama-3  ", "meta-llama-llama-3"},
		{"qwen__max!!", "qwen-max"},
		{"通义千问", "通义千问"},
		{"***", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slug(tt.in); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteNewModel(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	result, err := w.WriteModel(sonnet())
	if err != nil {
		t.Fatalf("WriteModel failed: %v", err)
	}
	if !result.IsNew {
		t.Error("expected IsNew to be true")
	}
	if filepath.Base(result.Path) != "claude-3.5-sonnet.yaml" {
		t.Errorf("path = %s", result.Path)
	}

	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	var loaded Model
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("parsing written YAML: %v", err)
	}
	if loaded.Name != "Claude-3.5-Sonnet" || len(loaded.Providers) != 2 {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Providers[1].Currency != "ratio" {
		t.Errorf("currency tag lost: %+v", loaded.Providers[1])
	}
	if strings.Contains(string(data), "record_index") {
		t.Error("record index should not be exported")
	}
}

func TestWriteUpdatedModelPreservesManualFields(t *testing.T) {
	dir := t.TempDir()
	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	existing := `name: Claude-3.5-Sonnet
notes: "checked by hand"
brand: Anthropic
context_window: 200000
recommended_provider: wolfai
providers:
    - provider_id: wolfai
      display_label: WolfAI (claude-3-5-sonnet)
      input_price: 3
      output_price: 15
      currency: USD
`
	path := filepath.Join(modelsDir, "claude-3.5-sonnet.yaml")
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := NewWriter(dir).WriteModel(sonnet())
	if err != nil {
		t.Fatalf("WriteModel failed: %v", err)
	}
	if result.IsNew {
		t.Error("expected IsNew to be false")
	}
	if len(result.Changes) != 2 {
		t.Fatalf("changes = %+v, want recommended_provider and a provider addition", result.Changes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "checked by hand") {
		t.Error("manual field was dropped")
	}
	if strings.Index(content, "notes:") > strings.Index(content, "brand:") {
		t.Error("existing key order was not preserved")
	}
	if !strings.Contains(content, "recommended_provider: aihubmix") {
		t.Errorf("recommended provider not updated:\n%s", content)
	}
}

func TestWriteUnchangedModelSkipsWrite(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	m := sonnet()
	m.Stamp("run-1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if _, err := w.WriteModel(m); err != nil {
		t.Fatal(err)
	}

	again := sonnet()
	again.Stamp("run-2", time.Date(2026, 2, 2, 3, 4, 5, 0, time.UTC))
	result, err := w.WriteModel(again)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Changes) != 0 {
		t.Errorf("changes = %+v, want none", result.Changes)
	}

	data, _ := os.ReadFile(result.Path)
	if !strings.Contains(string(data), "run-1") {
		t.Error("unchanged model should keep its previous stamp")
	}
}

func TestWriteModelRejectsUnnamed(t *testing.T) {
	if _, err := NewWriter(t.TempDir()).WriteModel(&Model{Name: "!!"}); err == nil {
		t.Error("expected error for a name with no slug")
	}
}

func TestCompareModels(t *testing.T) {
	old := sonnet()
	cur := sonnet()
	cur.ContextWindow = 400000
	cur.TrainingDataAmount = model.IntPtr(10)
	cur.Providers[0].InputPrice = 2.5
	cur.Providers = cur.Providers[:1]
	cur.Providers = append(cur.Providers, model.ProviderOffer{ProviderID: "dmx", DisplayLabel: "DMXAPI (claude-3-5-sonnet)", Currency: "CNY"})

	fields := make(map[string]FieldChange)
	for _, c := range CompareModels(old, cur) {
		fields[c.Field+"|"+toString(c.OldValue)+"|"+toString(c.NewValue)] = c
	}

	for _, want := range []string{
		"context_window|200000|400000",
		"training_data_amount|<nil>|10",
		"providers[WolfAI (claude-3-5-sonnet)].input_price|3|2.5",
		"providers|<nil>|DMXAPI (claude-3-5-sonnet)",
		"providers|AiHubMix (Claude-3.5-Sonnet)|<nil>",
	} {
		if _, ok := fields[want]; !ok {
			t.Errorf("missing change %s in %v", want, fields)
		}
	}
	if len(fields) != 5 {
		t.Errorf("got %d changes, want 5", len(fields))
	}
}

func TestOffersByKeyDisambiguatesRepeats(t *testing.T) {
	offers := []model.ProviderOffer{
		{ProviderID: "dmx", DisplayLabel: "DMX (gpt-4o)"},
		{ProviderID: "dmx", DisplayLabel: "DMX (gpt-4o)"},
		{ProviderID: "wolfai"},
	}
	byKey, order := offersByKey(offers)
	if len(byKey) != 3 {
		t.Fatalf("keys = %v", order)
	}
	want := []string{"DMX (gpt-4o)", "DMX (gpt-4o)#2", "wolfai"}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func toString(v any) string {
	if v == nil {
		return "<nil>"
	}
	out, _ := yaml.Marshal(v)
	return strings.TrimSpace(string(out))
}
