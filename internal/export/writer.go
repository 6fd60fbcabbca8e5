package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/everstacklabs/pricehub/internal/model"
)

// FieldChange records a single field change for diff reporting.
type FieldChange struct {
	Field    string
	OldValue any
	NewValue any
}

// WriteResult reports what happened when a model was written.
type WriteResult struct {
	Path    string
	IsNew   bool
	Changes []FieldChange
}

// SmartMergeWriter writes model files, keeping keys and ordering that were
// added to an existing file by hand.
type SmartMergeWriter struct {
	basePath string
}

// NewWriter creates a writer rooted at basePath.
func NewWriter(basePath string) *SmartMergeWriter {
	return &SmartMergeWriter{basePath: basePath}
}

// Path returns the file a model is written to.
func (w *SmartMergeWriter) Path(name string) string {
	return filepath.Join(w.basePath, "models", Slug(name)+".yaml")
}

// WriteModel merges m into its file. An existing file whose content already
// matches m is left untouched, x_updater included.
func (w *SmartMergeWriter) WriteModel(m *Model) (*WriteResult, error) {
	if Slug(m.Name) == "" {
		return nil, fmt.Errorf("model %q has no usable file name", m.Name)
	}
	if err := os.MkdirAll(filepath.Join(w.basePath, "models"), 0o755); err != nil {
		return nil, fmt.Errorf("creating models dir: %w", err)
	}

	filePath := w.Path(m.Name)
	result := &WriteResult{Path: filePath}

	existingData, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		result.IsNew = true
		return result, writeYAML(filePath, m)
	} else if err != nil {
		return nil, fmt.Errorf("reading existing file: %w", err)
	}

	var existingDoc yaml.Node
	if err := yaml.Unmarshal(existingData, &existingDoc); err != nil {
		return nil, fmt.Errorf("parsing existing YAML: %w", err)
	}
	var existing Model
	if err := yaml.Unmarshal(existingData, &existing); err != nil {
		return nil, fmt.Errorf("parsing existing model: %w", err)
	}

	result.Changes = CompareModels(&existing, m)
	if len(result.Changes) == 0 {
		return result, nil
	}

	discoveredData, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling model: %w", err)
	}
	var discoveredDoc yaml.Node
	if err := yaml.Unmarshal(discoveredData, &discoveredDoc); err != nil {
		return nil, fmt.Errorf("parsing model YAML: %w", err)
	}

	out, err := yaml.Marshal(mergeNodes(&existingDoc, &discoveredDoc))
	if err != nil {
		return nil, fmt.Errorf("marshaling merged YAML: %w", err)
	}
	if err := os.WriteFile(filePath, out, 0o644); err != nil {
		return nil, fmt.Errorf("writing merged file: %w", err)
	}
	return result, nil
}

func writeYAML(path string, m *Model) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// mergeNodes overlays src mapping keys onto dst, keeping dst's key order and
// any dst keys src does not have.
func mergeNodes(dst, src *yaml.Node) *yaml.Node {
	if dst.Kind == yaml.DocumentNode && len(dst.Content) > 0 {
		dst = dst.Content[0]
	}
	if src.Kind == yaml.DocumentNode && len(src.Content) > 0 {
		src = src.Content[0]
	}
	if dst.Kind != yaml.MappingNode || src.Kind != yaml.MappingNode {
		return src
	}

	srcVals := make(map[string]*yaml.Node, len(src.Content)/2)
	for i := 0; i+1 < len(src.Content); i += 2 {
		srcVals[src.Content[i].Value] = src.Content[i+1]
	}

	seen := make(map[string]bool, len(srcVals))
	for i := 0; i+1 < len(dst.Content); i += 2 {
		key := dst.Content[i].Value
		if v, ok := srcVals[key]; ok {
			dst.Content[i+1] = v
			seen[key] = true
		}
	}
	for i := 0; i+1 < len(src.Content); i += 2 {
		if !seen[src.Content[i].Value] {
			dst.Content = append(dst.Content, src.Content[i], src.Content[i+1])
		}
	}
	return dst
}

// CompareModels lists the content differences between two versions of a
// model. Sync metadata is ignored.
func CompareModels(old, cur *Model) []FieldChange {
	var changes []FieldChange

	if old.Brand != cur.Brand {
		changes = append(changes, FieldChange{"brand", old.Brand, cur.Brand})
	}
	if old.ContextWindow != cur.ContextWindow {
		changes = append(changes, FieldChange{"context_window", old.ContextWindow, cur.ContextWindow})
	}
	if !equalIntPtr(old.TrainingDataAmount, cur.TrainingDataAmount) {
		changes = append(changes, FieldChange{"training_data_amount", derefOrNil(old.TrainingDataAmount), derefOrNil(cur.TrainingDataAmount)})
	}
	if old.RecommendedProvider != cur.RecommendedProvider {
		changes = append(changes, FieldChange{"recommended_provider", old.RecommendedProvider, cur.RecommendedProvider})
	}

	oldOffers, oldOrder := offersByKey(old.Providers)
	curOffers, curOrder := offersByKey(cur.Providers)

	for _, key := range curOrder {
		c := curOffers[key]
		o, ok := oldOffers[key]
		if !ok {
			changes = append(changes, FieldChange{"providers", nil, key})
			continue
		}
		prefix := "providers[" + key + "]."
		if o.Currency != c.Currency {
			changes = append(changes, FieldChange{prefix + "currency", o.Currency, c.Currency})
		}
		if o.InputPrice != c.InputPrice {
			changes = append(changes, FieldChange{prefix + "input_price", o.InputPrice, c.InputPrice})
		}
		if o.OutputPrice != c.OutputPrice {
			changes = append(changes, FieldChange{prefix + "output_price", o.OutputPrice, c.OutputPrice})
		}
	}
	for _, key := range oldOrder {
		if _, ok := curOffers[key]; !ok {
			changes = append(changes, FieldChange{"providers", key, nil})
		}
	}

	return changes
}

// offersByKey keys offers by display label; repeats get a "#n" suffix.
func offersByKey(offers []model.ProviderOffer) (map[string]model.ProviderOffer, []string) {
	byKey := make(map[string]model.ProviderOffer, len(offers))
	order := make([]string, 0, len(offers))
	for _, o := range offers {
		key := o.DisplayLabel
		if key == "" {
			key = o.ProviderID
		}
		base := key
		for n := 2; ; n++ {
			if _, dup := byKey[key]; !dup {
				break
			}
			key = base + "#" + strconv.Itoa(n)
		}
		byKey[key] = o
		order = append(order, key)
	}
	return byKey, order
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func derefOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
