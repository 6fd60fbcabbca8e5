// Package export writes the merged catalog to disk as one YAML file per
// canonical model and reads a previous export back for diffing.
package export

import (
	"strings"
	"time"
	"unicode"

	"github.com/everstacklabs/pricehub/internal/model"
)

// Model is the on-disk shape of one canonical model.
type Model struct {
	Name                string                `yaml:"name"`
	Brand               string                `yaml:"brand"`
	ContextWindow       int                   `yaml:"context_window"`
	TrainingDataAmount  *int                  `yaml:"training_data_amount,omitempty"`
	RecommendedProvider string                `yaml:"recommended_provider"`
	Providers           []model.ProviderOffer `yaml:"providers"`
	XUpdater            *XUpdater             `yaml:"x_updater,omitempty"`
}

// XUpdater holds sync metadata appended to model files.
type XUpdater struct {
	LastVerifiedAt string   `yaml:"last_verified_at"`
	RunID          string   `yaml:"run_id,omitempty"`
	Sources        []string `yaml:"sources"`
}

// FromCanonical converts a merged model into its export form.
func FromCanonical(m model.CanonicalModel) *Model {
	out := &Model{
		Name:                m.Name,
		Brand:               m.Brand,
		ContextWindow:       m.ContextWindow,
		RecommendedProvider: m.RecommendedProvider,
		Providers:           make([]model.ProviderOffer, len(m.Providers)),
	}
	if m.TrainingDataAmount != nil {
		out.TrainingDataAmount = model.IntPtr(*m.TrainingDataAmount)
	}
	copy(out.Providers, m.Providers)
	for i := range out.Providers {
		out.Providers[i].RecordIndex = 0
	}
	return out
}

// ToCanonical converts an exported model back into the merged form.
func (m *Model) ToCanonical() model.CanonicalModel {
	out := model.CanonicalModel{
		Name:                m.Name,
		Brand:               m.Brand,
		ContextWindow:       m.ContextWindow,
		RecommendedProvider: m.RecommendedProvider,
		Providers:           append([]model.ProviderOffer(nil), m.Providers...),
	}
	if m.TrainingDataAmount != nil {
		out.TrainingDataAmount = model.IntPtr(*m.TrainingDataAmount)
	}
	return out
}

// Stamp records when and by which run the model was last verified.
func (m *Model) Stamp(runID string, at time.Time) {
	m.XUpdater = &XUpdater{
		LastVerifiedAt: at.UTC().Format(time.RFC3339),
		RunID:          runID,
		Sources:        m.SourceIDs(),
	}
}

// SourceIDs returns the distinct provider ids of the model's offers.
func (m *Model) SourceIDs() []string {
	var ids []string
	seen := make(map[string]bool, len(m.Providers))
	for _, p := range m.Providers {
		if !seen[p.ProviderID] {
			seen[p.ProviderID] = true
			ids = append(ids, p.ProviderID)
		}
	}
	return ids
}

// Slug maps a model name to its file name stem: lower case, with every run
// of characters other than letters, digits and dots collapsed to one dash.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
