// Package model holds the records that flow from source adapters through the
// merge engine to the query surface.
package model

// ProviderOffer is one source's price listing for a model. Prices are kept in
// the source's own currency or unit and are never converted.
type ProviderOffer struct {
	ProviderID   string  `json:"provider_id" yaml:"provider_id"`
	DisplayLabel string  `json:"display_label" yaml:"display_label"`
	Website      string  `json:"website,omitempty" yaml:"website,omitempty"`
	InputPrice   float64 `json:"input_price" yaml:"input_price"`
	OutputPrice  float64 `json:"output_price" yaml:"output_price"`
	Currency     string  `json:"currency" yaml:"currency"`
	// RecordIndex points back at the normalized record the offer came from.
	// It is only meaningful within a single refresh.
	RecordIndex int `json:"record_index" yaml:"-"`
}

// Record is a normalized model listing from one source.
type Record struct {
	Index              int
	Name               string
	Brand              string
	ContextWindow      int
	TrainingDataAmount *int
	Offer              ProviderOffer
	Extra              map[string]any
}

// SourceID returns the id of the adapter that produced the record.
func (r Record) SourceID() string { return r.Offer.ProviderID }

// CanonicalModel is the merged view of one or more records judged to be the
// same model.
type CanonicalModel struct {
	Name                string          `json:"name"`
	Brand               string          `json:"brand"`
	ContextWindow       int             `json:"context_window"`
	TrainingDataAmount  *int            `json:"training_data_amount,omitempty"`
	Providers           []ProviderOffer `json:"providers"`
	RecommendedProvider string          `json:"recommended_provider"`
}

// Currencies returns the distinct currency tags of the model's offers in
// first-seen order.
func (m CanonicalModel) Currencies() []string {
	var out []string
	seen := make(map[string]bool, len(m.Providers))
	for _, p := range m.Providers {
		if seen[p.Currency] {
			continue
		}
		seen[p.Currency] = true
		out = append(out, p.Currency)
	}
	return out
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
