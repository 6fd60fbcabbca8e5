// Package static serves a fixed model list, either built in or declared in
// configuration.
package static

import (
	"context"
	"slices"

	"github.com/everstacklabs/pricehub/internal/adapter"
)

// Model is one configured listing.
type Model struct {
	Name               string  `mapstructure:"name" yaml:"name" validate:"required"`
	Brand              string  `mapstructure:"brand" yaml:"brand"`
	ContextWindow      int     `mapstructure:"context_window" yaml:"context_window" validate:"gte=0"`
	TrainingDataAmount *int    `mapstructure:"training_data_amount" yaml:"training_data_amount,omitempty"`
	InputPrice         float64 `mapstructure:"input_price" yaml:"input_price" validate:"gte=0"`
	OutputPrice        float64 `mapstructure:"output_price" yaml:"output_price" validate:"gte=0"`
	Currency           string  `mapstructure:"currency" yaml:"currency,omitempty"`
}

// Source declares a static pricing source.
type Source struct {
	ID          string `mapstructure:"id" yaml:"id" validate:"required"`
	DisplayName string `mapstructure:"display_name" yaml:"display_name"`
	Website     string `mapstructure:"website" yaml:"website"`
	Currency    string `mapstructure:"currency" yaml:"currency"`
	// Supported limits the served models by name when non-empty.
	Supported []string `mapstructure:"supported_models" yaml:"supported_models,omitempty"`
	Models    []Model  `mapstructure:"models" yaml:"models" validate:"dive"`
}

// Static is an adapter over a fixed list.
type Static struct {
	src Source
}

// New creates a static adapter for src.
func New(src Source) *Static {
	if src.DisplayName == "" {
		src.DisplayName = src.ID
	}
	return &Static{src: src}
}

func (s *Static) Info() adapter.SourceInfo {
	return adapter.SourceInfo{
		ID:              s.src.ID,
		DisplayName:     s.src.DisplayName,
		Website:         s.src.Website,
		DefaultCurrency: s.src.Currency,
	}
}

// FetchModels returns the configured list. It never fails unless ctx is done.
func (s *Static) FetchModels(ctx context.Context) ([]adapter.RawModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]adapter.RawModel, 0, len(s.src.Models))
	for _, m := range s.src.Models {
		if len(s.src.Supported) > 0 && !slices.Contains(s.src.Supported, m.Name) {
			continue
		}
		out = append(out, adapter.RawModel{
			SourceID:           s.src.ID,
			DisplayName:        m.Name,
			Brand:              m.Brand,
			ContextWindow:      m.ContextWindow,
			InputPrice:         m.InputPrice,
			OutputPrice:        m.OutputPrice,
			Currency:           m.Currency,
			TrainingDataAmount: m.TrainingDataAmount,
		})
	}
	return out, nil
}

// HealthCheck always succeeds.
func (s *Static) HealthCheck(context.Context) error { return nil }

// MinExpectedModels is the number of models the source should serve.
func (s *Static) MinExpectedModels() int {
	if len(s.src.Supported) > 0 {
		return min(len(s.src.Supported), len(s.src.Models))
	}
	return len(s.src.Models)
}
