package adapter

import "context"

// SourceInfo identifies a pricing source.
type SourceInfo struct {
	// ID is the stable source id (e.g., "wolfai").
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Website     string `json:"website" yaml:"website"`
	// DefaultCurrency is applied to records that carry no currency tag.
	DefaultCurrency string `json:"default_currency" yaml:"default_currency"`
}

// Adapter fetches model listings from one pricing source.
type Adapter interface {
	// Info returns the source identity.
	Info() SourceInfo
	// FetchModels returns the source's current model listings. It may fail
	// for any reason and can be called repeatedly.
	FetchModels(ctx context.Context) ([]RawModel, error)
}

// HealthChecker is an optional interface adapters can implement for liveness
// probes and post-fetch record count validation.
type HealthChecker interface {
	// HealthCheck performs a lightweight liveness probe against the source.
	HealthCheck(ctx context.Context) error
	// MinExpectedModels returns the minimum number of listings expected from
	// this source. A result below this threshold signals a data quality issue.
	MinExpectedModels() int
}

// RawModel is a model listing as an adapter reports it, before normalization.
type RawModel struct {
	SourceID    string
	DisplayName string
	// Brand may be empty or "Unknown" when the source does not say.
	Brand string
	// ContextWindow is in tokens; zero means unknown.
	ContextWindow int
	InputPrice    float64
	OutputPrice   float64
	// Currency is a free-form tag such as "USD", "CNY" or "ratio".
	Currency           string
	TrainingDataAmount *int
	Extra              map[string]any
}
