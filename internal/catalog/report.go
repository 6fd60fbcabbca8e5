package catalog

import "time"

// RefreshReport summarizes one catalog rebuild. It is how callers tell an
// empty catalog apart from failing sources.
type RefreshReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Sources    []SourceReport `json:"sources"`
	// Records is the number of normalized records fed to the merge engine.
	Records int `json:"records"`
	// Canonical is the number of merged models.
	Canonical int     `json:"canonical"`
	Errors    []error `json:"-"`
}

// SourceReport is the outcome of one adapter within a refresh.
type SourceReport struct {
	SourceID    string `json:"source_id"`
	DisplayName string `json:"display_name"`
	Records     int    `json:"records"`
	Malformed   int    `json:"malformed"`
	Error       string `json:"error,omitempty"`
	// BelowExpected is set when the source answered with fewer listings
	// than it normally publishes.
	BelowExpected bool  `json:"below_expected,omitempty"`
	DurationMS    int64 `json:"duration_ms"`
}

// Failed returns the ids of sources that were unavailable.
func (r *RefreshReport) Failed() []string {
	var out []string
	for _, s := range r.Sources {
		if s.Error != "" {
			out = append(out, s.SourceID)
		}
	}
	return out
}

// Unhealthy returns the ids of sources that failed or returned a suspiciously
// short listing.
func (r *RefreshReport) Unhealthy() []string {
	var out []string
	for _, s := range r.Sources {
		if s.Error != "" || s.BelowExpected {
			out = append(out, s.SourceID)
		}
	}
	return out
}
