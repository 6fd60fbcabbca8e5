// Package normalize converts adapter output into records the merge engine can
// consume.
package normalize

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/model"
)

const (
	// DefaultContextWindow is used when a source reports no usable window.
	DefaultContextWindow = 4096
	// UnknownBrand is used when a source reports no brand.
	UnknownBrand = "Unknown"
	// FallbackCurrency applies when neither the record nor the source names one.
	FallbackCurrency = "USD"
)

// ErrEmptyName marks a record whose display name is empty after trimming.
var ErrEmptyName = errors.New("empty model name")

// MalformedRecordError reports a raw record that cannot be normalized. The
// record is skipped and the rest of the batch continues.
type MalformedRecordError struct {
	SourceID string
	// Position is the record's position in the adapter's output.
	Position int
	Err      error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %d from %s: %v", e.Position, e.SourceID, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Normalize converts one raw listing into a Record with the given index.
func Normalize(raw adapter.RawModel, src adapter.SourceInfo, index int) (model.Record, error) {
	sourceID := raw.SourceID
	if sourceID == "" {
		sourceID = src.ID
	}

	name := strings.TrimSpace(raw.DisplayName)
	if name == "" {
		return model.Record{}, &MalformedRecordError{SourceID: sourceID, Position: index, Err: ErrEmptyName}
	}

	brand := strings.TrimSpace(raw.Brand)
	if brand == "" {
		brand = UnknownBrand
	}

	window := raw.ContextWindow
	if window <= 0 {
		window = DefaultContextWindow
	}

	currency := strings.TrimSpace(raw.Currency)
	if currency == "" {
		currency = src.DefaultCurrency
	}
	if currency == "" {
		currency = FallbackCurrency
	}

	var amount *int
	if raw.TrainingDataAmount != nil && *raw.TrainingDataAmount >= 0 {
		amount = model.IntPtr(*raw.TrainingDataAmount)
	}

	label := src.DisplayName
	if label == "" {
		label = sourceID
	}

	return model.Record{
		Index:              index,
		Name:               name,
		Brand:              brand,
		ContextWindow:      window,
		TrainingDataAmount: amount,
		Offer: model.ProviderOffer{
			ProviderID:   sourceID,
			DisplayLabel: fmt.Sprintf("%s (%s)", label, name),
			Website:      src.Website,
			InputPrice:   price(raw.InputPrice),
			OutputPrice:  price(raw.OutputPrice),
			Currency:     currency,
			RecordIndex:  index,
		},
		Extra: maps.Clone(raw.Extra),
	}, nil
}

// NormalizeAll normalizes a batch from one source. Kept records get dense
// indices starting at startIndex; malformed ones are returned as errors and
// consume no index.
func NormalizeAll(raws []adapter.RawModel, src adapter.SourceInfo, startIndex int) ([]model.Record, []error) {
	records := make([]model.Record, 0, len(raws))
	var errs []error
	for pos, raw := range raws {
		r, err := Normalize(raw, src, startIndex+len(records))
		if err != nil {
			var mre *MalformedRecordError
			if errors.As(err, &mre) {
				mre.Position = pos
			}
			errs = append(errs, err)
			continue
		}
		records = append(records, r)
	}
	return records, errs
}

func price(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
