package normalize

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/model"
)

var wolf = adapter.SourceInfo{
	ID:              "wolfai",
	DisplayName:     "WolfAI",
	Website:         "https://wolfai.top",
	DefaultCurrency: "USD",
}

func TestNormalizeDefaults(t *testing.T) {
	rec, err := Normalize(adapter.RawModel{DisplayName: "  gpt-4o  "}, wolf, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, rec.Index)
	assert.Equal(t, "gpt-4o", rec.Name)
	assert.Equal(t, UnknownBrand, rec.Brand)
	assert.Equal(t, DefaultContextWindow, rec.ContextWindow)
	assert.Nil(t, rec.TrainingDataAmount)

	assert.Equal(t, "wolfai", rec.SourceID())
	assert.Equal(t, "WolfAI (gpt-4o)", rec.Offer.DisplayLabel)
	assert.Equal(t, "https://wolfai.top", rec.Offer.Website)
	assert.Equal(t, "USD", rec.Offer.Currency)
	assert.Equal(t, 7, rec.Offer.RecordIndex)
}

func TestNormalizeKeepsSourceValues(t *testing.T) {
	raw := adapter.RawModel{
		SourceID:           "wolfai",
		DisplayName:        "DeepSeek-V3.1",
		Brand:              "DeepSeek",
		ContextWindow:      160000,
		InputPrice:         4,
		OutputPrice:        12,
		Currency:           "CNY",
		TrainingDataAmount: model.IntPtr(671),
		Extra:              map[string]any{"quota_type": 0},
	}
	rec, err := Normalize(raw, wolf, 0)
	require.NoError(t, err)

	assert.Equal(t, "DeepSeek", rec.Brand)
	assert.Equal(t, 160000, rec.ContextWindow)
	assert.Equal(t, 4.0, rec.Offer.InputPrice)
	assert.Equal(t, 12.0, rec.Offer.OutputPrice)
	assert.Equal(t, "CNY", rec.Offer.Currency)
	require.NotNil(t, rec.TrainingDataAmount)
	assert.Equal(t, 671, *rec.TrainingDataAmount)

	raw.Extra["quota_type"] = 1
	assert.Equal(t, 0, rec.Extra["quota_type"], "extra must be copied")
}

func TestNormalizeClampsBadNumbers(t *testing.T) {
	tests := []struct {
		name   string
		in     float64
		window int
	}{
		{"negative", -1, -5},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Normalize(adapter.RawModel{DisplayName: "m", InputPrice: tt.in, OutputPrice: tt.in, ContextWindow: tt.window}, wolf, 0)
			require.NoError(t, err)
			assert.Zero(t, rec.Offer.InputPrice)
			assert.Zero(t, rec.Offer.OutputPrice)
			assert.Equal(t, DefaultContextWindow, rec.ContextWindow)
		})
	}
}

func TestNormalizeCurrencyFallback(t *testing.T) {
	rec, err := Normalize(adapter.RawModel{DisplayName: "m"}, adapter.SourceInfo{ID: "x"}, 0)
	require.NoError(t, err)
	assert.Equal(t, FallbackCurrency, rec.Offer.Currency)
	assert.Equal(t, "x (m)", rec.Offer.DisplayLabel)
}

func TestNormalizeNegativeTrainingDataDropped(t *testing.T) {
	rec, err := Normalize(adapter.RawModel{DisplayName: "m", TrainingDataAmount: model.IntPtr(-3)}, wolf, 0)
	require.NoError(t, err)
	assert.Nil(t, rec.TrainingDataAmount)
}

func TestNormalizeEmptyName(t *testing.T) {
	_, err := Normalize(adapter.RawModel{DisplayName: "   "}, wolf, 0)
	require.Error(t, err)

	var mre *MalformedRecordError
	require.True(t, errors.As(err, &mre))
	assert.Equal(t, "wolfai", mre.SourceID)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestNormalizeAllSkipsMalformed(t *testing.T) {
	raws := []adapter.RawModel{
		{DisplayName: "a"},
		{DisplayName: ""},
		{DisplayName: "b"},
	}
	recs, errs := NormalizeAll(raws, wolf, 10)

	require.Len(t, recs, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, 10, recs[0].Index)
	assert.Equal(t, 11, recs[1].Index)
	assert.Equal(t, "b", recs[1].Name)

	var mre *MalformedRecordError
	require.True(t, errors.As(errs[0], &mre))
	assert.Equal(t, 1, mre.Position)
}
