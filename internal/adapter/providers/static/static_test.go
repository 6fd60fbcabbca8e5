package static

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSource() Source {
	amount := 671
	return Source{
		ID:       "inhouse",
		Currency: "EUR",
		Models: []Model{
			{Name: "house-large", Brand: "House", ContextWindow: 32000, InputPrice: 1, OutputPrice: 2, TrainingDataAmount: &amount},
			{Name: "house-small", InputPrice: 0.1, OutputPrice: 0.2, Currency: "USD"},
		},
	}
}

func TestFetchModels(t *testing.T) {
	s := New(testSource())

	info := s.Info()
	assert.Equal(t, "inhouse", info.DisplayName)
	assert.Equal(t, "EUR", info.DefaultCurrency)

	models, err := s.FetchModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "inhouse", models[0].SourceID)
	assert.Equal(t, 671, *models[0].TrainingDataAmount)
	assert.Empty(t, models[0].Currency, "source currency applies during normalization")
	assert.Equal(t, "USD", models[1].Currency)
	assert.Equal(t, 2, s.MinExpectedModels())
}

func TestSupportedFilter(t *testing.T) {
	src := testSource()
	src.Supported = []string{"house-small"}
	s := New(src)

	models, err := s.FetchModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "house-small", models[0].DisplayName)
	assert.Equal(t, 1, s.MinExpectedModels())
}

func TestFetchModelsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testSource()).FetchModels(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
