package storage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestDecimalColumns(t *testing.T) {
	assert.Nil(t, DecimalArg(decimal.NullDecimal{}))
	assert.Equal(t, "8.5", DecimalArg(decimal.NewNullDecimal(decimal.RequireFromString("8.50"))))

	got := ParseDecimal(strPtr("12.34"))
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString("12.34")))

	assert.False(t, ParseDecimal(nil).Valid)
	assert.False(t, ParseDecimal(strPtr("n/a")).Valid)
}

func TestIntArg(t *testing.T) {
	n := 20
	assert.Nil(t, IntArg(nil))
	assert.Equal(t, int64(20), IntArg(&n))
}

func TestOffersColumns(t *testing.T) {
	encoded, err := EncodeOffers(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", encoded)

	encoded, err = EncodeOffers([]any{"2 for $5", map[string]any{"type": "SALE"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"2 for $5", map[string]any{"type": "SALE"}}, DecodeOffers(&encoded))

	assert.Equal(t, []any{}, DecodeOffers(nil))
	assert.Equal(t, []any{}, DecodeOffers(strPtr("{broken")))
	assert.Equal(t, []any{}, DecodeOffers(strPtr("null")))
}

func TestOfferColumn(t *testing.T) {
	encoded, err := EncodeOffer(nil)
	require.NoError(t, err)
	assert.Nil(t, encoded)

	encoded, err = EncodeOffer(map[string]any{"type": "SALE"})
	require.NoError(t, err)
	require.NotNil(t, encoded)
	assert.Equal(t, map[string]any{"type": "SALE"}, DecodeOffer(encoded))

	assert.Nil(t, DecodeOffer(strPtr("{broken")))
}
