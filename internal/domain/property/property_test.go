package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalestay/internal/domain/shared/failure"
	"opalestay/internal/domain/shared/money"
)

func TestParse(t *testing.T) {
	key, err := Parse(" Touquet-Pinede ")
	require.NoError(t, err)
	assert.Equal(t, TouquetPinede, key)

	_, err = Parse("berck-plage")
	assert.ErrorIs(t, err, ErrUnknownProperty)
	assert.ErrorIs(t, err, failure.ErrValidation)
}

func TestDefaultPrices(t *testing.T) {
	price, err := DefaultPrice(ValerySourcesBaie)
	require.NoError(t, err)
	assert.Equal(t, money.Euros(120), price)

	price, err = DefaultPrice(TouquetPinede)
	require.NoError(t, err)
	assert.Equal(t, money.Euros(150), price)

	_, err = DefaultPrice(Key("nowhere"))
	assert.ErrorIs(t, err, ErrUnknownProperty)
}

func TestAllIsSorted(t *testing.T) {
	all := All()
	require.Len(t, all, 2)
	assert.Equal(t, TouquetPinede, all[0].Key)
	assert.Equal(t, ValerySourcesBaie, all[1].Key)
}
