package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	total, err := Sum(EUR, Euros(120), Euros(150), Euros(95))
	require.NoError(t, err)
	assert.Equal(t, Euros(365), total)

	empty, err := Sum(EUR)
	require.NoError(t, err)
	assert.Equal(t, Euros(0), empty)

	_, err = Sum(EUR, Euros(10), Must(10, "usd"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestNewRejectsBadCurrency(t *testing.T) {
	_, err := New(10, "EURO")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	assert.Equal(t, Euros(30), Euros(10).Multiply(3))
}
