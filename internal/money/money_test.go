package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	v, err := ToMinor("1500", "XAF")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), v)

	v, err = ToMinor("12.34", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), v)

	v, err = ToMinor("-0.5", "usd")
	require.NoError(t, err)
	assert.Equal(t, int64(-50), v)

	_, err = ToMinor("1.5", "XAF")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ToMinor("abc", "USD")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFromMinor(t *testing.T) {
	assert.Equal(t, "12.34", FromMinor(1234, "USD"))
	assert.Equal(t, "1500", FromMinor(1500, "XAF"))
	assert.Equal(t, "1.250", FromMinor(1250, "KWD"))
}
