package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRoundTwoPlaces(t *testing.T) {
	d, err := FromString("10.005")
	require.NoError(t, err)
	require.Equal(t, "10.01", Round(d).StringFixed(2))

	d, err = FromString("10.004")
	require.NoError(t, err)
	require.Equal(t, "10.00", Round(d).StringFixed(2))
}

func TestRepeatedAdditionsDoNotDrift(t *testing.T) {
	// 0.1 cannot be represented in binary floats; a thousand additions must
	// still land exactly on 100.00.
	step, err := FromString("0.1")
	require.NoError(t, err)

	sum := Zero
	for i := 0; i < 1000; i++ {
		sum = Round(sum.Add(step))
	}
	require.Equal(t, "100.00", sum.StringFixed(2))
}

func TestPerMinuteCost(t *testing.T) {
	rate := FromInt(5) // 5 per minute

	require.Equal(t, "5.00", PerMinuteCost(60, rate).StringFixed(2))
	require.Equal(t, "2.50", PerMinuteCost(30, rate).StringFixed(2))
	require.Equal(t, "0.08", PerMinuteCost(1, rate).StringFixed(2))
	require.True(t, PerMinuteCost(0, rate).IsZero())
	require.True(t, PerMinuteCost(-5, rate).IsZero())
}

func TestIsPositive(t *testing.T) {
	require.True(t, IsPositive(FromInt(1)))
	require.False(t, IsPositive(Zero))
	require.False(t, IsPositive(decimal.NewFromInt(-1)))
}
