package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthroughWhenRatesMatch(t *testing.T) {
	c, err := NewConverter(16000, 16000, 1, FilterSinc)
	require.NoError(t, err)
	assert.True(t, c.Passthrough())

	in := []int16{1, 2, 3, -4}
	out := c.Process(in)
	assert.Equal(t, in, out)
}

func TestConverterFilterSelection(t *testing.T) {
	for _, f := range []Filter{FilterSinc, FilterSincSmall, FilterLinear} {
		c, err := NewConverter(8000, 16000, 1, f)
		require.NoError(t, err)
		assert.False(t, c.Passthrough())
		// Resampling up should roughly double the sample count.
		in := make([]int16, 160)
		out := c.Process(in)
		assert.NotEmpty(t, out)
	}
}
