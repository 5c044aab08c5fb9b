package pcm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToSampleRoundTrip(t *testing.T) {
	in := Sample{1, -2, 32767, -32768, 0}
	b := SampleToBytes(nil, in)
	out := BytesToSample(nil, b)
	assert.Equal(t, in, out)
}

func TestFormatFrameSizes(t *testing.T) {
	f := Format{SampleRate: 8000, Channels: 1, SamplesPerFrame: 160}
	assert.Equal(t, 20*time.Millisecond, f.FrameDuration())
	assert.Equal(t, 160, f.FrameSamples())
	assert.Equal(t, 320, f.FrameBytes())
}

func TestFormatValidate(t *testing.T) {
	f := Format{SampleRate: 16000, Channels: 2, SamplesPerFrame: 320}
	require.NoError(t, f.Validate(2))
	require.Error(t, f.Validate(1))

	bad := Format{SampleRate: 0, Channels: 1, SamplesPerFrame: 160}
	require.Error(t, bad.Validate(1))
}

func TestPtimeToSamples(t *testing.T) {
	n, err := PtimeToSamples(8000, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 160, n)

	_, err = PtimeToSamples(11025, 20*time.Millisecond)
	assert.Error(t, err)
}

func TestAssembler(t *testing.T) {
	a := NewAssembler(4)
	out := a.Push(Sample{1, 2})
	assert.Empty(t, out)
	assert.Equal(t, 2, a.Pending())

	out = a.Push(Sample{3, 4, 5, 6, 7})
	require.Len(t, out, 1)
	assert.Equal(t, Sample{1, 2, 3, 4}, out[0])
	assert.Equal(t, 3, a.Pending())
}
