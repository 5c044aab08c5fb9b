package pcm

import (
	"fmt"
	"time"
)

// Format describes PCM16 audio framing for a port or for the bridge itself.
// bits_per_sample is implicitly 16 everywhere in this package (spec: "only
// bits_per_sample = 16 is accepted").
type Format struct {
	SampleRate      int
	Channels        int
	SamplesPerFrame int
}

// FrameDuration returns the ptime implied by SamplesPerFrame/SampleRate.
func (f Format) FrameDuration() time.Duration {
	sr := f.SampleRate
	if sr < 1 {
		sr = 1
	}
	return time.Duration(float64(f.SamplesPerFrame) / float64(sr) * float64(time.Second))
}

// FrameSamples is the number of interleaved PCM16 samples (all channels) in
// one frame.
func (f Format) FrameSamples() int {
	ch := f.Channels
	if ch < 1 {
		ch = 1
	}
	return f.SamplesPerFrame * ch
}

// FrameBytes is FrameSamples at 2 bytes/sample.
func (f Format) FrameBytes() int {
	return f.FrameSamples() * 2
}

// Validate enforces the invariants a port format must satisfy to be
// admitted into a bridge of the given channel count (spec §3/§6: fractional
// samples-per-frame and channel mismatches are rejected at add_port time).
func (f Format) Validate(bridgeChannels int) error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", f.Channels)
	}
	if f.Channels != bridgeChannels {
		return fmt.Errorf("channel count %d does not match bridge channel count %d", f.Channels, bridgeChannels)
	}
	if f.SamplesPerFrame <= 0 {
		return fmt.Errorf("samples_per_frame must be positive, got %d", f.SamplesPerFrame)
	}
	return nil
}

// PtimeToSamples converts a frame duration to a sample count for the given
// rate, failing if the result is not an integer (spec §6: "sample_rate x
// ptime must be an integer sample count").
func PtimeToSamples(sampleRate int, ptime time.Duration) (int, error) {
	exact := float64(sampleRate) * ptime.Seconds()
	rounded := int(exact + 0.5)
	if rounded <= 0 {
		return 0, fmt.Errorf("invalid ptime %s at sample rate %d", ptime, sampleRate)
	}
	// Allow a small epsilon for floating point ptime inputs (e.g. 20ms @ 8kHz).
	if diff := exact - float64(rounded); diff > 1e-6 || diff < -1e-6 {
		return 0, fmt.Errorf("sample_rate %d x ptime %s is not an integer sample count", sampleRate, ptime)
	}
	return rounded, nil
}
