// Package resample adapts github.com/tphakala/go-audio-resampler to the
// bridge's per-port rate conversion needs (spec §4.1 "Frame buffer &
// resampler", §4.3 step 2: "resample at pull time using either a
// windowed-sinc filter (SMALL_FILTER/default) or linear interpolation
// (USE_LINEAR), per bridge creation options").
package resample

import (
	audioresampler "github.com/tphakala/go-audio-resampler"
)

// Filter selects which of go-audio-resampler's quality modes backs a
// Converter, mirroring the two creation-time options from spec §6.
type Filter int

const (
	// FilterSinc is the default full windowed-sinc filter.
	FilterSinc Filter = iota
	// FilterSincSmall is the compact windowed-sinc table (SMALL_FILTER).
	FilterSincSmall
	// FilterLinear is linear interpolation (USE_LINEAR).
	FilterLinear
)

func (f Filter) quality() audioresampler.Quality {
	switch f {
	case FilterSincSmall:
		return audioresampler.QualitySmall
	case FilterLinear:
		return audioresampler.QualityLinear
	default:
		return audioresampler.QualityDefault
	}
}

// Converter resamples mono-channel-interleaved PCM16 between two fixed
// sample rates. One Converter is kept per port per direction so the
// underlying filter's internal phase/history state stays continuous across
// ticks (no clicks at frame boundaries).
type Converter struct {
	inRate, outRate int
	channels        int
	r               *audioresampler.Resampler
}

// NewConverter builds a no-op converter when inRate == outRate (Process
// then copies through), matching the "only resample when rates differ"
// contract in spec §4.3.
func NewConverter(inRate, outRate, channels int, filter Filter) (*Converter, error) {
	c := &Converter{inRate: inRate, outRate: outRate, channels: channels}
	if inRate == outRate {
		return c, nil
	}
	r, err := audioresampler.New(inRate, outRate, channels, filter.quality())
	if err != nil {
		return nil, err
	}
	c.r = r
	return c, nil
}

// Passthrough reports whether this converter performs no resampling.
func (c *Converter) Passthrough() bool { return c.r == nil }

// Process resamples in (PCM16, channel-interleaved at inRate) to outRate.
// The returned slice length varies slightly tick to tick, as is inherent to
// fractional-ratio rate conversion; callers buffer the difference via
// pcm.Assembler (spec §4.3 "Frame-size adaptation").
func (c *Converter) Process(in []int16) []int16 {
	if c.r == nil {
		out := make([]int16, len(in))
		copy(out, in)
		return out
	}
	return c.r.Process(in)
}

// Reset clears the converter's internal filter history, so samples from
// before a discontinuity are not carried into the next Process call. The
// bridge itself never calls it.
func (c *Converter) Reset() {
	if c.r != nil {
		c.r.Reset()
	}
}
