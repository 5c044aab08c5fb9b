package bridge

import "github.com/pjmedia/goconf/bridge/pcm"

// accumulateWeighted folds one source's samples into the sink's wide
// accumulator, composing two independent adj_level factors by
// multiplication rather than summing their adjustments (spec §4.3 "Gain
// formula", "cumulative rx-then-edge-then-tx"): each factor is
// (adj_level+128)/128, and the two apply in series.
func accumulateWeighted(acc []int32, samples pcm.Sample, adjRx, adjEdge int32) {
	numRx := int64(adjRx) + 128
	numEdge := int64(adjEdge) + 128
	for i, s := range samples {
		if i >= len(acc) {
			break
		}
		acc[i] += int32((int64(s) * numRx * numEdge) / (128 * 128))
	}
}

// scaleInPlace applies the same formula to the sink's wide accumulator (used
// for the sink's tx_gain, applied once after the sources are summed rather
// than once per source, and before normalization and saturation).
func scaleInPlace(acc []int32, adjLevel int32) {
	num := int64(adjLevel) + 128
	for i, v := range acc {
		acc[i] = int32((int64(v) * num) / 128)
	}
}

func saturate16(v int64) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}

// pullSource materializes slot s's contribution for this tick at bridge
// rate/frame size, invoking Pull() at most once (spec §4.3 step 2). The
// result is cached in s.txCache so a port feeding several sinks is only
// pulled once per tick regardless of how many sinks mix it in.
func (s *portSlot) pullSource() {
	if s.txCachePulled {
		return
	}
	s.txCachePulled = true

	if len(s.pendingPull) == 0 {
		frame, err := s.port.Pull()
		s.txCacheErr = err
		if err == nil && frame.Type == FrameAudio && len(frame.Samples) > 0 {
			resampled := s.rxResampler.conv.Process(frame.Samples)
			s.pendingPull = append(s.pendingPull, s.rxAssembler.Push(resampled)...)
		}
	}

	if len(s.pendingPull) == 0 {
		s.txCache = SilenceFrame()
		return
	}
	s.txCache = Frame{Type: FrameAudio, Samples: s.pendingPull[0]}
	s.pendingPull = s.pendingPull[1:]
	if s.rxLevel != nil {
		s.rxLevel.update(s.txCache.Samples)
	}
}

// pushSink delivers mixed at bridge rate/frame size to slot t, invoking
// Push() at most once (spec §4.3 step "push").
func (t *portSlot) pushSink(mixed pcm.Sample) error {
	resampled := t.txResampler.conv.Process(mixed)
	t.pendingPush = append(t.pendingPush, t.txAssembler.Push(resampled)...)

	if len(t.pendingPush) == 0 {
		return t.port.Push(SilenceFrame())
	}
	frame := t.pendingPush[0]
	t.pendingPush = t.pendingPush[1:]
	if t.txLevel != nil {
		t.txLevel.update(frame)
	}
	return t.port.Push(Frame{Type: FrameAudio, Samples: frame})
}

// mixSink performs the full 7-step mix for one sink slot against the
// already-drained op queue / fixed topology snapshot for this tick (spec
// §4.3): cached per-source pull, rx_gain(source) * edge_gain, tx_gain(sink),
// arithmetic-mean normalization across active transmitters, 16-bit
// saturation, then push.
func (reg *registry) mixSink(sinkIdx int, bridgeFrameSamples int) error {
	t := &reg.slots[sinkIdx]
	if t.state != stateActive || !t.txEnabled || len(t.inbound) == 0 {
		return nil
	}

	acc := make([]int32, bridgeFrameSamples)
	active := 0

	for _, e := range t.inbound {
		if e.src < 0 || e.src >= len(reg.slots) {
			continue
		}
		s := &reg.slots[e.src]
		if s.state != stateActive || !s.rxEnabled {
			continue
		}
		s.pullSource()
		if s.txCache.Type != FrameAudio {
			continue
		}
		active++
		accumulateWeighted(acc, s.txCache.Samples, s.rxGain, e.gain)
	}

	if active == 0 {
		return nil
	}

	scaleInPlace(acc, t.txGain)
	out := make(pcm.Sample, bridgeFrameSamples)
	if active > 1 {
		for i, v := range acc {
			out[i] = saturate16(int64(v) / int64(active))
		}
	} else {
		for i, v := range acc {
			out[i] = saturate16(int64(v))
		}
	}

	if err := t.pushSink(out); err != nil {
		return err
	}
	return nil
}
