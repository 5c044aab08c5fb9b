package bridge

// levelMeter tracks a decayed peak for one port/direction, exposed in
// [0,255] where 255 = full scale (spec §4.3 "Signal levels"). Modeled as
// plain integer state with no floating accumulation, in the style of
// avi_player.c's frame/timestamp counters: a single update() call per tick,
// cheap enough to run unconditionally.
type levelMeter struct {
	peak uint8
}

const (
	levelDecayShift = 4 // peak decays by 1/16th per tick when not re-hit
)

// update folds the peak absolute sample value in buf into the decayed
// level, and returns the new level.
func (m *levelMeter) update(buf []int16) uint8 {
	var maxAbs int32
	for _, s := range buf {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > maxAbs {
			maxAbs = v
		}
	}
	// Map [0, 32768] -> [0, 255].
	if maxAbs > 32767 {
		maxAbs = 32767
	}
	instant := uint8(maxAbs >> 7)

	decayed := m.peak - (m.peak >> levelDecayShift)
	if instant > decayed {
		m.peak = instant
	} else {
		m.peak = decayed
	}
	return m.peak
}

func (m *levelMeter) value() uint8 {
	if m == nil {
		return 0
	}
	return m.peak
}
