package pcm

import "encoding/binary"

// Sample is a de-interleaved-by-nothing PCM16 buffer: signed 16-bit samples,
// channel-interleaved, host byte order. It is the in-process representation
// the mixing core and resamplers operate on; BytesToSample/SampleToBytes
// convert to/from the little-endian wire representation ports exchange.
type Sample []int16

func BytesToSample(dst Sample, src []byte) Sample {
	n := len(src) / 2
	if cap(dst) < n {
		dst = make(Sample, n)
	} else {
		dst = dst[:n]
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*2 : i*2+2]))
	}
	return dst
}

func SampleToBytes(dst []byte, src Sample) []byte {
	need := len(src) * 2
	if cap(dst) < need {
		dst = make([]byte, need)
	} else {
		dst = dst[:need]
	}
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[i*2:i*2+2], uint16(s))
	}
	return dst
}

// Assembler accumulates PCM16 samples and yields fixed-size frames, used to
// bridge a port's samples_per_frame against the bridge's own frame size
// (spec §4.3 "frame-size adaptation").
type Assembler struct {
	frameSamples int
	buf          Sample
}

func NewAssembler(frameSamples int) *Assembler {
	if frameSamples < 1 {
		frameSamples = 1
	}
	return &Assembler{frameSamples: frameSamples}
}

func (a *Assembler) Push(in Sample) []Sample {
	if len(in) == 0 {
		return nil
	}
	a.buf = append(a.buf, in...)
	var out []Sample
	for len(a.buf) >= a.frameSamples {
		frame := make(Sample, a.frameSamples)
		copy(frame, a.buf[:a.frameSamples])
		out = append(out, frame)
		a.buf = a.buf[a.frameSamples:]
	}
	return out
}

// Pending returns the number of buffered samples not yet forming a full frame.
func (a *Assembler) Pending() int {
	return len(a.buf)
}
