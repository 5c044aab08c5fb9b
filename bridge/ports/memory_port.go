// Package ports collects concrete bridge.Port implementations that do not
// need an external device driver: in-memory queues for tests and demos.
package ports

import (
	"sync"

	"github.com/pjmedia/goconf/bridge"
	"github.com/pjmedia/goconf/bridge/pcm"
)

// MemoryPort is a bridge.Port backed by two in-process FIFOs: frames pushed
// to TX are pulled back out by the bridge, and frames the bridge pushes
// land on RX for the test/demo driver to inspect. It has no notion of
// wall-clock pacing; callers are expected to feed/drain it once per tick.
type MemoryPort struct {
	info bridge.Info

	mu  sync.Mutex
	tx  [][]int16 // queued for Pull
	rx  [][]int16 // delivered via Push
	err error      // sticky error returned by Pull once tx is drained, if set
}

// NewMemoryPort builds a port reporting info, with no queued audio.
func NewMemoryPort(info bridge.Info) *MemoryPort {
	return &MemoryPort{info: info}
}

func (p *MemoryPort) Info() bridge.Info { return p.info }

// Enqueue appends one frame of this port's own samples_per_frame to be
// returned by a future Pull call, in order.
func (p *MemoryPort) Enqueue(frame []int16) {
	cp := make([]int16, len(frame))
	copy(cp, frame)
	p.mu.Lock()
	p.tx = append(p.tx, cp)
	p.mu.Unlock()
}

// SetPullError makes Pull return err once the queued frames are exhausted,
// instead of FrameNone; used to exercise spec §4.3's "failure semantics".
func (p *MemoryPort) SetPullError(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *MemoryPort) Pull() (bridge.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tx) == 0 {
		if p.err != nil {
			return bridge.Frame{}, p.err
		}
		return bridge.SilenceFrame(), nil
	}
	frame := p.tx[0]
	p.tx = p.tx[1:]
	return bridge.Frame{Type: bridge.FrameAudio, Samples: pcm.Sample(frame)}, nil
}

func (p *MemoryPort) Push(f bridge.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f.Type != bridge.FrameAudio {
		p.rx = append(p.rx, nil)
		return nil
	}
	cp := make([]int16, len(f.Samples))
	copy(cp, f.Samples)
	p.rx = append(p.rx, cp)
	return nil
}

// Received pops and returns the oldest frame delivered via Push, or nil if
// none is queued. A delivered FrameNone is queued as a nil entry, so it also
// pops as nil.
func (p *MemoryPort) Received() []int16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rx) == 0 {
		return nil
	}
	f := p.rx[0]
	p.rx = p.rx[1:]
	return f
}

// PendingReceived reports how many frames Push has queued up.
func (p *MemoryPort) PendingReceived() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rx)
}
