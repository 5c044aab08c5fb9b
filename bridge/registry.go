package bridge

import (
	"github.com/pjmedia/goconf/bridge/pcm"
)

// portState tracks the lifecycle of a slot entry (spec §3 "Lifecycles").
type portState int

const (
	stateFree portState = iota
	// statePendingAdd is a reserved slot whose id has been handed back to
	// the caller but that has not yet been folded into mixing; it flips to
	// stateActive the next time the op queue is applied (spec §4.2).
	statePendingAdd
	stateActive
	statePendingRemove
)

// portSlot is one dense-array entry in the registry (spec §4.1
// "Representation"): the port handle, its format, gain/enable state, scratch
// buffers and resampler state, plus the inbound/outbound edge lists that
// double as the connection graph (spec §4.1 edges carry only a peer slot
// index and gain, no pointer chasing).
type portSlot struct {
	state portState

	port Port
	name string
	info Info

	rxGain int32 // adj_level, effective multiplier (g+128)/128
	txGain int32
	rxEnabled bool
	txEnabled bool

	inbound  []edge // edges where this slot is the sink
	outbound []int  // sink slot indices where this slot is a source

	rxLevel *levelMeter
	txLevel *levelMeter

	// rxResampler/rxAssembler adapt this port's own pulled frames (native
	// rate/frame size) to the bridge's rate/frame size when this slot acts
	// as a source; tx* do the converse when it acts as a sink (spec §4.1
	// "Frame buffer & resampler").
	rxResampler resamplerState
	txResampler resamplerState
	rxAssembler *pcm.Assembler
	txAssembler *pcm.Assembler

	// pendingPull/pendingPush absorb the surplus or shortfall a resample
	// ratio produces: a single Pull()/Push() can yield more or less than
	// one bridge frame, so extra ready frames queue here instead of
	// forcing a second Pull()/Push() within the same tick (spec §4.3
	// "Frame-size adaptation").
	pendingPull []pcm.Sample
	pendingPush []pcm.Sample

	// txCache holds this tick's pulled frame (at bridge rate/frame size)
	// so concurrent sinks in the parallel driver only pull once (spec
	// §4.4).
	txCache       Frame
	txCacheErr    error
	txCachePulled bool
}

type edge struct {
	src      int
	gain     int32 // adj_level
}

// registry is the slot table. When New is given a master port it occupies
// slot 0 (the master clock port) for the bridge's lifetime; without one,
// slot 0 is allocated to AddPort like any other free slot.
type registry struct {
	slots []portSlot
}

func newRegistry(maxSlots int) *registry {
	return &registry{slots: make([]portSlot, maxSlots)}
}

// allocSlot returns the lowest free index, or ErrCapacityExceeded if none
// remain (spec §4.1 "Slot IDs are allocated from the lowest free index").
func (r *registry) allocSlot() (int, error) {
	for i := range r.slots {
		if r.slots[i].state == stateFree {
			return i, nil
		}
	}
	return -1, ErrCapacityExceeded
}

func (r *registry) get(slot int) (*portSlot, bool) {
	if slot < 0 || slot >= len(r.slots) {
		return nil, false
	}
	if r.slots[slot].state == stateFree {
		return nil, false
	}
	return &r.slots[slot], true
}

// isLive reports whether slot currently holds an active (not
// pending-removal) port. Pending-removal slots still exist for in-flight
// ticks but should not accept new edges.
func (r *registry) isLive(slot int) bool {
	s, ok := r.get(slot)
	return ok && s != nil && s.state == stateActive
}

// connectable reports whether slot may be named as either end of a new
// edge: an active port, or one whose add_port has returned a slot id but
// not yet been folded in by the following tick.
func (r *registry) connectable(slot int) bool {
	s, ok := r.get(slot)
	return ok && s != nil && (s.state == stateActive || s.state == statePendingAdd)
}

func (r *registry) iterActive() []int {
	out := make([]int, 0, len(r.slots))
	for i := range r.slots {
		if r.slots[i].state == stateActive {
			out = append(out, i)
		}
	}
	return out
}
