package bridge

import "github.com/pjmedia/goconf/bridge/pcm"

// FrameType distinguishes a normal audio frame from silence/a gap. A port
// may return FrameNone instead of an error to indicate "nothing to send this
// tick" without that being treated as a failure (spec §4.3 "Failure
// semantics").
type FrameType int

const (
	FrameAudio FrameType = iota
	FrameNone
)

// Frame is what a Port exchanges with the bridge each tick: PCM16,
// channel-interleaved, at the port's own native format (SampleRate/Channels/
// SamplesPerFrame as reported by Info()).
type Frame struct {
	Type    FrameType
	Samples pcm.Sample
}

// SilenceFrame returns a FrameNone placeholder.
func SilenceFrame() Frame { return Frame{Type: FrameNone} }

// Info describes a port's native format and display name (spec §3 "Slot /
// Port").
type Info struct {
	Name            string
	SampleRate      int
	Channels        int
	SamplesPerFrame int
	BitsPerSample   int
}

func (i Info) Format() pcm.Format {
	return pcm.Format{SampleRate: i.SampleRate, Channels: i.Channels, SamplesPerFrame: i.SamplesPerFrame}
}

// Port is the capability interface spec §9 calls for in place of the
// original's polymorphic function-pointer base record: {pull-frame,
// push-frame, get-info}, plus an optional destroy hook. A port never holds a
// back-reference to the bridge; the bridge holds shared ownership via the
// registry (spec §9 "Cyclic referencing... is avoided by the slot-index
// indirection").
type Port interface {
	// Info returns the port's native format. Called at AddPort time (and for
	// the master port in New); GetPortInfo returns the copy cached then. Must
	// be safe to call concurrently with Pull/Push.
	Info() Info

	// Pull produces one frame of this port's own samples_per_frame, called
	// at most once per tick when the port is a transmitter on at least one
	// live edge and rx is enabled. An error or FrameNone is treated as
	// silence for this tick and does not disable the port (spec §4.3).
	Pull() (Frame, error)

	// Push delivers one mixed frame of this port's own samples_per_frame,
	// called at most once per tick when the port is an active sink with tx
	// enabled. Errors are logged; the tick continues (spec §4.3).
	Push(Frame) error
}

// DestroyHook is implemented by ports that need to release resources only
// after the tick that removed them has fully exited (spec §5 "Cancellation":
// "a destroy may only finalize resources after the tick... and all
// registered destroy-handlers complete").
type DestroyHook interface {
	OnDestroy()
}
