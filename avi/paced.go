package avi

import (
	"time"

	"github.com/pjmedia/goconf/bridge"
	"github.com/pjmedia/goconf/avsync"
)

// PacedReader wraps a StreamReader with a Synchronizer and applies the
// audio side of spec §4.6's policy: audio is never slowed to preserve
// audibility, so only the drop-forward correction for |adjust| > 1000ms
// applies here; minor drift is left alone.
type PacedReader struct {
	sr   *StreamReader
	sync *avsync.Synchronizer
}

// NewPacedReader pairs sr with sync, which may also be driving a sibling
// video reader's slow-down/speed-up corrections against the same wall
// clock.
func NewPacedReader(sr *StreamReader, sync *avsync.Synchronizer) *PacedReader {
	return &PacedReader{sr: sr, sync: sync}
}

func (p *PacedReader) Info() bridge.Info { return p.sr.Info() }

func (p *PacedReader) Pull() (bridge.Frame, error) {
	p.sr.mu.Lock()
	frameRate := float64(p.sr.stream.SampleRate) / float64(p.sr.samplesPerFrame)
	pts := time.Duration(p.sr.frameCount) * frameDuration(p.sr.samplesPerFrame, p.sr.stream.SampleRate)
	p.sr.mu.Unlock()

	adjust := p.sync.UpdatePTS(pts)
	policy, frames := avsync.Decide(adjust, frameRate)
	if policy == avsync.PolicyDropForward {
		for i := 0; i < frames-1; i++ {
			if _, err := p.sr.Pull(); err != nil {
				return bridge.Frame{}, err
			}
		}
	}
	return p.sr.Pull()
}

func (p *PacedReader) Push(f bridge.Frame) error { return p.sr.Push(f) }

// PacedVideoReader paces a VideoReader's opaque chunks against wall clock,
// applying the full three-way policy spec §4.6 describes: unlike audio's
// PacedReader above (drop-forward only, since audio is never slowed), video
// also holds a frame under PolicySlowDown and, under PolicySpeedUp, discards
// frames-1 chunks ahead of the one presented, as under PolicyDropForward.
type PacedVideoReader struct {
	vr   *VideoReader
	sync *avsync.Synchronizer
}

// NewPacedVideoReader pairs vr with sync, which may also be pacing a
// sibling audio PacedReader against the same wall clock.
func NewPacedVideoReader(vr *VideoReader, sync *avsync.Synchronizer) *PacedVideoReader {
	return &PacedVideoReader{vr: vr, sync: sync}
}

// Pull returns the next video frame to present.
func (p *PacedVideoReader) Pull() (VideoFrame, error) {
	rate := p.vr.FrameRate()
	var pts time.Duration
	if rate > 0 {
		pts = time.Duration(float64(p.vr.frameCountSnapshot()) / rate * float64(time.Second))
	}
	adjust := p.sync.UpdatePTS(pts)
	policy, frames := avsync.Decide(adjust, rate)
	return applyVideoPolicy(p.vr, policy, frames)
}

// applyVideoPolicy is split out from Pull so it can be exercised directly
// against a fixed policy/frames pair, without depending on wall-clock
// timing to land on a particular avsync.Policy.
func applyVideoPolicy(vr *VideoReader, policy avsync.Policy, frames int) (VideoFrame, error) {
	switch policy {
	case avsync.PolicySlowDown:
		// Running ahead: hold the last picture on screen instead of
		// consuming the next chunk (video's equivalent of inserting a
		// silence frame).
		return VideoFrame{Action: VideoFrameHold, Payload: vr.lastFrame()}, nil
	case avsync.PolicyDropForward, avsync.PolicySpeedUp:
		// Both corrections close a gap by discarding frames ahead of the
		// one actually presented; drop-forward just discards more of them.
		skip := frames - 1
		if skip < 0 {
			skip = 0
		}
		for i := 0; i < skip; i++ {
			if _, ok, err := vr.pullNext(); err != nil {
				return VideoFrame{}, err
			} else if !ok {
				break
			}
		}
	}
	f, _, err := vr.pullNext()
	return f, err
}

func frameDuration(samplesPerFrame, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samplesPerFrame) * time.Second / time.Duration(sampleRate)
}
