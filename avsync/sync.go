// Package avsync equalizes multiple media streams' presentation time
// against one shared wall clock (spec §4.6 "AV Synchronizer"). It reports
// how far a stream has drifted; the reader applying it decides what to do
// about the drift (drop frames, insert silence, or let it ride).
package avsync

import (
	"sync"
	"time"
)

// Synchronizer tracks one wall-clock epoch shared by every stream in a
// playback session. The first UpdatePTS call after New or Reset anchors the
// epoch so that stream's pts lines up with "now"; every later call measures
// drift against that same anchor.
type Synchronizer struct {
	mu      sync.Mutex
	epoch   time.Time
	started bool
}

// New returns a Synchronizer with no epoch set; the next UpdatePTS call
// establishes one.
func New() *Synchronizer {
	return &Synchronizer{}
}

// Reset clears the epoch, so the next UpdatePTS call starts a fresh one.
// Nothing in the avi package calls it: a looping avi.Player rewinds its
// readers without resetting the Synchronizer pacing them.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
}

// UpdatePTS reports how far pts has drifted from wall-clock elapsed time
// since the epoch, in milliseconds. A positive result means this stream is
// running ahead of the clock and should slow down; negative means it is
// behind and should speed up (spec §4.6 "positive adjust means slow down by
// ms, negative means speed up").
func (s *Synchronizer) UpdatePTS(pts time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if !s.started {
		s.epoch = now.Add(-pts)
		s.started = true
		return 0
	}
	elapsed := now.Sub(s.epoch)
	return int((pts - elapsed).Milliseconds())
}

// Policy classifies an adjust_ms reading into the action spec §4.6 assigns
// it: drop-forward for anything beyond a second of drift in either
// direction, otherwise a bounded slow-down or speed-up.
type Policy int

const (
	// PolicyNone: drift is negligible, no correction needed.
	PolicyNone Policy = iota
	// PolicyDropForward: |adjust| exceeds the drop threshold; skip ahead by
	// FrameCount frames rather than trickle the correction in.
	PolicyDropForward
	// PolicySlowDown: minor positive drift; applied to video only by
	// inserting FrameCount silence frames (audio is never slowed).
	PolicySlowDown
	// PolicySpeedUp: minor negative drift; applied to video only by
	// skipping FrameCount frames forward.
	PolicySpeedUp
)

// dropThresholdMS is the |adjust_ms| boundary past which the reader gives up
// on a gradual correction and jumps straight to the target position (spec
// §4.6 "|adjust| > 1000 ms (speedup): drop-forward").
const dropThresholdMS = 1000

// Decide turns an UpdatePTS result into a Policy plus the number of frames
// at frameRate that the policy's correction spans.
func Decide(adjustMS int, frameRate float64) (Policy, int) {
	if adjustMS == 0 {
		return PolicyNone, 0
	}
	abs := adjustMS
	if abs < 0 {
		abs = -abs
	}
	frames := framesFor(abs, frameRate)
	if abs > dropThresholdMS {
		return PolicyDropForward, frames
	}
	if adjustMS > 0 {
		return PolicySlowDown, frames
	}
	return PolicySpeedUp, frames
}

func framesFor(ms int, frameRate float64) int {
	if frameRate <= 0 {
		return 0
	}
	n := int(float64(ms) / 1000 * frameRate)
	if n < 1 {
		n = 1
	}
	return n
}
