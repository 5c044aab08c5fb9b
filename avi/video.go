package avi

import (
	"fmt"
	"sync"
)

// VideoFrameAction tells a caller what to do with a VideoFrame: present the
// payload as the next decoded picture, or hold the previous one on screen.
// Hold is this package's form of the silence frame for minor positive drift
// (spec §4.6), which only the video path applies; the audio PacedReader
// never inserts one. This package never decodes a picture, so there is
// nothing to synthesize beyond repeating the last payload handed out.
type VideoFrameAction int

const (
	VideoFrameEmit VideoFrameAction = iota
	VideoFrameHold
)

// VideoFrame is one opaque compressed picture read from movi, or a repeat
// marker. Payload is never decoded here (spec §1 "codecs and format
// libraries are black boxes") — only enough of strh/strf is read to drive
// pacing (FrameRate below).
type VideoFrame struct {
	Action  VideoFrameAction
	Payload []byte
}

// VideoReader walks one AVI video stream's own movi sub-chunks, independent
// of any sibling audio StreamReader. Unlike StreamReader it has no fixed
// samples-per-frame to fill: one Pull produces at most one compressed
// picture.
type VideoReader struct {
	player    *Player
	stream    StreamInfo
	startData int64
	moviEnd   int64

	mu          sync.Mutex
	cursor      int64
	frameCount  int
	lastPayload []byte
}

// VideoReader builds a reader for the video stream at streamIndex. It loops
// independently of any audio StreamReader the same Player hands out: cross
// -modal EOF coordination (Player.noteEOF) is audio-only, since the two
// dead avsync.Policy arms this fixes concern pacing within one stream's own
// timeline, not sibling rewinding.
func (p *Player) VideoReader(streamIndex int) (*VideoReader, error) {
	var stream StreamInfo
	found := false
	for _, s := range p.c.Streams {
		if s.Index == streamIndex {
			stream, found = s, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("avi: no stream at index %d", streamIndex)
	}
	if stream.Disabled {
		return nil, fmt.Errorf("%w: stream %d is disabled", ErrNotSupported, streamIndex)
	}
	if stream.Type != StreamVideo {
		return nil, fmt.Errorf("%w: stream %d is not video", ErrNotSupported, streamIndex)
	}
	return &VideoReader{
		player:    p,
		stream:    stream,
		startData: p.c.MoviOffset,
		moviEnd:   p.c.MoviOffset + p.c.MoviSize,
		cursor:    p.c.MoviOffset,
	}, nil
}

// FrameRate is strh's Rate/Scale, the fps avsync.Decide paces frame counts
// against.
func (vr *VideoReader) FrameRate() float64 {
	if vr.stream.FPSDenum == 0 {
		return 0
	}
	return float64(vr.stream.FPSNum) / float64(vr.stream.FPSDenum)
}

func (vr *VideoReader) frameCountSnapshot() int {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	return vr.frameCount
}

func (vr *VideoReader) lastFrame() []byte {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	return vr.lastPayload
}

// pullNext advances past movi sub-chunks until it finds the next one
// belonging to this video stream, looping back to start_data when the
// Player was built with loop enabled. ok is false only when movi is
// exhausted and looping is off.
func (vr *VideoReader) pullNext() (frame VideoFrame, ok bool, err error) {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	for {
		if vr.cursor >= vr.moviEnd {
			if !vr.player.loop {
				return VideoFrame{}, false, nil
			}
			vr.cursor = vr.startData
			vr.frameCount = 0
			continue
		}
		id, _, payload, next, err := readSubChunkAt(vr.player.ra, vr.cursor)
		if err != nil {
			return VideoFrame{}, false, fmt.Errorf("avi: reading movi chunk at %d: %w", vr.cursor, err)
		}
		vr.cursor = next
		idx, isAudio, matched := streamIndexOf(id)
		if !matched || idx != vr.stream.Index || isAudio || len(payload) == 0 {
			continue
		}
		vr.lastPayload = payload
		vr.frameCount++
		return VideoFrame{Action: VideoFrameEmit, Payload: payload}, true, nil
	}
}
