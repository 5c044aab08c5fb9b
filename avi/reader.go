package avi

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pjmedia/goconf/bridge"
)

// ErrNotSupported marks stream content this reader deliberately does not
// decode (non-PCM16/A-law/µ-law audio, disabled streams; spec §4.5
// "Unsupported content").
var ErrNotSupported = errors.New("avi: stream not supported")

// Player owns the shared movi section of one open AVI file and coordinates
// looping across every StreamReader it hands out: a loop only rewinds once
// every reader created through it has independently hit EOF (spec §4.5
// "if looping is enabled and all sibling streams have also signaled EOF,
// rewinds to start_data").
type Player struct {
	c  *Container
	ra io.ReaderAt
	loop bool

	mu        sync.Mutex
	readers   []*StreamReader
	eofCount  int
}

// NewPlayer builds a Player over an already-opened Container. ra must read
// the same underlying file c was opened from; *os.File satisfies both
// io.ReadSeeker and io.ReaderAt.
func NewPlayer(c *Container, ra io.ReaderAt, loop bool) *Player {
	return &Player{c: c, ra: ra, loop: loop}
}

// Reader builds a bridge.Port-compatible reader for the audio stream at
// streamIndex, producing frames of samplesPerFrame int16 samples. onEOF, if
// non-nil, is invoked the first time this stream reaches end-of-data in the
// current loop epoch (spec §4.5 "optionally invokes an application
// callback").
func (p *Player) Reader(streamIndex, samplesPerFrame int, onEOF func()) (*StreamReader, error) {
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
	if stream.Type != StreamAudio {
		return nil, fmt.Errorf("%w: stream %d is not audio", ErrNotSupported, streamIndex)
	}
	switch stream.FormatTag {
	case WaveFormatPCM, WaveFormatALaw, WaveFormatULaw:
	default:
		return nil, fmt.Errorf("%w: stream %d has format tag %d", ErrNotSupported, streamIndex, stream.FormatTag)
	}

	sr := &StreamReader{
		player:          p,
		stream:          stream,
		samplesPerFrame: samplesPerFrame,
		startData:       p.c.MoviOffset,
		moviEnd:         p.c.MoviOffset + p.c.MoviSize,
		cursor:          p.c.MoviOffset,
		onEOF:           onEOF,
	}
	p.mu.Lock()
	p.readers = append(p.readers, sr)
	p.mu.Unlock()
	return sr, nil
}

// noteEOF records that sr has hit end-of-data this epoch and reports whether
// this is the first such report for sr in the epoch; once every sibling
// reader has, and looping is enabled, it rewinds every reader's cursor back
// to start_data and starts a new epoch (spec §4.5). It does not touch any
// avsync.Synchronizer: a Synchronizer pacing these readers keeps its epoch
// across the rewind.
func (p *Player) noteEOF(sr *StreamReader) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sr.eofFired {
		return false
	}
	sr.eofFired = true
	p.eofCount++
	if p.eofCount < len(p.readers) {
		return true
	}
	p.eofCount = 0
	if !p.loop {
		return true
	}
	for _, r := range p.readers {
		r.mu.Lock()
		r.cursor = r.startData
		r.eofFired = false
		r.frameCount = 0
		r.pending = r.pending[:0]
		r.mu.Unlock()
	}
	return true
}

// StreamReader adapts one AVI audio stream to bridge.Port: Pull decodes
// sub-chunks belonging to this stream's 2-digit id until samplesPerFrame
// samples are buffered (spec §4.5 "Frame production"). It never implements
// Push; sinks backed by an AVI file make no sense for this demo reader, so
// Push returns an error if called.
type StreamReader struct {
	player          *Player
	stream          StreamInfo
	samplesPerFrame int
	startData       int64
	moviEnd         int64
	onEOF           func()

	mu         sync.Mutex
	cursor     int64
	pending    []int16
	eofFired   bool
	frameCount int
}

func (sr *StreamReader) Info() bridge.Info {
	return bridge.Info{
		Name:            fmt.Sprintf("avi-stream-%d", sr.stream.Index),
		SampleRate:      sr.stream.SampleRate,
		Channels:        sr.stream.Channels,
		SamplesPerFrame: sr.samplesPerFrame,
		BitsPerSample:   16,
	}
}

// Pull advances the stream's own cursor through movi, decoding sub-chunks
// whose id matches this stream's index until a full frame of samples is
// available, or until EOF. FrameNone is returned for the tick that first
// observes EOF; subsequent ticks either keep returning FrameNone (no loop)
// or transparently resume producing audio once the sibling-coordinated
// rewind completes.
func (sr *StreamReader) Pull() (bridge.Frame, error) {
	sr.mu.Lock()
	want := sr.samplesPerFrame * sr.stream.Channels
	hitEOF := false
	for len(sr.pending) < want {
		if sr.cursor >= sr.moviEnd {
			hitEOF = true
			break
		}

		id, size, payload, next, err := readSubChunkAt(sr.player.ra, sr.cursor)
		if err != nil {
			sr.mu.Unlock()
			return bridge.Frame{}, fmt.Errorf("avi: reading movi chunk at %d: %w", sr.cursor, err)
		}
		sr.cursor = next

		idx, isAudio, ok := streamIndexOf(id)
		if !ok || idx != sr.stream.Index || !isAudio || len(payload) == 0 {
			continue
		}
		samples, err := decodePCM(sr.stream.FormatTag, payload)
		if err != nil {
			sr.mu.Unlock()
			return bridge.Frame{}, fmt.Errorf("avi: decoding chunk %q (size %d): %w", id, size, err)
		}
		sr.pending = append(sr.pending, samples...)
	}

	n := want
	if n > len(sr.pending) {
		n = len(sr.pending)
	}
	var out []int16
	if n > 0 {
		out = make([]int16, n)
		copy(out, sr.pending[:n])
		sr.pending = sr.pending[n:]
		sr.frameCount++
	}
	sr.mu.Unlock()

	if len(out) == 0 {
		// noteEOF and onEOF run with sr.mu released: noteEOF may reset this
		// same reader's cursor/pending for the next loop epoch, which would
		// self-deadlock if sr.mu were still held here.
		if hitEOF {
			if first := sr.player.noteEOF(sr); first && sr.onEOF != nil {
				sr.onEOF()
			}
		}
		return bridge.SilenceFrame(), nil
	}
	return bridge.Frame{Type: bridge.FrameAudio, Samples: out}, nil
}

func (sr *StreamReader) Push(bridge.Frame) error {
	return fmt.Errorf("avi: stream %d is a read-only source, Push is not supported", sr.stream.Index)
}

// readSubChunkAt reads one movi sub-chunk's id/size/payload at an absolute
// file offset via ReadAt, so sibling StreamReaders scanning independently
// never contend on a single Seek cursor.
func readSubChunkAt(ra io.ReaderAt, offset int64) (id FourCC, size uint32, payload []byte, next int64, err error) {
	var hdr [8]byte
	if _, err = ra.ReadAt(hdr[:], offset); err != nil {
		return
	}
	copy(id[:], hdr[0:4])
	size = uint32(hdr[4]) | uint32(hdr[5])<<8 | uint32(hdr[6])<<16 | uint32(hdr[7])<<24

	payload = make([]byte, size)
	if size > 0 {
		if _, err = ra.ReadAt(payload, offset+8); err != nil {
			return
		}
	}
	padded := int64(size)
	if size%2 == 1 {
		padded++
	}
	next = offset + 8 + padded
	return
}
