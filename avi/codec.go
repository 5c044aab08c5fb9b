package avi

import (
	"fmt"

	"github.com/pjmedia/goconf/bridge/pcm"
	"github.com/zaf/g711"
)

// decodePCM converts one movi sub-chunk's payload to linear PCM16 samples
// according to the owning stream's strf format tag (spec §4.5 "audio:
// PCM16, A-law, µ-law, all converted to the bridge's linear PCM16").
func decodePCM(formatTag int, payload []byte) ([]int16, error) {
	switch formatTag {
	case WaveFormatPCM:
		return bytesToPCM16(payload)
	case WaveFormatALaw:
		return bytesToPCM16(g711.DecodeAlaw(payload))
	case WaveFormatULaw:
		return bytesToPCM16(g711.DecodeUlaw(payload))
	default:
		return nil, fmt.Errorf("avi: unsupported wFormatTag %d", formatTag)
	}
}

// bytesToPCM16 reinterprets a little-endian byte slice as signed 16-bit
// samples, as produced by strf's raw PCM payload or by g711's decoders.
func bytesToPCM16(b []byte) ([]int16, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("avi: odd-length PCM16 payload (%d bytes)", len(b))
	}
	return []int16(pcm.BytesToSample(nil, b)), nil
}

// streamIndexOf returns the stream index a movi sub-chunk id refers to, and
// whether the id names an audio ("##wb") or video ("##dc"/"##db") payload.
// AVI sub-chunk ids are a 2-digit decimal stream index followed by a 2-char
// type code; non-numeric prefixes (e.g. "idx1", "JUNK") are rejected.
func streamIndexOf(id FourCC) (index int, isAudio bool, ok bool) {
	if id[0] < '0' || id[0] > '9' || id[1] < '0' || id[1] > '9' {
		return 0, false, false
	}
	index = int(id[0]-'0')*10 + int(id[1]-'0')
	switch {
	case id[2] == 'w' && id[3] == 'b':
		return index, true, true
	case id[2] == 'd' && (id[3] == 'c' || id[3] == 'b'):
		return index, false, true
	default:
		return 0, false, false
	}
}
