// Package avi parses the read-only AVI container layout: RIFF('AVI ') ->
// LIST('hdrl') -> avih + [LIST('strl') -> strh + strf]* -> LIST('movi'),
// and produces one frame reader per supported stream (spec §4.5/§6). The
// outer RIFF/AVI tag is opened through github.com/go-audio/riff; the
// AVI-specific nested LIST/sub-chunk walking below it is hand-rolled, since
// the format's header-list nesting has no RIFF-library equivalent.
package avi

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

// FourCC is a raw 4-byte chunk/list tag, compared byte-for-byte rather than
// as a string to avoid allocation on every chunk header read.
type FourCC [4]byte

func (f FourCC) String() string { return string(f[:]) }

func (f FourCC) eq(s string) bool {
	return len(s) == 4 && f[0] == s[0] && f[1] == s[1] && f[2] == s[2] && f[3] == s[3]
}

// StreamType distinguishes the two fccType values a strh can carry.
type StreamType int

const (
	StreamUnknown StreamType = iota
	StreamAudio
	StreamVideo
)

// Audio format tags carried in strf's wFormatTag (classic WAVEFORMATEX
// values; spec §4.5 "audio: PCM16, A-law, µ-law").
const (
	WaveFormatPCM  = 1
	WaveFormatALaw = 6
	WaveFormatULaw = 7
)

// StreamInfo is one strl entry's decoded strh+strf headers.
type StreamInfo struct {
	Index    int
	Type     StreamType
	FccType  FourCC
	Disabled bool

	// Audio fields (Type == StreamAudio).
	FormatTag     int
	SampleRate    int
	Channels      int
	BitsPerSample int

	// Video fields (Type == StreamVideo); payload is treated as an opaque
	// black box per spec §1 "codecs and format libraries are black boxes" —
	// no decode is attempted, only enough of strh/strf to drive AV-sync.
	Codec        FourCC
	Width        int
	Height       int
	FPSNum       int
	FPSDenum     int
}

// Container holds the parsed header metadata and the file offset at which
// the movi sub-chunks begin.
type Container struct {
	r          io.ReadSeeker
	Streams    []StreamInfo
	MoviOffset int64
	MoviSize   int64
}

const (
	aviFlagMustUseIndex  = 0x00000020
	aviStreamDisabled    = 0x00000001
	aviVideoPalChanges   = 0x00010000
)

// Open validates the RIFF('AVI ') outer tag, walks LIST('hdrl') to collect
// each stream's strh/strf, skips JUNK/LIST('INFO') chunks, and records the
// offset of LIST('movi')'s first sub-chunk (spec §4.5 "Contract").
func Open(r io.ReadSeeker) (*Container, error) {
	// go-audio/riff's Parser is built around a flat chunk stream (its
	// natural home is WAV); it still gives us the outer 12-byte RIFF/form
	// validation for free via NextChunk's header parse. AVI's nested
	// LIST-of-LISTs body has no equivalent in that API, so everything past
	// the outer tag is walked by hand below. Re-seek to byte 12 afterwards
	// rather than trust how far NextChunk advanced the reader.
	p := riff.New(r)
	if _, err := p.NextChunk(); err != nil {
		return nil, fmt.Errorf("avi: reading RIFF header: %w", err)
	}
	if string(p.ID[:]) != "RIFF" || string(p.Form[:]) != "AVI " {
		return nil, fmt.Errorf("avi: not an AVI RIFF file (id %q, form %q)", p.ID, p.Form)
	}
	if _, err := r.Seek(12, io.SeekStart); err != nil {
		return nil, fmt.Errorf("avi: repositioning after RIFF header: %w", err)
	}

	c := &Container{r: r}

	hdrList, _, err := readListHeader(r)
	if err != nil {
		return nil, fmt.Errorf("avi: reading LIST(hdrl): %w", err)
	}
	if !hdrList.eq("hdrl") {
		return nil, fmt.Errorf("avi: expected LIST(hdrl), got LIST(%s)", hdrList)
	}

	avihID, avihSize, err := readChunkHeader(r)
	if err != nil {
		return nil, err
	}
	if !avihID.eq("avih") {
		return nil, fmt.Errorf("avi: expected 'avih' chunk, got %q", avihID)
	}
	var avih struct {
		MicroSecPerFrame    uint32
		MaxBytesPerSec      uint32
		PaddingGranularity  uint32
		Flags               uint32
		TotalFrames         uint32
		InitialFrames       uint32
		Streams             uint32
		SuggestedBufferSize uint32
		Width               uint32
		Height              uint32
		Reserved            [4]uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &avih); err != nil {
		return nil, fmt.Errorf("avi: reading avih: %w", err)
	}
	if err := skipPadding(r, avihSize, 56); err != nil {
		return nil, err
	}
	if avih.Flags&aviFlagMustUseIndex != 0 {
		// Unsupported-but-tolerated per avi_player.c's "possibly unsupported
		// format" warning path; parsing continues.
	}

	for i := 0; i < int(avih.Streams); i++ {
		info, err := readStreamList(r, i)
		if err != nil {
			return nil, fmt.Errorf("avi: stream %d: %w", i, err)
		}
		c.Streams = append(c.Streams, info)
	}

	moviSize, err := skipToMovi(r)
	if err != nil {
		return nil, err
	}
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("avi: locating movi data start: %w", err)
	}
	c.MoviOffset = pos
	c.MoviSize = moviSize - 4 // exclude the "movi" list-type tag itself
	return c, nil
}

func readStreamList(r io.ReadSeeker, idx int) (StreamInfo, error) {
	listTag, listSize, err := readListHeader(r)
	if err != nil {
		return StreamInfo{}, err
	}
	if !listTag.eq("strl") {
		return StreamInfo{}, fmt.Errorf("expected LIST(strl), got LIST(%s)", listTag)
	}
	// listSize covers everything from the list-type tag onward; start the
	// running total at 4 for the "strl" tag itself and add each sub-chunk's
	// 8-byte header plus its padded payload as it is consumed, so whatever
	// is left over (strd/strn/indx, commonly present) can be skipped in one
	// seek instead of parsed, mirroring avi_player.c's header-remainder skip.
	consumed := int64(4)

	strhID, strhSize, err := readChunkHeader(r)
	if err != nil {
		return StreamInfo{}, err
	}
	if !strhID.eq("strh") {
		return StreamInfo{}, fmt.Errorf("expected 'strh' chunk, got %q", strhID)
	}
	var strh struct {
		FccType             FourCC
		FccHandler          FourCC
		Flags               uint32
		Priority            uint16
		Language            uint16
		InitialFrames       uint32
		Scale               uint32
		Rate                uint32
		Start               uint32
		Length              uint32
		SuggestedBufferSize uint32
		Quality             uint32
		SampleSize          uint32
		RcFrame             [4]int16
	}
	if err := binary.Read(r, binary.LittleEndian, &strh); err != nil {
		return StreamInfo{}, fmt.Errorf("reading strh: %w", err)
	}
	if err := skipPadding(r, strhSize, 56); err != nil {
		return StreamInfo{}, err
	}
	consumed += chunkTotal(strhSize)

	info := StreamInfo{
		Index:    idx,
		FccType:  strh.FccType,
		Disabled: strh.Flags&aviStreamDisabled != 0,
	}

	strfID, strfSize, err := readChunkHeader(r)
	if err != nil {
		return StreamInfo{}, err
	}
	if !strfID.eq("strf") {
		return StreamInfo{}, fmt.Errorf("expected 'strf' chunk, got %q", strfID)
	}

	switch {
	case strh.FccType.eq("auds"):
		info.Type = StreamAudio
		var strf struct {
			FormatTag     uint16
			Channels      uint16
			SampleRate    uint32
			BytesPerSec   uint32
			BlockAlign    uint16
			BitsPerSample uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &strf); err != nil {
			return StreamInfo{}, fmt.Errorf("reading strf (audio): %w", err)
		}
		info.FormatTag = int(strf.FormatTag)
		info.SampleRate = int(strf.SampleRate)
		info.Channels = int(strf.Channels)
		info.BitsPerSample = int(strf.BitsPerSample)
		if err := skipPadding(r, strfSize, 16); err != nil {
			return StreamInfo{}, err
		}
		consumed += chunkTotal(strfSize)

	case strh.FccType.eq("vids"):
		if strh.Flags&aviVideoPalChanges != 0 {
			info.Type = StreamUnknown
		} else {
			info.Type = StreamVideo
		}
		var strf struct {
			Size          uint32
			Width         int32
			Height        int32
			Planes        uint16
			BitCount      uint16
			Compression   FourCC
			SizeImage     uint32
			XPelsPerMeter int32
			YPelsPerMeter int32
			ClrUsed       uint32
			ClrImportant  uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &strf); err != nil {
			return StreamInfo{}, fmt.Errorf("reading strf (video): %w", err)
		}
		info.Codec = strf.Compression
		info.Width = int(strf.Width)
		info.Height = int(strf.Height)
		info.FPSNum = int(strh.Rate)
		info.FPSDenum = int(strh.Scale)
		if err := skipPadding(r, strfSize, 40); err != nil {
			return StreamInfo{}, err
		}
		consumed += chunkTotal(strfSize)

	default:
		info.Type = StreamUnknown
		if err := skipPadding(r, strfSize, 0); err != nil {
			return StreamInfo{}, err
		}
		consumed += chunkTotal(strfSize)
	}

	// Whatever remains of the strl LIST after strh+strf (strd, strn, indx
	// are all commonly present and all safely skippable for this reader's
	// purposes) is discarded in one seek rather than parsed.
	if err := skipPadding(r, listSize, int(consumed)); err != nil {
		return StreamInfo{}, fmt.Errorf("skipping strl trailer: %w", err)
	}

	return info, nil
}

// skipToMovi discards JUNK and LIST('INFO') chunks until LIST('movi') is
// found, leaving the cursor at the first byte of movi's sub-chunks and
// returning movi's declared size (spec §4.5 "skips JUNK/LIST/INFO until the
// movi marker").
func skipToMovi(r io.ReadSeeker) (int64, error) {
	for {
		id, size, err := readChunkHeader(r)
		if err != nil {
			return 0, fmt.Errorf("avi: scanning for movi: %w", err)
		}
		if id.eq("LIST") {
			var listType FourCC
			if err := binary.Read(r, binary.LittleEndian, &listType); err != nil {
				return 0, err
			}
			if listType.eq("movi") {
				return int64(size), nil
			}
			if err := skipPadding(r, size, 4); err != nil {
				return 0, err
			}
			continue
		}
		if err := skipPadding(r, size, 0); err != nil {
			return 0, err
		}
	}
}

func readChunkHeader(r io.ReadSeeker) (FourCC, uint32, error) {
	var id FourCC
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return id, 0, err
	}
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return id, 0, err
	}
	return id, size, nil
}

// readListHeader reads a 'LIST' id + size + 4-byte list-type tag, returning
// the list type (e.g. "hdrl", "strl", "movi") and the size field, which
// covers everything from the list-type tag to the end of the list.
func readListHeader(r io.ReadSeeker) (FourCC, uint32, error) {
	id, size, err := readChunkHeader(r)
	if err != nil {
		return FourCC{}, 0, err
	}
	if !id.eq("LIST") {
		return FourCC{}, 0, fmt.Errorf("expected 'LIST', got %q", id)
	}
	var listType FourCC
	if err := binary.Read(r, binary.LittleEndian, &listType); err != nil {
		return FourCC{}, 0, err
	}
	return listType, size, nil
}

// chunkTotal is the number of bytes a sub-chunk occupies within its parent
// LIST's declared size: an 8-byte id+size header plus the payload, padded
// to an even length.
func chunkTotal(size uint32) int64 {
	total := int64(8) + int64(size)
	if size%2 == 1 {
		total++
	}
	return total
}

// skipPadding seeks past whatever remains of a chunk after consumed bytes
// were read, plus the WORD-alignment pad byte for odd-length chunks (spec
// "Sub-chunk lengths are padded to even byte counts").
func skipPadding(r io.ReadSeeker, chunkSize uint32, consumed int) error {
	remaining := int64(chunkSize) - int64(consumed)
	if chunkSize%2 == 1 {
		remaining++
	}
	if remaining <= 0 {
		return nil
	}
	_, err := r.Seek(remaining, io.SeekCurrent)
	return err
}
