package avi

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pjmedia/goconf/avsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMinimalAVIVideo(t *testing.T, payloads [][]byte) []byte {
	t.Helper()

	avih := make([]byte, 56)
	binary.LittleEndian.PutUint32(avih[24:], 1) // Streams = 1

	strh := make([]byte, 56)
	copy(strh[0:4], "vids")
	binary.LittleEndian.PutUint32(strh[20:], 1)  // Scale
	binary.LittleEndian.PutUint32(strh[24:], 30) // Rate -> 30fps

	strf := make([]byte, 40)
	binary.LittleEndian.PutUint32(strf[0:], 40)
	binary.LittleEndian.PutUint32(strf[4:], 160) // Width
	binary.LittleEndian.PutUint32(strf[8:], 120) // Height
	copy(strf[16:20], "XVID")

	strl := append(chunkBytes("strh", strh), chunkBytes("strf", strf)...)
	hdrl := append(chunkBytes("avih", avih), listBytes("strl", strl)...)

	var movi []byte
	for _, p := range payloads {
		movi = append(movi, chunkBytes("00dc", p)...)
	}

	body := append([]byte("AVI "), listBytes("hdrl", hdrl)...)
	body = append(body, listBytes("movi", movi)...)

	return chunkBytes("RIFF", body)
}

func TestVideoReaderInfoAndSequentialPull(t *testing.T) {
	payloads := [][]byte{{1, 2, 3}, {4, 5}, {6}}
	data := buildMinimalAVIVideo(t, payloads)

	c, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, c.Streams, 1)
	require.Equal(t, StreamVideo, c.Streams[0].Type)

	ra := bytes.NewReader(data)
	p := NewPlayer(c, ra, false)
	vr, err := p.VideoReader(0)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, vr.FrameRate(), 0.0001)

	for _, want := range payloads {
		f, ok, err := vr.pullNext()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, VideoFrameEmit, f.Action)
		assert.Equal(t, want, f.Payload)
	}

	_, ok, err := vr.pullNext()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVideoReaderLoops(t *testing.T) {
	payloads := [][]byte{{9}, {8}}
	data := buildMinimalAVIVideo(t, payloads)

	c, err := Open(bytes.NewReader(data))
	require.NoError(t, err)

	ra := bytes.NewReader(data)
	p := NewPlayer(c, ra, true)
	vr, err := p.VideoReader(0)
	require.NoError(t, err)

	for _, want := range payloads {
		f, ok, err := vr.pullNext()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, f.Payload)
	}

	// Exhausted once; looping means the very next pull starts over rather
	// than reporting !ok.
	f, ok, err := vr.pullNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payloads[0], f.Payload)
}

func TestApplyVideoPolicySlowDownHoldsLastFrame(t *testing.T) {
	data := buildMinimalAVIVideo(t, [][]byte{{1}, {2}, {3}})
	c, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	ra := bytes.NewReader(data)
	p := NewPlayer(c, ra, false)
	vr, err := p.VideoReader(0)
	require.NoError(t, err)

	first, ok, err := vr.pullNext()
	require.NoError(t, err)
	require.True(t, ok)

	held, err := applyVideoPolicy(vr, avsync.PolicySlowDown, 0)
	require.NoError(t, err)
	assert.Equal(t, VideoFrameHold, held.Action)
	assert.Equal(t, first.Payload, held.Payload)
}

func TestApplyVideoPolicyDropForwardSkipsAhead(t *testing.T) {
	data := buildMinimalAVIVideo(t, [][]byte{{1}, {2}, {3}, {4}})
	c, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	ra := bytes.NewReader(data)
	p := NewPlayer(c, ra, false)
	vr, err := p.VideoReader(0)
	require.NoError(t, err)

	// frames=3 means: skip 2, emit the 3rd chunk ({3}).
	f, err := applyVideoPolicy(vr, avsync.PolicyDropForward, 3)
	require.NoError(t, err)
	assert.Equal(t, VideoFrameEmit, f.Action)
	assert.Equal(t, []byte{3}, f.Payload)
}

func TestApplyVideoPolicySpeedUpSkipsOne(t *testing.T) {
	data := buildMinimalAVIVideo(t, [][]byte{{1}, {2}, {3}})
	c, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	ra := bytes.NewReader(data)
	p := NewPlayer(c, ra, false)
	vr, err := p.VideoReader(0)
	require.NoError(t, err)

	// frames=2 means: skip 1, emit the 2nd chunk ({2}).
	f, err := applyVideoPolicy(vr, avsync.PolicySpeedUp, 2)
	require.NoError(t, err)
	assert.Equal(t, VideoFrameEmit, f.Action)
	assert.Equal(t, []byte{2}, f.Payload)
}

func TestApplyVideoPolicyNoneEmitsNextSequentially(t *testing.T) {
	data := buildMinimalAVIVideo(t, [][]byte{{7}, {8}})
	c, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	ra := bytes.NewReader(data)
	p := NewPlayer(c, ra, false)
	vr, err := p.VideoReader(0)
	require.NoError(t, err)

	f, err := applyVideoPolicy(vr, avsync.PolicyNone, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, f.Payload)
}
