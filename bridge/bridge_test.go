package bridge

import (
	"context"
	"testing"

	"github.com/pjmedia/goconf/bridge/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInfo(name string) Info {
	return Info{Name: name, SampleRate: 16000, Channels: 1, SamplesPerFrame: 320, BitsPerSample: 16}
}

func TestAddPortConnectMixesOneSourceUnityGain(t *testing.T) {
	b, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	src := ports.NewMemoryPort(testInfo("src"))
	sink := ports.NewMemoryPort(testInfo("sink"))

	srcSlot, err := b.AddPort(src, "src")
	require.NoError(t, err)
	sinkSlot, err := b.AddPort(sink, "sink")
	require.NoError(t, err)

	require.NoError(t, b.Tick(context.Background())) // activates both slots

	require.NoError(t, b.Connect(srcSlot, sinkSlot, 0))

	frame := make([]int16, 320)
	for i := range frame {
		frame[i] = int16(i)
	}
	src.Enqueue(frame)

	require.NoError(t, b.Tick(context.Background())) // applies connect, mixes

	got := sink.Received()
	require.NotNil(t, got)
	assert.Equal(t, frame, got)
}

func TestSilentWhenNoTransmitters(t *testing.T) {
	b, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	sink := ports.NewMemoryPort(testInfo("sink"))
	sinkSlot, err := b.AddPort(sink, "sink")
	require.NoError(t, err)
	require.NoError(t, b.Tick(context.Background()))

	require.NoError(t, b.Tick(context.Background()))

	assert.Equal(t, 0, sink.PendingReceived())
	_ = sinkSlot
}

func TestTwoSourcesAverage(t *testing.T) {
	b, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	srcA := ports.NewMemoryPort(testInfo("a"))
	srcB := ports.NewMemoryPort(testInfo("b"))
	sink := ports.NewMemoryPort(testInfo("sink"))

	slotA, _ := b.AddPort(srcA, "a")
	slotB, _ := b.AddPort(srcB, "b")
	slotSink, _ := b.AddPort(sink, "sink")
	require.NoError(t, b.Tick(context.Background()))

	require.NoError(t, b.Connect(slotA, slotSink, 0))
	require.NoError(t, b.Connect(slotB, slotSink, 0))

	frameA := make([]int16, 320)
	frameB := make([]int16, 320)
	for i := range frameA {
		frameA[i] = 100
		frameB[i] = 300
	}
	srcA.Enqueue(frameA)
	srcB.Enqueue(frameB)

	require.NoError(t, b.Tick(context.Background()))

	got := sink.Received()
	require.NotNil(t, got)
	for _, s := range got {
		assert.Equal(t, int16(200), s)
	}
}

func TestRemovePortStopsNextTickPull(t *testing.T) {
	b, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	src := ports.NewMemoryPort(testInfo("src"))
	sink := ports.NewMemoryPort(testInfo("sink"))
	srcSlot, _ := b.AddPort(src, "src")
	sinkSlot, _ := b.AddPort(sink, "sink")
	require.NoError(t, b.Tick(context.Background()))
	require.NoError(t, b.Connect(srcSlot, sinkSlot, 0))

	frame := make([]int16, 320)
	for i := range frame {
		frame[i] = 42
	}
	src.Enqueue(frame)
	require.NoError(t, b.Tick(context.Background()))
	require.NotNil(t, sink.Received())

	require.NoError(t, b.RemovePort(srcSlot))
	src.Enqueue(frame)
	require.NoError(t, b.Tick(context.Background()))
	assert.Equal(t, 0, sink.PendingReceived())
}

func TestAdjustRxLevelMutesSource(t *testing.T) {
	b, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	src := ports.NewMemoryPort(testInfo("src"))
	sink := ports.NewMemoryPort(testInfo("sink"))
	srcSlot, _ := b.AddPort(src, "src")
	sinkSlot, _ := b.AddPort(sink, "sink")
	require.NoError(t, b.Tick(context.Background()))
	require.NoError(t, b.Connect(srcSlot, sinkSlot, 0))
	require.NoError(t, b.AdjustRxLevel(srcSlot, -128))

	frame := make([]int16, 320)
	for i := range frame {
		frame[i] = 1000
	}
	src.Enqueue(frame)
	require.NoError(t, b.Tick(context.Background()))

	got := sink.Received()
	require.NotNil(t, got)
	for _, s := range got {
		assert.Equal(t, int16(0), s)
	}
}

func TestAddPortRejectsChannelMismatch(t *testing.T) {
	b, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	bad := ports.NewMemoryPort(Info{Name: "stereo", SampleRate: 16000, Channels: 2, SamplesPerFrame: 320, BitsPerSample: 16})
	_, err = b.AddPort(bad, "stereo")
	assert.ErrorIs(t, err, ErrInvalidMediaType)
}

func TestCapacityExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSlots = 2
	b, err := New(cfg, nil, nil)
	require.NoError(t, err)

	_, err = b.AddPort(ports.NewMemoryPort(testInfo("a")), "a")
	require.NoError(t, err)
	_, err = b.AddPort(ports.NewMemoryPort(testInfo("b")), "b")
	require.NoError(t, err)
	_, err = b.AddPort(ports.NewMemoryPort(testInfo("c")), "c")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestOpCallbackFiresOnNextTick(t *testing.T) {
	b, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	var got []OpResult
	b.SetOpCallback(func(r OpResult) { got = append(got, r) })

	_, err = b.AddPort(ports.NewMemoryPort(testInfo("a")), "a")
	require.NoError(t, err)
	require.NoError(t, b.Tick(context.Background()))

	require.Len(t, got, 1)
	assert.Equal(t, OpAddPort, got[0].Type)
	assert.Equal(t, ErrKindNone, got[0].Status)
}
