package bridge

import (
	"context"
	"testing"

	"github.com/pjmedia/goconf/bridge/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestCapacityBoundaryAddRemoveChurn exercises the max_slots=2 boundary
// through 10,000 rounds of add/remove churn (no connect/disconnect): with
// room for exactly one non-master port, the churn must never let GetPortCount
// exceed MaxSlots nor leave a stale slot behind once a port is removed and
// its tick reference drops.
func TestCapacityBoundaryAddRemoveChurn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSlots = 2
	cfg.SampleRate = 8000
	cfg.SamplesPerFrame = 160
	cfg.Channels = 1

	master := ports.NewMemoryPort(testInfo("master"))
	b, err := New(cfg, master, nil)
	require.NoError(t, err)

	for i := 0; i < 10000; i++ {
		p := ports.NewMemoryPort(testInfo("churn"))
		slot, err := b.AddPort(p, "churn")
		require.NoError(t, err)
		require.Equal(t, 1, slot) // slot 0 holds the master; lowest-free always wins

		_, overflowErr := b.AddPort(ports.NewMemoryPort(testInfo("overflow")), "overflow")
		assert.ErrorIs(t, overflowErr, ErrCapacityExceeded)

		require.NoError(t, b.Tick(context.Background()))
		assert.Equal(t, 2, b.GetPortCount()) // master (slot 0) plus the churn port

		require.NoError(t, b.RemovePort(slot))
		require.NoError(t, b.Tick(context.Background()))
		assert.Equal(t, 1, b.GetPortCount()) // back down to just the master
	}
}

// TestWorkerThreadCountsProduceIdenticalMixes asserts spec §4.4's driver
// choice (sequential vs. goroutine pool) is purely a concurrency strategy:
// the samples a sink receives must be bit-identical regardless of
// WorkerThreads.
func TestWorkerThreadCountsProduceIdenticalMixes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		workerCounts := []int{0, 1, 4}
		sourceCount := rapid.IntRange(2, 5).Draw(rt, "sources")
		amplitudes := make([]int16, sourceCount)
		for i := range amplitudes {
			amplitudes[i] = int16(rapid.IntRange(-20000, 20000).Draw(rt, "amp"))
		}

		var results [][]int16
		for _, workers := range workerCounts {
			cfg := DefaultConfig()
			cfg.SampleRate = 8000
			cfg.SamplesPerFrame = 80
			cfg.Channels = 1
			cfg.WorkerThreads = workers

			b, err := New(cfg, nil, nil)
			require.NoError(rt, err)

			// Ports share the bridge's own rate/frame size so no resampler
			// sits between source and sink: the only variable under test is
			// WorkerThreads, not resample rounding.
			portInfo := Info{Name: "p", SampleRate: cfg.SampleRate, Channels: cfg.Channels, SamplesPerFrame: cfg.SamplesPerFrame, BitsPerSample: 16}

			sink := ports.NewMemoryPort(portInfo)
			sinkSlot, err := b.AddPort(sink, "sink")
			require.NoError(rt, err)

			srcSlots := make([]int, sourceCount)
			srcs := make([]*ports.MemoryPort, sourceCount)
			for i := 0; i < sourceCount; i++ {
				srcs[i] = ports.NewMemoryPort(portInfo)
				srcSlots[i], err = b.AddPort(srcs[i], "src")
				require.NoError(rt, err)
			}
			require.NoError(rt, b.Tick(context.Background()))

			for _, s := range srcSlots {
				require.NoError(rt, b.Connect(s, sinkSlot, 0))
			}
			require.NoError(rt, b.Tick(context.Background())) // applies edges; no source has audio yet, so nothing reaches the sink (drained below regardless)
			for sink.Received() != nil {
			}

			frame := make([]int16, cfg.SamplesPerFrame)
			for i, src := range srcs {
				for j := range frame {
					frame[j] = amplitudes[i]
				}
				src.Enqueue(frame)
			}
			require.NoError(rt, b.Tick(context.Background()))

			got := sink.Received()
			require.NotNil(rt, got)
			results = append(results, got)
		}

		for i := 1; i < len(results); i++ {
			assert.Equal(rt, results[0], results[i], "worker count %d diverged from %d", workerCounts[i], workerCounts[0])
		}
	})
}

// TestMismatchedRatesNoDropoutAcrossManyTicks connects an 8kHz source into
// a 16kHz bridge and runs it for 1,000 ticks: every frame delivered to the
// sink must be a full bridge-size frame, and more than half of the ticks
// must deliver one (spec §4.1 "Frame buffer & resampler" must absorb the
// rate mismatch without starving the sink).
func TestMismatchedRatesNoDropoutAcrossManyTicks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 16000
	cfg.SamplesPerFrame = 320
	cfg.Channels = 1

	b, err := New(cfg, nil, nil)
	require.NoError(t, err)

	src := ports.NewMemoryPort(Info{Name: "src-8k", SampleRate: 8000, Channels: 1, SamplesPerFrame: 160, BitsPerSample: 16})
	sink := ports.NewMemoryPort(testInfo("sink-16k"))

	srcSlot, err := b.AddPort(src, "src-8k")
	require.NoError(t, err)
	sinkSlot, err := b.AddPort(sink, "sink-16k")
	require.NoError(t, err)
	require.NoError(t, b.Tick(context.Background()))
	require.NoError(t, b.Connect(srcSlot, sinkSlot, 0))
	require.NoError(t, b.Tick(context.Background()))

	const ticks = 1000
	for i := 0; i < ticks; i++ {
		frame := make([]int16, 160)
		for j := range frame {
			frame[j] = int16(1000 + i%500)
		}
		src.Enqueue(frame)
		require.NoError(t, b.Tick(context.Background()))
	}

	delivered := 0
	for {
		f := sink.Received()
		if f == nil {
			break
		}
		delivered++
		assert.Len(t, f, cfg.SamplesPerFrame)
	}
	// The resampler's internal buffering means delivered frame count need
	// not equal tick count exactly, but it must track it closely: no tick
	// should starve the sink entirely over a run this long.
	assert.Greater(t, delivered, ticks/2)
}
