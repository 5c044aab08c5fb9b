// Command confbridge-demo drives the bridge through the end-to-end
// scenarios from spec §8: loopback, a three-way conference, a muted edge,
// async removal, and capacity exhaustion. It is a narration tool, not a
// test harness — see the bridge package's own tests for assertions.
package main

import (
	"context"
	"math"
	"os"

	"github.com/charmbracelet/log"

	"github.com/pjmedia/goconf/bridge"
	"github.com/pjmedia/goconf/bridge/ports"
)

func main() {
	out := log.New(os.Stderr)
	out.SetLevel(log.InfoLevel)

	if err := run(out); err != nil {
		out.Fatal("demo failed", "error", err)
	}
}

func run(out *log.Logger) error {
	out.Info("=== scenario 1: loopback ===")
	if err := loopback(out); err != nil {
		return err
	}

	out.Info("=== scenario 2: three-way conference ===")
	if err := threeWayConference(out); err != nil {
		return err
	}

	out.Info("=== scenario 3: mute by gain ===")
	if err := muteByGain(out); err != nil {
		return err
	}

	out.Info("=== scenario 4: async removal visibility ===")
	if err := asyncRemoval(out); err != nil {
		return err
	}

	out.Info("=== scenario 6: capacity exhaustion ===")
	if err := capacityExhaustion(out); err != nil {
		return err
	}

	out.Info("all scenarios completed")
	return nil
}

func demoInfo(name string) bridge.Info {
	return bridge.Info{Name: name, SampleRate: 8000, Channels: 1, SamplesPerFrame: 160, BitsPerSample: 16}
}

func sineFrame(samples, amplitude int, freqHz, sampleRate float64, phase0 int) []int16 {
	out := make([]int16, samples)
	for i := range out {
		t := float64(phase0+i) / sampleRate
		out[i] = int16(float64(amplitude) * math.Sin(2*math.Pi*freqHz*t))
	}
	return out
}

func loopback(out *log.Logger) error {
	cfg := bridge.DefaultConfig()
	cfg.SampleRate = 8000
	cfg.SamplesPerFrame = 160
	cfg.Channels = 1
	// Slot 0 needs a live port to be connectable; master stands in for the
	// device scenario describes, echoing back on the tick after it
	// receives a frame.
	master := ports.NewMemoryPort(demoInfo("master"))
	b, err := bridge.New(cfg, master, nil)
	if err != nil {
		return err
	}

	p1 := ports.NewMemoryPort(demoInfo("p1"))
	slot, err := b.AddPort(p1, "p1")
	if err != nil {
		return err
	}
	if err := b.Tick(context.Background()); err != nil {
		return err
	}
	if err := b.Connect(slot, 0, 0); err != nil {
		return err
	}
	if err := b.Connect(0, slot, 0); err != nil {
		return err
	}

	phase := 0
	for i := 0; i < 3; i++ {
		frame := sineFrame(160, 10000, 1000, 8000, phase)
		phase += 160
		p1.Enqueue(frame)
		if err := b.Tick(context.Background()); err != nil {
			return err
		}
		if echoed := master.Received(); echoed != nil {
			master.Enqueue(echoed)
		}
	}
	got := p1.Received()
	preview := got
	if len(preview) > 4 {
		preview = preview[:4]
	}
	out.Info("loopback result", "samples", len(got), "first", preview)
	return nil
}

func threeWayConference(out *log.Logger) error {
	cfg := bridge.DefaultConfig()
	cfg.SampleRate = 8000
	cfg.SamplesPerFrame = 160
	cfg.Channels = 1
	b, err := bridge.New(cfg, nil, nil)
	if err != nil {
		return err
	}

	a := ports.NewMemoryPort(demoInfo("a"))
	bb := ports.NewMemoryPort(demoInfo("b"))
	c := ports.NewMemoryPort(demoInfo("c"))
	sa, _ := b.AddPort(a, "a")
	sb, _ := b.AddPort(bb, "b")
	sc, _ := b.AddPort(c, "c")
	if err := b.Tick(context.Background()); err != nil {
		return err
	}

	for _, pair := range [][2]int{{sa, sb}, {sa, sc}, {sb, sa}, {sb, sc}, {sc, sa}, {sc, sb}} {
		if err := b.Connect(pair[0], pair[1], 0); err != nil {
			return err
		}
	}

	frame := make([]int16, 160)
	for i := range frame {
		frame[i] = 6000
	}
	a.Enqueue(frame)
	bb.Enqueue(frame)
	c.Enqueue(frame)
	if err := b.Tick(context.Background()); err != nil {
		return err
	}

	out.Info("three-way conference", "a_rx", a.Received()[0], "b_rx", bb.Received()[0], "c_rx", c.Received()[0])
	return nil
}

func muteByGain(out *log.Logger) error {
	cfg := bridge.DefaultConfig()
	cfg.SampleRate = 8000
	cfg.SamplesPerFrame = 160
	cfg.Channels = 1
	b, err := bridge.New(cfg, nil, nil)
	if err != nil {
		return err
	}

	a := ports.NewMemoryPort(demoInfo("a"))
	bb := ports.NewMemoryPort(demoInfo("b"))
	sa, _ := b.AddPort(a, "a")
	sb, _ := b.AddPort(bb, "b")
	if err := b.Tick(context.Background()); err != nil {
		return err
	}
	if err := b.Connect(sa, sb, 0); err != nil {
		return err
	}
	// The edge exists only once a Tick has applied the queued connect.
	if err := b.Tick(context.Background()); err != nil {
		return err
	}
	if err := b.AdjustConnLevel(sa, sb, -128); err != nil {
		return err
	}

	frame := make([]int16, 160)
	for i := range frame {
		frame[i] = 4000
	}
	a.Enqueue(frame)
	if err := b.Tick(context.Background()); err != nil {
		return err
	}
	out.Info("muted edge result", "b_pending", bb.PendingReceived())
	return nil
}

func asyncRemoval(out *log.Logger) error {
	cfg := bridge.DefaultConfig()
	cfg.SampleRate = 8000
	cfg.SamplesPerFrame = 160
	cfg.Channels = 1
	b, err := bridge.New(cfg, nil, nil)
	if err != nil {
		return err
	}

	var lastStatus bridge.ErrorKind
	var lastType bridge.OpType
	b.SetOpCallback(func(r bridge.OpResult) {
		lastStatus, lastType = r.Status, r.Type
	})

	a := ports.NewMemoryPort(demoInfo("a"))
	slot, err := b.AddPort(a, "a")
	if err != nil {
		return err
	}
	if err := b.Tick(context.Background()); err != nil {
		return err
	}

	if err := b.RemovePort(slot); err != nil {
		return err
	}
	if err := b.Tick(context.Background()); err != nil {
		return err
	}
	out.Info("removal op callback", "op_type", lastType, "status", lastStatus)
	return nil
}

func capacityExhaustion(out *log.Logger) error {
	cfg := bridge.DefaultConfig()
	cfg.MaxSlots = 2
	b, err := bridge.New(cfg, nil, nil)
	if err != nil {
		return err
	}

	for _, name := range []string{"first", "second"} {
		if _, err := b.AddPort(ports.NewMemoryPort(demoInfo(name)), name); err != nil {
			return err
		}
	}
	_, err = b.AddPort(ports.NewMemoryPort(demoInfo("overflow")), "overflow")
	out.Info("capacity exhaustion result", "error", err)
	return nil
}
