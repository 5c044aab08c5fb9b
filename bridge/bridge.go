// Package bridge implements an N-to-N PCM routing and mixing engine: ports
// register into slots, slots connect through gain-weighted directed edges,
// and each Tick pulls one frame from every live source, mixes it into every
// sink it feeds, and pushes the result (spec §2 "conference bridge").
package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pjmedia/goconf/bridge/pcm"
	"github.com/pjmedia/goconf/bridge/resample"
)

// Bridge is the conference bridge: a fixed-capacity slot table, the
// serialized operation queue that mutates it, and the per-tick mixing
// driver. The zero value is not usable; construct with New.
type Bridge struct {
	cfg    Config
	logger *slog.Logger
	filter resample.Filter

	mu  sync.Mutex
	reg *registry

	queue opQueue

	cbMu sync.Mutex
	cb   OpCallback

	closed bool
}

// New creates a bridge per cfg and, if master is non-nil, installs it at
// slot 0 synchronously (spec §3 "Slot 0 exists for the lifetime of the
// bridge and is the clock source"). Passing master as nil is only
// meaningful when cfg.Options has NoDevice set and the caller drives Tick
// itself against an application-supplied clock.
func New(cfg Config, master Port, logger *slog.Logger) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		cfg:    cfg,
		logger: logger,
		filter: filterFromOptions(cfg.Options),
		reg:    newRegistry(cfg.MaxSlots),
	}
	if master != nil {
		slot, err := b.buildSlot(master, "master")
		if err != nil {
			return nil, err
		}
		slot.state = stateActive
		b.reg.slots[0] = slot
	}
	return b, nil
}

// buildSlot validates port's format against the bridge's and prepares the
// resamplers/assemblers/meters a portSlot needs, without touching the
// registry (spec §4.1 "Representation").
func (b *Bridge) buildSlot(port Port, name string) (portSlot, error) {
	info := port.Info()
	if err := info.Format().Validate(b.cfg.Channels); err != nil {
		return portSlot{}, newErr(ErrKindInvalidMediaType, err.Error())
	}

	rx, err := newResamplerState(info.SampleRate, b.cfg.SampleRate, b.cfg.Channels, b.filter)
	if err != nil {
		return portSlot{}, newErr(ErrKindInternal, err.Error())
	}
	tx, err := newResamplerState(b.cfg.SampleRate, info.SampleRate, b.cfg.Channels, b.filter)
	if err != nil {
		return portSlot{}, newErr(ErrKindInternal, err.Error())
	}

	return portSlot{
		port:        port,
		name:        name,
		info:        info,
		rxEnabled:   true,
		txEnabled:   true,
		rxLevel:     &levelMeter{},
		txLevel:     &levelMeter{},
		rxResampler: rx,
		txResampler: tx,
		rxAssembler: pcm.NewAssembler(b.cfg.SamplesPerFrame),
		txAssembler: pcm.NewAssembler(info.SamplesPerFrame),
	}, nil
}

// AddPort validates and reserves a slot synchronously, returning its id so
// the caller may Connect it before the next Tick folds it into mixing
// (spec §4.2, §6 "add_port").
func (b *Bridge) AddPort(port Port, name string) (int, error) {
	built, err := b.buildSlot(port, name)
	if err != nil {
		return -1, err
	}

	b.mu.Lock()
	idx, err := b.reg.allocSlot()
	if err != nil {
		b.mu.Unlock()
		return -1, err
	}
	built.state = statePendingAdd
	b.reg.slots[idx] = built
	b.mu.Unlock()

	b.queue.enqueue(OpAddPort, OpParams{Slot: idx, Port: port, Name: name})
	return idx, nil
}

// RemovePort detaches slot's edges immediately, so the very next Tick no
// longer pulls or pushes it, then queues final destruction, which
// finalizeRemovals performs at the end of that Tick (spec §4.2 scenario "remove_port(A)
// returns success; next tick does not pull A").
func (b *Bridge) RemovePort(slot int) error {
	if slot == 0 {
		return newErr(ErrKindInvalid, "slot 0 (master) cannot be removed")
	}

	b.mu.Lock()
	s, ok := b.reg.get(slot)
	if !ok || s.state == statePendingRemove {
		b.mu.Unlock()
		return ErrNotFound
	}
	b.reg.removeAllEdgesOf(slot)
	s.state = statePendingRemove
	b.mu.Unlock()

	b.queue.enqueue(OpRemovePort, OpParams{Slot: slot})
	return nil
}

// Connect validates both endpoints synchronously and queues the edge;
// application of the edge itself happens at the next Tick (spec §4.2
// "Connection changes take effect on the tick following their
// application").
func (b *Bridge) Connect(src, sink int, gain int32) error {
	b.mu.Lock()
	ok := b.reg.connectable(src) && b.reg.connectable(sink)
	b.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	b.queue.enqueue(OpConnect, OpParams{Src: src, Sink: sink, Gain: gain})
	return nil
}

// Disconnect queues removal of the (src, sink) edge; either side may be -1
// as a bulk-disconnect wildcard (spec §6 "disconnect_port").
func (b *Bridge) Disconnect(src, sink int) error {
	b.mu.Lock()
	if src != -1 {
		if _, ok := b.reg.get(src); !ok {
			b.mu.Unlock()
			return ErrNotFound
		}
	}
	if sink != -1 {
		if _, ok := b.reg.get(sink); !ok {
			b.mu.Unlock()
			return ErrNotFound
		}
	}
	b.mu.Unlock()

	b.queue.enqueue(OpDisconnect, OpParams{Src: src, Sink: sink})
	return nil
}

// applyOps folds one tick's worth of drained operations into the registry.
// Called with mu held, at the start of Tick, before any mixing happens.
func (b *Bridge) applyOps(ops []opRecord) []OpResult {
	if len(ops) == 0 {
		return nil
	}
	results := make([]OpResult, 0, len(ops))
	for _, op := range ops {
		res := OpResult{ID: op.id, Type: op.typ, Params: op.params, Slot: op.params.Slot}
		switch op.typ {
		case OpAddPort:
			if s, ok := b.reg.get(op.params.Slot); ok && s.state == statePendingAdd {
				s.state = stateActive
				res.Status = ErrKindNone
			} else {
				res.Status = ErrKindInternal
			}
		case OpRemovePort:
			// The topology was already cut synchronously in RemovePort;
			// this only reports the op as complete.
			res.Status = ErrKindNone
		case OpConnect:
			if err := b.reg.addEdge(op.params.Src, op.params.Sink, op.params.Gain); err != nil {
				res.Status = KindOf(err)
			} else {
				res.Status = ErrKindNone
			}
		case OpDisconnect:
			b.reg.removeEdge(op.params.Src, op.params.Sink)
			res.Status = ErrKindNone
		}
		results = append(results, res)
	}
	return results
}

// finalizeRemovals releases every slot pending removal (spec §5 "deferred
// destruction": "a port survives until all in-flight tick references
// release it"). There is no separate refcount to wait on: b.mu is held for
// the full duration of every Tick (drain, apply, mix, this finalize pass),
// and RemovePort itself only runs under b.mu, so by the time a tick reaches
// here no goroutine anywhere can still be mid-Pull/Push against this slot's
// port — the coarse lock already serializes removal against every
// in-flight use.
func (b *Bridge) finalizeRemovals() {
	for i := range b.reg.slots {
		s := &b.reg.slots[i]
		if s.state != statePendingRemove {
			continue
		}
		if hook, ok := s.port.(DestroyHook); ok {
			hook.OnDestroy()
		}
		*s = portSlot{}
	}
}

// Tick drains and applies the operation queue, runs one full mix pass, and
// finally delivers completion callbacks for every operation applied this
// tick — always outside the registry lock (spec §9 "never invoke user
// callbacks under the mix lock").
func (b *Bridge) Tick(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return newErr(ErrKindInvalid, "bridge is closed")
	}
	ops := b.queue.drain()
	results := b.applyOps(ops)
	driveTick(ctx, b.reg, b.cfg.SamplesPerFrame, b.cfg.WorkerThreads, b.logger)
	b.finalizeRemovals()
	b.mu.Unlock()

	b.dispatch(results)
	return nil
}

func (b *Bridge) dispatch(results []OpResult) {
	if len(results) == 0 {
		return
	}
	b.cbMu.Lock()
	cb := b.cb
	b.cbMu.Unlock()
	if cb == nil {
		return
	}
	for _, r := range results {
		cb(r)
	}
}

// SetOpCallback registers the function invoked once per completed
// asynchronous operation (spec §6). A nil callback silently drops
// completions.
func (b *Bridge) SetOpCallback(cb OpCallback) {
	b.cbMu.Lock()
	b.cb = cb
	b.cbMu.Unlock()
}

// GetPortInfo returns slot's format and display name.
func (b *Bridge) GetPortInfo(slot int) (Info, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.reg.get(slot)
	if !ok {
		return Info{}, ErrNotFound
	}
	return s.info, nil
}

// GetPortCount reports the number of occupied slots, including any still
// pending add or removal.
func (b *Bridge) GetPortCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for i := range b.reg.slots {
		if b.reg.slots[i].state != stateFree {
			n++
		}
	}
	return n
}

// GetConnectCount returns the total number of edges currently in the graph.
func (b *Bridge) GetConnectCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reg.totalEdgeCount()
}

// EnumPorts returns the slot ids currently holding an active port.
func (b *Bridge) EnumPorts() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reg.iterActive()
}

// GetSignalLevel reports slot's decayed tx/rx peak levels in [0,255] (spec
// §4.3 "Signal levels").
func (b *Bridge) GetSignalLevel(slot int) (tx, rx uint8, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.reg.get(slot)
	if !ok {
		return 0, 0, ErrNotFound
	}
	return s.txLevel.value(), s.rxLevel.value(), nil
}

// AdjustRxLevel sets the gain applied to slot's own samples when it acts as
// a source (spec "adjust the level of signal received from the specified
// port").
func (b *Bridge) AdjustRxLevel(slot int, adjLevel int32) error {
	if adjLevel < -128 {
		return newErr(ErrKindInvalid, "adj_level must be >= -128")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.reg.get(slot)
	if !ok {
		return ErrNotFound
	}
	s.rxGain = adjLevel
	return nil
}

// AdjustTxLevel sets the gain applied to the mixed signal delivered to slot
// when it acts as a sink (spec "adjust the level of signal to be
// transmitted to the specified port").
func (b *Bridge) AdjustTxLevel(slot int, adjLevel int32) error {
	if adjLevel < -128 {
		return newErr(ErrKindInvalid, "adj_level must be >= -128")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.reg.get(slot)
	if !ok {
		return ErrNotFound
	}
	s.txGain = adjLevel
	return nil
}

// AdjustConnLevel sets the gain carried by one (src, sink) edge.
func (b *Bridge) AdjustConnLevel(src, sink int, adjLevel int32) error {
	if adjLevel < -128 {
		return newErr(ErrKindInvalid, "adj_level must be >= -128")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.reg.get(sink)
	if !ok {
		return ErrNotFound
	}
	for i := range t.inbound {
		if t.inbound[i].src == src {
			t.inbound[i].gain = adjLevel
			return nil
		}
	}
	return ErrNotFound
}

// ConfigurePort toggles whether slot participates as a source (rxEnabled)
// or sink (txEnabled) without altering its edges or gains (spec "Change TX
// and RX settings for the port").
func (b *Bridge) ConfigurePort(slot int, rxEnabled, txEnabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.reg.get(slot)
	if !ok {
		return ErrNotFound
	}
	s.rxEnabled = rxEnabled
	s.txEnabled = txEnabled
	return nil
}

// Close releases every occupied slot, firing DestroyHook where implemented.
// The bridge is unusable after Close; Tick returns an error.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for i := range b.reg.slots {
		s := &b.reg.slots[i]
		if s.state == stateFree {
			continue
		}
		if hook, ok := s.port.(DestroyHook); ok {
			hook.OnDestroy()
		}
		*s = portSlot{}
	}
	return nil
}
