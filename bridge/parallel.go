package bridge

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// driveTick runs one full mix pass over reg: a sequential pre-pull of every
// live source (so no two goroutines ever race on a single portSlot's pull
// cache, spec §4.4 "per-source pull happens at most once... regardless of
// how many sinks read it"), followed by a per-sink accumulate/normalize/push
// phase that fans out across workerThreads goroutines when configured (spec
// §4.4 "Parallel driver"). Errors from an individual port's Push are logged
// and do not abort the tick (spec §4.3 "Failure semantics").
func driveTick(ctx context.Context, reg *registry, frameSamples, workerThreads int, logger *slog.Logger) {
	for i := range reg.slots {
		if reg.slots[i].state == stateActive {
			reg.slots[i].txCachePulled = false
		}
	}

	for i := range reg.slots {
		s := &reg.slots[i]
		if s.state == stateActive && s.rxEnabled && len(s.outbound) > 0 {
			s.pullSource()
		}
	}

	sinks := make([]int, 0, len(reg.slots))
	for i := range reg.slots {
		s := &reg.slots[i]
		if s.state == stateActive && s.txEnabled && len(s.inbound) > 0 {
			sinks = append(sinks, i)
		}
	}

	if workerThreads <= 1 || len(sinks) <= 1 {
		for _, idx := range sinks {
			if err := reg.mixSink(idx, frameSamples); err != nil {
				logger.Warn("port push failed", "slot", idx, "error", err)
			}
		}
		return
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workerThreads)
	for _, idx := range sinks {
		idx := idx
		g.Go(func() error {
			if err := reg.mixSink(idx, frameSamples); err != nil {
				logger.Warn("port push failed", "slot", idx, "error", err)
			}
			return nil
		})
	}
	// Errors are already swallowed per-sink above; Wait only serves as the
	// barrier that lets the caller's Tick() return once every sink has been
	// serviced (spec §4.4 "a tick completes only once all live sinks have
	// been serviced").
	_ = g.Wait()
}
