package bridge

import (
	"sync"

	"github.com/google/uuid"
)

// OpType enumerates the mutating operations spec §3 calls "Operation
// record" kinds.
type OpType int

const (
	OpAddPort OpType = iota
	OpRemovePort
	OpConnect
	OpDisconnect
)

func (t OpType) String() string {
	switch t {
	case OpAddPort:
		return "add_port"
	case OpRemovePort:
		return "remove_port"
	case OpConnect:
		return "connect"
	case OpDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// OpParams is the union of inputs for all OpType values; only the fields
// relevant to Type are populated (spec §3 "Operation record").
type OpParams struct {
	Port Port
	Name string
	Slot int
	Src  int
	Sink int
	Gain int32
}

// OpResult is delivered to the application-registered completion callback
// exactly once per enqueued operation (spec §4.2).
type OpResult struct {
	ID     uuid.UUID
	Type   OpType
	Status ErrorKind
	Params OpParams
	// Slot carries the allocated slot id for a successful OpAddPort.
	Slot int
}

// OpCallback is invoked on the goroutine that called Tick, after Tick has
// released the registry lock, never from inside the mix lock (spec §9 "Async event publication... never invoke
// user callbacks under the mix lock"). Implementations must be
// non-blocking (spec §6 "must be non-blocking").
type OpCallback func(OpResult)

type opRecord struct {
	id     uuid.UUID
	typ    OpType
	params OpParams
}

// opQueue is the serialized, asynchronous mutation queue of spec §4.2: calls
// append a record and return immediately; drain() is invoked once per tick
// at a bridge-safe point, applying operations in enqueue order (FIFO).
type opQueue struct {
	mu      sync.Mutex
	pending []opRecord
}

func (q *opQueue) enqueue(typ OpType, params OpParams) uuid.UUID {
	id := uuid.New()
	q.mu.Lock()
	q.pending = append(q.pending, opRecord{id: id, typ: typ, params: params})
	q.mu.Unlock()
	return id
}

// drain removes and returns all currently pending records, preserving FIFO
// order. Operations enqueued while drain() is applying an earlier batch are
// left for the following tick.
func (q *opQueue) drain() []opRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}
