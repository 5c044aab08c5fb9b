package bridge

import "errors"

// ErrorKind is the abstract error taxonomy from spec §6/§7. Synchronous API
// calls return one of these (wrapped in a *BridgeError); asynchronous
// operations report one of these through the op-callback's Status field.
type ErrorKind int

const (
	ErrKindNone ErrorKind = iota
	ErrKindInvalid
	ErrKindNotFound
	ErrKindOutOfMemory
	ErrKindInvalidMediaType
	ErrKindNotSupported
	ErrKindEndOfFile
	ErrKindInternal
	ErrKindCapacityExceeded
	ErrKindInvalidConfig
	ErrKindPortGone
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindNone:
		return "none"
	case ErrKindInvalid:
		return "invalid"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindOutOfMemory:
		return "out_of_memory"
	case ErrKindInvalidMediaType:
		return "invalid_media_type"
	case ErrKindNotSupported:
		return "not_supported"
	case ErrKindEndOfFile:
		return "end_of_file"
	case ErrKindInternal:
		return "internal"
	case ErrKindCapacityExceeded:
		return "capacity_exceeded"
	case ErrKindInvalidConfig:
		return "invalid_config"
	case ErrKindPortGone:
		return "port_gone"
	default:
		return "unknown"
	}
}

// BridgeError is the concrete error type returned by synchronous API calls.
// Its Kind is comparable via errors.Is against the sentinel Err* values
// below (each sentinel is a *BridgeError with only Kind set).
type BridgeError struct {
	Kind ErrorKind
	Msg  string
}

func (e *BridgeError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is makes errors.Is(err, ErrCapacityExceeded) etc. work by comparing Kind,
// following the teacher's small local error-type pattern in
// bridge/pipeline/sip_decode.go generalized to one taxonomy.
func (e *BridgeError) Is(target error) bool {
	other, ok := target.(*BridgeError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newErr(kind ErrorKind, msg string) *BridgeError {
	return &BridgeError{Kind: kind, Msg: msg}
}

// Sentinel errors for errors.Is comparisons. Wrapped specific errors carry
// their own message via fmt.Errorf("%w: detail", ErrX).
var (
	ErrInvalid          = &BridgeError{Kind: ErrKindInvalid}
	ErrNotFound         = &BridgeError{Kind: ErrKindNotFound}
	ErrOutOfMemory      = &BridgeError{Kind: ErrKindOutOfMemory}
	ErrInvalidMediaType = &BridgeError{Kind: ErrKindInvalidMediaType}
	ErrNotSupported     = &BridgeError{Kind: ErrKindNotSupported}
	ErrEndOfFile        = &BridgeError{Kind: ErrKindEndOfFile}
	ErrInternal         = &BridgeError{Kind: ErrKindInternal}
	ErrCapacityExceeded = &BridgeError{Kind: ErrKindCapacityExceeded}
	ErrInvalidConfig    = &BridgeError{Kind: ErrKindInvalidConfig}
	ErrPortGone         = &BridgeError{Kind: ErrKindPortGone}
)

// KindOf extracts the ErrorKind carried by err, or ErrKindInternal if err
// does not wrap a *BridgeError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrKindNone
	}
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ErrKindInternal
}
