package icebreakerdb

type LookupStatus int

const (
	LookupFound LookupStatus = iota + 1
	LookupNotFound
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not found"
	case LookupFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Lookup is the outcome of a single document read. Err is only set for LookupFailed.
type Lookup[T any] struct {
	Status LookupStatus
	Value  T
	Err    error
}

func (l Lookup[T]) Found() bool {
	return l.Status == LookupFound
}

func (l Lookup[T]) Get() (T, bool) {
	return l.Value, l.Status == LookupFound
}

func lookupFound[T any](value T) Lookup[T] {
	return Lookup[T]{Status: LookupFound, Value: value}
}

func lookupNotFound[T any]() Lookup[T] {
	return Lookup[T]{Status: LookupNotFound}
}

func lookupFailed[T any](err error) Lookup[T] {
	return Lookup[T]{Status: LookupFailed, Err: err}
}
