package db

import "fmt"

// ErrorCode enumerates the closed set of error kinds the engine raises.
// Kinds, not concrete types: callers switch on Code, not on a type hierarchy.
type ErrorCode int

const (
	// TypeMismatchError is raised when a Field or Tuple does not match the
	// TupleDesc it is being checked against.
	TypeMismatchError ErrorCode = iota
	// AmbiguousNameError is raised by findFieldInTd when a bare field name
	// matches more than one field in a merged TupleDesc.
	AmbiguousNameError
	// IncompatibleTypesError is raised when an operation is attempted
	// between fields of incompatible DBType.
	IncompatibleTypesError
	// MalformedDataError is raised while parsing external data (e.g. CSV)
	// that does not match the expected schema.
	MalformedDataError
	// BufferPoolFullError is raised when every page in the buffer pool is
	// dirty and none can be evicted.
	BufferPoolFullError
	// PageFullError is raised by HeapPage.InsertTuple when no slot is free.
	PageFullError
	// TupleMismatchError is raised when deleting or inserting a tuple whose
	// RecordID does not belong to the page being operated on.
	TupleMismatchError
	// FormatError is raised when a page's on-disk bytes cannot be parsed.
	FormatError
	// InvalidPageId is raised when a HeapFile operation names a page number
	// outside [0, NumPages).
	InvalidPageId
	// PageReadError is raised when a disk read for a page fails.
	PageReadError
	// InvalidAggregateOp is raised at aggregator-construction time for an
	// operator/field-type combination the aggregator cannot support.
	InvalidAggregateOp
	// AggregateError is raised at merge/finalize time, e.g. division by
	// zero computing an AVG.
	AggregateError
	// NoSuchElementError is raised when Next is called without a preceding
	// successful HasNext.
	NoSuchElementError
	// TransactionAbortedError is raised by the buffer pool/lock manager; it
	// is never swallowed inside the engine and must propagate to the
	// caller driving the operator tree.
	TransactionAbortedError
)

// GoDBError is the single error type the engine returns. Code identifies the
// kind of failure; Msg carries human-readable detail.
type GoDBError struct {
	Code ErrorCode
	Msg  string
}

func (e GoDBError) Error() string {
	return e.Msg
}

func newError(code ErrorCode, format string, args ...any) GoDBError {
	return GoDBError{Code: code, Msg: fmt.Sprintf(format, args...)}
}
