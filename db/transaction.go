package db

import "sync/atomic"

// TransactionID names the transaction on whose behalf a page is fetched or
// dirtied. The core only needs it as an opaque, comparable token; the
// buffer pool is what gives it locking semantics.
type TransactionID struct {
	id int64
}

var tidCounter int64

// NewTID allocates a fresh, process-unique TransactionID.
func NewTID() TransactionID {
	return TransactionID{id: atomic.AddInt64(&tidCounter, 1)}
}
