package db

// RWPerm is the permission under which a page is fetched from the buffer
// pool: ReadPerm for scans, WritePerm for inserts/deletes.
type RWPerm int

const (
	ReadPerm RWPerm = iota
	WritePerm
)

// Page is the unit the buffer pool caches and flushes. HeapPage is the only
// implementation in the core.
type Page interface {
	// GetPageData serializes the page to exactly PageSize() bytes.
	GetPageData() ([]byte, error)
	// IsDirty reports whether the page has unflushed mutations, and, if so,
	// which transaction last dirtied it. The pair is observed atomically.
	IsDirty() (bool, TransactionID)
	// MarkDirty sets or clears the page's dirty bit. MarkDirty(true, tid)
	// records tid as the dirtier; MarkDirty(false, _) clears the dirtier.
	MarkDirty(dirty bool, tid TransactionID)
	// ID returns the page's identity.
	ID() PageID
}

// DBFile is the contract a page-addressable table file exposes to the
// buffer pool. HeapFile is the only implementation in the core.
type DBFile interface {
	// ReadPage reads a single page by number from the backing store.
	ReadPage(pageNo int) (Page, error)
	// WritePage writes a single page back to the backing store.
	WritePage(p Page) error
	// NumPages reports how many pages currently exist in the file.
	NumPages() int
	// PageKey returns a comparable key identifying a page of this file, for
	// use by the buffer pool's page cache.
	PageKey(pageNo int) any
	// Descriptor returns the TupleDesc of tuples stored in this file.
	Descriptor() *TupleDesc
	// InsertTuple adds t to the file, returning the pages it dirtied.
	InsertTuple(t *Tuple, tid TransactionID) ([]Page, error)
	// DeleteTuple removes t (identified by its RecordID) from the file,
	// returning the pages it dirtied.
	DeleteTuple(t *Tuple, tid TransactionID) ([]Page, error)
}
