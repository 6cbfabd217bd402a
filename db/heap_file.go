package db

import (
	"bufio"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// HeapFile is an unordered, page-addressable collection of tuples backed by
// a single file on disk whose length is always a multiple of PageSize().
type HeapFile struct {
	backingFile string
	tupleDesc   *TupleDesc
	bufPool     *BufferPool
	tableID     int32

	// appendMu serializes the append-on-full section of InsertTuple: only
	// one writer may extend the file at a time.
	appendMu sync.Mutex

	log zerolog.Logger
}

// NewHeapFile constructs a HeapFile over fromFile (created if it does not
// exist) with schema td, registered with buffer pool bp.
func NewHeapFile(fromFile string, td *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	f, err := os.OpenFile(fromFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, newError(PageReadError, "opening heap file %s: %v", fromFile, err)
	}
	f.Close()

	abs, err := filepath.Abs(fromFile)
	if err != nil {
		abs = fromFile
	}
	return &HeapFile{
		backingFile: fromFile,
		tupleDesc:   td,
		bufPool:     bp,
		tableID:     hashTableID(abs),
		log:         engineLog.With().Str("component", "heap_file").Str("file", fromFile).Logger(),
	}, nil
}

// hashTableID derives a stable table id from a file's absolute path.
func hashTableID(absPath string) int32 {
	h := fnv.New32a()
	h.Write([]byte(absPath))
	return int32(h.Sum32())
}

// TableID returns this file's stable table identity.
func (f *HeapFile) TableID() int32 {
	return f.tableID
}

// BackingFile returns the name of the backing file.
func (f *HeapFile) BackingFile() string {
	return f.backingFile
}

// NumPages reports ceil(fileLength / PageSize()).
func (f *HeapFile) NumPages() int {
	info, err := os.Stat(f.backingFile)
	if err != nil {
		return 0
	}
	size := info.Size()
	pages := size / int64(PageSize())
	if size%int64(PageSize()) != 0 {
		pages++
	}
	return int(pages)
}

// Descriptor returns the TupleDesc of tuples stored in this file.
func (f *HeapFile) Descriptor() *TupleDesc {
	return f.tupleDesc
}

// PageKey returns a comparable key for a page of this file, for use as a
// buffer pool cache key.
func (f *HeapFile) PageKey(pageNo int) any {
	return heapHash{FileName: f.backingFile, PageNo: pageNo}
}

type heapHash struct {
	FileName string
	PageNo   int
}

// ReadPage reads page pageNo from disk and parses it into a HeapPage.
func (f *HeapFile) ReadPage(pageNo int) (Page, error) {
	if pageNo < 0 || pageNo >= f.NumPages() {
		return nil, newError(InvalidPageId, "page %d out of range [0,%d)", pageNo, f.NumPages())
	}
	file, err := os.OpenFile(f.backingFile, os.O_RDONLY, 0666)
	if err != nil {
		return nil, newError(PageReadError, "opening %s: %v", f.backingFile, err)
	}
	defer file.Close()

	data := make([]byte, PageSize())
	if _, err := file.Seek(int64(pageNo)*int64(PageSize()), io.SeekStart); err != nil {
		return nil, newError(PageReadError, "seeking to page %d: %v", pageNo, err)
	}
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, newError(PageReadError, "reading page %d: %v", pageNo, err)
	}

	pid := NewHeapPageID(f.tableID, int32(pageNo))
	page, err := newHeapPageFromBytes(pid, f.tupleDesc, data, f)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// WritePage seeks to page.ID()'s offset and writes its serialized bytes.
// Durability beyond this write (e.g. fsync) is the caller's responsibility.
func (f *HeapFile) WritePage(p Page) error {
	hp, ok := p.(*heapPage)
	if !ok {
		return newError(TypeMismatchError, "WritePage: not a HeapPage")
	}
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return newError(PageReadError, "opening %s: %v", f.backingFile, err)
	}
	defer file.Close()

	data, err := hp.GetPageData()
	if err != nil {
		return err
	}
	if _, err := file.WriteAt(data, int64(hp.pid.PageNo())*int64(PageSize())); err != nil {
		return newError(PageReadError, "writing page %d: %v", hp.pid.PageNo(), err)
	}
	return nil
}

// InsertTuple adds t to the first page with a free slot, acquiring each
// candidate page READ_WRITE via the buffer pool. If no existing page has
// room, a fresh zero page is appended under an exclusive section and the
// tuple is inserted there. Returns the single page that was dirtied.
func (f *HeapFile) InsertTuple(t *Tuple, tid TransactionID) ([]Page, error) {
	if !t.Desc.equals(f.tupleDesc) {
		return nil, newError(TypeMismatchError, "tuple schema does not match file schema")
	}

	numPages := f.NumPages()
	for pageNo := 0; pageNo < numPages; pageNo++ {
		page, err := f.bufPool.GetPage(f, pageNo, tid, WritePerm)
		if err != nil {
			return nil, err
		}
		hp := page.(*heapPage)
		if hp.getNumEmptySlots() > 0 {
			if err := hp.insertTuple(t); err != nil {
				return nil, err
			}
			hp.MarkDirty(true, tid)
			return []Page{hp}, nil
		}
	}

	f.appendMu.Lock()
	defer f.appendMu.Unlock()

	// The new page goes after whatever pages exist now. Pages another
	// writer appended since the scan above are not re-checked for room.
	newPageNo := f.NumPages()
	if err := f.appendZeroPage(); err != nil {
		return nil, err
	}
	f.log.Debug().Int("page", newPageNo).Msg("appended page on full heap file")

	page, err := f.bufPool.GetPage(f, newPageNo, tid, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if err := hp.insertTuple(t); err != nil {
		return nil, err
	}
	hp.MarkDirty(true, tid)
	return []Page{hp}, nil
}

// appendZeroPage writes PageSize() zero bytes to the end of the backing
// file, growing it by exactly one page.
func (f *HeapFile) appendZeroPage() error {
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return newError(PageReadError, "opening %s: %v", f.backingFile, err)
	}
	defer file.Close()
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return newError(PageReadError, "seeking to end of %s: %v", f.backingFile, err)
	}
	if _, err := file.Write(make([]byte, PageSize())); err != nil {
		return newError(PageReadError, "appending page to %s: %v", f.backingFile, err)
	}
	return nil
}

// DeleteTuple removes t, identified by t.Rid, from its home page. Returns
// the single page that was dirtied.
func (f *HeapFile) DeleteTuple(t *Tuple, tid TransactionID) ([]Page, error) {
	if t.Rid == nil {
		return nil, newError(TupleMismatchError, "tuple has no RecordID")
	}
	pid, ok := t.Rid.PID.(HeapPageID)
	if !ok {
		return nil, newError(TupleMismatchError, "unexpected PageID type %T", t.Rid.PID)
	}
	page, err := f.bufPool.GetPage(f, int(pid.PageNo()), tid, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if err := hp.deleteTuple(t); err != nil {
		return nil, err
	}
	hp.MarkDirty(true, tid)
	return []Page{hp}, nil
}

// LoadFromCSV populates the file from a delimited text file. hasHeader
// skips the first line; skipLastField drops a trailing separator some
// datasets emit on every line.
func (f *HeapFile) LoadFromCSV(file *os.File, hasHeader bool, sep string, skipLastField bool) error {
	scanner := bufio.NewScanner(file)
	lineNo := 0
	tid := NewTID()
	if err := f.bufPool.BeginTransaction(tid); err != nil {
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Split(line, sep)
		if skipLastField {
			fields = fields[:len(fields)-1]
		}
		lineNo++
		if lineNo == 1 && hasHeader {
			continue
		}
		if len(fields) != len(f.tupleDesc.Fields) {
			f.bufPool.AbortTransaction(tid)
			return newError(MalformedDataError, "line %d (%s): expected %d fields, got %d", lineNo, line, len(f.tupleDesc.Fields), len(fields))
		}

		values := make([]DBValue, len(fields))
		for i, raw := range fields {
			switch f.tupleDesc.Fields[i].Ftype {
			case IntType:
				raw = strings.TrimSpace(raw)
				n, err := strconv.ParseInt(raw, 10, 32)
				if err != nil {
					f.bufPool.AbortTransaction(tid)
					return newError(MalformedDataError, "line %d: %q is not an int: %v", lineNo, raw, err)
				}
				values[i] = IntField{Value: int32(n)}
			case StringType:
				if len(raw) > StringLength() {
					raw = raw[:StringLength()]
				}
				values[i] = StringField{Value: raw}
			}
		}

		t := &Tuple{Desc: *f.tupleDesc, Fields: values}
		if _, err := f.InsertTuple(t, tid); err != nil {
			f.bufPool.AbortTransaction(tid)
			return err
		}
	}
	f.bufPool.CommitTransaction(tid)
	return scanner.Err()
}

// ==================== Scan iterator ====================

// heapFileIterState is the explicit state of a HeapFileIterator: an
// iterator is either CLOSED or OPEN at some (pagePos, pageIter), never an
// ambiguous exhausted-but-open/closed hybrid.
type heapFileIterState int

const (
	heapFileClosed heapFileIterState = iota
	heapFileOpen
)

// HeapFileIterator is a stateful, per-transaction scan over a HeapFile. It
// does not snapshot the table: tuples inserted into pages not yet visited
// are observed; tuples inserted into or deleted from already-visited pages
// are not. This is deliberate and must not be "fixed" by buffering the
// whole table up front.
type HeapFileIterator struct {
	file *HeapFile
	tid  TransactionID

	state    heapFileIterState
	pagePos  int
	pageIter func() (*Tuple, error)
	next     *Tuple
}

// NewHeapFileIterator constructs a scan over file for transaction tid. The
// iterator starts CLOSED; call Open before HasNext/Next.
func NewHeapFileIterator(file *HeapFile, tid TransactionID) *HeapFileIterator {
	return &HeapFileIterator{file: file, tid: tid, state: heapFileClosed}
}

func (it *HeapFileIterator) TupleDesc() *TupleDesc {
	return it.file.tupleDesc
}

func (it *HeapFileIterator) Open(tid TransactionID) error {
	it.tid = tid
	it.pagePos = 0
	it.next = nil
	if it.file.NumPages() == 0 {
		it.state = heapFileOpen
		it.pageIter = func() (*Tuple, error) { return nil, nil }
		return nil
	}
	page, err := it.file.bufPool.GetPage(it.file, 0, tid, ReadPerm)
	if err != nil {
		return err
	}
	it.pageIter = page.(*heapPage).tupleIter()
	it.state = heapFileOpen
	return nil
}

// advancePage moves to the next page's iterator, fetching it READ_ONLY.
func (it *HeapFileIterator) advancePage() error {
	it.pagePos++
	page, err := it.file.bufPool.GetPage(it.file, it.pagePos, it.tid, ReadPerm)
	if err != nil {
		return err
	}
	it.pageIter = page.(*heapPage).tupleIter()
	return nil
}

func (it *HeapFileIterator) HasNext() (bool, error) {
	if it.state == heapFileClosed {
		return false, nil
	}
	if it.next != nil {
		return true, nil
	}
	for {
		t, err := it.pageIter()
		if err != nil {
			return false, err
		}
		if t != nil {
			it.next = t
			return true, nil
		}
		// This page is exhausted; it may legally have held zero live
		// tuples, so advancing requires re-testing, not assuming a hit.
		if it.pagePos >= it.file.NumPages()-1 {
			return false, nil
		}
		if err := it.advancePage(); err != nil {
			return false, err
		}
	}
}

func (it *HeapFileIterator) Next() (*Tuple, error) {
	ok, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(NoSuchElementError, "HeapFileIterator: no more tuples")
	}
	t := it.next
	it.next = nil
	return t, nil
}

func (it *HeapFileIterator) Rewind() error {
	return it.Open(it.tid)
}

func (it *HeapFileIterator) Close() error {
	it.state = heapFileClosed
	it.pageIter = nil
	it.next = nil
	return nil
}

func (it *HeapFileIterator) Children() []Operator     { return nil }
func (it *HeapFileIterator) SetChildren(_ []Operator) {}

var _ Operator = (*HeapFileIterator)(nil)

// Scan returns a fresh, closed HeapFileIterator over the whole file.
func (f *HeapFile) Scan(tid TransactionID) *HeapFileIterator {
	return NewHeapFileIterator(f, tid)
}
