package db

// HeapPage implements the Page interface for pages of a HeapFile: a fixed
// PageSize() byte container with an in-place bitmap of slot occupancy
// followed by fixed-size tuple slots.
//
// numSlots is derived from the page size and the tuple width:
//
//	numSlots    = floor((PageSize*8) / (tupleSize*8 + 1))
//	headerBytes = ceil(numSlots / 8)
//
// The "+1" per slot in the numSlots formula accounts for that slot's
// occupancy bit; headerBytes is the number of whole bytes needed to hold
// one bit per slot. On-disk layout, all integers big-endian:
//
//	offset 0                : header[headerBytes]   (bit i = slot i occupied, LSB-first)
//	offset headerBytes      : slot[0] of tupleSize bytes
//	...                       slot[numSlots-1]
//	offset hdr+numSlots*sz  : zero pad to PageSize
//
// An MSB-first bit order, or a two-int32-counter header, would not satisfy
// the round-trip layout this format requires, so this page uses the
// LSB-first bitmap scheme described above throughout.
import (
	"bytes"
	"sync"
)

type heapPage struct {
	pid  HeapPageID
	desc *TupleDesc
	file *HeapFile

	tupleSize   int
	numSlots    int
	headerBytes int

	// header is the occupancy bitmap, headerBytes long, bit i at
	// (header[i/8] >> (i%8)) & 1.
	header []byte
	tuples []*Tuple

	dirtyMu    sync.Mutex
	dirty      bool
	dirtierTid TransactionID

	oldDataMu sync.Mutex
	oldData   []byte
}

// computeHeapLayout returns the slot count and header size for a tuple of
// the given byte width under the active page size.
func computeHeapLayout(tupleSize int) (numSlots int, headerBytes int) {
	numSlots = (PageSize() * 8) / (tupleSize*8 + 1)
	headerBytes = (numSlots + 7) / 8
	return
}

// newHeapPage constructs a fresh, empty page with the given id and schema.
func newHeapPage(pid HeapPageID, desc *TupleDesc, file *HeapFile) *heapPage {
	tupleSize := desc.Size()
	numSlots, headerBytes := computeHeapLayout(tupleSize)
	return &heapPage{
		pid:         pid,
		desc:        desc,
		file:        file,
		tupleSize:   tupleSize,
		numSlots:    numSlots,
		headerBytes: headerBytes,
		header:      make([]byte, headerBytes),
		tuples:      make([]*Tuple, numSlots),
	}
}

// newHeapPageFromBytes parses a PageSize()-byte image into a HeapPage. Bits
// beyond numSlots must be zero; slots whose bit is unset are skipped
// (their bytes are treated as padding, not parsed).
func newHeapPageFromBytes(pid HeapPageID, desc *TupleDesc, data []byte, file *HeapFile) (*heapPage, error) {
	if len(data) != PageSize() {
		return nil, newError(FormatError, "page %v: expected %d bytes, got %d", pid, PageSize(), len(data))
	}
	p := newHeapPage(pid, desc, file)
	copy(p.header, data[:p.headerBytes])

	buf := bytes.NewBuffer(data[p.headerBytes : p.headerBytes+p.numSlots*p.tupleSize])
	for i := 0; i < p.numSlots; i++ {
		slotBytes := buf.Next(p.tupleSize)
		if !p.slotBit(i) {
			continue
		}
		t, err := readTupleFrom(bytes.NewBuffer(slotBytes), desc)
		if err != nil {
			return nil, newError(FormatError, "page %v slot %d: %v", pid, i, err)
		}
		rid := RecordID{PID: pid, TupleNum: i}
		t.Rid = &rid
		p.tuples[i] = t
	}

	p.oldData = append([]byte(nil), data...)
	return p, nil
}

func (p *heapPage) slotBit(i int) bool {
	return p.header[i/8]&(1<<uint(i%8)) != 0
}

func (p *heapPage) setSlotBit(i int, occupied bool) {
	if occupied {
		p.header[i/8] |= 1 << uint(i%8)
	} else {
		p.header[i/8] &^= 1 << uint(i%8)
	}
}

// getNumEmptySlots returns the number of unoccupied slots on the page.
func (p *heapPage) getNumEmptySlots() int {
	count := 0
	for i := 0; i < p.numSlots; i++ {
		if !p.slotBit(i) {
			count++
		}
	}
	return count
}

// insertTuple stores t in the first free slot, in ascending slot order, and
// assigns t's RecordID. Returns PageFullError if no slot is free.
func (p *heapPage) insertTuple(t *Tuple) error {
	if !t.Desc.equals(p.desc) {
		return newError(TypeMismatchError, "tuple schema does not match page schema")
	}
	for i := 0; i < p.numSlots; i++ {
		if p.slotBit(i) {
			continue
		}
		p.setSlotBit(i, true)
		rid := RecordID{PID: p.pid, TupleNum: i}
		stored := &Tuple{Desc: *p.desc, Fields: t.Fields, Rid: &rid}
		p.tuples[i] = stored
		t.Rid = &rid
		return nil
	}
	return newError(PageFullError, "page %v has no free slots", p.pid)
}

// deleteTuple clears the slot identified by t.Rid. The bytes of the slot are
// left untouched; they become padding-like until the slot is reused.
func (p *heapPage) deleteTuple(t *Tuple) error {
	if t.Rid == nil {
		return newError(TupleMismatchError, "tuple has no RecordID")
	}
	rid := *t.Rid
	pid, ok := rid.PID.(HeapPageID)
	if !ok || pid != p.pid {
		return newError(TupleMismatchError, "tuple's RecordID does not belong to this page")
	}
	if rid.TupleNum < 0 || rid.TupleNum >= p.numSlots || !p.slotBit(rid.TupleNum) {
		return newError(TupleMismatchError, "slot %d is not occupied", rid.TupleNum)
	}
	p.setSlotBit(rid.TupleNum, false)
	p.tuples[rid.TupleNum] = nil
	return nil
}

// GetPageData serializes the page: header verbatim, then each slot (the
// stored tuple's bytes if occupied, tupleSize zero bytes if not), then
// trailing zero padding to PageSize().
func (p *heapPage) GetPageData() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(p.header)
	zeroSlot := make([]byte, p.tupleSize)
	for i := 0; i < p.numSlots; i++ {
		if p.slotBit(i) {
			t := p.tuples[i]
			if err := t.writeTo(buf); err != nil {
				return nil, err
			}
		} else {
			buf.Write(zeroSlot)
		}
	}
	pad := PageSize() - buf.Len()
	if pad > 0 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes(), nil
}

func (p *heapPage) IsDirty() (bool, TransactionID) {
	p.dirtyMu.Lock()
	defer p.dirtyMu.Unlock()
	return p.dirty, p.dirtierTid
}

func (p *heapPage) MarkDirty(dirty bool, tid TransactionID) {
	p.dirtyMu.Lock()
	defer p.dirtyMu.Unlock()
	p.dirty = dirty
	if dirty {
		p.dirtierTid = tid
	} else {
		p.dirtierTid = TransactionID{}
	}
}

func (p *heapPage) ID() PageID {
	return p.pid
}

func (p *heapPage) getFile() *HeapFile {
	return p.file
}

// snapshotOldData refreshes and returns the page's before-image, guarded by
// a dedicated mutex since it may be read concurrently with mutation.
func (p *heapPage) snapshotOldData() []byte {
	p.oldDataMu.Lock()
	defer p.oldDataMu.Unlock()
	data, err := p.GetPageData()
	if err != nil {
		return p.oldData
	}
	p.oldData = data
	return p.oldData
}

func (p *heapPage) getOldData() []byte {
	p.oldDataMu.Lock()
	defer p.oldDataMu.Unlock()
	return p.oldData
}

// tupleIter returns a closure yielding the page's occupied tuples in
// ascending slot order. It is a read-only snapshot of slot occupancy taken
// when tupleIter is called; mutating the page concurrently with iteration
// is undefined.
func (p *heapPage) tupleIter() func() (*Tuple, error) {
	tuples := append([]*Tuple(nil), p.tuples...)
	i := 0
	return func() (*Tuple, error) {
		for i < len(tuples) {
			t := tuples[i]
			i++
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	}
}
