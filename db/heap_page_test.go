package db

import "testing"

func twoIntsDesc() *TupleDesc {
	td, err := NewTupleDesc([]FieldType{
		{Fname: "a", Ftype: IntType},
		{Fname: "b", Ftype: IntType},
	})
	if err != nil {
		panic(err)
	}
	return td
}

// TestHeapLayoutTwoInts pins the documented worked example for an 8-byte
// (INT, INT) tuple under the default 4096-byte page: 504 slots, a 63-byte
// header bitmap.
func TestHeapLayoutTwoInts(t *testing.T) {
	numSlots, headerBytes := computeHeapLayout(twoIntsDesc().Size())
	if numSlots != 504 {
		t.Fatalf("numSlots = %d, want 504", numSlots)
	}
	if headerBytes != 63 {
		t.Fatalf("headerBytes = %d, want 63", headerBytes)
	}
}

func TestHeapPageInsertAndDelete(t *testing.T) {
	desc := twoIntsDesc()
	pid := NewHeapPageID(1, 0)
	page := newHeapPage(pid, desc, nil)

	t1 := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 1}, IntField{Value: 10}}}
	t2 := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 2}, IntField{Value: 20}}}

	if err := page.insertTuple(t1); err != nil {
		t.Fatalf("insertTuple t1: %v", err)
	}
	if err := page.insertTuple(t2); err != nil {
		t.Fatalf("insertTuple t2: %v", err)
	}
	if got := page.getNumEmptySlots(); got != page.numSlots-2 {
		t.Fatalf("getNumEmptySlots() = %d, want %d", got, page.numSlots-2)
	}

	count := 0
	iter := page.tupleIter()
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("tupleIter: %v", err)
		}
		if tup == nil {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("iterated %d tuples, want 2", count)
	}

	if err := page.deleteTuple(t1); err != nil {
		t.Fatalf("deleteTuple: %v", err)
	}
	if got := page.getNumEmptySlots(); got != page.numSlots-1 {
		t.Fatalf("getNumEmptySlots() after delete = %d, want %d", got, page.numSlots-1)
	}

	if err := page.deleteTuple(t1); err == nil {
		t.Fatalf("expected error deleting an already-deleted tuple")
	}
}

func TestHeapPageFull(t *testing.T) {
	desc := twoIntsDesc()
	pid := NewHeapPageID(1, 0)
	page := newHeapPage(pid, desc, nil)

	for i := 0; i < page.numSlots; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: int32(i)}, IntField{Value: int32(i * 2)}}}
		if err := page.insertTuple(tup); err != nil {
			t.Fatalf("insertTuple %d: %v", i, err)
		}
	}

	overflow := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 999}, IntField{Value: 999}}}
	if err := page.insertTuple(overflow); err == nil {
		t.Fatalf("expected PageFullError on a full page")
	}
}

func TestHeapPageSerializationRoundTrip(t *testing.T) {
	desc := twoIntsDesc()
	pid := NewHeapPageID(1, 0)
	page := newHeapPage(pid, desc, nil)

	for i := 0; i < 5; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: int32(i)}, IntField{Value: int32(i * 10)}}}
		if err := page.insertTuple(tup); err != nil {
			t.Fatalf("insertTuple %d: %v", i, err)
		}
	}
	// Leave a hole in the middle, which the bitmap must preserve across a
	// round-trip: a naive implementation that compacts slots would not.
	mid := &Tuple{Rid: &RecordID{PID: pid, TupleNum: 2}}
	if err := page.deleteTuple(mid); err != nil {
		t.Fatalf("deleteTuple: %v", err)
	}

	data, err := page.GetPageData()
	if err != nil {
		t.Fatalf("GetPageData: %v", err)
	}
	if len(data) != PageSize() {
		t.Fatalf("GetPageData() returned %d bytes, want %d", len(data), PageSize())
	}

	restored, err := newHeapPageFromBytes(pid, desc, data, nil)
	if err != nil {
		t.Fatalf("newHeapPageFromBytes: %v", err)
	}
	if restored.getNumEmptySlots() != page.getNumEmptySlots() {
		t.Fatalf("restored page has %d empty slots, want %d", restored.getNumEmptySlots(), page.getNumEmptySlots())
	}
	if restored.slotBit(2) {
		t.Fatalf("expected slot 2 to remain empty after round-trip")
	}
	if !restored.slotBit(0) || !restored.slotBit(1) {
		t.Fatalf("expected slots 0 and 1 to remain occupied after round-trip")
	}
}

func TestHeapPageDirty(t *testing.T) {
	desc := twoIntsDesc()
	page := newHeapPage(NewHeapPageID(1, 0), desc, nil)

	if dirty, _ := page.IsDirty(); dirty {
		t.Fatalf("new page should not be dirty")
	}
	tid := NewTID()
	page.MarkDirty(true, tid)
	dirty, dirtier := page.IsDirty()
	if !dirty || dirtier != tid {
		t.Fatalf("expected page dirtied by %v, got dirty=%v dirtier=%v", tid, dirty, dirtier)
	}
}
