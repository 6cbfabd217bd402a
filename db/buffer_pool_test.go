package db

import (
	"strings"
	"testing"
	"time"
)

func TestBeginTransactionRejectsDuplicate(t *testing.T) {
	bp, err := NewBufferPool(10)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if err := bp.BeginTransaction(tid); err == nil {
		t.Fatalf("expected error re-beginning an already-running transaction")
	}
}

func TestGetPageRejectsUnknownTransaction(t *testing.T) {
	desc := twoIntsDesc()
	file, bp := newTestHeapFile(t, desc)
	tid := NewTID()
	bp.BeginTransaction(tid)
	if _, err := file.InsertTuple(&Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 1}, IntField{Value: 1}}}, tid); err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	bp.CommitTransaction(tid)

	if _, err := bp.GetPage(file, 0, NewTID(), ReadPerm); err == nil {
		t.Fatalf("expected error fetching a page for a transaction that never began")
	}
}

func TestCommitFlushesDirtyPages(t *testing.T) {
	desc := twoIntsDesc()
	file, bp := newTestHeapFile(t, desc)

	tid := NewTID()
	bp.BeginTransaction(tid)
	tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 7}, IntField{Value: 8}}}
	if _, err := file.InsertTuple(tup, tid); err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	bp.CommitTransaction(tid)

	// A fresh buffer pool reading straight from disk must see the committed
	// tuple: CommitTransaction is responsible for the FORCE write.
	bp2, err := NewBufferPool(10)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	reopened, err := NewHeapFile(file.BackingFile(), desc, bp2)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	tid2 := NewTID()
	bp2.BeginTransaction(tid2)
	rows := scanAll(t, reopened, tid2)
	bp2.CommitTransaction(tid2)
	if len(rows) != 1 {
		t.Fatalf("scanned %d rows after commit+reopen, want 1", len(rows))
	}
}

func TestAbortDiscardsDirtyPages(t *testing.T) {
	desc := twoIntsDesc()
	file, bp := newTestHeapFile(t, desc)

	tid := NewTID()
	bp.BeginTransaction(tid)
	tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 1}, IntField{Value: 1}}}
	if _, err := file.InsertTuple(tup, tid); err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	bp.AbortTransaction(tid)

	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	rows := scanAll(t, file, tid2)
	bp.CommitTransaction(tid2)
	if len(rows) != 0 {
		t.Fatalf("scanned %d rows after abort, want 0 (NO-STEAL/FORCE means aborted writes never reach disk)", len(rows))
	}
}

func TestBufferPoolFullOfDirtyPages(t *testing.T) {
	desc := twoIntsDesc()
	path := t.TempDir() + "/table.dat"
	bp, err := NewBufferPool(1)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	file, err := NewHeapFile(path, desc, bp)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}

	tid := NewTID()
	bp.BeginTransaction(tid)

	numSlots, _ := computeHeapLayout(desc.Size())
	for i := 0; i < numSlots; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: int32(i)}, IntField{Value: int32(i)}}}
		if _, err := file.InsertTuple(tup, tid); err != nil {
			t.Fatalf("InsertTuple %d: %v", i, err)
		}
	}
	// The single cached page is now dirty and full; one more tuple forces
	// a second page, and with only one pool slot, eviction has nothing
	// clean to reclaim.
	overflow := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 999}, IntField{Value: 999}}}
	_, err = file.InsertTuple(overflow, tid)
	if err == nil {
		t.Fatalf("expected BufferPoolFullError when every cached page is dirty")
	}
	if !strings.Contains(err.Error(), "full") {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestDeadlockDetectionAborts has two transactions acquire write locks on
// distinct pages, then each try to acquire the other's page: a cycle in the
// wait-for graph that GetPage must break by aborting one side rather than
// hanging forever.
func TestDeadlockDetectionAborts(t *testing.T) {
	desc := twoIntsDesc()
	path := t.TempDir() + "/table.dat"
	bp, err := NewBufferPool(10)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	file, err := NewHeapFile(path, desc, bp)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}

	setupTid := NewTID()
	bp.BeginTransaction(setupTid)
	numSlots, _ := computeHeapLayout(desc.Size())
	for i := 0; i < numSlots+1; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: int32(i)}, IntField{Value: int32(i)}}}
		if _, err := file.InsertTuple(tup, setupTid); err != nil {
			t.Fatalf("InsertTuple %d: %v", i, err)
		}
	}
	bp.CommitTransaction(setupTid)
	if file.NumPages() != 2 {
		t.Fatalf("NumPages() = %d, want 2", file.NumPages())
	}

	tidA, tidB := NewTID(), NewTID()
	bp.BeginTransaction(tidA)
	bp.BeginTransaction(tidB)

	if _, err := bp.GetPage(file, 0, tidA, WritePerm); err != nil {
		t.Fatalf("tidA GetPage(0): %v", err)
	}
	if _, err := bp.GetPage(file, 1, tidB, WritePerm); err != nil {
		t.Fatalf("tidB GetPage(1): %v", err)
	}

	results := make(chan error, 2)
	go func() {
		_, err := bp.GetPage(file, 1, tidA, WritePerm)
		results <- err
	}()
	go func() {
		_, err := bp.GetPage(file, 0, tidB, WritePerm)
		results <- err
	}()

	var errs []error
	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			errs = append(errs, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("deadlock was not broken within 5s")
		}
	}

	aborted := 0
	for _, err := range errs {
		if err != nil {
			aborted++
		}
	}
	if aborted == 0 {
		t.Fatalf("expected at least one side of the cycle to be aborted")
	}
}
