package db

// BufferPool caches pages read from DBFiles, evicts clean pages to bound
// memory, and enforces page-level locking with wait-for-graph deadlock
// detection. It is FORCE/NO-STEAL: a dirty page is never evicted, and a
// transaction's dirty pages are flushed at commit, never before.

import (
	"sync"
	"time"
)

type BufferPool struct {
	pages    map[any]Page
	pageFile map[any]DBFile
	numPages int

	poolLock sync.Mutex

	transactionDependencies map[TransactionID]map[TransactionID]struct{}
	readPermissionLocks     map[TransactionID]map[any]struct{}
	writePermissionLocks    map[TransactionID]map[any]struct{}
	currentTransactions     map[TransactionID]struct{}
}

// NewBufferPool creates a BufferPool holding at most numPages pages.
func NewBufferPool(numPages int) (*BufferPool, error) {
	return &BufferPool{
		pages:                   make(map[any]Page),
		pageFile:                make(map[any]DBFile),
		numPages:                numPages,
		transactionDependencies: make(map[TransactionID]map[TransactionID]struct{}),
		readPermissionLocks:     make(map[TransactionID]map[any]struct{}),
		writePermissionLocks:    make(map[TransactionID]map[any]struct{}),
		currentTransactions:     make(map[TransactionID]struct{}),
	}, nil
}

// hasCycle reports whether the transaction wait-for graph currently
// contains a cycle.
func (bp *BufferPool) hasCycle() bool {
	onStack := make(map[TransactionID]bool)
	visited := make(map[TransactionID]bool)

	var dfs func(tid TransactionID) bool
	dfs = func(tid TransactionID) bool {
		onStack[tid] = true
		visited[tid] = true

		for next := range bp.transactionDependencies[tid] {
			if !visited[next] {
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				return true
			}
		}

		onStack[tid] = false
		return false
	}

	for tid := range bp.currentTransactions {
		if !visited[tid] && dfs(tid) {
			return true
		}
	}
	return false
}

// FlushAllPages writes every dirty cached page back to its file. Testing
// helper; not transaction-safe.
func (bp *BufferPool) FlushAllPages() {
	for key, page := range bp.pages {
		dirty, _ := page.IsDirty()
		if !dirty {
			continue
		}
		if err := bp.pageFile[key].WritePage(page); err != nil {
			continue
		}
		page.MarkDirty(false, TransactionID{})
	}
}

// AbortTransaction discards tid's dirty pages from the cache (they were
// never written to disk, since the pool is NO-STEAL) and releases its
// locks.
func (bp *BufferPool) AbortTransaction(tid TransactionID) {
	bp.poolLock.Lock()
	defer bp.poolLock.Unlock()

	if _, exists := bp.currentTransactions[tid]; !exists {
		return
	}

	bp.rollbackTransactionPages(tid)
	bp.removeTransactionLocks(tid)
	for _, deps := range bp.transactionDependencies {
		delete(deps, tid)
	}
	time.Sleep(time.Millisecond)
}

func (bp *BufferPool) rollbackTransactionPages(tid TransactionID) {
	for key := range bp.writePermissionLocks[tid] {
		if page, found := bp.pages[key]; found {
			if dirty, _ := page.IsDirty(); dirty {
				delete(bp.pages, key)
				delete(bp.pageFile, key)
			}
		}
	}
}

func (bp *BufferPool) removeTransactionLocks(tid TransactionID) {
	delete(bp.writePermissionLocks, tid)
	delete(bp.readPermissionLocks, tid)
	delete(bp.transactionDependencies, tid)
	delete(bp.currentTransactions, tid)
}

// CommitTransaction flushes tid's dirty pages to disk, then releases its
// locks.
func (bp *BufferPool) CommitTransaction(tid TransactionID) {
	bp.poolLock.Lock()
	defer bp.poolLock.Unlock()

	for key := range bp.writePermissionLocks[tid] {
		page, found := bp.pages[key]
		if !found {
			continue
		}
		if dirty, _ := page.IsDirty(); dirty {
			if err := bp.pageFile[key].WritePage(page); err == nil {
				page.MarkDirty(false, TransactionID{})
			}
		}
	}

	bp.removeTransactionLocks(tid)
	for _, deps := range bp.transactionDependencies {
		delete(deps, tid)
	}
}

// BeginTransaction registers tid as active. Returns an error if tid is
// already running.
func (bp *BufferPool) BeginTransaction(tid TransactionID) error {
	bp.poolLock.Lock()
	defer bp.poolLock.Unlock()

	if _, exists := bp.currentTransactions[tid]; exists {
		return newError(TransactionAbortedError, "transaction %v already running", tid)
	}

	bp.transactionDependencies[tid] = make(map[TransactionID]struct{})
	bp.readPermissionLocks[tid] = make(map[any]struct{})
	bp.writePermissionLocks[tid] = make(map[any]struct{})
	bp.currentTransactions[tid] = struct{}{}
	return nil
}

// GetPage fetches a page of file on behalf of tid with the given
// permission, blocking on lock conflicts and aborting tid if waiting would
// close a cycle in the wait-for graph. A clean page is evicted to make
// room if the pool is full; if every cached page is dirty, BufferPoolFullError
// is returned.
func (bp *BufferPool) GetPage(file DBFile, pageNumber int, tid TransactionID, perm RWPerm) (Page, error) {
	key := file.PageKey(pageNumber)

	bp.poolLock.Lock()
	if _, alive := bp.currentTransactions[tid]; !alive {
		bp.poolLock.Unlock()
		return nil, newError(TransactionAbortedError, "transaction %v is not active", tid)
	}
	bp.poolLock.Unlock()

	for {
		bp.poolLock.Lock()
		if bp.checkConflictingLocks(tid, key, perm) {
			if bp.hasCycle() {
				bp.poolLock.Unlock()
				bp.AbortTransaction(tid)
				time.Sleep(5 * time.Millisecond)
				return nil, newError(TransactionAbortedError, "transaction %v aborted: deadlock detected", tid)
			}
			bp.poolLock.Unlock()
			time.Sleep(5 * time.Millisecond)
			continue
		}
		break
	}
	defer bp.poolLock.Unlock()

	if perm == ReadPerm {
		bp.readPermissionLocks[tid][key] = struct{}{}
	} else {
		bp.writePermissionLocks[tid][key] = struct{}{}
	}

	if page, ok := bp.pages[key]; ok {
		return page, nil
	}

	if len(bp.pages) >= bp.numPages {
		if err := bp.evictPage(); err != nil {
			return nil, err
		}
	}

	page, err := file.ReadPage(pageNumber)
	if err != nil {
		return nil, err
	}
	bp.pages[key] = page
	bp.pageFile[key] = file
	return page, nil
}

func (bp *BufferPool) evictPage() error {
	for key, page := range bp.pages {
		if dirty, _ := page.IsDirty(); !dirty {
			delete(bp.pages, key)
			delete(bp.pageFile, key)
			return nil
		}
	}
	return newError(BufferPoolFullError, "buffer pool full of dirty pages")
}

func (bp *BufferPool) checkConflictingLocks(tid TransactionID, key any, perm RWPerm) bool {
	conflict := false
	for otherTID := range bp.currentTransactions {
		if otherTID == tid {
			continue
		}
		if perm == ReadPerm {
			conflict = bp.addDependencyIfLocked(otherTID, tid, key, bp.writePermissionLocks)
		} else {
			conflict = bp.addDependencyIfLocked(otherTID, tid, key, bp.readPermissionLocks) ||
				bp.addDependencyIfLocked(otherTID, tid, key, bp.writePermissionLocks)
		}
		if conflict {
			break
		}
	}
	return conflict
}

func (bp *BufferPool) addDependencyIfLocked(otherTID, tid TransactionID, key any, locks map[TransactionID]map[any]struct{}) bool {
	if _, locked := locks[otherTID][key]; locked {
		bp.transactionDependencies[tid][otherTID] = struct{}{}
		return true
	}
	return false
}
