package memory

import "sync"

// lockTable hands out one RWMutex per row key.  Entries are never
// removed; the table grows with the number of distinct rows touched.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.RWMutex)}
}

func (t *lockTable) get(key string) *sync.RWMutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		t.locks[key] = l
	}
	return l
}
