package reconcile

import "sync"

// Locks serialises work on a folder: full syncs and live watcher updates for
// the same folder id never overlap. Different folders do not contend.
type Locks struct {
	mu sync.Mutex
	m  map[int64]*folderLock
}

type folderLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocks returns an empty lock registry.
func NewLocks() *Locks {
	return &Locks{m: make(map[int64]*folderLock)}
}

// Lock blocks until folderID is free and returns the function that releases it.
func (l *Locks) Lock(folderID int64) (unlock func()) {
	l.mu.Lock()
	fl, ok := l.m[folderID]
	if !ok {
		fl = &folderLock{}
		l.m[folderID] = fl
	}
	fl.refs++
	l.mu.Unlock()

	fl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			fl.mu.Unlock()

			l.mu.Lock()
			fl.refs--
			if fl.refs == 0 {
				delete(l.m, folderID)
			}
			l.mu.Unlock()
		})
	}
}

// Held returns the number of folders currently locked or waited on.
func (l *Locks) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
