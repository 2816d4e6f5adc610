package reconcile

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocksSerialiseSameFolder(t *testing.T) {
	t.Parallel()
	l := NewLocks()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(1)
			defer unlock()
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	if maxInside.Load() != 1 {
		t.Errorf("%d goroutines held the same folder lock at once", maxInside.Load())
	}
	if l.Held() != 0 {
		t.Errorf("Held() = %d after all unlocks, want 0", l.Held())
	}
}

func TestLocksIndependentFolders(t *testing.T) {
	t.Parallel()
	l := NewLocks()

	unlockA := l.Lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock(2)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on folder 2 blocked behind folder 1")
	}
	unlockA()
	unlockA()
}
