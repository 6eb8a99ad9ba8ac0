package locks

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGetReturnsSameMutexForSameID(t *testing.T) {
	r := New()
	id := uuid.New()
	assert.Same(t, r.Get(id), r.Get(id))
}

func TestDifferentContainersDoNotContend(t *testing.T) {
	r := New()
	a, b := uuid.New(), uuid.New()

	done := make(chan struct{})
	r.Get(a).Lock()
	defer r.Get(a).Unlock()

	go func() {
		r.Get(b).Lock()
		defer r.Get(b).Unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different container blocked unexpectedly")
	}
}

func TestWithLockSerializesSameContainer(t *testing.T) {
	r := New()
	id := uuid.New()

	var mu sync.Mutex
	var order []int
	var active, overlaps int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.WithLock(id, func() error {
				if atomic.AddInt32(&active, 1) != 1 {
					atomic.AddInt32(&overlaps, 1)
				}
				time.Sleep(time.Millisecond)
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Len(t, order, 10)
	assert.Zero(t, atomic.LoadInt32(&overlaps))
}
