package keylock

import (
	"sync"
	"testing"
)

func TestDo_SerializesSameKey(t *testing.T) {
	m := New()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do("city-1", func() error {
				v := counter
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
}

func TestDo_NilMapRunsUnlocked(t *testing.T) {
	var m *MutexMap
	called := false
	if err := m.Do("k", func() error { called = true; return nil }); err != nil || !called {
		t.Fatalf("expected fn to run, called=%v err=%v", called, err)
	}
}

func TestDo_IndependentKeys(t *testing.T) {
	m := New()
	m.Lock("a")
	defer m.Unlock("a")

	done := make(chan struct{})
	go func() {
		_ = m.Do("b", func() error { return nil })
		close(done)
	}()
	<-done
}
