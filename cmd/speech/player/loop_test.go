package player

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLoop_RunPending(t *testing.T) {
	l := NewLoop()
	var order []int
	l.Dispatch(func() {
		order = append(order, 1)
		l.Dispatch(func() { order = append(order, 3) })
	})
	l.Dispatch(func() { order = append(order, 2) })

	if n := l.RunPending(); n != 3 {
		t.Errorf("RunPending() = %d, want 3", n)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
	if l.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", l.Pending())
	}
}

func TestLoop_RunUntilWithBackgroundDispatch(t *testing.T) {
	l := NewLoop()
	count := 0

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Dispatch(func() { count++ })
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.RunUntil(ctx, func() bool { return count == 10 }); err != nil {
		t.Fatalf("RunUntil() error = %v", err)
	}
	wg.Wait()
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); err != context.Canceled {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
