package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, Frame(`{"type":"event"}`)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	f := <-q.Dequeue()
	if string(f) != `{"type":"event"}` {
		t.Errorf("unexpected frame %q", f)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, Frame("1")) || !q.Enqueue(ctx, Frame("2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, Frame("3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if !q.Enqueue(ctx, Frame(fmt.Sprintf("%d", i))) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	for i := 0; i < 50; i++ {
		if got := string(<-q.Dequeue()); got != fmt.Sprintf("%d", i) {
			t.Fatalf("frame %d = %q", i, got)
		}
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, Frame("last"))
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, Frame("late")) {
		t.Error("expected enqueue after close to fail")
	}

	var got []string
	for f := range q.Dequeue() {
		got = append(got, string(f))
	}
	if len(got) != 1 || got[0] != "last" {
		t.Errorf("expected buffered frame to drain, got %v", got)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if !q.Enqueue(ctx, Frame("x")) {
		t.Error("expected enqueue to ignore a cancelled context")
	}
	if q.Len() != 1 {
		t.Errorf("expected 1 buffered frame, got %d", q.Len())
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(ctx, Frame(fmt.Sprintf("%d-%d", id, j)))
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(); l != 1000 {
		t.Errorf("expected 1000 frames, got %d", l)
	}
}
