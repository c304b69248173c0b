package scheduler

import (
	"container/heap"
	"testing"
	"time"
)

func TestWindowAllow(t *testing.T) {
	base := time.Now()
	w := newWindow(2, time.Second)

	if !w.allow(base) {
		t.Fatal("first start should be allowed")
	}
	if !w.allow(base) {
		t.Fatal("second start should be allowed")
	}
	if w.allow(base) {
		t.Fatal("third start should exceed the limit")
	}

	if d := w.nextFree(base); d != time.Second {
		t.Fatalf("expected a full interval until the window frees, got: %s", d)
	}

	later := base.Add(time.Second + time.Millisecond)
	if !w.allow(later) {
		t.Fatal("start should be allowed once the oldest entry expires")
	}
}

func TestWindowPrune(t *testing.T) {
	base := time.Now()
	w := newWindow(3, time.Second)

	w.allow(base)
	w.allow(base.Add(400 * time.Millisecond))
	w.allow(base.Add(800 * time.Millisecond))

	w.prune(base.Add(1100 * time.Millisecond))

	if got := len(w.starts); got != 2 {
		t.Fatalf("expected 2 starts to survive pruning, got: %d", got)
	}

	if d := w.nextFree(base.Add(1100 * time.Millisecond)); d != 0 {
		t.Fatalf("expected room in the window, got wait of: %s", d)
	}
}

func TestTaskHeapOrdering(t *testing.T) {
	h := &taskHeap{}

	push := func(priority int, seq uint64) {
		heap.Push(h, &task{priority: priority, seq: seq})
	}

	push(0, 1)
	push(5, 2)
	push(5, 3)
	push(10, 4)
	push(0, 5)

	want := []uint64{4, 2, 3, 1, 5}
	for i, seq := range want {
		got := heap.Pop(h).(*task)
		if got.seq != seq {
			t.Fatalf("pop %d: expected seq %d, got: %d", i, seq, got.seq)
		}
	}
}
