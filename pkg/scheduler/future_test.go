package scheduler

import (
	"context"
	"errors"
	"testing"
)

func TestFutureResolvesOnce(t *testing.T) {
	fut := newFuture()

	if fut.Err() != nil || fut.Value() != nil {
		t.Fatal("unresolved future should report nothing")
	}

	first := errors.New("first")
	fut.resolve("v", first)
	fut.resolve("other", errors.New("second"))

	if v := fut.Value(); v != "v" {
		t.Fatalf("unexpected value: %v", v)
	}
	if !errors.Is(fut.Err(), first) {
		t.Fatalf("unexpected error: %v", fut.Err())
	}

	select {
	case <-fut.Done():
	default:
		t.Fatal("done channel should be closed after resolve")
	}
}

func TestFutureWaitHonorsContext(t *testing.T) {
	fut := newFuture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fut.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got: %v", err)
	}

	fut.resolve(42, nil)

	v, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("unexpected value: %v", v)
	}
}
