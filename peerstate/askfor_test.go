package peerstate

import (
	"testing"
	"time"

	"github.com/johnlito123/xuez-1/wire"
)

func TestAskForQueueDueOrdersByDeadline(t *testing.T) {
	q := NewAskForQueue()
	base := time.Unix(1000, 0)

	h1, h2, h3 := [32]byte{1}, [32]byte{2}, [32]byte{3}
	q.Add(h1, wire.InvTypeTx, base.Add(3*time.Second))
	q.Add(h2, wire.InvTypeTx, base.Add(1*time.Second))
	q.Add(h3, wire.InvTypeTx, base.Add(2*time.Second))

	due := q.Due(base.Add(2 * time.Second))
	if len(due) != 2 {
		t.Fatalf("expected 2 due entries, got %d", len(due))
	}
	if due[0].Hash != h2 || due[1].Hash != h3 {
		t.Fatalf("expected deadline order [h2,h3], got %v", due)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", q.Len())
	}
}

func TestAskForQueueAddIsIdempotentPerHash(t *testing.T) {
	q := NewAskForQueue()
	h := [32]byte{7}
	base := time.Unix(1000, 0)

	q.Add(h, wire.InvTypeTx, base.Add(5*time.Second))
	q.Add(h, wire.InvTypeTx, base.Add(1*time.Second)) // should not override

	if q.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", q.Len())
	}
	if !q.Contains(h) {
		t.Fatal("expected hash to be present")
	}

	due := q.Due(base.Add(time.Second))
	if len(due) != 0 {
		t.Fatalf("expected entry to keep its original later deadline, got due=%v", due)
	}
}

func TestAskForQueueRemove(t *testing.T) {
	q := NewAskForQueue()
	h := [32]byte{9}
	q.Add(h, wire.InvTypeTx, time.Unix(1000, 0))

	q.Remove(h)
	if q.Contains(h) {
		t.Fatal("expected hash removed")
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}

	q.Remove(h) // removing again must be a no-op, not a panic
}
