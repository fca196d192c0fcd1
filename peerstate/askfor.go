package peerstate

import (
	"container/heap"
	"time"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/wire"
)

// askEntry is one outstanding non-block GETDATA request a peer owes us,
// ordered by the deadline it should be (re-)requested at.
type askEntry struct {
	hash     chainhash.Hash
	invType  wire.InvType
	deadline time.Time
	index    int // heap.Interface bookkeeping
}

type askHeap []*askEntry

func (h askHeap) Len() int            { return len(h) }
func (h askHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h askHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *askHeap) Push(x interface{}) {
	e := x.(*askEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *askHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// AskForQueue is the per-peer ask_for set of spec.md §3 PeerState.gossip: a
// priority queue of outstanding non-block inventory requests ordered by
// deadline, grounded on the classic mapAskFor multimap keyed by request time.
type AskForQueue struct {
	h       askHeap
	byHash  map[chainhash.Hash]*askEntry
}

// NewAskForQueue returns an empty AskForQueue.
func NewAskForQueue() *AskForQueue {
	return &AskForQueue{byHash: make(map[chainhash.Hash]*askEntry)}
}

// Add schedules hash to be requested (if not already pending) at deadline.
// A hash already queued keeps the deadline it was first queued with.
func (q *AskForQueue) Add(hash chainhash.Hash, invType wire.InvType, deadline time.Time) {
	if _, ok := q.byHash[hash]; ok {
		return
	}
	e := &askEntry{hash: hash, invType: invType, deadline: deadline}
	q.byHash[hash] = e
	heap.Push(&q.h, e)
}

// Remove drops hash from the queue, e.g. once it has been received.
func (q *AskForQueue) Remove(hash chainhash.Hash) {
	e, ok := q.byHash[hash]
	if !ok {
		return
	}
	heap.Remove(&q.h, e.index)
	delete(q.byHash, hash)
}

// Contains reports whether hash is already queued.
func (q *AskForQueue) Contains(hash chainhash.Hash) bool {
	_, ok := q.byHash[hash]
	return ok
}

// Due pops and returns every entry whose deadline is at or before now, in
// deadline order.
func (q *AskForQueue) Due(now time.Time) []wire.InvVect {
	var due []wire.InvVect
	for q.h.Len() > 0 && !q.h[0].deadline.After(now) {
		e := heap.Pop(&q.h).(*askEntry)
		delete(q.byHash, e.hash)
		due = append(due, wire.InvVect{Type: e.invType, Hash: e.hash})
	}
	return due
}

// Len returns the number of outstanding requests.
func (q *AskForQueue) Len() int {
	return q.h.Len()
}
