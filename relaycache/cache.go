// Package relaycache implements the Relay Cache of spec.md §2.7: a bounded
// queue of recently relayed transactions so late GETDATA requests can be
// served without re-reading the mempool.
//
// Grounded on messages.cpp's mapRelay, which is likewise a bounded,
// insertion-ordered map consulted by ProcessGetData's MSG_TX branch.
package relaycache

import (
	"container/list"
	"sync"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/wire"
)

// defaultCapacity bounds the number of recently relayed transactions kept
// around for late GETDATA service.
const defaultCapacity = 3500

// Cache is a bounded FIFO of recently relayed transactions keyed by hash.
type Cache struct {
	mtx      sync.Mutex
	capacity int
	order    *list.List
	byHash   map[chainhash.Hash]*list.Element
}

type entry struct {
	hash chainhash.Hash
	tx   *wire.Tx
}

// New returns an empty Cache with the default capacity.
func New() *Cache {
	return NewWithCapacity(defaultCapacity)
}

// NewWithCapacity returns an empty Cache bounded at capacity entries.
func NewWithCapacity(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		byHash:   make(map[chainhash.Hash]*list.Element),
	}
}

// Add records tx as just relayed, evicting the oldest entry if the cache is
// at capacity.
func (c *Cache) Add(tx *wire.Tx) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if _, ok := c.byHash[tx.Hash]; ok {
		return
	}
	el := c.order.PushBack(entry{hash: tx.Hash, tx: tx})
	c.byHash[tx.Hash] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.byHash, oldest.Value.(entry).hash)
	}
}

// Get returns the cached transaction for hash, if still present.
func (c *Cache) Get(hash chainhash.Hash) (*wire.Tx, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	el, ok := c.byHash[hash]
	if !ok {
		return nil, false
	}
	return el.Value.(entry).tx, true
}

// Remove drops hash from the cache, e.g. once it is confirmed and no longer
// needs serving to late GETDATA requests.
func (c *Cache) Remove(hash chainhash.Hash) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	el, ok := c.byHash[hash]
	if !ok {
		return
	}
	c.order.Remove(el)
	delete(c.byHash, hash)
}

// Len returns the number of cached transactions.
func (c *Cache) Len() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.order.Len()
}
