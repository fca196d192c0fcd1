// Package orphan implements the Orphan Pool of spec.md §2.3/§3: an
// in-memory map from tx-hash to orphan entry, plus an index from missing
// parent hash to dependents, bounded with random eviction at capacity.
//
// Grounded on messages.cpp's AddOrphanTx/EraseOrphanTx/EraseOrphansFor/
// LimitOrphanTxSize.
package orphan

import (
	"math/rand"
	"sync"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/logs"
	"github.com/johnlito123/xuez-1/wire"
)

var log, _ = logs.Get(logs.SubsystemTags.ORPH)

// maxOrphanTxSize rejects any single orphan transaction above this many
// bytes outright, independent of the pool's entry-count cap — carried from
// messages.cpp's AddOrphanTx ("Ignore big transactions, to avoid a
// send-big-orphans memory exhaustion attack").
const maxOrphanTxSize = 5000

// Tx is a single orphan entry (spec.md §3 OrphanTx): the transaction and the
// peer it arrived from.
type Tx struct {
	Tx       *wire.Tx
	FromPeer uint64
}

// Pool is the bounded orphan transaction pool.
type Pool struct {
	mtx sync.Mutex

	maxOrphans int
	byHash     map[chainhash.Hash]*Tx
	byParent   map[chainhash.Hash]map[chainhash.Hash]struct{}
}

// New returns an empty Pool capped at maxOrphans entries (spec.md §6
// "maxorphantx", default 100).
func New(maxOrphans int) *Pool {
	return &Pool{
		maxOrphans: maxOrphans,
		byHash:     make(map[chainhash.Hash]*Tx),
		byParent:   make(map[chainhash.Hash]map[chainhash.Hash]struct{}),
	}
}

// Add inserts tx as an orphan of fromPeer, evicting random entries if the
// pool now exceeds its cap (spec.md §8: "Orphan pool at exactly cap admits
// new entry then evicts one at random"). Returns false (and does not
// insert) if tx is already present or exceeds the single-entry size cap.
func (p *Pool) Add(tx *wire.Tx, fromPeer uint64) bool {
	if tx.SizeBytes > maxOrphanTxSize {
		log.Debugf("ignoring large orphan tx (size: %d, hash: %s)", tx.SizeBytes, tx.Hash)
		return false
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	if _, ok := p.byHash[tx.Hash]; ok {
		return false
	}

	p.byHash[tx.Hash] = &Tx{Tx: tx, FromPeer: fromPeer}
	for _, parent := range tx.InputParents {
		deps, ok := p.byParent[parent]
		if !ok {
			deps = make(map[chainhash.Hash]struct{})
			p.byParent[parent] = deps
		}
		deps[tx.Hash] = struct{}{}
	}

	log.Debugf("stored orphan tx %s (pool size %d)", tx.Hash, len(p.byHash))

	p.limitLocked()
	return true
}

// limitLocked evicts random entries until the pool is at or below its cap.
// Caller must hold p.mtx.
func (p *Pool) limitLocked() int {
	evicted := 0
	for len(p.byHash) > p.maxOrphans {
		// Evict a random entry: draw a random hash and take whichever
		// entry's key would sort at or after it, wrapping to the first
		// entry if none does — equivalent in spirit to the C++
		// implementation's map::lower_bound(randomHash) draw.
		var target chainhash.Hash
		rand.Read(target[:])

		var evictHash chainhash.Hash
		found := false
		for h := range p.byHash {
			if !h.Less(target) {
				if !found || h.Less(evictHash) {
					evictHash = h
					found = true
				}
			}
		}
		if !found {
			for h := range p.byHash {
				if !found || h.Less(evictHash) {
					evictHash = h
					found = true
				}
			}
		}
		if !found {
			break
		}
		p.eraseLocked(evictHash)
		evicted++
	}
	return evicted
}

// eraseLocked removes hash from both maps. Caller must hold p.mtx.
func (p *Pool) eraseLocked(hash chainhash.Hash) {
	entry, ok := p.byHash[hash]
	if !ok {
		return
	}
	for _, parent := range entry.Tx.InputParents {
		deps := p.byParent[parent]
		delete(deps, hash)
		if len(deps) == 0 {
			delete(p.byParent, parent)
		}
	}
	delete(p.byHash, hash)
}

// Erase removes a single orphan by hash, e.g. after it has been
// successfully re-accepted or conflicts with a newly connected block.
func (p *Pool) Erase(hash chainhash.Hash) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.eraseLocked(hash)
}

// EraseForPeer removes every orphan that originated from fromPeer, used on
// peer disconnect (spec.md §3 PeerState lifecycle: "orphans from this peer
// are erased").
func (p *Pool) EraseForPeer(fromPeer uint64) int {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	erased := 0
	for hash, entry := range p.byHash {
		if entry.FromPeer == fromPeer {
			p.eraseLocked(hash)
			erased++
		}
	}
	if erased > 0 {
		log.Debugf("erased %d orphan tx from peer %d", erased, fromPeer)
	}
	return erased
}

// Get returns the orphan entry for hash, if present.
func (p *Pool) Get(hash chainhash.Hash) (*Tx, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	entry, ok := p.byHash[hash]
	return entry, ok
}

// DependentsOf returns the orphans waiting on parentHash, useful both when a
// missing parent tx arrives (re-validate dependents) and when a block
// connects one of these hashes (erase conflicting dependents, spec.md
// §4.7 BlockConnected).
func (p *Pool) DependentsOf(parentHash chainhash.Hash) []chainhash.Hash {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	deps := p.byParent[parentHash]
	result := make([]chainhash.Hash, 0, len(deps))
	for h := range deps {
		result = append(result, h)
	}
	return result
}

// Len returns the current number of orphans held.
func (p *Pool) Len() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.byHash)
}
