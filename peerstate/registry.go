package peerstate

import (
	"github.com/johnlito123/xuez-1/chainhash"
)

// InFlightRegistry is the global map from block hash to the single peer it
// was requested from, enforcing spec.md §3's invariant: "a block hash
// appears in the global in-flight registry iff it appears in exactly one
// peer's in-flight list".
type InFlightRegistry struct {
	byHash map[chainhash.Hash]uint64
}

// NewInFlightRegistry returns an empty InFlightRegistry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{byHash: make(map[chainhash.Hash]uint64)}
}

// TryMark registers hash as in flight from peerID, returning false if it is
// already in flight from a different peer.
func (r *InFlightRegistry) TryMark(hash chainhash.Hash, peerID uint64) bool {
	if owner, ok := r.byHash[hash]; ok {
		return owner == peerID
	}
	r.byHash[hash] = peerID
	return true
}

// Owner returns the peer hash is currently in flight from, if any.
func (r *InFlightRegistry) Owner(hash chainhash.Hash) (uint64, bool) {
	owner, ok := r.byHash[hash]
	return owner, ok
}

// Release removes hash from the registry, e.g. once the block arrives, the
// request times out, or the owning peer disconnects.
func (r *InFlightRegistry) Release(hash chainhash.Hash) {
	delete(r.byHash, hash)
}

// ReleaseAllFor removes every hash owned by peerID, used on disconnect
// (spec.md §8: "after finalize_node(p) returns: no in-flight entry points
// to p").
func (r *InFlightRegistry) ReleaseAllFor(peerID uint64) []chainhash.Hash {
	var released []chainhash.Hash
	for h, owner := range r.byHash {
		if owner == peerID {
			delete(r.byHash, h)
			released = append(released, h)
		}
	}
	return released
}

// Len returns the number of blocks currently in flight process-wide.
func (r *InFlightRegistry) Len() int {
	return len(r.byHash)
}

// BlockSource records, for a block received but not yet fully validated,
// which peer it arrived from and whether that peer should be punished if
// the block turns out invalid (spec.md §4.1 BLOCK: "record source peer in
// block-source map").
type BlockSource struct {
	PeerID uint64
	Punish bool
}

// BlockSourceMap is the global hash→BlockSource map.
type BlockSourceMap struct {
	byHash map[chainhash.Hash]BlockSource
}

// NewBlockSourceMap returns an empty BlockSourceMap.
func NewBlockSourceMap() *BlockSourceMap {
	return &BlockSourceMap{byHash: make(map[chainhash.Hash]BlockSource)}
}

// Set records hash's source peer.
func (m *BlockSourceMap) Set(hash chainhash.Hash, peerID uint64, punish bool) {
	m.byHash[hash] = BlockSource{PeerID: peerID, Punish: punish}
}

// Get returns hash's recorded source, if any.
func (m *BlockSourceMap) Get(hash chainhash.Hash) (BlockSource, bool) {
	src, ok := m.byHash[hash]
	return src, ok
}

// Delete removes hash's entry once the block has been fully processed.
func (m *BlockSourceMap) Delete(hash chainhash.Hash) {
	delete(m.byHash, hash)
}
