// Package filters implements the bounded probabilistic sets of spec.md §2:
// the per-peer Inventory Filter, the process-wide Recent-Reject Filter, and
// a per-peer transaction filter for FILTERLOAD/FILTERADD/FILTERCLEAR.
//
// All three use a cuckoo filter as their probabilistic-set primitive — the
// nearest grounded choice in the surveyed corpus (cruzbit's peer.go uses
// github.com/seiflotfy/cuckoofilter for exactly this "has this peer already
// seen this hash" role); the teacher's own bloom package was not present in
// the retrieved sources.
package filters

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/johnlito123/xuez-1/chainhash"
)

// defaultKnownInvCapacity bounds the per-peer known-inventory filter,
// matching the teacher's maxKnownInventory constant (peer/peer.go).
const defaultKnownInvCapacity = 1000

// InventoryFilter is the per-peer "known inventory" set of spec.md §2.1: a
// bounded probabilistic set of hashes the peer is known to have seen, so we
// avoid re-announcing them.
type InventoryFilter struct {
	mtx    sync.Mutex
	filter *cuckoo.Filter
}

// NewInventoryFilter returns an empty InventoryFilter sized for the default
// per-peer known-inventory capacity.
func NewInventoryFilter() *InventoryFilter {
	return &InventoryFilter{filter: cuckoo.NewFilter(defaultKnownInvCapacity)}
}

// Add records hash as known to the peer.
func (f *InventoryFilter) Add(hash *chainhash.Hash) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.filter.InsertUnique(hash[:])
}

// Contains reports whether hash has already been added. False positives are
// possible (and acceptable: spec.md only requires we avoid *re*-announcing,
// not that we announce everything); false negatives are not.
func (f *InventoryFilter) Contains(hash *chainhash.Hash) bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.filter.Lookup(hash[:])
}

// Reset clears the filter, used when a peer's known-inventory state should
// be dropped (e.g. on reconnect).
func (f *InventoryFilter) Reset() {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.filter = cuckoo.NewFilter(defaultKnownInvCapacity)
}
