package filters

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/johnlito123/xuez-1/chainhash"
)

// recentRejectCapacity is the process-wide recent-reject filter's target
// capacity, per spec.md §2.2 ("~120 000 entries, ~10⁻⁶ false-positive rate,
// ~1.3 MB"). The cuckoo filter primitive used here trades the spec's exact
// false-positive target for a fixed small fingerprint size; sized generously
// above the entry count to keep collisions rare in practice.
const recentRejectCapacity = 120000

// RejectFilter is the process-wide Recent-Reject Filter of spec.md §2.2: a
// rolling probabilistic set of transaction hashes recently rejected by the
// mempool, reset whenever the chain tip changes.
type RejectFilter struct {
	mtx      sync.Mutex
	filter   *cuckoo.Filter
	tipHash  chainhash.Hash
	hasTip   bool
}

// NewRejectFilter returns an empty RejectFilter.
func NewRejectFilter() *RejectFilter {
	return &RejectFilter{filter: cuckoo.NewFilter(recentRejectCapacity)}
}

// Add records hash as recently rejected.
func (f *RejectFilter) Add(hash *chainhash.Hash) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.filter.InsertUnique(hash[:])
}

// Contains reports whether hash was recently rejected.
func (f *RejectFilter) Contains(hash *chainhash.Hash) bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.filter.Lookup(hash[:])
}

// ResetIfTipChanged clears the filter iff currentTip differs from the tip
// hash recorded at the last call, matching the testable property of
// spec.md §8: "Recent-reject filter reset iff current tip hash ≠ recorded
// tip hash at the moment a TX INV is evaluated." Returns whether a reset
// occurred.
func (f *RejectFilter) ResetIfTipChanged(currentTip chainhash.Hash) bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.hasTip && f.tipHash == currentTip {
		return false
	}
	f.filter = cuckoo.NewFilter(recentRejectCapacity)
	f.tipHash = currentTip
	f.hasTip = true
	return true
}
