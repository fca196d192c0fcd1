package filters

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/pkg/errors"
)

// maxFilterAddDataSize is the largest single element FILTERADD may insert,
// per spec.md §4.1 FILTERADD: "FILTERADD data ≤ 520 bytes".
const maxFilterAddDataSize = 520

// maxFilterLoadCapacity bounds how large a FILTERLOAD-supplied filter may
// be, an internal size constraint per spec.md §4.1 FILTERLOAD/FILTERADD/
// FILTERCLEAR: "filter must satisfy internal size constraints".
const maxFilterLoadCapacity = 50000

// PeerTxFilter is the BIP37-style transaction filter a peer may load via
// FILTERLOAD, extend via FILTERADD, and clear via FILTERCLEAR
// (spec.md §4.1, §3 PeerState.gossip).
type PeerTxFilter struct {
	mtx    sync.Mutex
	filter *cuckoo.Filter
	loaded bool
}

// NewPeerTxFilter returns a PeerTxFilter with no filter loaded.
func NewPeerTxFilter() *PeerTxFilter {
	return &PeerTxFilter{}
}

// IsLoaded reports whether the peer has an active FILTERLOAD filter.
func (f *PeerTxFilter) IsLoaded() bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.loaded
}

// Load installs a new filter from FILTERLOAD data. numElements is the
// number of elements the peer declared the filter should hold, used purely
// to size the underlying cuckoo filter.
func (f *PeerTxFilter) Load(numElements uint32) error {
	if numElements > maxFilterLoadCapacity {
		return errors.Errorf("filterload capacity %d exceeds maximum %d", numElements, maxFilterLoadCapacity)
	}
	if numElements == 0 {
		numElements = 1
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.filter = cuckoo.NewFilter(uint(numElements))
	f.loaded = true
	return nil
}

// Add inserts a FILTERADD data element into the loaded filter.
func (f *PeerTxFilter) Add(data []byte) error {
	if len(data) > maxFilterAddDataSize {
		return errors.Errorf("filteradd data size %d exceeds maximum %d", len(data), maxFilterAddDataSize)
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if !f.loaded {
		return errors.New("filteradd with no filter loaded")
	}
	f.filter.InsertUnique(data)
	return nil
}

// Clear removes the peer's loaded filter entirely (FILTERCLEAR).
func (f *PeerTxFilter) Clear() {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.filter = nil
	f.loaded = false
}

// Matches reports whether any of elems (e.g. a transaction's relevant
// output scripts/hashes) is present in the loaded filter. Returns false if
// no filter is loaded.
func (f *PeerTxFilter) Matches(elems [][]byte) bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if !f.loaded {
		return false
	}
	for _, e := range elems {
		if f.filter.Lookup(e) {
			return true
		}
	}
	return false
}
