// Package validation implements the Validation Listener of spec.md §4.7:
// the callbacks the out-of-scope validation engine invokes as blocks
// connect, new proof-of-work arrives, the tip moves, and blocks finish
// being checked.
//
// Grounded on messages.cpp's PeerLogicValidation::{BlockConnected,
// NewPoWValidBlock, UpdatedBlockTip, BlockChecked}, translated from one
// global signal-slot-registered object into methods on a value closing over
// a *peerstate.Coordinator, per spec.md §9's design note.
package validation

import (
	"sync/atomic"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/logs"
	"github.com/johnlito123/xuez-1/orphan"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/wire"
)

var log, _ = logs.Get(logs.SubsystemTags.VLSN)

// mostRecentBlock is the cached block the NewPoWValidBlock fast-announce
// path keeps, resolved per the Open Question in SPEC_FULL.md §9: exactly
// one cached block, atomically swapped, intentional (not a bounded
// history).
type mostRecentBlock struct {
	hash  chainhash.Hash
	block *wire.Block
}

// Listener is the Validation Listener. One value is shared by the whole
// node; its methods are the seam the external validation engine calls into.
type Listener struct {
	coord   *peerstate.Coordinator
	orphans *orphan.Pool
	cq      chainquery.ChainQuerier
	misbehave func(peerID uint64, delta int, reason string)

	// highestFastAnnounce is the monotonic height watermark guarding
	// NewPoWValidBlock against duplicate fast-announces (messages.cpp:
	// "static int nHighestFastAnnounce").
	highestFastAnnounce int32

	// mostRecent is the single cached block+hash the fast-announce path
	// keeps, swapped atomically rather than guarded by a separate lock —
	// resolved per the Open Question noted above.
	mostRecent atomic.Pointer[mostRecentBlock]
}

// New returns a Listener wired to the shared coordinator and orphan pool.
// misbehave lets BlockChecked apply a DoS score without importing the
// dispatch package's Dispatcher type directly; node wiring passes
// (*dispatch.Dispatcher).MisbehavePeer (see node.go).
func New(coord *peerstate.Coordinator, orphans *orphan.Pool, cq chainquery.ChainQuerier, misbehave func(peerID uint64, delta int, reason string)) *Listener {
	return &Listener{coord: coord, orphans: orphans, cq: cq, misbehave: misbehave}
}

// BlockConnected implements spec.md §4.7 block_connected: erase orphan
// dependents of every included transaction's inputs.
func (l *Listener) BlockConnected(block *wire.Block) {
	l.coord.Lock()
	defer l.coord.Unlock()

	var toErase []chainhash.Hash
	for _, tx := range block.Transactions {
		for _, parent := range tx.InputParents {
			toErase = append(toErase, l.orphans.DependentsOf(parent)...)
		}
	}
	for _, h := range toErase {
		l.orphans.Erase(h)
	}
}

// NewPoWValidBlock implements spec.md §4.7 new_pow_valid_block: a
// height-watermark-guarded fast-announce of freshly mined blocks to peers
// that plausibly don't have them yet.
func (l *Listener) NewPoWValidBlock(index *chainquery.BlockIndex, block *wire.Block) {
	if index.Height <= atomic.LoadInt32(&l.highestFastAnnounce) {
		return
	}
	atomic.StoreInt32(&l.highestFastAnnounce, index.Height)

	l.mostRecent.Store(&mostRecentBlock{hash: index.Hash, block: block})
	log.Debugf("fast-announcing new block %s at height %d", index.Hash, index.Height)

	l.coord.Lock()
	defer l.coord.Unlock()

	parent := l.cq.Ancestor(index, index.Height-1)
	for _, p := range l.coord.Peers {
		if p.ShouldDisconnect {
			continue
		}
		if p.BestKnownBlock != nil && p.BestKnownBlock.Hash == index.Hash {
			continue
		}
		if parent == nil || p.BestKnownBlock == nil || p.BestKnownBlock.Hash != parent.Hash {
			continue
		}
		p.Send(&wire.MsgHeaders{Headers: []*wire.BlockHeader{{
			Hash:       index.Hash,
			PrevBlock:  parent.Hash,
			Timestamp:  index.Timestamp,
		}}})
		p.BestHeaderSent = index
	}
}

// MostRecentBlock returns the most recently fast-announced block and its
// hash, if any has been cached yet.
func (l *Listener) MostRecentBlock() (chainhash.Hash, *wire.Block, bool) {
	cached := l.mostRecent.Load()
	if cached == nil {
		return chainhash.Hash{}, nil, false
	}
	return cached.hash, cached.block, true
}

// UpdatedBlockTip implements spec.md §4.7 updated_block_tip: queue newly
// connected block hashes for announcement to peers past their starting
// height window.
func (l *Listener) UpdatedBlockTip(newTip, fork *chainquery.BlockIndex, isInitialDownload bool) {
	if isInitialDownload {
		return
	}

	var hashes []chainhash.Hash
	cur := newTip
	for cur != nil && (fork == nil || cur.Hash != fork.Hash) {
		hashes = append(hashes, cur.Hash)
		if len(hashes) == wire.MaxBlocksToAnnounce {
			break
		}
		if cur.Height == 0 {
			break
		}
		cur = l.cq.Ancestor(newTip, cur.Height-1)
	}

	l.coord.Lock()
	defer l.coord.Unlock()

	for _, p := range l.coord.Peers {
		threshold := int32(0)
		if p.StartHeight != -1 {
			threshold = p.StartHeight - 2000
		}
		if newTip.Height <= threshold {
			continue
		}
		// Chronological order: hashes was built newest-first, so walk it
		// in reverse (messages.cpp pushes via boost::adaptors::reverse).
		for i := len(hashes) - 1; i >= 0; i-- {
			p.BlockHashesToAnnounce = append(p.BlockHashesToAnnounce, hashes[i])
		}
	}
}

// BlockChecked implements spec.md §4.7 block_checked: if the block turned
// out invalid with a peer-visible reject code, queue the reject (and apply
// DoS if the source should be punished), then clear the block-source entry.
// This models the decoupled async validation-callback path; the dispatcher's
// synchronous BLOCK branch (spec.md §4.1) performs the equivalent inline
// when process_new_block resolves immediately instead of via callback.
func (l *Listener) BlockChecked(hash chainhash.Hash, result chainquery.BlockProcessResult) {
	l.coord.Lock()
	src, ok := l.coord.BlockSources.Get(hash)
	l.coord.BlockSources.Delete(hash)

	if !result.Accepted && result.RejectCode > 0 && result.RejectCode < wire.RejectInternal {
		if ok {
			if peer, havePeer := l.coord.Peers[src.PeerID]; havePeer {
				peer.QueueReject(result.RejectCode, result.Reason, hash)
			}
		}
	}
	l.coord.Unlock()

	if ok && src.Punish && !result.Accepted && result.DoSScore > 0 && l.misbehave != nil {
		l.misbehave(src.PeerID, result.DoSScore, result.Reason)
	}
}
