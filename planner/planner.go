// Package planner implements the Block Download Planner of spec.md §4.3:
// given a peer and a budget, decide which blocks to request next.
//
// Grounded on messages.cpp's FindNextBlocksToDownload (batches of 128,
// staller tracking, invalid-tree abort, download window sizing).
package planner

import (
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/wire"
)

// batchSize is the forward-walk chunk size of spec.md §4.3 step 6: "Walk
// ancestors of peer's best-known in batches of 128".
const batchSize = 128

// Result is the outcome of a single FindNextBlocksToDownload call.
type Result struct {
	Blocks []*chainquery.BlockIndex

	// StallerID and HasStaller identify the peer that owns an in-flight
	// block that is blocking further progress for this peer, so the
	// scheduler can mark that owner as stalling (spec.md §4.5 step 12).
	StallerID  uint64
	HasStaller bool

	// ChainRejected is true when an ancestor on the peer's claimed chain
	// failed tree validation — the caller should treat this peer's chain
	// as misbehaving (spec.md §4.3 step 6: "if invalid-tree → abort").
	ChainRejected bool
}

// FindNextBlocksToDownload implements spec.md §4.3. Caller must hold the
// chain coordination lock. It mutates p.LastCommonBlock and
// p.LastUnknownBlockHash in place, matching the source's in-place refresh
// of CNodeState.
func FindNextBlocksToDownload(cq chainquery.ChainQuerier, p *peerstate.State, inFlight *peerstate.InFlightRegistry, n int) Result {
	var result Result
	if n <= 0 || p.BestKnownBlock == nil {
		refreshBestKnown(cq, p)
	}
	if p.BestKnownBlock == nil {
		return result
	}

	ourTip := cq.ActiveTip()
	if ourTip == nil {
		return result
	}

	// Step 2: peer has nothing better to offer.
	if p.BestKnownBlock.ChainWork <= ourTip.ChainWork {
		return result
	}

	// Step 3: initialize last_common_block if unset.
	if p.LastCommonBlock == nil {
		startHeight := p.BestKnownBlock.Height
		if ourTip.Height < startHeight {
			startHeight = ourTip.Height
		}
		p.LastCommonBlock = cq.Ancestor(ourTip, startHeight)
	}

	// Step 4: move last_common_block to the actual last common ancestor.
	p.LastCommonBlock = lastCommonAncestor(cq, ourTip, p.BestKnownBlock, p.LastCommonBlock)
	if p.LastCommonBlock == nil {
		return result
	}

	// Step 5: window end.
	windowEnd := p.LastCommonBlock.Height + wire.BlockDownloadWindow
	stopHeight := p.BestKnownBlock.Height
	if windowEnd+1 < stopHeight {
		stopHeight = windowEnd + 1
	}

	height := p.LastCommonBlock.Height + 1
	for height <= stopHeight && len(result.Blocks) < n {
		batchEnd := height + batchSize
		if batchEnd > stopHeight+1 {
			batchEnd = stopHeight + 1
		}
		for h := height; h < batchEnd; h++ {
			candidate := cq.Ancestor(p.BestKnownBlock, h)
			if candidate == nil {
				break
			}
			if !candidate.ValidTree {
				result.ChainRejected = true
				return result
			}
			if candidate.HaveData || cq.ActiveChainContains(candidate) {
				p.LastCommonBlock = candidate
				continue
			}
			if owner, inFlightAlready := inFlight.Owner(candidate.Hash); inFlightAlready {
				if !result.HasStaller {
					result.StallerID = owner
					result.HasStaller = true
				}
				continue
			}
			if candidate.Height <= windowEnd {
				result.Blocks = append(result.Blocks, candidate)
				if len(result.Blocks) >= n {
					break
				}
			}
		}
		height = batchEnd
	}

	return result
}

// refreshBestKnown applies spec.md §4.3 step 1: "Refresh best_known_block
// from last-unknown cache" — a header that arrived out of order and was
// recorded as last_unknown_block_hash may since have been indexed.
func refreshBestKnown(cq chainquery.ChainQuerier, p *peerstate.State) {
	if p.LastUnknownBlockHash == nil {
		return
	}
	if idx, ok := cq.IndexByHash(*p.LastUnknownBlockHash); ok {
		if p.BestKnownBlock == nil || idx.ChainWork > p.BestKnownBlock.ChainWork {
			p.BestKnownBlock = idx
		}
		p.LastUnknownBlockHash = nil
	}
}

// lastCommonAncestor walks start back towards genesis until it finds a
// block that is both on our active chain and an ancestor of peerBest at the
// same height, matching messages.cpp's FindLastCommonAncestor loop.
func lastCommonAncestor(cq chainquery.ChainQuerier, ourTip, peerBest, start *chainquery.BlockIndex) *chainquery.BlockIndex {
	cur := start
	for cur != nil && cur.Height > 0 {
		peerAncestor := cq.Ancestor(peerBest, cur.Height)
		if peerAncestor != nil && peerAncestor.Hash == cur.Hash && cq.ActiveChainContains(cur) {
			return cur
		}
		cur = cq.Ancestor(ourTip, cur.Height-1)
	}
	return cur
}
