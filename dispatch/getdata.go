// Get-Data Server: spec.md §4.4.
package dispatch

import (
	"time"

	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/wire"
)

// historicalBlockWindow is the "within one month of best-header" gate of
// spec.md §4.4's serving rule.
const historicalBlockWindow = 30 * 24 * time.Hour

// recentBlockWindow is the "older than one week" threshold that, combined
// with an exhausted historical-serving outbound limit, refuses a filtered
// or stale block read to a non-whitelisted peer.
const recentBlockWindow = 7 * 24 * time.Hour

// ProcessGetData drains p's recv_get_data queue (spec.md §4.4), returning
// whether the peer should be disconnected (the historical-serving-limit
// refusal case). Caller must hold the chain coordination lock, matching
// every other dispatcher entry point; disk reads happen through
// d.Deps.ReadBlock without holding the lock across the actual I/O is left
// to that callback's own implementation, per spec.md §5's "disk I/O... does
// not hold the chain lock while reading".
func (d *Dispatcher) ProcessGetData(p *peerstate.State) (disconnect bool) {
	cq := d.Deps.Chain
	var notFound []*wire.InvVect
	sentBlock := false

	for len(p.RecvGetData) > 0 {
		if d.Coord.Interrupted() {
			break
		}
		if sentBlock {
			break // yield after a BLOCK/MERKLEBLOCK, spec.md §4.4
		}

		inv := p.RecvGetData[0]
		p.RecvGetData = p.RecvGetData[1:]

		switch inv.Type {
		case wire.InvTypeBlock, wire.InvTypeFilteredBlock:
			idx, have := cq.IndexByHash(inv.Hash)
			if !have {
				notFound = append(notFound, inv)
				continue
			}
			if !servable(cq, idx) {
				notFound = append(notFound, inv)
				continue
			}
			if refuseHistorical(cq, idx, inv.Type, p) {
				return true
			}

			block, ok := d.Deps.ReadBlock(inv.Hash)
			if !ok {
				notFound = append(notFound, inv)
				continue
			}
			if inv.Type == wire.InvTypeFilteredBlock {
				p.Send(&wire.MsgMerkleBlock{Header: block.Header})
				for _, tx := range block.Transactions {
					if p.TxFilter.Matches([][]byte{tx.Hash[:]}) {
						p.Send(&wire.MsgTx{Tx: tx})
					}
				}
			} else {
				p.Send(&wire.MsgBlock{Block: block})
			}
			sentBlock = true

			if p.ContinueHash != nil && *p.ContinueHash == inv.Hash {
				if tip := cq.ActiveTip(); tip != nil {
					p.Send(&wire.MsgInv{InvList: []*wire.InvVect{wire.NewInvVect(wire.InvTypeBlock, &tip.Hash)}})
				}
				p.ContinueHash = nil
			}

		case wire.InvTypeTx:
			if tx, ok := d.Relay.Get(inv.Hash); ok {
				p.Send(&wire.MsgTx{Tx: tx})
			} else {
				notFound = append(notFound, inv)
			}

		case wire.InvTypeSTX:
			d.stxPoolMtx.Lock()
			stx, ok := d.stxPool[inv.Hash]
			d.stxPoolMtx.Unlock()
			if ok {
				p.ServiceDataKnown[inv.Hash] = struct{}{}
				p.Send(&wire.MsgSTX{STX: stx})
			} else {
				notFound = append(notFound, inv)
			}
		}
	}

	if len(notFound) > 0 {
		p.Send(&wire.MsgNotFound{InvList: notFound})
	}
	return false
}

// servable implements spec.md §4.4's block-serving gate: on the active
// chain, or valid-scripts and within one month of the best header by both
// block-time and equivalent-proof-of-work time. The equivalent-PoW-time leg
// guards against a peer gaming the block-time check with a falsified block
// timestamp.
func servable(cq chainquery.ChainQuerier, idx *chainquery.BlockIndex) bool {
	if cq.ActiveChainContains(idx) {
		return true
	}
	if !idx.ValidScripts {
		return false
	}
	best := cq.BestHeader()
	if best == nil {
		return false
	}
	if best.Timestamp.Sub(idx.Timestamp) >= historicalBlockWindow {
		return false
	}
	return cq.BlockProofEquivalentTime(best, idx) < historicalBlockWindow
}

// refuseHistorical implements spec.md §4.4's "Refuse historical block if
// outbound limit reached AND (block older than one week OR it's a filtered
// request) AND peer not whitelisted — then disconnect." The outbound
// connection count lives in the out-of-scope connection layer, so this
// reads it through the outboundServingLimitReached hook below.
func refuseHistorical(cq chainquery.ChainQuerier, idx *chainquery.BlockIndex, invType wire.InvType, p *peerstate.State) bool {
	if p.Whitelisted {
		return false
	}
	if !outboundServingLimitReached() {
		return false
	}
	best := cq.BestHeader()
	isOld := best != nil && best.Timestamp.Sub(idx.Timestamp) > recentBlockWindow
	isFiltered := invType == wire.InvTypeFilteredBlock
	return isOld || isFiltered
}

// outboundServingLimitReached is a stub hook: the real outbound-peer-count
// ceiling belongs to the out-of-scope connection layer (spec.md §1), so
// this module treats the limit as never reached by default.
var outboundServingLimitReached = func() bool { return false }
