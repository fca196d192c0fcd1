package dispatch

import (
	"time"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/wire"
)

// txWorkItem is one entry of the re-acceptance work list spec.md §4.1 TX
// describes: "queue descendants of this tx from the orphan pool for
// re-acceptance in a work list". fromPeer tracks whichever peer originally
// supplied this tx (the TX message's sender for the root item, the orphan's own
// FromPeer for descendants), since misbehavior always attaches to the
// actual source, not whoever triggered re-evaluation.
type txWorkItem struct {
	tx       *wire.Tx
	fromPeer uint64
}

func (d *Dispatcher) onTx(p *peerstate.State, m *wire.MsgTx) Outcome {
	if d.blocksOnly(p) && !p.Whitelisted {
		p.QueueReject(wire.RejectNonstandard, "no-witness-tx-relay-under-blocks-only-mode", m.Tx.Hash)
		return Outcome{OK: false}
	}
	// Already known rejected: skip re-acceptance, mirroring
	// messages.cpp's AlreadyHave(inv) gate on AcceptToMemoryPool.
	if d.Rejects.Contains(&m.Tx.Hash) {
		return Outcome{OK: true}
	}
	d.acceptTxWorkList(txWorkItem{tx: m.Tx, fromPeer: p.ID})
	return Outcome{OK: true}
}

// acceptTxWorkList drains root and every orphan descendant it unblocks,
// grounded on messages.cpp's ProcessMessage MSG_TX branch's vWorkQueue loop.
func (d *Dispatcher) acceptTxWorkList(root txWorkItem) {
	workList := []txWorkItem{root}
	for len(workList) > 0 {
		item := workList[0]
		workList = workList[1:]

		srcPeer, havePeer := d.Coord.Peers[item.fromPeer]

		result := d.Deps.Mempool.AcceptToMempool(item.tx)
		if result.OK {
			d.Relay.Add(item.tx)
			if havePeer {
				srcPeer.AskFor.Remove(item.tx.Hash)
			}
			d.relayTx(item.tx.Hash, item.fromPeer)

			for _, depHash := range d.Orphans.DependentsOf(item.tx.Hash) {
				orphanEntry, ok := d.Orphans.Get(depHash)
				if !ok {
					continue
				}
				d.Orphans.Erase(depHash)
				workList = append(workList, txWorkItem{tx: orphanEntry.Tx, fromPeer: orphanEntry.FromPeer})
			}
			continue
		}

		if len(result.MissingParents) > 0 {
			if havePeer {
				for _, parent := range result.MissingParents {
					srcPeer.AskFor.Add(parent, wire.InvTypeTx, time.Now())
				}
			}
			d.Orphans.Add(item.tx, item.fromPeer)
			continue
		}

		// Invalid (not "missing inputs"): cache the reject unless the
		// failure could stem from corruption rather than genuine
		// invalidity (spec.md §4.1 TX: "unless the error is 'corruption
		// possible'").
		if !result.CorruptionPossible {
			d.Rejects.Add(&item.tx.Hash)
		}
		if havePeer {
			if result.DoSScore > 0 {
				d.misbehave(srcPeer, result.DoSScore, "invalid tx")
			}
			srcPeer.QueueReject(result.RejectCode, result.Reason, item.tx.Hash)
		}
	}
}

// relayTx announces hash to every connected peer other than originID,
// subject to the blocks-only exemption and each peer's known_inv filter
// (spec.md §8: "a hash inserted into known_inv is never re-announced to the
// same peer").
func (d *Dispatcher) relayTx(hash chainhash.Hash, originID uint64) {
	for id, peer := range d.Coord.Peers {
		if id == originID || d.blocksOnly(peer) {
			continue
		}
		if peer.KnownInv.Contains(&hash) {
			continue
		}
		peer.TxToSend = append(peer.TxToSend, hash)
	}
}

func (d *Dispatcher) onSTX(p *peerstate.State, m *wire.MsgSTX) Outcome {
	stx := m.STX

	paymentTx, havePayment := d.Relay.Get(stx.PaymentTxHash)
	if !havePayment {
		d.parkSTX(stx, p.ID)
		return Outcome{OK: true}
	}

	state := d.Deps.ServiceTx.CheckServiceTx(stx, paymentTx)
	if state.Valid {
		d.stxPoolMtx.Lock()
		d.stxPool[stx.Hash] = stx
		d.stxPoolMtx.Unlock()
		d.relaySTX(stx.Hash, p.ID)
		return Outcome{OK: true}
	}

	d.parkSTX(stx, p.ID)
	if state.DoSScore > 0 {
		d.misbehave(p, state.DoSScore, "invalid service tx")
	}
	p.QueueReject(state.RejectCode, state.Reason, stx.Hash)
	return Outcome{OK: true}
}

func (d *Dispatcher) parkSTX(stx *wire.ServiceTx, fromPeer uint64) {
	d.pendingSTXMtx.Lock()
	defer d.pendingSTXMtx.Unlock()
	d.pendingSTX[stx.Hash] = pendingServiceTx{stx: stx, fromPeer: fromPeer}
}

func (d *Dispatcher) relaySTX(hash chainhash.Hash, originID uint64) {
	for id, peer := range d.Coord.Peers {
		if id == originID || d.blocksOnly(peer) {
			continue
		}
		peer.STXToSend = append(peer.STXToSend, hash)
	}
}
