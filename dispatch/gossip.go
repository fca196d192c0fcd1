package dispatch

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"time"

	"github.com/johnlito123/xuez-1/addrmgr"
	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/wire"
)

func (d *Dispatcher) onAddr(p *peerstate.State, m *wire.MsgAddr) Outcome {
	if len(m.AddrList) > wire.MaxAddrPerMsg {
		d.misbehave(p, scoreOversizedAddr, "oversized addr")
		return Outcome{OK: false}
	}

	now := time.Now()
	for _, addr := range m.AddrList {
		if addr.Timestamp.After(now.Add(10 * time.Minute)) {
			addr.Timestamp = now.Add(-5 * 24 * time.Hour)
		}
		if !addrmgr.IsRoutable(addr) {
			continue
		}
		d.relayAddr(addr, p.ID)
		d.Addrs.AddAddress(addr, nil)
	}

	if p.OneShot {
		return Outcome{OK: true, Disconnect: true}
	}
	return Outcome{OK: true}
}

// relayAddr deterministically forwards addr to at most 2 "best" connected
// peers, chosen by a keyed digest of {addr, day bucket, candidate peer id}
// (spec.md §4.1 ADDR). Grounded on the addr-relay dedup idea in messages.cpp
// (RelayAddress); no SipHash implementation appears anywhere in the
// example corpus, so this uses stdlib crypto/sha256 as the keyed digest
// instead of introducing an unretrieved third-party SipHash package.
func (d *Dispatcher) relayAddr(addr *wire.NetAddress, fromPeer uint64) {
	day := time.Now().Unix() / 86400

	type scored struct {
		peer  *peerstate.State
		score uint64
	}
	var candidates []scored
	for id, peer := range d.Coord.Peers {
		if id == fromPeer || !peer.SuccessfullyConnected {
			continue
		}
		var buf [24]byte
		binary.LittleEndian.PutUint64(buf[0:8], uint64(day))
		binary.LittleEndian.PutUint64(buf[8:16], id)
		copy(buf[16:24], addr.IP.To16())
		digest := sha256.Sum256(buf[:])
		score := binary.LittleEndian.Uint64(digest[:8])
		candidates = append(candidates, scored{peer: peer, score: score})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })
	for i := 0; i < len(candidates) && i < 2; i++ {
		candidates[i].peer.AddrsToSend = append(candidates[i].peer.AddrsToSend, addr)
	}
}

func (d *Dispatcher) onInv(p *peerstate.State, m *wire.MsgInv) Outcome {
	if len(m.InvList) > wire.MaxInvSize {
		d.misbehave(p, scoreOversizedInv, "oversized inv")
		return Outcome{OK: false}
	}

	cq := d.Deps.Chain

	if cq != nil && !cq.IsImporting() && !cq.IsReindexing() {
		if tip := cq.ActiveTip(); tip != nil {
			if d.Coord.ResetRecentRejectsIfTipChanged(tip.Hash) {
				d.Rejects.ResetIfTipChanged(tip.Hash)
			}
		}
	}

	// toFetch collects blocks marked in-flight below for a single trailing
	// GETDATA, matching messages.cpp's vToFetch: MarkBlockAsInFlight alone
	// never sends the wire request, only the batch push at the end does.
	var toFetch []*wire.InvVect

	for _, inv := range m.InvList {
		switch inv.Type {
		case wire.InvTypeBlock, wire.InvTypeFilteredBlock:
			if idx, ok := cq.IndexByHash(inv.Hash); ok {
				if p.BestKnownBlock == nil || idx.ChainWork > p.BestKnownBlock.ChainWork {
					p.BestKnownBlock = idx
				}
			} else {
				p.LastUnknownBlockHash = &inv.Hash
			}

			if !cq.IsInitialBlockDownload() && !cq.IsImporting() && !cq.IsReindexing() {
				if _, have := cq.IndexByHash(inv.Hash); !have {
					if _, inFlight := d.Coord.InFlight.Owner(inv.Hash); !inFlight {
						p.Send(&wire.MsgGetHeaders{HashStop: inv.Hash})
						if canDirectFetch(cq) && p.InFlightCount() < wire.MaxBlocksInTransitPeer {
							if d.Coord.InFlight.TryMark(inv.Hash, p.ID) {
								p.AddInFlight(&peerstate.BlockInFlight{Hash: inv.Hash, RequestedAt: time.Now()})
								toFetch = append(toFetch, wire.NewInvVect(inv.Type, &inv.Hash))
							}
						}
					}
				}
			}

		case wire.InvTypeTx, wire.InvTypeSTX:
			p.KnownInv.Add(&inv.Hash)
			if d.Rejects.Contains(&inv.Hash) {
				continue
			}
			if d.Cfg.WhitelistRelay && p.Whitelisted {
				p.AskFor.Add(inv.Hash, inv.Type, time.Now())
				continue
			}
			if !d.blocksOnly(p) {
				p.AskFor.Add(inv.Hash, inv.Type, time.Now().Add(2*time.Second))
			}
		}
	}
	if len(toFetch) > 0 {
		p.Send(&wire.MsgGetData{InvList: toFetch})
	}
	return Outcome{OK: true}
}

// blocksOnly reports whether this peer should not be offered transaction
// relay — spec.md §4.1 INV: "unless in blocks-only mode (whitelisted +
// whitelist-relay exempts)".
func (d *Dispatcher) blocksOnly(p *peerstate.State) bool {
	if p.Whitelisted && d.Cfg.WhitelistRelay {
		return false
	}
	return p.DisableRelayTx
}

func (d *Dispatcher) onGetData(p *peerstate.State, m *wire.MsgGetData) Outcome {
	p.RecvGetData = append(p.RecvGetData, m.InvList...)
	return Outcome{OK: true}
}

func (d *Dispatcher) onGetBlocks(p *peerstate.State, m *wire.MsgGetBlocks) Outcome {
	cq := d.Deps.Chain
	fork := d.findForkPoint(cq, m.BlockLocatorHashes)
	if fork == nil {
		return Outcome{OK: true}
	}

	const maxGetBlocksResults = 500
	tip := cq.ActiveTip()
	sent := 0
	cur := fork
	for sent < maxGetBlocksResults {
		next := cq.Ancestor(tip, cur.Height+1)
		if next == nil {
			break
		}
		if next.Hash == m.HashStop {
			break
		}
		p.BlockHashesToAnnounce = append(p.BlockHashesToAnnounce, next.Hash)
		cur = next
		sent++
	}
	if sent == maxGetBlocksResults {
		p.ContinueHash = &cur.Hash
	}
	return Outcome{OK: true}
}

func (d *Dispatcher) onGetHeaders(p *peerstate.State, m *wire.MsgGetHeaders) Outcome {
	cq := d.Deps.Chain
	if cq.IsInitialBlockDownload() && !p.Whitelisted {
		return Outcome{OK: true}
	}

	start := d.findForkPoint(cq, m.BlockLocatorHashes)
	if start == nil && m.HashStop != chainhashZero {
		if idx, ok := cq.IndexByHash(m.HashStop); ok {
			start = idx
		}
	}

	tip := cq.ActiveTip()
	if start == nil {
		p.BestHeaderSent = tip
		return Outcome{OK: true}
	}

	var headers []*wire.BlockHeader
	cur := start
	for len(headers) < wire.MaxHeadersResults {
		next := cq.Ancestor(tip, cur.Height+1)
		if next == nil {
			break
		}
		headers = append(headers, &wire.BlockHeader{Hash: next.Hash})
		cur = next
		if next.Hash == m.HashStop {
			break
		}
	}
	if len(headers) > 0 {
		p.Send(&wire.MsgHeaders{Headers: headers})
	}
	if tip != nil {
		p.BestHeaderSent = tip
	} else {
		p.BestHeaderSent = cur
	}
	return Outcome{OK: true}
}

// findForkPoint walks a block locator to the first hash known on the active
// chain, as messages.cpp's GetHeaders/GetBlocks handlers do.
func (d *Dispatcher) findForkPoint(cq chainquery.ChainQuerier, locator []*chainhash.Hash) *chainquery.BlockIndex {
	for _, hash := range locator {
		if idx, ok := cq.IndexByHash(*hash); ok {
			return idx
		}
	}
	return nil
}

func (d *Dispatcher) onGetAddr(p *peerstate.State, _ *wire.MsgGetAddr) Outcome {
	if !p.Inbound {
		return Outcome{OK: true}
	}
	if p.GetAddrServed {
		return Outcome{OK: true}
	}
	p.GetAddrServed = true
	// Only the serve-once flag is recorded: no snapshot of the address
	// manager is taken and no addresses are queued in reply.
	return Outcome{OK: true}
}

func (d *Dispatcher) onMemPool(p *peerstate.State, _ *wire.MsgMemPool) Outcome {
	// The mempool's own contents are an out-of-scope external collaborator
	// (spec.md §1) that offers no way to enumerate them here, so nothing is
	// queued in reply: no tx INVs are sent for a MEMPOOL request.
	return Outcome{OK: true}
}
