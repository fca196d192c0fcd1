package dispatch

import (
	"time"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/wire"
)

func (d *Dispatcher) onHeaders(p *peerstate.State, m *wire.MsgHeaders) Outcome {
	if len(m.Headers) > wire.MaxHeadersResults {
		d.misbehave(p, scoreOversizedHeaders, "oversized headers")
		return Outcome{OK: false}
	}
	if len(m.Headers) == 0 {
		return Outcome{OK: true}
	}

	var lastIndex *chainquery.BlockIndex
	for i, h := range m.Headers {
		if i > 0 && h.PrevBlock != m.Headers[i-1].Hash {
			d.misbehave(p, scoreDisconnectedHeader, "disconnected-header")
			return Outcome{OK: false}
		}

		res := d.Deps.Headers.AcceptBlockHeader(h)
		if res.Index == nil {
			if res.DoSScore > 0 {
				d.misbehave(p, res.DoSScore, "invalid header")
			}
			p.QueueReject(res.RejectCode, res.Reason, h.Hash)
			return Outcome{OK: false}
		}
		lastIndex = res.Index
		if p.BestKnownBlock == nil || lastIndex.ChainWork > p.BestKnownBlock.ChainWork {
			p.BestKnownBlock = lastIndex
		}
	}

	if len(m.Headers) == wire.MaxHeadersResults && lastIndex != nil {
		hash := lastIndex.Hash
		p.Send(&wire.MsgGetHeaders{BlockLocatorHashes: []*chainhash.Hash{&hash}})
	}

	cq := d.Deps.Chain
	tip := cq.ActiveTip()
	if lastIndex != nil && tip != nil && lastIndex.ChainWork >= tip.ChainWork && canDirectFetch(cq) {
		deficit := wire.MaxBlocksInTransitPeer - p.InFlightCount()
		if deficit > 0 {
			var toFetch []*wire.InvVect
			for _, idx := range blocksWeLack(cq, lastIndex, deficit) {
				if d.Coord.InFlight.TryMark(idx.Hash, p.ID) {
					p.AddInFlight(&peerstate.BlockInFlight{
						Hash:             idx.Hash,
						Index:            idx,
						ValidatedHeaders: true,
						RequestedAt:      time.Now(),
					})
					hash := idx.Hash
					toFetch = append(toFetch, wire.NewInvVect(wire.InvTypeBlock, &hash))
				}
			}
			if len(toFetch) > 0 {
				p.Send(&wire.MsgGetData{InvList: toFetch})
			}
		}
	}

	return Outcome{OK: true}
}

// blocksWeLack walks back from tip towards genesis collecting indices we
// neither have on disk nor already carry on the active chain, stopping at the
// first block we have (or at height 0), and returns at most max of them —
// the lowest heights — in ascending-height order (spec.md §4.1 HEADERS:
// "walk back to first block we lack, enqueue up to [deficit] GETDATA
// entries").
func blocksWeLack(cq chainquery.ChainQuerier, tip *chainquery.BlockIndex, max int) []*chainquery.BlockIndex {
	var missing []*chainquery.BlockIndex
	cur := tip
	for cur != nil && cur.Height > 0 && !cur.HaveData && !cq.ActiveChainContains(cur) {
		missing = append(missing, cur)
		cur = cq.Ancestor(tip, cur.Height-1)
	}
	for i, j := 0, len(missing)-1; i < j; i, j = i+1, j-1 {
		missing[i], missing[j] = missing[j], missing[i]
	}
	if len(missing) > max {
		missing = missing[:max]
	}
	return missing
}

func (d *Dispatcher) onBlock(p *peerstate.State, m *wire.MsgBlock) Outcome {
	block := m.Block
	hash := block.Header.Hash

	requested := false
	if owner, ok := d.Coord.InFlight.Owner(hash); ok && owner == p.ID {
		requested = true
	}
	d.Coord.BlockSources.Set(hash, p.ID, true)

	force := (p.Whitelisted && !d.Deps.Chain.IsInitialBlockDownload()) || requested
	result := d.Deps.Blocks.ProcessNewBlock(block, p.ID, force)

	p.RemoveInFlight(hash)
	d.Coord.InFlight.Release(hash)

	if !result.Accepted && result.RejectCode < wire.RejectInternal {
		p.QueueReject(result.RejectCode, result.Reason, hash)
		if result.DoSScore > 0 {
			d.misbehave(p, result.DoSScore, "invalid block")
		}
	}
	d.Coord.BlockSources.Delete(hash)

	return Outcome{OK: result.Accepted}
}
