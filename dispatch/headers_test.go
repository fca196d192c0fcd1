package dispatch

import (
	"testing"
	"time"

	"github.com/johnlito123/xuez-1/addrmgr"
	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/config"
	"github.com/johnlito123/xuez-1/filters"
	"github.com/johnlito123/xuez-1/orphan"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/relaycache"
	"github.com/johnlito123/xuez-1/wire"
)

// fakeHeaderAcceptor accepts every header with an increasing synthetic
// chainwork, unless a hash was pre-registered as rejected via reject.
type fakeHeaderAcceptor struct {
	nextWork uint64
	reject   map[chainhash.Hash]chainquery.HeaderAcceptResult
}

func newFakeHeaderAcceptor() *fakeHeaderAcceptor {
	return &fakeHeaderAcceptor{reject: make(map[chainhash.Hash]chainquery.HeaderAcceptResult)}
}

func (f *fakeHeaderAcceptor) AcceptBlockHeader(h *wire.BlockHeader) chainquery.HeaderAcceptResult {
	if r, ok := f.reject[h.Hash]; ok {
		return r
	}
	f.nextWork++
	return chainquery.HeaderAcceptResult{Index: &chainquery.BlockIndex{
		Hash: h.Hash, ChainWork: f.nextWork, Timestamp: h.Timestamp,
	}}
}

// nilChain is a ChainQuerier whose ActiveTip is always nil, enough to
// exercise onHeaders without triggering the direct-fetch GETDATA path.
type nilChain struct{}

func (nilChain) ActiveTip() *chainquery.BlockIndex                         { return nil }
func (nilChain) ActiveChainContains(*chainquery.BlockIndex) bool           { return false }
func (nilChain) IndexByHash(chainhash.Hash) (*chainquery.BlockIndex, bool) { return nil, false }
func (nilChain) Ancestor(*chainquery.BlockIndex, int32) *chainquery.BlockIndex {
	return nil
}
func (nilChain) BestHeader() *chainquery.BlockIndex    { return nil }
func (nilChain) IsInitialBlockDownload() bool           { return true }
func (nilChain) IsImporting() bool                      { return false }
func (nilChain) IsReindexing() bool                     { return false }
func (nilChain) MedianTimePast() time.Time              { return time.Now() }
func (nilChain) UTXOExists(chainhash.Hash, uint32) bool { return false }
func (nilChain) BlockProofEquivalentTime(*chainquery.BlockIndex, *chainquery.BlockIndex) time.Duration {
	return 0
}

func newHeadersTestDispatcher(headers chainquery.HeaderAcceptor) (*Dispatcher, *peerstate.Coordinator) {
	cfg := config.Default()
	coord := peerstate.NewCoordinator()
	orphans := orphan.New(cfg.MaxOrphanTx)
	relay := relaycache.New()
	rejects := filters.NewRejectFilter()
	addrs := addrmgr.New()

	d := New(cfg, coord, orphans, relay, rejects, addrs, Deps{
		Headers: headers,
		Chain:   nilChain{},
	})
	return d, coord
}

func TestOnHeadersContinuityViolationIsMisbehavior(t *testing.T) {
	d, coord := newHeadersTestDispatcher(newFakeHeaderAcceptor())
	p := attachPeer(coord, 1, true)

	h1 := &wire.BlockHeader{Hash: chainhash.Hash{1}}
	h2 := &wire.BlockHeader{Hash: chainhash.Hash{2}, PrevBlock: chainhash.Hash{99}} // doesn't chain to h1

	outcome := d.Dispatch(1, &wire.MsgHeaders{Headers: []*wire.BlockHeader{h1, h2}})
	if outcome.OK {
		t.Fatal("expected a disconnected-header sequence to fail")
	}
	if p.MisbehaviorScore != scoreDisconnectedHeader {
		t.Fatalf("expected score %d, got %d", scoreDisconnectedHeader, p.MisbehaviorScore)
	}
}

func TestOnHeadersAcceptsContinuousChainAndTracksBestKnown(t *testing.T) {
	d, coord := newHeadersTestDispatcher(newFakeHeaderAcceptor())
	p := attachPeer(coord, 1, true)

	h1 := &wire.BlockHeader{Hash: chainhash.Hash{1}}
	h2 := &wire.BlockHeader{Hash: chainhash.Hash{2}, PrevBlock: h1.Hash}
	h3 := &wire.BlockHeader{Hash: chainhash.Hash{3}, PrevBlock: h2.Hash}

	outcome := d.Dispatch(1, &wire.MsgHeaders{Headers: []*wire.BlockHeader{h1, h2, h3}})
	if !outcome.OK {
		t.Fatalf("expected a continuous header chain to be accepted, got %+v", outcome)
	}
	if p.BestKnownBlock == nil || p.BestKnownBlock.Hash != h3.Hash {
		t.Fatalf("expected best_known_block to track the last accepted header, got %+v", p.BestKnownBlock)
	}
}

func TestOnHeadersRejectsOversizedBatch(t *testing.T) {
	d, coord := newHeadersTestDispatcher(newFakeHeaderAcceptor())
	p := attachPeer(coord, 1, true)

	headers := make([]*wire.BlockHeader, wire.MaxHeadersResults+1)
	for i := range headers {
		headers[i] = &wire.BlockHeader{Hash: chainhash.Hash{byte(i), byte(i >> 8)}}
	}

	outcome := d.Dispatch(1, &wire.MsgHeaders{Headers: headers})
	if outcome.OK {
		t.Fatal("expected an oversized headers batch to fail")
	}
	if p.MisbehaviorScore != scoreOversizedHeaders {
		t.Fatalf("expected score %d, got %d", scoreOversizedHeaders, p.MisbehaviorScore)
	}
}

func TestOnHeadersEmptyIsNoop(t *testing.T) {
	d, coord := newHeadersTestDispatcher(newFakeHeaderAcceptor())
	p := attachPeer(coord, 1, true)

	outcome := d.Dispatch(1, &wire.MsgHeaders{})
	if !outcome.OK {
		t.Fatalf("expected empty headers message to be a no-op success, got %+v", outcome)
	}
	if p.BestKnownBlock != nil {
		t.Fatal("expected no best_known_block update from an empty headers message")
	}
}

func TestOnHeadersRejectedHeaderQueuesReject(t *testing.T) {
	headers := newFakeHeaderAcceptor()
	d, coord := newHeadersTestDispatcher(headers)
	p := attachPeer(coord, 1, true)

	bad := &wire.BlockHeader{Hash: chainhash.Hash{7}}
	headers.reject[bad.Hash] = chainquery.HeaderAcceptResult{
		RejectCode: wire.RejectInvalid, Reason: "bad proof of work", DoSScore: 10,
	}

	outcome := d.Dispatch(1, &wire.MsgHeaders{Headers: []*wire.BlockHeader{bad}})
	if outcome.OK {
		t.Fatal("expected a rejected header to fail dispatch")
	}
	if p.MisbehaviorScore != 10 {
		t.Fatalf("expected score 10, got %d", p.MisbehaviorScore)
	}
	pending := p.FlushRejects()
	if len(pending) != 1 || pending[0].Hash != bad.Hash {
		t.Fatalf("expected a queued reject for the bad header, got %v", pending)
	}
}
