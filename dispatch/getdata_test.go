package dispatch

import (
	"testing"
	"time"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/wire"
)

// getDataFakeChain is a minimal chainquery.ChainQuerier stub for exercising
// ProcessGetData's serving gates.
type getDataFakeChain struct {
	tip    *chainquery.BlockIndex
	header *chainquery.BlockIndex
	byHash map[chainhash.Hash]*chainquery.BlockIndex
}

func newGetDataFakeChain() *getDataFakeChain {
	return &getDataFakeChain{byHash: make(map[chainhash.Hash]*chainquery.BlockIndex)}
}

func (c *getDataFakeChain) ActiveTip() *chainquery.BlockIndex { return c.tip }
func (c *getDataFakeChain) ActiveChainContains(i *chainquery.BlockIndex) bool {
	return c.tip != nil && i != nil && i.Hash == c.tip.Hash
}
func (c *getDataFakeChain) IndexByHash(h chainhash.Hash) (*chainquery.BlockIndex, bool) {
	idx, ok := c.byHash[h]
	return idx, ok
}
func (c *getDataFakeChain) Ancestor(*chainquery.BlockIndex, int32) *chainquery.BlockIndex { return nil }
func (c *getDataFakeChain) BestHeader() *chainquery.BlockIndex                            { return c.header }
func (c *getDataFakeChain) IsInitialBlockDownload() bool                                  { return false }
func (c *getDataFakeChain) IsImporting() bool                                             { return false }
func (c *getDataFakeChain) IsReindexing() bool                                            { return false }
func (c *getDataFakeChain) MedianTimePast() time.Time                                     { return time.Now() }
func (c *getDataFakeChain) UTXOExists(chainhash.Hash, uint32) bool                        { return false }
func (c *getDataFakeChain) BlockProofEquivalentTime(*chainquery.BlockIndex, *chainquery.BlockIndex) time.Duration {
	return 0
}

func newTestDispatcherWithChain(cq chainquery.ChainQuerier, readBlock BlockReader) (*Dispatcher, *peerstate.Coordinator) {
	d, coord := newTestDispatcher(newFakeMempool())
	d.Deps.Chain = cq
	d.Deps.ReadBlock = readBlock
	return d, coord
}

func TestProcessGetDataOnActiveChainSendsBlock(t *testing.T) {
	cq := newGetDataFakeChain()
	hash := chainhash.Hash{1}
	idx := &chainquery.BlockIndex{Hash: hash, Height: 1}
	cq.byHash[hash] = idx
	cq.tip = idx

	block := &wire.Block{Header: wire.BlockHeader{Hash: hash}}
	readBlock := func(h chainhash.Hash) (*wire.Block, bool) { return block, true }

	d, coord := newTestDispatcherWithChain(cq, readBlock)
	p := attachPeer(coord, 1, true)
	p.RecvGetData = []*wire.InvVect{wire.NewInvVect(wire.InvTypeBlock, &hash)}

	if disc := d.ProcessGetData(p); disc {
		t.Fatal("expected no disconnect serving an active-chain block")
	}
	if len(p.Outbound) != 1 {
		t.Fatalf("expected one MsgBlock sent, got %d", len(p.Outbound))
	}
	if _, ok := p.Outbound[0].(*wire.MsgBlock); !ok {
		t.Fatalf("expected MsgBlock, got %T", p.Outbound[0])
	}
}

func TestProcessGetDataUnknownHashSendsNotFound(t *testing.T) {
	cq := newGetDataFakeChain()
	d, coord := newTestDispatcherWithChain(cq, nil)
	p := attachPeer(coord, 1, true)

	hash := chainhash.Hash{9}
	p.RecvGetData = []*wire.InvVect{wire.NewInvVect(wire.InvTypeBlock, &hash)}

	d.ProcessGetData(p)
	if len(p.Outbound) != 1 {
		t.Fatalf("expected one MsgNotFound, got %d", len(p.Outbound))
	}
	nf, ok := p.Outbound[0].(*wire.MsgNotFound)
	if !ok || len(nf.InvList) != 1 || nf.InvList[0].Hash != hash {
		t.Fatalf("expected not-found listing the unknown hash, got %T", p.Outbound[0])
	}
}

func TestProcessGetDataYieldsAfterOneBlock(t *testing.T) {
	cq := newGetDataFakeChain()
	h1 := chainhash.Hash{1}
	h2 := chainhash.Hash{2}
	idx1 := &chainquery.BlockIndex{Hash: h1, Height: 1}
	idx2 := &chainquery.BlockIndex{Hash: h2, Height: 2}
	cq.byHash[h1] = idx1
	cq.byHash[h2] = idx2
	cq.tip = idx1 // only h1 considered on the active chain

	block := &wire.Block{Header: wire.BlockHeader{Hash: h1}}
	readBlock := func(h chainhash.Hash) (*wire.Block, bool) { return block, true }

	d, coord := newTestDispatcherWithChain(cq, readBlock)
	p := attachPeer(coord, 1, true)
	p.RecvGetData = []*wire.InvVect{
		wire.NewInvVect(wire.InvTypeBlock, &h1),
		wire.NewInvVect(wire.InvTypeBlock, &h2),
	}

	d.ProcessGetData(p)
	if len(p.RecvGetData) != 1 {
		t.Fatalf("expected one entry left queued after yielding post-block, got %d", len(p.RecvGetData))
	}
}

func TestProcessGetDataTxServedFromRelayCache(t *testing.T) {
	cq := newGetDataFakeChain()
	d, coord := newTestDispatcherWithChain(cq, nil)
	p := attachPeer(coord, 1, true)

	tx := &wire.Tx{Hash: chainhash.Hash{3}}
	d.Relay.Add(tx)
	p.RecvGetData = []*wire.InvVect{wire.NewInvVect(wire.InvTypeTx, &tx.Hash)}

	d.ProcessGetData(p)
	if len(p.Outbound) != 1 {
		t.Fatalf("expected one MsgTx sent, got %d", len(p.Outbound))
	}
	msg, ok := p.Outbound[0].(*wire.MsgTx)
	if !ok || msg.Tx.Hash != tx.Hash {
		t.Fatalf("expected the cached tx relayed, got %T", p.Outbound[0])
	}
}

func TestProcessGetDataHistoricalRefusalDisconnectsNonWhitelisted(t *testing.T) {
	cq := newGetDataFakeChain()
	hash := chainhash.Hash{4}
	old := &chainquery.BlockIndex{Hash: hash, Height: 1, ValidScripts: true, Timestamp: time.Now().Add(-10 * 24 * time.Hour)}
	cq.byHash[hash] = old
	cq.header = &chainquery.BlockIndex{Timestamp: time.Now()}

	d, coord := newTestDispatcherWithChain(cq, func(chainhash.Hash) (*wire.Block, bool) { return &wire.Block{}, true })
	p := attachPeer(coord, 1, true)
	p.RecvGetData = []*wire.InvVect{wire.NewInvVect(wire.InvTypeBlock, &hash)}

	prev := outboundServingLimitReached
	outboundServingLimitReached = func() bool { return true }
	defer func() { outboundServingLimitReached = prev }()

	if disc := d.ProcessGetData(p); !disc {
		t.Fatal("expected refusal of an old, unservable block to disconnect a non-whitelisted peer")
	}
}
