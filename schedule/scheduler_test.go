package schedule

import (
	"testing"
	"time"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/config"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/wire"
)

// fakeChain is a minimal chainquery.ChainQuerier stub whose behavior each
// test configures directly through its fields.
type fakeChain struct {
	tip        *chainquery.BlockIndex
	header     *chainquery.BlockIndex
	ibd        bool
	importing  bool
	reindexing bool
	byHash     map[chainhash.Hash]*chainquery.BlockIndex
}

func newFakeChain() *fakeChain {
	return &fakeChain{byHash: make(map[chainhash.Hash]*chainquery.BlockIndex)}
}

func (c *fakeChain) ActiveTip() *chainquery.BlockIndex               { return c.tip }
func (c *fakeChain) ActiveChainContains(i *chainquery.BlockIndex) bool {
	if i == nil || c.tip == nil {
		return false
	}
	return i.Hash == c.tip.Hash
}
func (c *fakeChain) IndexByHash(h chainhash.Hash) (*chainquery.BlockIndex, bool) {
	idx, ok := c.byHash[h]
	return idx, ok
}
func (c *fakeChain) Ancestor(i *chainquery.BlockIndex, height int32) *chainquery.BlockIndex {
	return nil
}
func (c *fakeChain) BestHeader() *chainquery.BlockIndex           { return c.header }
func (c *fakeChain) IsInitialBlockDownload() bool                  { return c.ibd }
func (c *fakeChain) IsImporting() bool                             { return c.importing }
func (c *fakeChain) IsReindexing() bool                            { return c.reindexing }
func (c *fakeChain) MedianTimePast() time.Time                     { return time.Now() }
func (c *fakeChain) UTXOExists(chainhash.Hash, uint32) bool        { return false }
func (c *fakeChain) BlockProofEquivalentTime(*chainquery.BlockIndex, *chainquery.BlockIndex) time.Duration {
	return 0
}

func newTestScheduler(cq *fakeChain) (*Scheduler, *peerstate.Coordinator) {
	coord := peerstate.NewCoordinator()
	sched := New(config.Default(), coord, Deps{Chain: cq})
	return sched, coord
}

func TestAdvertiseLocalAddrSkippedDuringIBD(t *testing.T) {
	cq := newFakeChain()
	cq.ibd = true
	sched, _ := newTestScheduler(cq)
	sched.Deps.LocalAddress = func(*peerstate.State) *wire.NetAddress {
		t.Fatal("LocalAddress should not be called during IBD")
		return nil
	}

	p := peerstate.New(1, "x", true, false)
	sched.advertiseLocalAddr(p, time.Now())
	if len(p.AddrsToSend) != 0 {
		t.Fatalf("expected no address queued during IBD, got %d", len(p.AddrsToSend))
	}
}

func TestAdvertiseLocalAddrQueuesOutsideIBD(t *testing.T) {
	cq := newFakeChain()
	cq.ibd = false
	sched, _ := newTestScheduler(cq)
	addr := &wire.NetAddress{IP: []byte{1, 2, 3, 4}, Port: 8333}
	sched.Deps.LocalAddress = func(*peerstate.State) *wire.NetAddress { return addr }

	p := peerstate.New(1, "x", true, false)
	sched.advertiseLocalAddr(p, time.Now())
	if len(p.AddrsToSend) != 1 {
		t.Fatalf("expected 1 address queued, got %d", len(p.AddrsToSend))
	}
	if p.NextLocalAddrSend.IsZero() {
		t.Fatal("expected NextLocalAddrSend primed")
	}
}

func TestFlushAddrsDedupsKnownAddrs(t *testing.T) {
	cq := newFakeChain()
	sched, _ := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, false)
	addr := &wire.NetAddress{IP: []byte{1, 2, 3, 4}, Port: 8333}
	p.AddrsToSend = []*wire.NetAddress{addr, addr}

	sched.flushAddrs(p)
	if len(p.Outbound) != 1 {
		t.Fatalf("expected exactly one MsgAddr sent, got %d", len(p.Outbound))
	}
	msg := p.Outbound[0].(*wire.MsgAddr)
	if len(msg.AddrList) != 1 {
		t.Fatalf("expected the duplicate address deduped within the single flush, got %d", len(msg.AddrList))
	}

	p.Outbound = nil
	p.AddrsToSend = []*wire.NetAddress{addr}
	sched.flushAddrs(p)
	if len(p.Outbound) != 0 {
		t.Fatal("expected already-known address not resent")
	}
}

func TestMaybeStartSyncTriggersOnPreferredDownload(t *testing.T) {
	cq := newFakeChain()
	sched, coord := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, false)
	coord.Lock()
	coord.AttachPeer(p)
	coord.SetPreferredDownload(p, true)
	coord.Unlock()

	sched.maybeStartSync(p, time.Now())
	if !p.SyncStarted {
		t.Fatal("expected sync_started set for the first preferred-download peer")
	}
	if len(p.Outbound) != 1 {
		t.Fatalf("expected a GETHEADERS sent, got %d messages", len(p.Outbound))
	}
	if _, ok := p.Outbound[0].(*wire.MsgGetHeaders); !ok {
		t.Fatalf("expected MsgGetHeaders, got %T", p.Outbound[0])
	}
}

func TestMaybeStartSyncSkipsThinClient(t *testing.T) {
	cq := newFakeChain()
	sched, coord := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, false)
	p.IsThinClient = true
	coord.Lock()
	coord.AttachPeer(p)
	coord.SetPreferredDownload(p, true)
	coord.Unlock()

	sched.maybeStartSync(p, time.Now())
	if p.SyncStarted {
		t.Fatal("expected thin client to never start sync")
	}
}

func TestSendInventoryDedupsKnownInv(t *testing.T) {
	cq := newFakeChain()
	sched, _ := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, false)
	h := chainhash.Hash{1}
	p.KnownInv.Add(&h)
	p.TxToSend = []chainhash.Hash{h}

	sched.sendInventory(p, time.Now())
	if len(p.Outbound) != 0 {
		t.Fatalf("expected no inv sent for an already-known hash, got %d", len(p.Outbound))
	}
}

func TestSendInventorySendsNewHash(t *testing.T) {
	cq := newFakeChain()
	sched, _ := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, false)
	h := chainhash.Hash{2}
	p.TxToSend = []chainhash.Hash{h}

	sched.sendInventory(p, time.Now())
	if len(p.Outbound) != 1 {
		t.Fatalf("expected one MsgInv sent, got %d", len(p.Outbound))
	}
	msg := p.Outbound[0].(*wire.MsgInv)
	if len(msg.InvList) != 1 || msg.InvList[0].Hash != h {
		t.Fatalf("expected inv for hash %s, got %v", h, msg.InvList)
	}
}

func TestStallTimedOut(t *testing.T) {
	cq := newFakeChain()
	sched, _ := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, false)
	now := time.Now()

	if sched.stallTimedOut(p, now) {
		t.Fatal("expected no stall timeout with zero StallingSince")
	}

	p.StallingSince = now.Add(-wire.BlockStallingTimeout - time.Second)
	if !sched.stallTimedOut(p, now) {
		t.Fatal("expected stall timeout past the threshold")
	}
}

func TestDownloadTimedOut(t *testing.T) {
	cq := newFakeChain()
	sched, _ := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, false)
	now := time.Now()
	p.InFlight = []*peerstate.BlockInFlight{{Hash: chainhash.Hash{1}}}
	p.DownloadingSince = now.Add(-wire.BlockDownloadTimeoutBase - time.Second)

	if !sched.downloadTimedOut(p, now) {
		t.Fatal("expected download timeout past the base deadline")
	}
}

func TestDownloadNotTimedOutWithinBase(t *testing.T) {
	cq := newFakeChain()
	sched, _ := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, false)
	now := time.Now()
	p.InFlight = []*peerstate.BlockInFlight{{Hash: chainhash.Hash{1}}}
	p.DownloadingSince = now.Add(-time.Second)

	if sched.downloadTimedOut(p, now) {
		t.Fatal("expected no timeout shortly after download began")
	}
}

func TestTickYieldsOnLockContention(t *testing.T) {
	cq := newFakeChain()
	sched, coord := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, false)
	coord.Lock()
	coord.AttachPeer(p)
	coord.Unlock()

	coord.Lock() // simulate another goroutine holding the chain lock
	disconnect, locked := sched.Tick(1)
	coord.Unlock()

	if locked {
		t.Fatal("expected Tick to report contention")
	}
	if disconnect {
		t.Fatal("expected no disconnect decision when contended")
	}
}

func TestTickDisconnectsShouldDisconnectPeer(t *testing.T) {
	cq := newFakeChain()
	sched, coord := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, false)
	p.ShouldDisconnect = true
	coord.Lock()
	coord.AttachPeer(p)
	coord.Unlock()

	disconnect, locked := sched.Tick(1)
	if !locked {
		t.Fatal("expected lock acquired")
	}
	if !disconnect {
		t.Fatal("expected disconnect for a non-whitelisted should_disconnect peer")
	}
}

func TestTickExemptsWhitelistedShouldDisconnectPeer(t *testing.T) {
	cq := newFakeChain()
	sched, coord := newTestScheduler(cq)

	p := peerstate.New(1, "x", true, true)
	p.ShouldDisconnect = true
	coord.Lock()
	coord.AttachPeer(p)
	coord.Unlock()

	disconnect, locked := sched.Tick(1)
	if !locked {
		t.Fatal("expected lock acquired")
	}
	if disconnect {
		t.Fatal("expected whitelisted peer exempted from should_disconnect tick exit")
	}
}
