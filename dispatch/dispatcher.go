// Package dispatch implements the Message Dispatcher of spec.md §4.1, the
// Get-Data Server of §4.4, and Misbehavior Accounting of §4.6.
//
// Grounded on messages.cpp's ProcessMessage / ProcessGetData / Misbehaving,
// generalized into a Dispatcher value that owns its collaborators instead of
// reaching for C++-style free functions over global state.
package dispatch

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/johnlito123/xuez-1/addrmgr"
	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/config"
	"github.com/johnlito123/xuez-1/filters"
	"github.com/johnlito123/xuez-1/logs"
	"github.com/johnlito123/xuez-1/orphan"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/relaycache"
	"github.com/johnlito123/xuez-1/wire"
)

var log, _ = logs.Get(logs.SubsystemTags.DISP)

// BlockReader loads a previously-stored block body for GETDATA service
// (spec.md §4.4: "Read from disk"). Disk I/O is an out-of-scope external
// collaborator; the dispatcher only calls through this seam.
type BlockReader func(hash chainhash.Hash) (*wire.Block, bool)

// Deps bundles the external validation-engine collaborators spec.md §6
// names, plus the disk-read seam for GETDATA.
type Deps struct {
	Chain       chainquery.ChainQuerier
	Mempool     chainquery.MempoolAcceptor
	ServiceTx   chainquery.ServiceTxValidator
	Headers     chainquery.HeaderAcceptor
	Blocks      chainquery.BlockProcessor
	ReadBlock   BlockReader
}

// Dispatcher is the Message Dispatcher: one value per node, shared by every
// peer's message-processing path.
type Dispatcher struct {
	Cfg     *config.Config
	Coord   *peerstate.Coordinator
	Orphans *orphan.Pool
	Relay   *relaycache.Cache
	Rejects *filters.RejectFilter
	Addrs   *addrmgr.AddrManager
	Deps    Deps

	localNoncesMtx sync.Mutex
	localNonces    map[uint64]struct{}

	pendingSTXMtx sync.Mutex
	pendingSTX    map[chainhash.Hash]pendingServiceTx

	// stxPool holds successfully validated service transactions, serving
	// the "service-tx pool" spec.md §4.4 MSG_STX reads from.
	stxPoolMtx sync.Mutex
	stxPool    map[chainhash.Hash]*wire.ServiceTx
}

type pendingServiceTx struct {
	stx      *wire.ServiceTx
	fromPeer uint64
}

// New returns a Dispatcher wired to its collaborators.
func New(cfg *config.Config, coord *peerstate.Coordinator, orphans *orphan.Pool, relay *relaycache.Cache, rejects *filters.RejectFilter, addrs *addrmgr.AddrManager, deps Deps) *Dispatcher {
	return &Dispatcher{
		Cfg:         cfg,
		Coord:       coord,
		Orphans:     orphans,
		Relay:       relay,
		Rejects:     rejects,
		Addrs:       addrs,
		Deps:        deps,
		localNonces: make(map[uint64]struct{}),
		pendingSTX:  make(map[chainhash.Hash]pendingServiceTx),
		stxPool:     make(map[chainhash.Hash]*wire.ServiceTx),
	}
}

// AddLocalNonce registers a nonce used for one of our own outbound
// connection attempts, so a matching VERSION nonce can be recognized as a
// self-connection (spec.md §4.1 VERSION: "If nonce equals any
// local-connection nonce: disconnect").
func (d *Dispatcher) AddLocalNonce(nonce uint64) {
	d.localNoncesMtx.Lock()
	defer d.localNoncesMtx.Unlock()
	d.localNonces[nonce] = struct{}{}
}

// RemoveLocalNonce forgets a local nonce once the corresponding connection
// attempt resolves.
func (d *Dispatcher) RemoveLocalNonce(nonce uint64) {
	d.localNoncesMtx.Lock()
	defer d.localNoncesMtx.Unlock()
	delete(d.localNonces, nonce)
}

func (d *Dispatcher) isLocalNonce(nonce uint64) bool {
	d.localNoncesMtx.Lock()
	defer d.localNoncesMtx.Unlock()
	_, ok := d.localNonces[nonce]
	return ok
}

// Outcome is what every dispatcher branch returns: whether the message
// dispatched successfully, plus anything the scheduler must act on.
// Dispatcher branches never raise; everything peer-visible flows through
// queued rejects and misbehavior score (spec.md §7 "Propagation policy").
type Outcome struct {
	OK         bool
	Disconnect bool
}

// Dispatch routes one parsed message from peerID through the appropriate
// branch (spec.md §4.1). It acquires the chain coordination lock for the
// duration of the branch, matching spec.md §5: "Every dispatcher branch
// that touches [shared state] acquires the chain lock."
func (d *Dispatcher) Dispatch(peerID uint64, msg wire.Message) (outcome Outcome) {
	d.Coord.Lock()
	defer d.Coord.Unlock()

	p, ok := d.Coord.Peers[peerID]
	if !ok {
		return Outcome{OK: false}
	}

	// A branch panicking mid-decode is this module's equivalent of
	// spec.md §7's "Parse exception" taxon: reply reject(malformed), log,
	// never disconnect for it.
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("panic handling %s from peer %d: %v", msg.Command(), peerID, r)
			log.Warnf("%s", err)
			p.QueueReject(wire.RejectMalformed, "malformed message", chainhashZero)
			outcome = Outcome{OK: false}
		}
	}()

	switch m := msg.(type) {
	case *wire.MsgVersion:
		return d.onVersion(p, m)
	case *wire.MsgVerAck:
		return d.onVerAck(p, m)
	case *wire.MsgAddr:
		return d.onAddr(p, m)
	case *wire.MsgInv:
		return d.onInv(p, m)
	case *wire.MsgGetData:
		return d.onGetData(p, m)
	case *wire.MsgGetBlocks:
		return d.onGetBlocks(p, m)
	case *wire.MsgGetHeaders:
		return d.onGetHeaders(p, m)
	case *wire.MsgTx:
		return d.onTx(p, m)
	case *wire.MsgSTX:
		return d.onSTX(p, m)
	case *wire.MsgHeaders:
		return d.onHeaders(p, m)
	case *wire.MsgBlock:
		return d.onBlock(p, m)
	case *wire.MsgGetAddr:
		return d.onGetAddr(p, m)
	case *wire.MsgMemPool:
		return d.onMemPool(p, m)
	case *wire.MsgPing:
		return d.onPing(p, m)
	case *wire.MsgPong:
		return d.onPong(p, m)
	case *wire.MsgFilterLoad:
		return d.onFilterLoad(p, m)
	case *wire.MsgFilterAdd:
		return d.onFilterAdd(p, m)
	case *wire.MsgFilterClear:
		return d.onFilterClear(p, m)
	case *wire.MsgReject:
		log.Debugf("peer %d: reject %s code=%d reason=%q", p.ID, m.Cmd, m.Code, m.Reason)
		return Outcome{OK: true}
	default:
		log.Debugf("peer %d: unknown message type %T", p.ID, m)
		return Outcome{OK: true}
	}
}

// MisbehavePeer applies a DoS score to peerID from outside the normal
// per-message dispatch path (the validation listener's block_checked,
// spec.md §4.7, punishes a block's source peer once validation resolves
// asynchronously).
func (d *Dispatcher) MisbehavePeer(peerID uint64, delta int, reason string) {
	d.Coord.Lock()
	defer d.Coord.Unlock()
	if p, ok := d.Coord.Peers[peerID]; ok {
		d.misbehave(p, delta, reason)
	}
}

// misbehave applies spec.md §4.6: adds delta to the peer's score, logs
// either way, and crosses the ban threshold at most once.
func (d *Dispatcher) misbehave(p *peerstate.State, delta int, reason string) {
	if delta == 0 {
		log.Debugf("peer %d: misbehavior check (%s), no score change", p.ID, reason)
		return
	}
	crossed := p.Misbehaving(delta, int(d.Cfg.BanScore))
	log.Debugf("peer %d: misbehavior +%d (%s), score now %d", p.ID, delta, reason, p.MisbehaviorScore)
	if crossed {
		log.Warnf("peer %d: BAN THRESHOLD EXCEEDED (score %d)", p.ID, p.MisbehaviorScore)
	}
}
