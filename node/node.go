// Package node assembles the collaborators of spec.md §6's external
// interface into one value: `MessageHandler` exposes InitializeNode,
// FinalizeNode, ProcessMessages and SendMessages to the out-of-scope
// connection layer, replacing the teacher's global signal-slot
// registration (messages.cpp's RegisterNodeSignals) with one explicit
// value constructed at startup, per spec.md §9's design note.
package node

import (
	"math/rand"
	"sync"

	"github.com/johnlito123/xuez-1/addrmgr"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/config"
	"github.com/johnlito123/xuez-1/dispatch"
	"github.com/johnlito123/xuez-1/filters"
	"github.com/johnlito123/xuez-1/logs"
	"github.com/johnlito123/xuez-1/orphan"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/relaycache"
	"github.com/johnlito123/xuez-1/schedule"
	"github.com/johnlito123/xuez-1/validation"
	"github.com/johnlito123/xuez-1/wire"
)

var log, _ = logs.Get(logs.SubsystemTags.NODE)

// Deps bundles the validation-engine and connection-layer seams the whole
// node needs (spec.md §6 "Interfaces consumed from the validation engine").
type Deps struct {
	Chain     chainquery.ChainQuerier
	Mempool   chainquery.MempoolAcceptor
	ServiceTx chainquery.ServiceTxValidator
	Headers   chainquery.HeaderAcceptor
	Blocks    chainquery.BlockProcessor
	ReadBlock dispatch.BlockReader

	// LocalAddress and RebroadcastWallet are out-of-scope connection-layer
	// and wallet seams the scheduler calls through (spec.md §4.5 steps 4,
	// 7); see schedule.Deps.
	LocalAddress      func(p *peerstate.State) *wire.NetAddress
	RebroadcastWallet func()
}

// MessageHandler is the node's message-processing core: one value per
// running node, shared by every connected peer.
type MessageHandler struct {
	Cfg      *config.Config
	Coord    *peerstate.Coordinator
	Orphans  *orphan.Pool
	Relay    *relaycache.Cache
	Rejects  *filters.RejectFilter
	Addrs    *addrmgr.AddrManager
	Dispatch *dispatch.Dispatcher
	Schedule *schedule.Scheduler
	Listener *validation.Listener

	inboxMtx sync.Mutex
	inbox    map[uint64][]wire.Message
}

// New wires every collaborator together from cfg and deps.
func New(cfg *config.Config, deps Deps) *MessageHandler {
	coord := peerstate.NewCoordinator()
	orphans := orphan.New(cfg.MaxOrphanTx)
	relay := relaycache.New()
	rejects := filters.NewRejectFilter()
	addrs := addrmgr.New()

	disp := dispatch.New(cfg, coord, orphans, relay, rejects, addrs, dispatch.Deps{
		Chain:     deps.Chain,
		Mempool:   deps.Mempool,
		ServiceTx: deps.ServiceTx,
		Headers:   deps.Headers,
		Blocks:    deps.Blocks,
		ReadBlock: deps.ReadBlock,
	})

	sched := schedule.New(cfg, coord, schedule.Deps{
		Chain:             deps.Chain,
		LocalAddress:      deps.LocalAddress,
		RebroadcastWallet: deps.RebroadcastWallet,
	})

	listener := validation.New(coord, orphans, deps.Chain, disp.MisbehavePeer)

	return &MessageHandler{
		Cfg:      cfg,
		Coord:    coord,
		Orphans:  orphans,
		Relay:    relay,
		Rejects:  rejects,
		Addrs:    addrs,
		Dispatch: disp,
		Schedule: sched,
		Listener: listener,
		inbox:    make(map[uint64][]wire.Message),
	}
}

// InitializeNode attaches a freshly connected peer (spec.md §6
// `initialize_node`). netAddr may be nil for a peer whose wire address
// isn't known; nothing fills it in later, and the handshake then skips
// marking the address good in the address manager.
func (h *MessageHandler) InitializeNode(peerID uint64, addr string, inbound, whitelisted bool, netAddr *wire.NetAddress) {
	p := peerstate.New(peerID, addr, inbound, whitelisted)
	p.NetAddr = netAddr

	h.Coord.Lock()
	h.Coord.AttachPeer(p)
	h.Coord.Unlock()
}

// FinalizeNode tears down a disconnecting peer (spec.md §6 `finalize_node`,
// §3's lifecycle invariant: "no orphan has from_peer == p, no in-flight
// entry points to p, counters decremented").
func (h *MessageHandler) FinalizeNode(peerID uint64) {
	h.Coord.Lock()
	h.Coord.DetachPeer(peerID)
	h.Coord.Unlock()

	h.Orphans.EraseForPeer(peerID)

	h.inboxMtx.Lock()
	delete(h.inbox, peerID)
	h.inboxMtx.Unlock()
}

// AddLocalNonce and RemoveLocalNonce forward to the dispatcher's
// self-connection guard (spec.md §4.1 VERSION), for the connection layer to
// call around its own outbound dial attempts.
func (h *MessageHandler) AddLocalNonce(nonce uint64)    { h.Dispatch.AddLocalNonce(nonce) }
func (h *MessageHandler) RemoveLocalNonce(nonce uint64) { h.Dispatch.RemoveLocalNonce(nonce) }

// EnqueueMessage appends a parsed message to peerID's inbound queue, for
// the connection layer to call as messages arrive off the wire.
func (h *MessageHandler) EnqueueMessage(peerID uint64, msg wire.Message) {
	h.inboxMtx.Lock()
	h.inbox[peerID] = append(h.inbox[peerID], msg)
	h.inboxMtx.Unlock()
}

// ProcessMessages dispatches one queued message for peerID and reports
// whether more are queued (spec.md §6 `process_messages(peer) →
// more_work?`), matching spec.md §5's ordering rule: "messages from a given
// peer are processed in receive order."
func (h *MessageHandler) ProcessMessages(peerID uint64) (moreWork bool) {
	if h.Coord.Interrupted() {
		return false
	}

	h.inboxMtx.Lock()
	queue := h.inbox[peerID]
	if len(queue) == 0 {
		h.inboxMtx.Unlock()
		return false
	}
	msg := queue[0]
	h.inbox[peerID] = queue[1:]
	moreWork = len(h.inbox[peerID]) > 0
	h.inboxMtx.Unlock()

	if n := h.Cfg.DropMessagesTest; n > 0 && rand.Intn(n) == 0 {
		log.Debugf("peer %d: dropping %s (dropmessagestest)", peerID, msg.Command())
		return moreWork
	}

	outcome := h.Dispatch.Dispatch(peerID, msg)
	if !outcome.OK {
		log.Debugf("peer %d: %s dispatch reported failure", peerID, msg.Command())
	}

	h.Coord.Lock()
	if p, ok := h.Coord.Peers[peerID]; ok {
		if h.Dispatch.ProcessGetData(p) {
			p.ShouldDisconnect = true
		}
		if outcome.Disconnect {
			p.ShouldDisconnect = true
		}
	}
	h.Coord.Unlock()

	return moreWork
}

// SendMessages runs one send-scheduler tick for peerID and drains its
// immediate-reply outbound queue (spec.md §6 `send_messages(peer)`). The
// connection layer is responsible for actually writing outbound to the
// wire and for calling FinalizeNode when disconnect is true.
func (h *MessageHandler) SendMessages(peerID uint64) (outbound []wire.Message, disconnect bool) {
	disconnect, _ = h.Schedule.Tick(peerID)

	h.Coord.Lock()
	if p, ok := h.Coord.Peers[peerID]; ok {
		outbound = p.Outbound
		p.Outbound = nil
		if p.ShouldDisconnect {
			disconnect = true
		}
	}
	h.Coord.Unlock()

	return outbound, disconnect
}

// AttachedPeerCount reports how many peers are currently attached, mostly
// useful for tests and diagnostics.
func (h *MessageHandler) AttachedPeerCount() int {
	h.Coord.Lock()
	defer h.Coord.Unlock()
	return h.Coord.PeerCount()
}
