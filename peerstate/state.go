// Package peerstate implements the PeerState record of spec.md §3 and the
// global structures it participates in: the in-flight block registry, the
// block-source map, and the single chain coordination lock (spec.md §5).
//
// Grounded on peer/peer.go's StatsSnapshot/flags bundling, generalized here
// to the richer field set spec.md §3 names; the single coarse lock follows
// spec.md §9's redesign note ("keep a single shared structure... behind one
// lock") rather than the source's many hand-annotated sub-locks.
package peerstate

import (
	"sync"
	"time"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/filters"
	"github.com/johnlito123/xuez-1/wire"
)

// BlockInFlight is one entry in a peer's in-flight list (spec.md §3
// BlockInFlight): a requested block, its chain index once known, and whether
// its headers were already validated when requested.
type BlockInFlight struct {
	Hash            chainhash.Hash
	Index           *chainquery.BlockIndex // nil until known
	ValidatedHeaders bool
	RequestedAt     time.Time
}

// QueuedReject is a pending REJECT reply awaiting flush by the scheduler
// (spec.md §3 QueuedReject).
type QueuedReject struct {
	Code   wire.RejectCode
	Reason string // already capped to wire.MaxRejectMessageLength
	Hash   chainhash.Hash
}

// State is one peer's mutable record (spec.md §3 PeerState). Every field
// listed under "sync", "misbehavior", "in-flight" and the shared parts of
// "gossip" is mutated only while the owning Coordinator's chain lock is
// held (spec.md §5); FilterMtx and SubverMtx are the narrower per-peer
// sub-locks spec.md §5 calls out explicitly.
type State struct {
	// --- identity: immutable after construction ---
	ID          uint64
	Addr        string
	Name        string
	Inbound     bool
	Whitelisted bool

	// IsThinClient marks an SPV-style peer that never participates in
	// block download (spec.md §4.5 step 12: "if not a thin client").
	IsThinClient bool

	// NetAddr is the wire-level address of this peer, when known (set by
	// the connection layer at attach time), used to feed the address
	// manager on a successful handshake.
	NetAddr *wire.NetAddress

	// --- handshake ---
	Version            uint32
	Services           wire.ServiceFlag
	SendVersion        uint32
	VerackReceived     bool
	CurrentlyConnected bool
	SuccessfullyConnected bool
	DisableRelayTx     bool
	FeelerConn         bool
	GotVersionAt       time.Time

	SubverMtx sync.Mutex
	UserAgent string

	// --- misbehavior ---
	MisbehaviorScore int
	ShouldDisconnect bool
	bannedLogged     bool // true once "BAN THRESHOLD EXCEEDED" has fired

	// --- sync ---
	SyncStarted         bool
	BestKnownBlock      *chainquery.BlockIndex
	LastCommonBlock     *chainquery.BlockIndex
	LastUnknownBlockHash *chainhash.Hash
	BestHeaderSent      *chainquery.BlockIndex
	PreferHeaders       bool
	PreferredDownload   bool
	StartHeight         int32

	// --- in-flight ---
	InFlight            []*BlockInFlight
	CountWithValidHeaders int
	DownloadingSince    time.Time
	StallingSince       time.Time

	// --- gossip ---
	FilterMtx        sync.Mutex
	TxFilter         *filters.PeerTxFilter
	KnownAddrs       *filters.InventoryFilter
	KnownInv         *filters.InventoryFilter
	AddrsToSend      []*wire.NetAddress
	TxToSend         []chainhash.Hash
	STXToSend        []chainhash.Hash
	BlockHashesToAnnounce []chainhash.Hash
	AskFor           *AskForQueue
	RecvGetData      []*wire.InvVect
	GetAddrServed    bool
	SendHeadersMode  bool
	OneShot          bool

	// NextLocalAddrSend and NextInvSend are the Poisson-spaced deadlines of
	// spec.md §4.5 steps 4/9, zero until first primed. Step 5's accumulated
	// addr flush is dedup+chunk only, not separately paced.
	NextLocalAddrSend time.Time
	NextInvSend       time.Time

	// --- ping ---
	PingQueued    bool
	PingNonceSent uint64
	PingStartedAt time.Time
	PingRTT       time.Duration
	MinPingRTT    time.Duration

	// --- pending rejects ---
	PendingRejects []QueuedReject

	// Outbound queues immediate-reply protocol messages produced by the
	// dispatcher (VERACK, GETHEADERS, SENDHEADERS, NOTFOUND, ...) for the
	// connection layer to drain, distinct from the coalesced gossip queues
	// above that the scheduler paces on its own tick.
	Outbound []wire.Message

	// ServiceDataKnown records service-transaction hashes already served
	// or known to this peer (spec.md §4.4 MSG_STX: "record in peer's
	// service_data_known set").
	ServiceDataKnown map[chainhash.Hash]struct{}

	// ContinueHash is the GETBLOCKS resume point a peer should chain its
	// next request from (spec.md §4.1 GETBLOCKS, §4.4).
	ContinueHash *chainhash.Hash
}

// New returns a freshly attached PeerState (spec.md §3 lifecycle: "created
// at connect").
func New(id uint64, addr string, inbound, whitelisted bool) *State {
	return &State{
		ID:          id,
		Addr:        addr,
		Inbound:     inbound,
		Whitelisted: whitelisted,
		KnownAddrs:  filters.NewInventoryFilter(),
		KnownInv:    filters.NewInventoryFilter(),
		TxFilter:    filters.NewPeerTxFilter(),
		AskFor:      NewAskForQueue(),
		MinPingRTT:  time.Duration(1<<63 - 1),
		ServiceDataKnown: make(map[chainhash.Hash]struct{}),
	}
}

// Send appends msg to this peer's immediate-reply outbound queue.
func (s *State) Send(msg wire.Message) {
	s.Outbound = append(s.Outbound, msg)
}

// Misbehaving adds delta to the peer's misbehavior score and reports
// whether the 100-point threshold was freshly crossed by this call (spec.md
// §8: "crossing 100 sets should_disconnect once; further deltas do not
// re-log"). The dispatcher never decreases the score (spec.md §8).
func (s *State) Misbehaving(delta int, banThreshold int) (crossed bool) {
	if delta <= 0 {
		return false
	}
	s.MisbehaviorScore += delta
	if s.MisbehaviorScore >= banThreshold {
		s.ShouldDisconnect = true
		if !s.bannedLogged {
			s.bannedLogged = true
			return true
		}
	}
	return false
}

// QueueReject appends a reject reply for the scheduler to flush.
func (s *State) QueueReject(code wire.RejectCode, reason string, hash chainhash.Hash) {
	if len(reason) > wire.MaxRejectMessageLength {
		reason = reason[:wire.MaxRejectMessageLength]
	}
	s.PendingRejects = append(s.PendingRejects, QueuedReject{Code: code, Reason: reason, Hash: hash})
}

// FlushRejects returns and clears the pending reject queue.
func (s *State) FlushRejects() []QueuedReject {
	pending := s.PendingRejects
	s.PendingRejects = nil
	return pending
}

// AddInFlight appends a new in-flight entry and keeps CountWithValidHeaders
// consistent with spec.md §3's invariant ("count_with_valid_headers ≤
// in-flight list length").
func (s *State) AddInFlight(b *BlockInFlight) {
	s.InFlight = append(s.InFlight, b)
	if b.ValidatedHeaders {
		s.CountWithValidHeaders++
	}
	if len(s.InFlight) == 1 {
		s.DownloadingSince = time.Now()
	}
}

// RemoveInFlight removes the in-flight entry for hash, if present, keeping
// CountWithValidHeaders consistent. Returns the removed entry, if any.
func (s *State) RemoveInFlight(hash chainhash.Hash) *BlockInFlight {
	for i, b := range s.InFlight {
		if b.Hash == hash {
			if b.ValidatedHeaders {
				s.CountWithValidHeaders--
			}
			s.InFlight = append(s.InFlight[:i], s.InFlight[i+1:]...)
			if len(s.InFlight) == 0 {
				s.StallingSince = time.Time{}
			}
			return b
		}
	}
	return nil
}

// InFlightCount returns the number of blocks currently requested from this
// peer.
func (s *State) InFlightCount() int {
	return len(s.InFlight)
}
