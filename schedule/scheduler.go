// Package schedule implements the Send Scheduler of spec.md §4.5: the
// periodic per-peer pass that paces outgoing ADDR/INV traffic, drives
// header-first sync, and enforces the stall/timeout disconnect thresholds.
//
// Grounded on messages.cpp's SendMessages (ping cadence, addr trickling,
// header-announcement-vs-INV fallback, stall/timeout thresholds) and
// peer/peer.go's pingInterval/trickleTimeout constants, reused where
// spec.md doesn't override them.
package schedule

import (
	"crypto/sha256"
	"math/rand"
	"time"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/config"
	"github.com/johnlito123/xuez-1/logs"
	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/planner"
	"github.com/johnlito123/xuez-1/wire"
)

var log, _ = logs.Get(logs.SubsystemTags.SCHD)

// Poisson-spaced broadcast intervals, named after messages.cpp's
// AVG_LOCAL_ADDRESS_BROADCAST_INTERVAL / INVENTORY_BROADCAST_INTERVAL
// (spec.md §4.5 steps 4, 9: "Poisson-spaced"). Step 5's accumulated-addr
// send is only dedup+chunked, not separately paced (spec.md §4.5 step 5).
const (
	avgLocalAddrBroadcastInterval   = 24 * time.Hour
	avgInvBroadcastIntervalInbound  = 5 * time.Second
	avgInvBroadcastIntervalOutbound = avgInvBroadcastIntervalInbound / 2

	maxAddrChunk = 1000
	maxAskChunk  = 1000
)

// Deps bundles the scheduler's external collaborators. Address and wallet
// selection depend on the out-of-scope connection layer (spec.md §1); both
// are reached only through these seams.
type Deps struct {
	Chain chainquery.ChainQuerier

	// LocalAddress returns this node's best externally reachable address to
	// advertise to p, or nil if none is known yet (spec.md §4.5 step 4).
	LocalAddress func(p *peerstate.State) *wire.NetAddress

	// RebroadcastWallet is the wallet rebroadcast hook of spec.md §4.5 step
	// 7; nil disables it.
	RebroadcastWallet func()
}

// Scheduler runs spec.md §4.5's per-peer send tick.
type Scheduler struct {
	Cfg   *config.Config
	Coord *peerstate.Coordinator
	Deps  Deps
}

// New returns a Scheduler wired to its collaborators.
func New(cfg *config.Config, coord *peerstate.Coordinator, deps Deps) *Scheduler {
	return &Scheduler{Cfg: cfg, Coord: coord, Deps: deps}
}

// Tick runs one pass of spec.md §4.5 for peerID. locked reports whether the
// chain lock was actually acquired this pass; when false the caller should
// simply retry peerID on its next scheduling pass (step 2: "exit if
// contended"), matching spec.md §5's yield-on-contention rule. disconnect
// reports whether the peer crossed a disconnect condition this tick.
func (s *Scheduler) Tick(peerID uint64) (disconnect bool, locked bool) {
	if !s.Coord.TryLock() {
		return false, false
	}
	p, exists := s.Coord.Peers[peerID]
	s.Coord.Unlock()
	if !exists {
		return false, true
	}

	// Step 1: ping fields sit outside the chain lock (spec.md §5 "Shared
	// state": handshake/ping are explicitly excluded).
	s.maybePing(p)

	// Step 2: acquire the chain lock; exit (try again next pass) if
	// contended.
	if !s.Coord.TryLock() {
		return false, false
	}
	defer s.Coord.Unlock()

	// Step 3: flush rejects; if banned, exit.
	for _, r := range p.FlushRejects() {
		p.Send(&wire.MsgReject{Code: r.Code, Reason: r.Reason, Hash: r.Hash})
	}
	if p.ShouldDisconnect {
		if p.Whitelisted {
			log.Infof("peer %d: should_disconnect set but whitelisted, exempting", p.ID)
			return false, true
		}
		return true, true
	}

	now := time.Now()
	cq := s.Deps.Chain

	s.advertiseLocalAddr(p, now)
	s.flushAddrs(p)
	s.maybeStartSync(p, now)
	if s.Deps.RebroadcastWallet != nil && !cq.IsInitialBlockDownload() && !cq.IsImporting() && !cq.IsReindexing() {
		s.Deps.RebroadcastWallet()
	}
	s.announceHeadersOrFallback(p, cq)
	s.sendInventory(p, now)

	if s.stallTimedOut(p, now) {
		return true, true
	}
	if s.downloadTimedOut(p, now) {
		return true, true
	}
	s.requestBlocks(p, cq, now)
	s.drainAskFor(p, now)

	return false, true
}

// maybePing implements spec.md §4.5 step 1.
func (s *Scheduler) maybePing(p *peerstate.State) {
	now := time.Now()
	if !p.PingQueued && p.PingNonceSent == 0 && now.Sub(p.PingStartedAt) < wire.PingInterval {
		return
	}
	if p.PingNonceSent != 0 {
		return // ping already outstanding
	}
	p.PingQueued = false
	p.PingNonceSent = uint64(rand.Int63())
	p.PingStartedAt = now
	p.Send(&wire.MsgPing{Nonce: p.PingNonceSent})
}

// advertiseLocalAddr implements spec.md §4.5 step 4.
func (s *Scheduler) advertiseLocalAddr(p *peerstate.State, now time.Time) {
	cq := s.Deps.Chain
	if cq.IsInitialBlockDownload() {
		return
	}
	if now.Before(p.NextLocalAddrSend) {
		return
	}
	p.NextLocalAddrSend = poissonNextSend(now, avgLocalAddrBroadcastInterval)
	if s.Deps.LocalAddress == nil {
		return
	}
	if addr := s.Deps.LocalAddress(p); addr != nil {
		p.AddrsToSend = append(p.AddrsToSend, addr)
	}
}

// flushAddrs implements spec.md §4.5 step 5: dedup via known_addrs, chunked
// at 1000.
func (s *Scheduler) flushAddrs(p *peerstate.State) {
	if len(p.AddrsToSend) == 0 {
		return
	}
	pending := p.AddrsToSend
	p.AddrsToSend = nil

	var chunk []*wire.NetAddress
	for _, addr := range pending {
		if p.KnownAddrs.Contains(addrKey(addr)) {
			continue
		}
		p.KnownAddrs.Add(addrKey(addr))
		chunk = append(chunk, addr)
		if len(chunk) == maxAddrChunk {
			p.Send(&wire.MsgAddr{AddrList: chunk})
			chunk = nil
		}
	}
	if len(chunk) > 0 {
		p.Send(&wire.MsgAddr{AddrList: chunk})
	}
}

// addrKey derives the chainhash.Hash known_addrs dedups on, since
// filters.InventoryFilter is keyed by hash rather than by raw address
// bytes.
func addrKey(addr *wire.NetAddress) *chainhash.Hash {
	buf := append(append([]byte{}, addr.IP...), byte(addr.Port), byte(addr.Port>>8))
	digest := sha256.Sum256(buf)
	h := chainhash.Hash(digest)
	return &h
}

// maybeStartSync implements spec.md §4.2's sync_started transition,
// invoked from step 6: the first eligible tick starts header-first sync.
func (s *Scheduler) maybeStartSync(p *peerstate.State, now time.Time) {
	if p.SyncStarted || p.IsThinClient {
		return
	}
	cq := s.Deps.Chain
	if cq.IsImporting() || cq.IsReindexing() {
		return
	}
	best := cq.BestHeader()
	headerFresh := best != nil && now.Sub(best.Timestamp) < 24*time.Hour
	if !((s.Coord.SyncStartedCount == 0 && p.PreferredDownload) || headerFresh) {
		return
	}

	s.Coord.SetSyncStarted(p, true)

	// Start one below best-header to guarantee a non-empty reply (spec.md
	// §4.5 step 6).
	var locator []*chainhash.Hash
	if best != nil {
		start := best
		if prev := cq.Ancestor(best, best.Height-1); prev != nil {
			start = prev
		}
		hash := start.Hash
		locator = []*chainhash.Hash{&hash}
	}
	p.Send(&wire.MsgGetHeaders{BlockLocatorHashes: locator})
}

// announceHeadersOrFallback implements spec.md §4.5 step 8.
func (s *Scheduler) announceHeadersOrFallback(p *peerstate.State, cq chainquery.ChainQuerier) {
	if len(p.BlockHashesToAnnounce) == 0 {
		return
	}
	pending := p.BlockHashesToAnnounce
	p.BlockHashesToAnnounce = nil

	var validated []*chainquery.BlockIndex
	continuous := true
	for _, hash := range pending {
		idx, ok := cq.IndexByHash(hash)
		if !ok || !cq.ActiveChainContains(idx) {
			continuous = false
			break
		}
		validated = append(validated, idx)
	}

	if continuous && p.PreferHeaders && len(validated) > 0 {
		headers := make([]*wire.BlockHeader, 0, len(validated))
		for _, idx := range validated {
			headers = append(headers, &wire.BlockHeader{Hash: idx.Hash, Timestamp: idx.Timestamp})
		}
		p.Send(&wire.MsgHeaders{Headers: headers})
		p.BestHeaderSent = validated[len(validated)-1]
		return
	}

	// Fallback: INV(block, tip).
	if tip := cq.ActiveTip(); tip != nil {
		p.Send(&wire.MsgInv{InvList: []*wire.InvVect{wire.NewInvVect(wire.InvTypeBlock, &tip.Hash)}})
	}
}

// sendInventory implements spec.md §4.5 step 9.
func (s *Scheduler) sendInventory(p *peerstate.State, now time.Time) {
	var invs []*wire.InvVect
	for _, h := range p.TxToSend {
		hash := h
		invs = append(invs, wire.NewInvVect(wire.InvTypeTx, &hash))
	}
	for _, h := range p.STXToSend {
		hash := h
		invs = append(invs, wire.NewInvVect(wire.InvTypeSTX, &hash))
	}
	p.TxToSend = nil
	p.STXToSend = nil

	if len(invs) > 0 {
		interval := avgInvBroadcastIntervalOutbound
		if p.Inbound {
			interval = avgInvBroadcastIntervalInbound
		}
		if now.Before(p.NextInvSend) {
			// Not yet due: re-queue for next tick rather than dropping.
			for _, inv := range invs {
				h := inv.Hash
				if inv.Type == wire.InvTypeSTX {
					p.STXToSend = append(p.STXToSend, h)
				} else {
					p.TxToSend = append(p.TxToSend, h)
				}
			}
			return
		}
		p.NextInvSend = poissonNextSend(now, interval)
	}

	var chunk []*wire.InvVect
	send := func(inv *wire.InvVect) {
		if p.KnownInv.Contains(&inv.Hash) {
			return
		}
		p.KnownInv.Add(&inv.Hash)
		chunk = append(chunk, inv)
		if len(chunk) == wire.MaxInvSize {
			p.Send(&wire.MsgInv{InvList: chunk})
			chunk = nil
		}
	}
	for _, inv := range invs {
		send(inv)
	}
	if len(chunk) > 0 {
		p.Send(&wire.MsgInv{InvList: chunk})
	}
}

// stallTimedOut implements spec.md §4.5 step 10.
func (s *Scheduler) stallTimedOut(p *peerstate.State, now time.Time) bool {
	if p.StallingSince.IsZero() {
		return false
	}
	if p.StallingSince.Before(now.Add(-wire.BlockStallingTimeout)) {
		log.Warnf("peer %d: stalling since %s, disconnecting", p.ID, p.StallingSince)
		return true
	}
	return false
}

// downloadTimedOut implements spec.md §4.5 step 11.
func (s *Scheduler) downloadTimedOut(p *peerstate.State, now time.Time) bool {
	if p.DownloadingSince.IsZero() || len(p.InFlight) == 0 {
		return false
	}
	others := s.Coord.PeersWithValidatedDownloads
	if p.CountWithValidHeaders > 0 {
		others--
	}
	if others < 0 {
		others = 0
	}
	deadline := p.DownloadingSince.Add(wire.BlockDownloadTimeoutBase + time.Duration(others)*wire.BlockDownloadTimeoutPerPeer)
	if now.After(deadline) {
		log.Warnf("peer %d: block download timed out (others=%d)", p.ID, others)
		return true
	}
	return false
}

// requestBlocks implements spec.md §4.5 step 12.
func (s *Scheduler) requestBlocks(p *peerstate.State, cq chainquery.ChainQuerier, now time.Time) {
	if p.IsThinClient {
		return
	}
	if !(p.PreferredDownload || !cq.IsInitialBlockDownload()) {
		return
	}
	deficit := wire.MaxBlocksInTransitPeer - p.InFlightCount()
	if deficit <= 0 {
		return
	}

	result := planner.FindNextBlocksToDownload(cq, p, s.Coord.InFlight, deficit)
	if result.ChainRejected {
		p.ShouldDisconnect = true
		return
	}

	if len(result.Blocks) == 0 {
		if result.HasStaller {
			if staller, ok := s.Coord.Peers[result.StallerID]; ok && staller.StallingSince.IsZero() {
				staller.StallingSince = now
			}
		}
		return
	}

	var getData []*wire.InvVect
	for _, idx := range result.Blocks {
		if !s.Coord.InFlight.TryMark(idx.Hash, p.ID) {
			continue
		}
		p.AddInFlight(&peerstate.BlockInFlight{
			Hash:             idx.Hash,
			Index:            idx,
			ValidatedHeaders: true,
			RequestedAt:      now,
		})
		hash := idx.Hash
		getData = append(getData, wire.NewInvVect(wire.InvTypeBlock, &hash))
	}
	if len(getData) > 0 {
		p.Send(&wire.MsgGetData{InvList: getData})
	}
}

// drainAskFor implements spec.md §4.5 step 13.
func (s *Scheduler) drainAskFor(p *peerstate.State, now time.Time) {
	due := p.AskFor.Due(now)
	if len(due) == 0 {
		return
	}
	var chunk []*wire.InvVect
	for i := range due {
		inv := due[i]
		if _, known := p.ServiceDataKnown[inv.Hash]; known {
			continue
		}
		chunk = append(chunk, &inv)
		if len(chunk) == maxAskChunk {
			p.Send(&wire.MsgGetData{InvList: chunk})
			chunk = nil
		}
	}
	if len(chunk) > 0 {
		p.Send(&wire.MsgGetData{InvList: chunk})
	}
}

// poissonNextSend returns the next Poisson-process event time with mean
// interval avg, matching messages.cpp's PoissonNextSend: an exponentially
// distributed inter-arrival time keeps the aggregate broadcast schedule
// across many peers from synchronizing into an observable, fingerprintable
// pattern.
func poissonNextSend(now time.Time, avg time.Duration) time.Time {
	return now.Add(time.Duration(rand.ExpFloat64() * float64(avg)))
}
