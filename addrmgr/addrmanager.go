// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/johnlito123/xuez-1/logs"
	"github.com/johnlito123/xuez-1/wire"
)

var log, _ = logs.Get(logs.SubsystemTags.AMGR)

// needAddressThreshold is the number of addresses under which the manager
// asks peers for more, matching the "address book is small (<1000)" rule of
// spec.md §4.1 VERSION handling.
const needAddressThreshold = 1000

// AddrManager keeps track of addresses received from ADDR messages and
// vets them via KnownAddress.chance()/isBad() before handing them back out
// as connection candidates.
type AddrManager struct {
	mtx   sync.Mutex
	addrs map[string]*KnownAddress
	nTried int
}

// New returns an empty AddrManager.
func New() *AddrManager {
	return &AddrManager{addrs: make(map[string]*KnownAddress)}
}

// NumAddresses returns the number of addresses known to the address manager.
func (a *AddrManager) NumAddresses() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return len(a.addrs)
}

// NeedMoreAddresses reports whether the address manager's book is smaller
// than the threshold at which an outbound peer should be asked for more
// addresses (spec.md §4.1 VERSION: "request addrs when address book is
// small (<1000)").
func (a *AddrManager) NeedMoreAddresses() bool {
	return a.NumAddresses() < needAddressThreshold
}

// AddAddress records a newly learned address, sourced from srcAddr (the
// ADDR message's originating peer), if it isn't already known.
func (a *AddrManager) AddAddress(na, srcAddr *wire.NetAddress) {
	if na == nil || !IsRoutable(na) {
		return
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()

	key := na.Key()
	if ka, ok := a.addrs[key]; ok {
		// Update timestamp if addr is newer.
		if na.Timestamp.After(ka.na.Timestamp) {
			ka.na.Timestamp = na.Timestamp
		}
		return
	}
	a.addrs[key] = &KnownAddress{na: na, srcAddr: srcAddr}
}

// AddAddresses records every routable address in addrs.
func (a *AddrManager) AddAddresses(addrs []*wire.NetAddress, srcAddr *wire.NetAddress) {
	for _, na := range addrs {
		a.AddAddress(na, srcAddr)
	}
}

// Good marks the address as having completed a successful handshake,
// resetting its failure count (spec.md §4.1 VERSION: "mark address as
// good").
func (a *AddrManager) Good(na *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	ka, ok := a.addrs[na.Key()]
	if !ok {
		a.addrs[na.Key()] = &KnownAddress{na: na, tried: true, lastsuccess: time.Now()}
		return
	}
	if !ka.tried {
		a.nTried++
	}
	ka.tried = true
	ka.attempts = 0
	ka.lastsuccess = time.Now()
	ka.lastattempt = time.Now()
}

// Attempt records a failed connection attempt to na.
func (a *AddrManager) Attempt(na *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	ka, ok := a.addrs[na.Key()]
	if !ok {
		return
	}
	ka.lastattempt = time.Now()
	ka.attempts++
}

// GetAddress returns a random non-bad address weighted by chance(), or nil
// if the address book is empty.
func (a *AddrManager) GetAddress() *wire.NetAddress {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if len(a.addrs) == 0 {
		return nil
	}

	var best *KnownAddress
	bestChance := -1.0
	// Sample up to a handful of candidates and keep the best chance(),
	// which is cheap and avoids biasing towards map iteration order.
	tries := 0
	for _, ka := range a.addrs {
		if ka.isBad() {
			continue
		}
		c := ka.chance() * rand.Float64()
		if c > bestChance {
			bestChance = c
			best = ka
		}
		tries++
		if tries >= 32 {
			break
		}
	}
	if best == nil {
		return nil
	}
	return best.na
}

// RemoveBad deletes every address currently considered bad (isBad()),
// returning the number removed.
func (a *AddrManager) RemoveBad() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	removed := 0
	for key, ka := range a.addrs {
		if ka.isBad() {
			delete(a.addrs, key)
			removed++
		}
	}
	return removed
}

// IsRoutable reports whether na's IP is a publicly routable address
// (spec.md §4.1 ADDR: "For each routable addr passing service filter...").
func IsRoutable(na *wire.NetAddress) bool {
	if na == nil || na.IP == nil {
		return false
	}
	ip := na.IP
	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsMulticast() {
		return false
	}
	if ip4 := ip.To4(); ip4 != nil {
		return !isRFC1918(ip4) && !ip4.IsLinkLocalUnicast()
	}
	return !ip.IsLinkLocalUnicast()
}

func isRFC1918(ip4 net.IP) bool {
	return ip4[0] == 10 ||
		(ip4[0] == 172 && ip4[1]&0xf0 == 16) ||
		(ip4[0] == 192 && ip4[1] == 168)
}
