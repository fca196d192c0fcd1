package dispatch

import (
	"time"

	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/wire"
)

func (d *Dispatcher) onPing(p *peerstate.State, m *wire.MsgPing) Outcome {
	p.Send(&wire.MsgPong{Nonce: m.Nonce})
	return Outcome{OK: true}
}

func (d *Dispatcher) onPong(p *peerstate.State, m *wire.MsgPong) Outcome {
	if m.Nonce == 0 {
		log.Debugf("peer %d: pong with zero nonce", p.ID)
		p.PingNonceSent = 0
		return Outcome{OK: true}
	}
	if p.PingNonceSent == 0 {
		// No ping outstanding: tolerate a stray pong, nothing to update.
		return Outcome{OK: true}
	}
	if m.Nonce != p.PingNonceSent {
		// Mismatch while a ping is outstanding is tolerated (overlap).
		log.Debugf("peer %d: pong nonce mismatch, tolerating overlap", p.ID)
		return Outcome{OK: true}
	}

	p.PingRTT = time.Since(p.PingStartedAt)
	if p.PingRTT < p.MinPingRTT {
		p.MinPingRTT = p.PingRTT
	}
	p.PingNonceSent = 0
	return Outcome{OK: true}
}

// hasBloom gates FILTERLOAD/FILTERADD/FILTERCLEAR on the peer having
// advertised SFNodeBloom in its VERSION (spec.md §4.1).
func hasBloom(p *peerstate.State) bool {
	return p.Services.HasFlag(wire.SFNodeBloom)
}

func (d *Dispatcher) onFilterLoad(p *peerstate.State, m *wire.MsgFilterLoad) Outcome {
	if !hasBloom(p) {
		return d.rejectNoBloom(p)
	}
	p.FilterMtx.Lock()
	defer p.FilterMtx.Unlock()
	if err := p.TxFilter.Load(m.NumHashFuncs); err != nil {
		d.misbehave(p, scoreFilterNoBloomService, "oversized filterload")
		return Outcome{OK: false}
	}
	return Outcome{OK: true}
}

func (d *Dispatcher) onFilterAdd(p *peerstate.State, m *wire.MsgFilterAdd) Outcome {
	if !hasBloom(p) {
		return d.rejectNoBloom(p)
	}
	p.FilterMtx.Lock()
	defer p.FilterMtx.Unlock()
	if err := p.TxFilter.Add(m.Data); err != nil {
		d.misbehave(p, scoreFilterNoBloomService, "oversized filteradd")
		return Outcome{OK: false}
	}
	return Outcome{OK: true}
}

func (d *Dispatcher) onFilterClear(p *peerstate.State, _ *wire.MsgFilterClear) Outcome {
	if !hasBloom(p) {
		return d.rejectNoBloom(p)
	}
	p.FilterMtx.Lock()
	defer p.FilterMtx.Unlock()
	p.TxFilter.Clear()
	return Outcome{OK: true}
}

// rejectNoBloom implements spec.md §4.1's "reject if peer did not advertise
// BLOOM service (misbehavior +100 or disconnect depending on version)": a
// peer at or above NoBloomVersion knows better and is scored; an older peer
// predates the service-flag convention and is just disconnected, with no
// misbehavior score attached.
func (d *Dispatcher) rejectNoBloom(p *peerstate.State) Outcome {
	if p.Version >= wire.NoBloomVersion {
		d.misbehave(p, scoreFilterNoBloomService, "filter command without BLOOM service")
		return Outcome{OK: false}
	}
	return Outcome{OK: false, Disconnect: true}
}
