package dispatch

import (
	"time"

	"github.com/johnlito123/xuez-1/peerstate"
	"github.com/johnlito123/xuez-1/wire"
)

// requiredServices is the service mask a peer must advertise in its
// VERSION to be accepted (spec.md §4.1 VERSION: "If required services mask
// not satisfied").
const requiredServices = wire.SFNodeNetwork

func (d *Dispatcher) onVersion(p *peerstate.State, m *wire.MsgVersion) Outcome {
	if p.Version != 0 {
		d.misbehave(p, scoreDuplicateVersion, "duplicate version")
		p.QueueReject(wire.RejectDuplicate, "Duplicate version message", chainhashZero)
		return Outcome{OK: false}
	}

	if d.isLocalNonce(m.Nonce) {
		log.Infof("peer %d: self-connection detected via nonce, disconnecting", p.ID)
		return Outcome{OK: false, Disconnect: true}
	}

	if m.ProtocolVersion < d.Cfg.MinProtocolVersion {
		p.QueueReject(wire.RejectObsolete, "obsolete version", chainhashZero)
		return Outcome{OK: false, Disconnect: true}
	}

	if !m.Services.HasFlag(requiredServices) {
		p.QueueReject(wire.RejectNonstandard, "missing required services", chainhashZero)
		return Outcome{OK: false, Disconnect: true}
	}

	p.Version = m.ProtocolVersion
	p.Services = m.Services
	p.GotVersionAt = time.Now()
	p.DisableRelayTx = m.DisableRelayTx
	p.FeelerConn = m.FeelerConn
	p.StartHeight = m.StartHeight

	p.SubverMtx.Lock()
	ua := m.UserAgent
	if len(ua) > int(wire.MaxSubVersionLength) {
		ua = ua[:wire.MaxSubVersionLength]
	}
	p.UserAgent = sanitizeUserAgent(ua)
	p.SubverMtx.Unlock()

	p.Send(&wire.MsgVerAck{})

	if !p.Inbound {
		p.Send(&wire.MsgVersion{ProtocolVersion: wire.ProtocolVersion})
		if d.Addrs.NumAddresses() < 1000 {
			p.Send(&wire.MsgGetAddr{})
		}
	}
	if p.NetAddr != nil {
		d.Addrs.Good(p.NetAddr)
	}

	if p.FeelerConn {
		return Outcome{OK: true, Disconnect: true}
	}
	return Outcome{OK: true}
}

func (d *Dispatcher) onVerAck(p *peerstate.State, _ *wire.MsgVerAck) Outcome {
	p.VerackReceived = true
	p.SendVersion = min32(p.Version, wire.ProtocolVersion)
	if !p.Inbound {
		p.CurrentlyConnected = true
	}
	if p.Version >= wire.SendHeadersVersion {
		p.Send(&wire.MsgSendHeaders{})
		p.SendHeadersMode = true
	}
	p.SuccessfullyConnected = true
	return Outcome{OK: true}
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// sanitizeUserAgent strips control characters a malicious peer might send
// in its user-agent string.
func sanitizeUserAgent(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f {
			out = append(out, c)
		}
	}
	return string(out)
}
