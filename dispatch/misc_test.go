package dispatch

import (
	"testing"
	"time"

	"github.com/johnlito123/xuez-1/wire"
)

func TestOnPingRepliesWithPong(t *testing.T) {
	d, coord := newTestDispatcher(newFakeMempool())
	attachPeer(coord, 1, true)

	outcome := d.Dispatch(1, &wire.MsgPing{Nonce: 42})
	if !outcome.OK {
		t.Fatalf("expected ping handled, got %+v", outcome)
	}
	p := coord.Peers[1]
	if len(p.Outbound) != 1 {
		t.Fatalf("expected one pong sent, got %d", len(p.Outbound))
	}
	pong, ok := p.Outbound[0].(*wire.MsgPong)
	if !ok || pong.Nonce != 42 {
		t.Fatalf("expected pong echoing nonce 42, got %+v", p.Outbound[0])
	}
}

func TestOnPongUpdatesRTTForMatchingNonce(t *testing.T) {
	d, coord := newTestDispatcher(newFakeMempool())
	p := attachPeer(coord, 1, true)

	p.PingNonceSent = 7
	p.PingStartedAt = time.Now().Add(-50 * time.Millisecond)

	d.Dispatch(1, &wire.MsgPong{Nonce: 7})
	if p.PingNonceSent != 0 {
		t.Fatal("expected ping_nonce_sent cleared after a matching pong")
	}
	if p.PingRTT < 40*time.Millisecond {
		t.Fatalf("expected rtt measured around 50ms, got %s", p.PingRTT)
	}
	if p.MinPingRTT != p.PingRTT {
		t.Fatalf("expected min_ping_rtt updated to the new sample, got %s", p.MinPingRTT)
	}
}

func TestOnPongMismatchedNonceIsTolerated(t *testing.T) {
	d, coord := newTestDispatcher(newFakeMempool())
	p := attachPeer(coord, 1, true)

	p.PingNonceSent = 7
	p.PingStartedAt = time.Now()

	outcome := d.Dispatch(1, &wire.MsgPong{Nonce: 999})
	if !outcome.OK {
		t.Fatalf("expected a mismatched pong to be tolerated, got %+v", outcome)
	}
	if p.PingNonceSent != 7 {
		t.Fatal("expected outstanding ping_nonce_sent left untouched on mismatch")
	}
}

func TestOnFilterLoadRequiresBloomService(t *testing.T) {
	d, coord := newTestDispatcher(newFakeMempool())
	p := attachPeer(coord, 1, true)
	p.Version = wire.ProtocolVersion

	outcome := d.Dispatch(1, &wire.MsgFilterLoad{NumHashFuncs: 4})
	if outcome.OK {
		t.Fatal("expected filterload without bloom service to fail")
	}
	if p.MisbehaviorScore != scoreFilterNoBloomService {
		t.Fatalf("expected score %d, got %d", scoreFilterNoBloomService, p.MisbehaviorScore)
	}
}

func TestOnFilterLoadSucceedsWithBloomService(t *testing.T) {
	d, coord := newTestDispatcher(newFakeMempool())
	p := attachPeer(coord, 1, true)
	p.Services = wire.SFNodeBloom

	outcome := d.Dispatch(1, &wire.MsgFilterLoad{NumHashFuncs: 4})
	if !outcome.OK {
		t.Fatalf("expected filterload to succeed, got %+v", outcome)
	}
	if !p.TxFilter.IsLoaded() {
		t.Fatal("expected tx_filter loaded after filterload")
	}
}

func TestOnFilterAddAndClearRoundTrip(t *testing.T) {
	d, coord := newTestDispatcher(newFakeMempool())
	p := attachPeer(coord, 1, true)
	p.Services = wire.SFNodeBloom

	d.Dispatch(1, &wire.MsgFilterLoad{NumHashFuncs: 4})
	outcome := d.Dispatch(1, &wire.MsgFilterAdd{Data: []byte("some-element")})
	if !outcome.OK {
		t.Fatalf("expected filteradd to succeed, got %+v", outcome)
	}
	if !p.TxFilter.Matches([][]byte{[]byte("some-element")}) {
		t.Fatal("expected the added element to match")
	}

	d.Dispatch(1, &wire.MsgFilterClear{})
	if p.TxFilter.IsLoaded() {
		t.Fatal("expected tx_filter cleared")
	}
}
