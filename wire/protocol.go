// Package wire defines the typed, already-parsed peer messages this module's
// dispatcher and scheduler operate on. Wire framing (magic/command/checksum
// bytes) is explicitly out of scope (spec.md §1) — only the parsed struct
// shapes live here, named after the command set of spec.md §6.
package wire

import "time"

// ProtocolVersion is the latest protocol version this node speaks.
const ProtocolVersion uint32 = 70016

// MinProtocolVersion is the lowest protocol version a connected peer may
// negotiate; VERSION messages below this are rejected as obsolete.
const MinProtocolVersion uint32 = 70002

// NoBloomVersion is the protocol version below which a peer is assumed to
// predate BIP111 and is disconnected outright for sending a bloom-filter
// command without advertising SFNodeBloom, rather than merely scored.
const NoBloomVersion uint32 = 70011

// SendHeadersVersion is the protocol version at or above which a peer is
// offered header announcements (SENDHEADERS) instead of relying on the
// INV-based block announcement fallback.
const SendHeadersVersion uint32 = 70012

// ServiceFlag represents the services a peer advertises in its VERSION
// message.
type ServiceFlag uint64

const (
	// SFNodeNetwork indicates the peer is a full node that can serve block
	// and transaction data.
	SFNodeNetwork ServiceFlag = 1 << iota

	// SFNodeBloom indicates the peer supports FILTERLOAD/FILTERADD/
	// FILTERCLEAR and bloom-filtered merkle blocks.
	SFNodeBloom

	// SFNodeSTX indicates the peer supports service transactions.
	SFNodeSTX
)

// HasFlag reports whether the given flag is set.
func (f ServiceFlag) HasFlag(flag ServiceFlag) bool {
	return f&flag == flag
}

// Wire protocol limits and timing constants (spec.md §6).
const (
	MaxInvSize              = 50000
	MaxHeadersResults       = 2000
	MaxBlocksToAnnounce     = 8
	MaxBlocksInTransitPeer  = 16
	BlockDownloadWindow     = 1024
	BlockStallingTimeout    = 2 * time.Second
	BlockDownloadTimeoutBase     = 500 * time.Second
	BlockDownloadTimeoutPerPeer  = 100 * time.Second
	PingInterval            = 2 * time.Minute
	MaxSubVersionLength     = 256
	MaxRejectMessageLength  = 111
	MaxAddrPerMsg           = 1000

	// TargetSpacing is the expected inter-block interval, used by
	// CanDirectFetch (spec.md §4.1 INV/HEADERS: "within 20× target
	// spacing of now").
	TargetSpacing = 150 * time.Second
)

// RejectCode identifies the reason a REJECT message was sent. Widened past
// the wire-level single byte to also hold the purely-local RejectInternal
// sentinel below.
type RejectCode uint16

// Reject codes, modeled on the Bitcoin-family wire protocol.
const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43

	// RejectInternal is never sent over the wire; rejections with a code at
	// or above it are purely local (see spec.md §4.1 BLOCK handling: "On
	// rejection with code < REJECT_INTERNAL: reply reject").
	RejectInternal RejectCode = 0x100
)
