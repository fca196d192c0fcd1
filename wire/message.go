package wire

import (
	"time"

	"github.com/johnlito123/xuez-1/chainhash"
)

// Message is implemented by every parsed command in spec.md §6's command
// set. Command returns the lowercase wire command name.
type Message interface {
	Command() string
}

// MsgVersion is the `version` message: the first message a peer must send.
type MsgVersion struct {
	ProtocolVersion uint32
	Services        ServiceFlag
	Timestamp       time.Time
	Nonce           uint64
	UserAgent       string
	StartHeight     int32
	DisableRelayTx  bool
	FeelerConn      bool
}

func (*MsgVersion) Command() string { return "version" }

// MsgVerAck is the `verack` message.
type MsgVerAck struct{}

func (*MsgVerAck) Command() string { return "verack" }

// MsgSendHeaders is the `sendheaders` message: a request to receive new
// block announcements as HEADERS rather than INV.
type MsgSendHeaders struct{}

func (*MsgSendHeaders) Command() string { return "sendheaders" }

// MsgAddr is the `addr` message.
type MsgAddr struct {
	AddrList []*NetAddress
}

func (*MsgAddr) Command() string { return "addr" }

// MsgGetAddr is the `getaddr` message.
type MsgGetAddr struct{}

func (*MsgGetAddr) Command() string { return "getaddr" }

// MsgInv is the `inv` message.
type MsgInv struct {
	InvList []*InvVect
}

func (*MsgInv) Command() string { return "inv" }

// NewMsgInvSizeHint returns an empty MsgInv with its backing slice
// preallocated to sizeHint entries (capped at MaxInvSize), matching the
// teacher's NewMsgInvSizeHint helper used by mempool/INV announcement paths.
func NewMsgInvSizeHint(sizeHint uint) *MsgInv {
	if sizeHint > MaxInvSize {
		sizeHint = MaxInvSize
	}
	return &MsgInv{InvList: make([]*InvVect, 0, sizeHint)}
}

// MsgGetData is the `getdata` message.
type MsgGetData struct {
	InvList []*InvVect
}

func (*MsgGetData) Command() string { return "getdata" }

// MsgNotFound is the `notfound` message.
type MsgNotFound struct {
	InvList []*InvVect
}

func (*MsgNotFound) Command() string { return "notfound" }

// MsgGetBlocks is the `getblocks` message.
type MsgGetBlocks struct {
	BlockLocatorHashes []*chainhash.Hash
	HashStop           chainhash.Hash
}

func (*MsgGetBlocks) Command() string { return "getblocks" }

// MsgGetHeaders is the `getheaders` message.
type MsgGetHeaders struct {
	BlockLocatorHashes []*chainhash.Hash
	HashStop           chainhash.Hash
}

func (*MsgGetHeaders) Command() string { return "getheaders" }

// BlockHeader is the fixed-size header fields of a block, enough for
// HEADERS-first sync. Consensus-level header validation lives outside this
// module (spec.md §1 Non-goals).
type BlockHeader struct {
	Hash       chainhash.Hash
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint64
}

// MsgHeaders is the `headers` message.
type MsgHeaders struct {
	Headers []*BlockHeader
}

func (*MsgHeaders) Command() string { return "headers" }

// Tx is a minimal transaction shape: identity plus the parent hashes its
// inputs reference. Script/amount fields are validation-engine concerns
// (out of scope, spec.md §1).
type Tx struct {
	Hash        chainhash.Hash
	InputParents []chainhash.Hash
	SizeBytes   int
}

// MsgTx is the `tx` message.
type MsgTx struct {
	Tx *Tx
}

func (*MsgTx) Command() string { return "tx" }

// ServiceTx is a minimal service-transaction shape: identity plus the hash
// of the payment transaction it references (GLOSSARY: "Service transaction
// (STX)").
type ServiceTx struct {
	Hash       chainhash.Hash
	PaymentTxHash chainhash.Hash
}

// MsgSTX is the `stx` message.
type MsgSTX struct {
	STX *ServiceTx
}

func (*MsgSTX) Command() string { return "stx" }

// Block is a minimal block shape: header plus transactions.
type Block struct {
	Header       BlockHeader
	Transactions []*Tx
}

// MsgBlock is the `block` message.
type MsgBlock struct {
	Block *Block
}

func (*MsgBlock) Command() string { return "block" }

// MsgMerkleBlock is the `merkleblock` message, served in place of a full
// block to peers with a loaded transaction filter.
type MsgMerkleBlock struct {
	Header      BlockHeader
	MatchedTxns []chainhash.Hash
}

func (*MsgMerkleBlock) Command() string { return "merkleblock" }

// MsgMemPool is the `mempool` message.
type MsgMemPool struct{}

func (*MsgMemPool) Command() string { return "mempool" }

// MsgPing is the `ping` message.
type MsgPing struct {
	Nonce uint64
}

func (*MsgPing) Command() string { return "ping" }

// MsgPong is the `pong` message.
type MsgPong struct {
	Nonce uint64
}

func (*MsgPong) Command() string { return "pong" }

// MsgFilterLoad is the `filterload` message.
type MsgFilterLoad struct {
	Data     []byte
	NumHashFuncs uint32
}

func (*MsgFilterLoad) Command() string { return "filterload" }

// MsgFilterAdd is the `filteradd` message.
type MsgFilterAdd struct {
	Data []byte
}

func (*MsgFilterAdd) Command() string { return "filteradd" }

// MsgFilterClear is the `filterclear` message.
type MsgFilterClear struct{}

func (*MsgFilterClear) Command() string { return "filterclear" }

// MsgReject is the `reject` message.
type MsgReject struct {
	Cmd    string
	Code   RejectCode
	Reason string
	Hash   chainhash.Hash
}

func (*MsgReject) Command() string { return "reject" }
