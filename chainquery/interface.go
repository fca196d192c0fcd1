// Package chainquery declares the narrow seam between this module and the
// out-of-scope validation engine / chain index (spec.md §1, §6): the
// interfaces consumed from the validator (AcceptToMempool, CheckServiceTx,
// AcceptBlockHeader, ProcessNewBlock) and the read-only chain accessors the
// dispatcher, planner and scheduler need.
//
// Grounded on netsync/interface.go's Config/PeerNotifier pattern: a narrow
// interface struct handed to the sync layer by whatever owns the real
// engine, rather than this module importing a concrete validator.
package chainquery

import (
	"time"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/wire"
)

// BlockIndex is a read-only reference into the external chain index: a node
// in the block tree, as needed by the Planner (spec.md §4.3) and the
// dispatcher's header/block handling.
type BlockIndex struct {
	Hash      chainhash.Hash
	Height    int32
	ChainWork uint64
	Timestamp time.Time

	// ValidTree reports whether this index (and its ancestry) passed
	// structural validation — spec.md §4.3 step 6's "if invalid-tree →
	// abort".
	ValidTree bool

	// ValidScripts reports whether the block's scripts have been fully
	// validated — used by the Get-Data Server's historical-block gate
	// (spec.md §4.4).
	ValidScripts bool

	// HaveData reports whether the full block body is stored locally.
	HaveData bool
}

// AcceptResult is returned by MempoolAcceptor.AcceptToMempool.
type AcceptResult struct {
	OK bool

	// MissingParents lists the input parent hashes this tx could not be
	// validated against yet (spec.md §4.1 TX: "On missing inputs").
	MissingParents []chainhash.Hash

	// RecursivelyAccepted lists descendant orphan hashes that were also
	// accepted as a side effect (spec.md §4.1 TX: "relay descendants of
	// this tx from the orphan pool").
	RecursivelyAccepted []chainhash.Hash

	// RecursivelyRejected lists descendant orphan hashes rejected as a
	// side effect, alongside the DoS score to apply to their origin peer.
	RecursivelyRejected []chainhash.Hash

	// Invalid is true when OK is false and the rejection is not a
	// "missing inputs" condition — i.e. a terminal reject.
	Invalid bool

	// CorruptionPossible indicates the rejection may stem from a corrupted
	// or malformed message rather than genuine invalidity, in which case
	// the hash must NOT be cached in the recent-reject filter (spec.md §7).
	CorruptionPossible bool

	DoSScore   int
	RejectCode wire.RejectCode
	Reason     string
}

// MempoolAcceptor is the accept_to_mempool interface of spec.md §6.
type MempoolAcceptor interface {
	AcceptToMempool(tx *wire.Tx) AcceptResult
}

// ValidationState is returned by ServiceTxValidator.CheckServiceTx.
type ValidationState struct {
	Valid      bool
	DoSScore   int
	RejectCode wire.RejectCode
	Reason     string
}

// ServiceTxValidator is the check_service_tx interface of spec.md §6.
type ServiceTxValidator interface {
	CheckServiceTx(stx *wire.ServiceTx, paymentTx *wire.Tx) ValidationState
}

// HeaderAcceptResult is returned by HeaderAcceptor.AcceptBlockHeader.
type HeaderAcceptResult struct {
	Index      *BlockIndex // nil if the header was rejected
	DoSScore   int
	RejectCode wire.RejectCode
	Reason     string
}

// HeaderAcceptor is the accept_block_header interface of spec.md §6.
type HeaderAcceptor interface {
	AcceptBlockHeader(header *wire.BlockHeader) HeaderAcceptResult
}

// BlockProcessResult is returned by BlockProcessor.ProcessNewBlock.
type BlockProcessResult struct {
	Accepted   bool
	DoSScore   int
	RejectCode wire.RejectCode
	Reason     string
}

// BlockProcessor is the process_new_block interface of spec.md §6.
type BlockProcessor interface {
	ProcessNewBlock(block *wire.Block, peerID uint64, forceProcess bool) BlockProcessResult
}

// ChainQuerier is the set of read-only accessors spec.md §6 lists: "active
// chain, index by hash, UTXO presence probe, best-header,
// is-initial-block-download, median-time-past, tip time, tip chainwork".
type ChainQuerier interface {
	// ActiveTip returns the index at the tip of the active chain.
	ActiveTip() *BlockIndex

	// ActiveChainContains reports whether index is on the active chain.
	ActiveChainContains(index *BlockIndex) bool

	// IndexByHash looks up a chain index entry by hash.
	IndexByHash(hash chainhash.Hash) (*BlockIndex, bool)

	// Ancestor returns index's ancestor at the given height, or nil if
	// height is out of range for index's chain.
	Ancestor(index *BlockIndex, height int32) *BlockIndex

	// BestHeader returns the tip of the best known header chain (which may
	// be ahead of ActiveTip during header-first sync).
	BestHeader() *BlockIndex

	// IsInitialBlockDownload reports whether the node is still in IBD.
	IsInitialBlockDownload() bool

	// IsImporting reports whether the node is currently importing blocks
	// from an external source (e.g. -loadblock), a mode the sync/relay
	// paths must sit out just as they do during IBD.
	IsImporting() bool

	// IsReindexing reports whether the node is currently rebuilding its
	// chain index from block data already on disk, gated identically to
	// IsImporting.
	IsReindexing() bool

	// MedianTimePast returns the active tip's median time past.
	MedianTimePast() time.Time

	// UTXOExists probes for the presence of an unspent output, used by
	// service-transaction payment lookups.
	UTXOExists(txHash chainhash.Hash, index uint32) bool

	// BlockProofEquivalentTime estimates, in wall-clock terms, how long it
	// would take to produce the chainwork separating best and idx at
	// best's local difficulty — the difficulty-based analogue of comparing
	// their timestamps directly, used by the Get-Data Server's
	// historical-block gate (spec.md §4.4) alongside the timestamp check
	// so a peer cannot game the gate by mining a block with a falsified
	// timestamp. Grounded on GetBlockProofEquivalentTime in the original.
	BlockProofEquivalentTime(best, idx *BlockIndex) time.Duration
}
