package wire

import "github.com/johnlito123/xuez-1/chainhash"

// InvType represents the type of an inventory vector, per the GLOSSARY:
// "a typed hash announcement (kind, hash) where kind ∈ {BLOCK, FILTERED_BLOCK,
// TX, STX}".
type InvType uint32

const (
	InvTypeTx InvType = iota
	InvTypeBlock
	InvTypeFilteredBlock
	InvTypeSTX
)

func (t InvType) String() string {
	switch t {
	case InvTypeTx:
		return "MSG_TX"
	case InvTypeBlock:
		return "MSG_BLOCK"
	case InvTypeFilteredBlock:
		return "MSG_FILTERED_BLOCK"
	case InvTypeSTX:
		return "MSG_STX"
	default:
		return "MSG_UNKNOWN"
	}
}

// InvVect is a single inventory vector: a typed hash announcement.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

// NewInvVect returns a new InvVect for the given type and hash.
func NewInvVect(typ InvType, hash *chainhash.Hash) *InvVect {
	return &InvVect{Type: typ, Hash: *hash}
}
