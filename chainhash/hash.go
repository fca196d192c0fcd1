// Package chainhash defines the fixed-size hash type used throughout the
// peer message-handling core to identify blocks, transactions and service
// transactions. Cryptographic primitives are out of scope (spec.md §1
// Non-goals); this package only carries the already-computed digest.
package chainhash

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// HashSize is the size, in bytes, of the hash type used by this module.
const HashSize = 32

// Hash is a fixed-size byte array used to represent block, transaction and
// service-transaction hashes.
type Hash [HashSize]byte

// ZeroHash is the Hash value whose bytes are all zeros.
var ZeroHash Hash

// String returns the Hash as the hexadecimal string of the byte-reversed
// hash, matching the conventional display order of Bitcoin-family hashes.
func (h Hash) String() string {
	var reversed Hash
	for i := 0; i < HashSize/2; i++ {
		reversed[i], reversed[HashSize-1-i] = h[HashSize-1-i], h[i]
	}
	return hex.EncodeToString(reversed[:])
}

// IsEqual reports whether h equals other. A nil other is never equal.
func (h *Hash) IsEqual(other *Hash) bool {
	if other == nil {
		return false
	}
	return *h == *other
}

// SetBytes copies the passed slice into the hash, which must be exactly
// HashSize bytes.
func (h *Hash) SetBytes(newHash []byte) error {
	if len(newHash) != HashSize {
		return errors.Errorf("invalid hash length of %d, want %d", len(newHash), HashSize)
	}
	copy(h[:], newHash)
	return nil
}

// NewFromStr creates a Hash from the display-order hex string produced by
// String.
func NewFromStr(hexStr string) (*Hash, error) {
	if len(hexStr)%2 != 0 {
		hexStr = "0" + hexStr
	}
	buf, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode hash hex")
	}
	if len(buf) != HashSize {
		return nil, errors.Errorf("invalid hash length of %d, want %d", len(buf), HashSize)
	}
	var h Hash
	for i := 0; i < HashSize/2; i++ {
		h[i], h[HashSize-1-i] = buf[HashSize-1-i], buf[i]
	}
	return &h, nil
}

// Less reports whether h sorts before other, comparing bytes from the
// highest index down (the order of the displayed hex string). Used to give
// deterministic iteration order (e.g. relay selection) without depending on
// map ordering.
func (h Hash) Less(other Hash) bool {
	for i := HashSize - 1; i >= 0; i-- {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}
