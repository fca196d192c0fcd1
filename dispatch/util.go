package dispatch

import (
	"time"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/wire"
)

// chainhashZero is used where a QueueReject call has no specific block/tx
// hash to attach (e.g. version/addr-level rejects).
var chainhashZero chainhash.Hash

// canDirectFetch implements spec.md's CanDirectFetch rule: the active tip's
// block time must be within 20× target spacing of now, grounded on
// messages.cpp's CanDirectFetch.
func canDirectFetch(cq chainquery.ChainQuerier) bool {
	tip := cq.ActiveTip()
	if tip == nil {
		return false
	}
	return tip.Timestamp.After(time.Now().Add(-20 * wire.TargetSpacing))
}
