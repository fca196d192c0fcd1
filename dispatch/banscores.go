package dispatch

// Named misbehavior deltas, grounded on the {1, 20, 100} taxonomy of
// spec.md §7 and messages.cpp's scattered Misbehaving(...) call sites —
// collected here the way peer/banscores.go names its ban-score constants
// rather than leaving magic numbers at each call site.
const (
	scoreDuplicateVersion     = 1
	scoreOversizedAddr        = 20
	scoreOversizedInv         = 20
	scoreOversizedHeaders     = 20
	scoreDisconnectedHeader   = 20
	scoreFilterNoBloomService = 100
)
