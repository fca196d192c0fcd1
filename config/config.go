// Package config holds the subset of node configuration this module's
// components read (spec.md §6 "Configuration (relevant arguments)"). Full
// CLI/config-file loading is an out-of-scope external collaborator
// (spec.md §1); this package only defines the struct and its defaults so the
// rest of the module has something concrete to depend on, with
// `go-flags` tags for the thin cmd/xueznode wiring.
package config

// Default ban-score / pool-size constants, named after spec.md §6.
const (
	DefaultBanScore        = 100
	DefaultMaxOrphanTx     = 100
	DefaultMinProtoVersion = 70002
	DefaultTargetOutbound  = 8
)

// Config is the configuration surface this module reads. The fields mirror
// spec.md §6's configuration list, plus MinProtocolVersion and
// TargetOutbound.
type Config struct {
	// BanScore is the misbehavior score threshold past which a peer is
	// scheduled for disconnection/ban (spec.md §4.6).
	BanScore uint32 `long:"banscore" description:"Misbehavior ban threshold" default:"100"`

	// MaxOrphanTx bounds the orphan transaction pool (spec.md §3 OrphanTx).
	MaxOrphanTx int `long:"maxorphantx" description:"Max number of orphan transactions to keep in memory" default:"100"`

	// WhitelistRelay exempts whitelisted peers from the relay/DoS
	// protections that would otherwise apply to their messages.
	WhitelistRelay bool `long:"whitelistrelay" description:"Always relay transactions received from whitelisted peers"`

	// WhitelistForceRelay is parsed but no component of this module reads
	// it: blocks from whitelisted peers are force-processed only outside
	// IBD, whatever this flag says.
	WhitelistForceRelay bool `long:"whitelistforcerelay" description:"Force relay of blocks from whitelisted peers (not read by this module)"`

	// EnforceNodeBloom is parsed but no component of this module reads it:
	// FILTERLOAD/FILTERADD/FILTERCLEAR always require the bloom service
	// flag, and MEMPOOL never does.
	EnforceNodeBloom bool `long:"enforcenodebloom" description:"Enforce that peers using bloom filters advertise the bloom service flag (not read by this module; always enforced)"`

	// DropMessagesTest, when non-zero, makes ProcessMessages drop each
	// incoming message before dispatch with probability 1-in-N — a
	// test-only fault injection knob.
	DropMessagesTest int `long:"dropmessagestest" description:"Randomly drop 1-in-N incoming messages, for testing"`

	// Debug enables verbose (debug-level) logging.
	Debug bool `long:"debug" short:"d" description:"Enable debug-level logging"`

	// MinProtocolVersion is the lowest VERSION a peer may negotiate
	// (spec.md §3 invariant: "After handshake completes, version ≥
	// MIN_PROTO_VERSION").
	MinProtocolVersion uint32 `long:"minprotocolversion" description:"Minimum acceptable peer protocol version" default:"70002"`

	// TargetOutbound is the number of outbound connections the node aims
	// to maintain — read by callers selecting sync-peer candidates; the
	// connection layer itself is out of scope.
	TargetOutbound int `long:"targetoutbound" description:"Target number of outbound connections" default:"8"`
}

// Default returns a Config populated with the defaults named in spec.md §6,
// suitable for embedding directly in tests without parsing any flags.
func Default() *Config {
	return &Config{
		BanScore:           DefaultBanScore,
		MaxOrphanTx:        DefaultMaxOrphanTx,
		MinProtocolVersion: DefaultMinProtoVersion,
		TargetOutbound:     DefaultTargetOutbound,
	}
}
