// Command xueznode is a thin demonstration binary: it parses config.Config
// via go-flags, wires up a node.MessageHandler against inert stub
// chainquery implementations, logs the result and exits; it runs no
// connection loop. Real transport, block storage and validation are out of
// scope (spec.md §1); this binary exists to show the pieces assembled, not
// to be a production node.
package main

import (
	"fmt"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/chainquery"
	"github.com/johnlito123/xuez-1/config"
	"github.com/johnlito123/xuez-1/logs"
	"github.com/johnlito123/xuez-1/node"
	"github.com/johnlito123/xuez-1/panics"
	"github.com/johnlito123/xuez-1/wire"
)

var log, _ = logs.Get(logs.SubsystemTags.NODE)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	backend := logs.NewBackend()
	level := logs.LevelInfo
	if cfg.Debug {
		level = logs.LevelDebug
	}
	if err := backend.AddLogFile("xueznode.log", level); err != nil {
		fmt.Fprintln(os.Stderr, "failed to open log file:", err)
		os.Exit(1)
	}
	logs.UseBackend(backend)

	defer panics.HandlePanic(log, nil)

	handler := node.New(cfg, node.Deps{
		Chain:     stubChain{},
		Mempool:   stubMempool{},
		ServiceTx: stubServiceTx{},
		Headers:   stubHeaders{},
		Blocks:    stubBlocks{},
		ReadBlock: func(chainhash.Hash) (*wire.Block, bool) { return nil, false },
	})

	log.Infof("xueznode starting, banscore=%d maxorphantx=%d", cfg.BanScore, cfg.MaxOrphanTx)

	// A real binary would accept connections here and pump
	// EnqueueMessage/ProcessMessages/SendMessages from the wire; this demo
	// just proves the wiring holds together and exits after building it.
	log.Infof("attached peers: %d", handler.AttachedPeerCount())
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}
	return cfg, nil
}

// The stub* types below satisfy chainquery's interfaces with inert
// responses, standing in for the out-of-scope validation engine (spec.md
// §1) so this demo binary links against a concrete node.Deps.

type stubChain struct{}

func (stubChain) ActiveTip() *chainquery.BlockIndex                        { return nil }
func (stubChain) ActiveChainContains(*chainquery.BlockIndex) bool          { return false }
func (stubChain) IndexByHash(chainhash.Hash) (*chainquery.BlockIndex, bool) { return nil, false }
func (stubChain) Ancestor(*chainquery.BlockIndex, int32) *chainquery.BlockIndex {
	return nil
}
func (stubChain) BestHeader() *chainquery.BlockIndex        { return nil }
func (stubChain) IsInitialBlockDownload() bool               { return true }
func (stubChain) IsImporting() bool                          { return false }
func (stubChain) IsReindexing() bool                         { return false }
func (stubChain) MedianTimePast() time.Time                  { return time.Now() }
func (stubChain) UTXOExists(chainhash.Hash, uint32) bool      { return false }
func (stubChain) BlockProofEquivalentTime(*chainquery.BlockIndex, *chainquery.BlockIndex) time.Duration {
	return 0
}

type stubMempool struct{}

func (stubMempool) AcceptToMempool(*wire.Tx) chainquery.AcceptResult {
	return chainquery.AcceptResult{OK: false, Invalid: true, RejectCode: wire.RejectNonstandard}
}

type stubServiceTx struct{}

func (stubServiceTx) CheckServiceTx(*wire.ServiceTx, *wire.Tx) chainquery.ValidationState {
	return chainquery.ValidationState{Valid: false, RejectCode: wire.RejectNonstandard}
}

type stubHeaders struct{}

func (stubHeaders) AcceptBlockHeader(*wire.BlockHeader) chainquery.HeaderAcceptResult {
	return chainquery.HeaderAcceptResult{RejectCode: wire.RejectNonstandard}
}

type stubBlocks struct{}

func (stubBlocks) ProcessNewBlock(*wire.Block, uint64, bool) chainquery.BlockProcessResult {
	return chainquery.BlockProcessResult{Accepted: false, RejectCode: wire.RejectNonstandard}
}
