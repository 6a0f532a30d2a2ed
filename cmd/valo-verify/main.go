// Command valo-verify replays a kernel's snapshot and event log and
// reports whether they reconstruct a consistent state (spec §4.10,
// §6). It exits 0 when recovery succeeds and prints the resulting
// proof object as JSON; it exits 1 on any structural or dimension
// failure.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/valokernel/valo/internal/valoconfig"
	"github.com/valokernel/valo/internal/wire"
	"github.com/valokernel/valo/pkg/eventlog"
	"github.com/valokernel/valo/pkg/fs"
	"github.com/valokernel/valo/pkg/kernel"
	"github.com/valokernel/valo/pkg/recovery"
	"github.com/valokernel/valo/pkg/snapshot"
)

// kernelProtocolVersion identifies the on-disk/wire format this binary
// was built against; it is reported verbatim in the proof object.
const kernelProtocolVersion uint32 = 1

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("valo-verify", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	flagConfig := flagSet.String("config", "", "Use specified config file")
	flagSnapshot := flagSet.String("snapshot", "", "Override snapshot path")
	flagLog := flagSet.String("log", "", "Override event log path")
	flagPrintConfig := flagSet.Bool("print-config", false, "Print the resolved config and exit")

	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	cfg, _, err := valoconfig.Load(workDir, *flagConfig, valoconfig.Config{
		SnapshotPath: *flagSnapshot,
		LogPath:      *flagLog,
	})
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	if *flagPrintConfig {
		formatted, err := valoconfig.FormatConfig(cfg)
		if err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
		fmt.Fprintln(out, formatted)
		return 0
	}

	proof, err := verify(cfg)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	encoded, err := json.MarshalIndent(proof, "", "  ")
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	fmt.Fprintln(out, string(encoded))
	return 0
}

// verify replays cfg's snapshot+log through recovery.Recover and builds
// the resulting proof object (spec §6).
func verify(cfg valoconfig.Config) (wire.Proof, error) {
	fsys := fs.NewReal()
	kernelCfg := kernel.DefaultConfig(cfg.Dim, cfg.MaxRecords, cfg.MaxNodes, cfg.MaxEdges)

	live, committedHeight, err := recovery.Recover(fsys, cfg.SnapshotPath, cfg.LogPath, kernelCfg)
	if err != nil {
		return wire.Proof{}, fmt.Errorf("recover: %w", err)
	}

	count, logHash, err := eventlog.Hash(fsys, cfg.LogPath)
	if err != nil {
		return wire.Proof{}, fmt.Errorf("hash log: %w", err)
	}

	var snapshotHash string
	if snapBytes, err := fsys.ReadFile(cfg.SnapshotPath); err == nil {
		restored, err := snapshot.Decode(snapBytes, kernelCfg)
		if err != nil {
			return wire.Proof{}, fmt.Errorf("decode snapshot: %w", err)
		}
		snapshotHash = wire.HashHex(restored.Hash())
	}

	return wire.Proof{
		KernelVersion:   kernelProtocolVersion,
		SnapshotHash:    snapshotHash,
		EventLogHash:    wire.HashHex(logHash),
		FinalStateHash:  wire.HashHex(live.Hash()),
		EventCount:      count,
		CommittedHeight: committedHeight,
	}, nil
}
