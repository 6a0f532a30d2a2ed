// Command valo-shell is an interactive forensic REPL over a kernel's
// event log and snapshot: it can commit new events, search and replay
// the current state, diff two log positions, and print the current
// proof object, all against a single log/snapshot pair on disk.
//
// Usage:
//
//	valo-shell [--config=<file>] [--snapshot=<file>] [--log=<file>]
//
// Commands (in REPL):
//
//	insert <id> <v1> <v2> ...   Commit an InsertRecord event
//	delete <id>                 Commit a DeleteRecord event
//	search <k> <ef> <v1> ...    Search current live state
//	diff <from> <to>            Diff two log positions
//	proof                       Print the current proof object
//	info                        Show config and live record count
//	help                        Show this help
//	exit / quit / q             Exit
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/peterh/liner"

	"github.com/valokernel/valo/internal/valoconfig"
	"github.com/valokernel/valo/internal/wire"
	"github.com/valokernel/valo/pkg/commit"
	"github.com/valokernel/valo/pkg/eventlog"
	"github.com/valokernel/valo/pkg/fixedpoint"
	"github.com/valokernel/valo/pkg/forensic"
	"github.com/valokernel/valo/pkg/fs"
	"github.com/valokernel/valo/pkg/kernel"
	"github.com/valokernel/valo/pkg/recovery"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("valo-shell", flag.ContinueOnError)
	flagConfig := flagSet.String("config", "", "Use specified config file")
	flagSnapshot := flagSet.String("snapshot", "", "Override snapshot path")
	flagLog := flagSet.String("log", "", "Override event log path")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, _, err := valoconfig.Load(workDir, *flagConfig, valoconfig.Config{
		SnapshotPath: *flagSnapshot,
		LogPath:      *flagLog,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shell, err := newShell(cfg)
	if err != nil {
		return err
	}
	defer shell.close()

	return shell.Run()
}

// shell holds a single open kernel (log + committer) and drives the
// REPL commands against it.
type shell struct {
	fsys      fs.FS
	cfg       valoconfig.Config
	kernelCfg kernel.Config
	log       *eventlog.Log
	committer *commit.Committer
	liner     *liner.State
}

func newShell(cfg valoconfig.Config) (*shell, error) {
	fsys := fs.NewReal()
	kernelCfg := kernel.DefaultConfig(cfg.Dim, cfg.MaxRecords, cfg.MaxNodes, cfg.MaxEdges)

	log, err := eventlog.Open(fsys, cfg.LogPath, kernelCfg.Dim)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	live, committedHeight, err := recovery.Recover(fsys, cfg.SnapshotPath, cfg.LogPath, kernelCfg)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("recover state: %w", err)
	}

	return &shell{
		fsys:      fsys,
		cfg:       cfg,
		kernelCfg: kernelCfg,
		log:       log,
		committer: commit.NewAt(log, live, committedHeight),
	}, nil
}

func (s *shell) close() error {
	return s.log.Close()
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".valo_shell_history")
}

// Run starts the REPL loop, mirroring the teacher's own liner-based
// REPL (read a line, tokenize, dispatch, append to history).
func (s *shell) Run() error {
	s.liner = liner.NewLiner()
	defer s.liner.Close()

	s.liner.SetCtrlCAborts(true)
	s.liner.SetCompleter(s.completer)

	if f, err := os.Open(historyFile()); err == nil {
		s.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("valo-shell (dim=%d, log=%s, snapshot=%s)\n", s.kernelCfg.Dim, s.cfg.LogPath, s.cfg.SnapshotPath)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := s.liner.Prompt("valo> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			s.saveHistory()
			return nil
		case "help", "?":
			s.printHelp()
		case "insert":
			s.cmdInsert(args)
		case "delete", "del":
			s.cmdDelete(args)
		case "search":
			s.cmdSearch(args)
		case "diff":
			s.cmdDiff(args)
		case "proof":
			s.cmdProof()
		case "info":
			s.cmdInfo()
		default:
			fmt.Printf("unknown command: %s (try 'help')\n", cmd)
		}
	}
}

func (s *shell) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	s.liner.WriteHistory(f)
}

func (s *shell) completer(line string) []string {
	commands := []string{"insert", "delete", "search", "diff", "proof", "info", "help", "exit"}
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

func (s *shell) printHelp() {
	fmt.Println(`Commands:
  insert <id> <v1> <v2> ...   Commit an InsertRecord event
  delete <id>                  Commit a DeleteRecord event
  search <k> <ef> <v1> ...     Search current live state
  diff <from> <to>             Diff two log positions
  proof                        Print the current proof object
  info                         Show config and live record count
  help                         Show this help
  exit / quit / q              Exit`)
}

func (s *shell) cmdInsert(args []string) {
	if len(args) < 1+s.kernelCfg.Dim {
		fmt.Printf("usage: insert <id> <%d values>\n", s.kernelCfg.Dim)
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Println("invalid id:", err)
		return
	}
	vec, err := parseVector(args[1:1+s.kernelCfg.Dim], s.kernelCfg.Dim)
	if err != nil {
		fmt.Println(err)
		return
	}

	result, err := s.committer.CommitEvent(kernel.InsertRecordEvent(uint32(id), vec))
	if err != nil {
		fmt.Println("commit failed:", err)
		return
	}
	fmt.Println(result)
}

func (s *shell) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: delete <id>")
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Println("invalid id:", err)
		return
	}

	result, err := s.committer.CommitEvent(kernel.DeleteRecordEvent(uint32(id)))
	if err != nil {
		fmt.Println("commit failed:", err)
		return
	}
	fmt.Println(result)
}

func (s *shell) cmdSearch(args []string) {
	if len(args) < 2+s.kernelCfg.Dim {
		fmt.Printf("usage: search <k> <ef> <%d values>\n", s.kernelCfg.Dim)
		return
	}
	k, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("invalid k:", err)
		return
	}
	ef, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("invalid ef:", err)
		return
	}
	vec, err := parseVector(args[2:2+s.kernelCfg.Dim], s.kernelCfg.Dim)
	if err != nil {
		fmt.Println(err)
		return
	}

	results, err := s.committer.Live().Search(vec, k, ef, nil)
	if err != nil {
		fmt.Println("search failed:", err)
		return
	}
	for i, r := range results {
		fmt.Printf("%d. id=%d distance=%d\n", i+1, r.ID, r.Distance)
	}
}

func (s *shell) cmdDiff(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: diff <from> <to>")
		return
	}
	from, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Println("invalid from:", err)
		return
	}
	to, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		fmt.Println("invalid to:", err)
		return
	}

	diff, err := forensic.Compute(s.fsys, s.cfg.LogPath, s.kernelCfg, from, to, nil)
	if err != nil {
		fmt.Println("diff failed:", err)
		return
	}
	fmt.Printf("from_hash=%x\n", diff.FromHash)
	fmt.Printf("to_hash=%x\n", diff.ToHash)
	fmt.Printf("only_in_from=%v\n", diff.OnlyInFrom)
	fmt.Printf("only_in_to=%v\n", diff.OnlyInTo)
}

func (s *shell) cmdProof() {
	count, logHash, err := eventlog.Hash(s.fsys, s.cfg.LogPath)
	if err != nil {
		fmt.Println("hash log failed:", err)
		return
	}

	live := s.committer.Live()
	proof := wire.Proof{
		EventLogHash:    wire.HashHex(logHash),
		FinalStateHash:  wire.HashHex(live.Hash()),
		EventCount:      count,
		CommittedHeight: s.committer.Journal().CommittedHeight(),
	}
	fmt.Printf("%+v\n", proof)
}

func (s *shell) cmdInfo() {
	count := 0
	s.committer.Live().IterRecords(func(kernel.Record) bool {
		count++
		return true
	})
	fmt.Printf("dim=%d committed_height=%d live_records=%d\n", s.kernelCfg.Dim, s.committer.Journal().CommittedHeight(), count)
}

func parseVector(tokens []string, dim int) (fixedpoint.Vector, error) {
	if len(tokens) != dim {
		return nil, fmt.Errorf("expected %d values, got %d", dim, len(tokens))
	}
	vec := make(fixedpoint.Vector, dim)
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", tok, err)
		}
		vec[i] = fixedpoint.FromFloat64(f)
	}
	return vec, nil
}
