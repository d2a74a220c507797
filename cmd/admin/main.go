package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	persistlog "farmdustry.io/internal/persistence/log"
	"farmdustry.io/internal/persistence/snapshot"
	"farmdustry.io/internal/sim/engine"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "player":
			playerCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "show":
			showCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints run directories, newest first.
func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	ents, err := os.ReadDir(filepath.Join(*dataDir, "runs"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list runs:", err)
		os.Exit(1)
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, n := range names {
		files, _ := persistlog.Files(persistlog.TickDir(filepath.Join(*dataDir, "runs", n)))
		fmt.Printf("%s\ttick_files=%d\n", n, len(files))
	}
}

// auditCmd filters a run's audit journal.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	runDir := fs.String("run", "", "run directory")
	player := fs.Int("player", -1, "only this actor (optional)")
	action := fs.String("action", "", "only this action, e.g. ADD_CROP (optional)")
	sinceTick := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, optional)")
	_ = fs.Parse(args)

	if *runDir == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}
	enc := json.NewEncoder(os.Stdout)
	n := 0
	err := persistlog.ReadAudit(*runDir, func(a engine.AuditEntry) error {
		if a.Tick < *sinceTick || (*toTick != 0 && a.Tick > *toTick) {
			return nil
		}
		if *player >= 0 && int(a.Actor) != *player {
			return nil
		}
		if *action != "" && a.Action != *action {
			return nil
		}
		n++
		return enc.Encode(a)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", n)
}

// showCmd prints a snapshot file (default: the run's latest) as JSON.
func showCmd(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	runDir := fs.String("run", "", "run directory (uses its latest snapshot)")
	path := fs.String("snapshot", "", "path to .snap.zst (overrides -run)")
	_ = fs.Parse(args)

	p := *path
	if p == "" && *runDir != "" {
		p = snapshot.Latest(filepath.Join(*runDir, "snapshots"))
	}
	if p == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(snap.State)
}
