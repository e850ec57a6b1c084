// Command teamsnap-monitor detects TeamSnap API changes: version
// bumps, endpoints added or removed from the root collection, and
// deprecation markers. Snapshots persist in a local database so runs
// can be compared over time.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexjbarnes/teamsnap-mcp/internal/auth"
	"github.com/alexjbarnes/teamsnap-mcp/internal/config"
	"github.com/alexjbarnes/teamsnap-mcp/internal/logging"
	"github.com/alexjbarnes/teamsnap-mcp/internal/monitor"
	"github.com/alexjbarnes/teamsnap-mcp/internal/teamsnap"
)

// sweepEndpoints are the resource roots probed by --sweep for
// deprecated links beyond the API root itself.
var sweepEndpoints = []string{"/", "/teams/search", "/members/search", "/events/search"}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		save    = flag.Bool("save", false, "persist the captured snapshot")
		compare = flag.Bool("compare", false, "compare against the last saved snapshot")
		sweep   = flag.Bool("sweep", false, "probe resource endpoints for deprecated links")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Environment)

	store := auth.NewFileStore(cfg.CredentialsFile)

	creds, err := store.Credentials()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	client := teamsnap.NewClient(auth.New(creds, store, cfg.Scope, logger), nil, logger)

	ctx := context.Background()

	snap, err := monitor.Capture(ctx, client)
	if err != nil {
		return err
	}

	fmt.Printf("API version: %s\n", snap.Version)
	fmt.Printf("Links: %d, queries: %d, commands: %d\n",
		len(snap.Links), len(snap.Queries), len(snap.Commands))

	for _, d := range snap.Deprecated() {
		fmt.Printf("DEPRECATED: %s - %s\n", d.Rel, d.Prompt)
	}

	if *sweep {
		found, err := monitor.SweepDeprecations(ctx, client, sweepEndpoints)
		if err != nil {
			return err
		}

		if len(found) == 0 {
			fmt.Println("Sweep: no deprecated links found.")
		}

		for _, d := range found {
			fmt.Printf("Sweep %s: DEPRECATED %s - %s\n", d.Endpoint, d.Rel, d.Prompt)
		}
	}

	if !*save && !*compare {
		return nil
	}

	snapPath := cfg.SnapshotPath
	if snapPath == "" {
		snapPath = filepath.Join(filepath.Dir(cfg.CredentialsFile), "snapshots.db")
	}

	db, err := monitor.OpenStore(snapPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if *compare {
		prev, err := db.Latest()
		if err != nil {
			return err
		}

		if prev == nil {
			fmt.Println("No previous snapshot to compare against; run with --save first.")
		} else {
			printReport(monitor.Compare(prev, snap))
		}
	}

	if *save {
		if err := db.Save(snap); err != nil {
			return err
		}

		fmt.Printf("Snapshot saved to %s\n", snapPath)
	}

	return nil
}

func printReport(r *monitor.Report) {
	if !r.Changed() {
		fmt.Println("No API changes since last snapshot.")
		return
	}

	if r.VersionChanged {
		fmt.Printf("Version changed: %s -> %s\n", r.OldVersion, r.NewVersion)
	}

	printList := func(label string, items []string) {
		for _, it := range items {
			fmt.Printf("%s: %s\n", label, it)
		}
	}

	printList("Added link", r.AddedLinks)
	printList("Removed link", r.RemovedLinks)
	printList("Added query", r.AddedQueries)
	printList("Removed query", r.RemovedQueries)
	printList("Added command", r.AddedCommands)
	printList("Removed command", r.RemovedCommands)

	for _, d := range r.NewlyDeprecated {
		fmt.Printf("Newly deprecated: %s - %s\n", d.Rel, d.Prompt)
	}

	if r.LinkDiff != "" {
		fmt.Println("\nLink list diff:")
		fmt.Println(r.LinkDiff)
	}
}
