// Package monitor detects drift in the TeamSnap API: version bumps,
// endpoints appearing or disappearing from the root collection, and
// deprecation markers. Snapshots of the root endpoint are persisted so
// runs can be compared across time.
package monitor

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/alexjbarnes/teamsnap-mcp/internal/teamsnap"
)

// sweepConcurrency bounds the parallel endpoint probes in
// SweepDeprecations so the sweep does not hammer the API.
const sweepConcurrency = 4

// Endpoint is one link, query or command advertised by the API root.
type Endpoint struct {
	Rel        string `json:"rel"`
	Href       string `json:"href"`
	Method     string `json:"method,omitempty"`
	Deprecated bool   `json:"deprecated,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
}

// Snapshot is the recorded state of the API root at one point in time.
type Snapshot struct {
	Timestamp time.Time  `json:"timestamp"`
	Version   string     `json:"version"`
	Links     []Endpoint `json:"links"`
	Queries   []Endpoint `json:"queries"`
	Commands  []Endpoint `json:"commands"`
}

// Deprecated returns the links carrying a deprecation marker.
func (s *Snapshot) Deprecated() []Endpoint {
	var out []Endpoint

	for _, e := range s.Links {
		if e.Deprecated {
			out = append(out, e)
		}
	}

	return out
}

// Capture fetches the API root and builds a Snapshot from it.
func Capture(ctx context.Context, client *teamsnap.Client) (*Snapshot, error) {
	resp, err := client.Root(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching API root: %w", err)
	}

	return FromRoot(resp.Raw), nil
}

// FromRoot builds a Snapshot from a raw root response body.
func FromRoot(raw []byte) *Snapshot {
	snap := &Snapshot{
		Timestamp: time.Now().UTC(),
		Version:   gjson.GetBytes(raw, "collection.version").String(),
	}

	collect := func(path string, dst *[]Endpoint) {
		gjson.GetBytes(raw, path).ForEach(func(_, e gjson.Result) bool {
			*dst = append(*dst, Endpoint{
				Rel:        e.Get("rel").String(),
				Href:       e.Get("href").String(),
				Method:     e.Get("method").String(),
				Deprecated: e.Get("deprecated").Bool(),
				Prompt:     e.Get("prompt").String(),
			})

			return true
		})
	}

	collect("collection.links", &snap.Links)
	collect("collection.queries", &snap.Queries)
	collect("collection.commands", &snap.Commands)

	return snap
}

// Report summarizes the differences between two snapshots.
type Report struct {
	VersionChanged   bool
	OldVersion       string
	NewVersion       string
	AddedLinks       []string
	RemovedLinks     []string
	NewlyDeprecated  []Endpoint
	LinkDiff         string // unified rendering of the link list change
	AddedQueries     []string
	RemovedQueries   []string
	AddedCommands    []string
	RemovedCommands  []string
}

// Changed reports whether the two snapshots differ at all.
func (r *Report) Changed() bool {
	return r.VersionChanged ||
		len(r.AddedLinks) > 0 || len(r.RemovedLinks) > 0 ||
		len(r.NewlyDeprecated) > 0 ||
		len(r.AddedQueries) > 0 || len(r.RemovedQueries) > 0 ||
		len(r.AddedCommands) > 0 || len(r.RemovedCommands) > 0
}

// Compare diffs two snapshots, old against new.
func Compare(old, cur *Snapshot) *Report {
	r := &Report{OldVersion: old.Version, NewVersion: cur.Version}
	r.VersionChanged = old.Version != cur.Version

	r.AddedLinks, r.RemovedLinks = diffRels(old.Links, cur.Links)
	r.AddedQueries, r.RemovedQueries = diffRels(old.Queries, cur.Queries)
	r.AddedCommands, r.RemovedCommands = diffRels(old.Commands, cur.Commands)

	was := deprecatedSet(old.Links)
	for _, e := range cur.Links {
		if e.Deprecated && !was[e.Rel] {
			r.NewlyDeprecated = append(r.NewlyDeprecated, e)
		}
	}

	if len(r.AddedLinks) > 0 || len(r.RemovedLinks) > 0 {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(relList(old.Links), relList(cur.Links), false)
		r.LinkDiff = dmp.DiffPrettyText(dmp.DiffCleanupSemantic(diffs))
	}

	return r
}

func deprecatedSet(links []Endpoint) map[string]bool {
	out := make(map[string]bool)

	for _, e := range links {
		if e.Deprecated {
			out[e.Rel] = true
		}
	}

	return out
}

func diffRels(old, cur []Endpoint) (added, removed []string) {
	oldSet := make(map[string]struct{}, len(old))
	for _, e := range old {
		oldSet[e.Rel] = struct{}{}
	}

	curSet := make(map[string]struct{}, len(cur))
	for _, e := range cur {
		curSet[e.Rel] = struct{}{}
	}

	for rel := range curSet {
		if _, ok := oldSet[rel]; !ok {
			added = append(added, rel)
		}
	}

	for rel := range oldSet {
		if _, ok := curSet[rel]; !ok {
			removed = append(removed, rel)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)

	return added, removed
}

// relList renders endpoint rels one per line, sorted, for text diffing.
func relList(endpoints []Endpoint) string {
	rels := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		rels = append(rels, e.Rel)
	}

	sort.Strings(rels)

	return strings.Join(rels, "\n") + "\n"
}

// Deprecation is one deprecated link found during a sweep, with the
// endpoint it was seen on.
type Deprecation struct {
	Endpoint string
	Rel      string
	Prompt   string
}

// SweepDeprecations probes the given endpoints concurrently and
// collects every deprecated link they advertise.
func SweepDeprecations(ctx context.Context, client *teamsnap.Client, endpoints []string) ([]Deprecation, error) {
	var (
		mu    sync.Mutex
		found []Deprecation
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, endpoint := range endpoints {
		g.Go(func() error {
			resp, err := client.Request(ctx, http.MethodGet, endpoint, nil, nil)
			if err != nil {
				return fmt.Errorf("probing %s: %w", endpoint, err)
			}

			gjson.GetBytes(resp.Raw, "collection.links").ForEach(func(_, link gjson.Result) bool {
				if link.Get("deprecated").Bool() {
					mu.Lock()
					found = append(found, Deprecation{
						Endpoint: endpoint,
						Rel:      link.Get("rel").String(),
						Prompt:   link.Get("prompt").String(),
					})
					mu.Unlock()
				}

				return true
			})

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Endpoint != found[j].Endpoint {
			return found[i].Endpoint < found[j].Endpoint
		}

		return found[i].Rel < found[j].Rel
	})

	return found, nil
}
