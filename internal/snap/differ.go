package snap

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ComputeDiff returns the structural delta between two snapshots, keyed by
// path and kind. File identity is the content fingerprint alone: mtime and
// size differences never produce a change. Changes are emitted in path
// order for determinism; the applier imposes its own phase order.
func ComputeDiff(before, after *Snapshot) *Diff {
	union := make(map[string]struct{}, len(before.Entries)+len(after.Entries))
	for p := range before.Entries {
		union[p] = struct{}{}
	}
	for p := range after.Entries {
		union[p] = struct{}{}
	}
	paths := maps.Keys(union)
	slices.Sort(paths)

	diff := &Diff{}
	for _, p := range paths {
		kb := before.Kind(p)
		ka := after.Kind(p)
		if kb == ka {
			if kb == KindFile && before.Entries[p].Hash != after.Entries[p].Hash {
				diff.Changes = append(diff.Changes, Change{
					Path:   p,
					From:   KindFile,
					To:     KindFile,
					Before: before.Entries[p],
					After:  after.Entries[p],
				})
			}
			continue
		}
		c := Change{Path: p, From: kb, To: ka}
		if kb != KindAbsent {
			c.Before = before.Entries[p]
		}
		if ka != KindAbsent {
			c.After = after.Entries[p]
		}
		diff.Changes = append(diff.Changes, c)
	}
	return diff
}
