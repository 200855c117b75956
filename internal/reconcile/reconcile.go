// Package reconcile merges freshly fetched release descriptors into the
// persisted version document.
package reconcile

import (
	"sort"
	"time"

	"github.com/nholik/bedrock-sentinel/internal/state"
)

// ChannelChange captures one channel moving to a new version.
// Previous is the zero Descriptor on the bootstrap run.
type ChannelChange struct {
	Channel  state.Channel
	Previous state.Descriptor
	Current  state.Descriptor
}

// Outcome reports what a reconciliation run did.
type Outcome struct {
	// Changed is true when any channel moved or no prior document existed.
	Changed bool
	// Bootstrap is true when there was no prior document.
	Bootstrap bool
	// Changes lists the channels that moved, stable before preview.
	Changes []ChannelChange
}

// Reconcile derives the next version document from the fetched latest
// descriptors and the prior document. It is a pure function: given the
// same inputs and clock it always produces the same document, and a
// second run over its own output reports no change.
//
// The fetched descriptors carry no timestamp; Reconcile stamps a channel
// with now only when its version actually moved, and preserves the prior
// timestamp otherwise so that repeated runs do not perturb the file.
func Reconcile(fetched state.Latest, prior *state.Document, now time.Time) (state.Document, Outcome) {
	if prior == nil {
		fetched.Stable.ReleasedAt = now
		fetched.Preview.ReleasedAt = now
		next := state.Document{
			Latest:  fetched,
			History: []state.HistoryEntry{},
		}
		return next, Outcome{
			Changed:   true,
			Bootstrap: true,
			Changes: []ChannelChange{
				{Channel: state.ChannelStable, Current: fetched.Stable},
				{Channel: state.ChannelPreview, Current: fetched.Preview},
			},
		}
	}

	outcome := Outcome{}
	var fresh []state.HistoryEntry

	stable, stableEntry := reconcileChannel(fetched.Stable, prior.Latest.Stable, now)
	if stableEntry != nil {
		stableEntry.Channel = state.ChannelStable
		fresh = append(fresh, *stableEntry)
		outcome.Changes = append(outcome.Changes, ChannelChange{
			Channel:  state.ChannelStable,
			Previous: prior.Latest.Stable,
			Current:  stable,
		})
	}

	preview, previewEntry := reconcileChannel(fetched.Preview, prior.Latest.Preview, now)
	if previewEntry != nil {
		previewEntry.Channel = state.ChannelPreview
		fresh = append(fresh, *previewEntry)
		outcome.Changes = append(outcome.Changes, ChannelChange{
			Channel:  state.ChannelPreview,
			Previous: prior.Latest.Preview,
			Current:  preview,
		})
	}

	outcome.Changed = len(outcome.Changes) > 0

	next := state.Document{
		Latest: state.Latest{
			Stable:  stable,
			Preview: preview,
		},
		History: mergeHistory(prior.History, fresh),
	}
	return next, outcome
}

// reconcileChannel compares identifiers by exact string equality; there
// is no semantic version ordering, any textual difference is a change.
// On change it returns the superseded prior descriptor for the history,
// still carrying the timestamp of the moment it became latest.
func reconcileChannel(fetched, prior state.Descriptor, now time.Time) (state.Descriptor, *state.HistoryEntry) {
	if fetched.Version == prior.Version {
		fetched.ReleasedAt = prior.ReleasedAt
		return fetched, nil
	}
	fetched.ReleasedAt = now
	return fetched, &state.HistoryEntry{Descriptor: prior}
}

// mergeHistory appends the freshly superseded entries onto the prior
// history, drops duplicate (channel, version) pairs keeping the first
// occurrence in pre-sort order (prior entries before fresh ones), and
// orders the result by timestamp descending. Equal timestamps keep
// their input order.
func mergeHistory(prior, fresh []state.HistoryEntry) []state.HistoryEntry {
	type key struct {
		channel state.Channel
		version string
	}

	merged := make([]state.HistoryEntry, 0, len(prior)+len(fresh))
	seen := make(map[key]bool, len(prior)+len(fresh))
	for _, entry := range append(append([]state.HistoryEntry{}, prior...), fresh...) {
		k := key{entry.Channel, entry.Version}
		if seen[k] {
			continue
		}
		seen[k] = true
		merged = append(merged, entry)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ReleasedAt.After(merged[j].ReleasedAt)
	})

	return merged
}
