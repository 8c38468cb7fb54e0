// Package playback maps an audio-clock position to the transcript segment
// containing it, for highlighting during replay.
package playback

import (
	"sort"

	"verbatim/internal/transcript"
)

// Active returns the segment whose [Start, End) interval contains atMs.
// segments must be sorted by start time with non-overlapping intervals, as
// store snapshots are. The second return is false when atMs falls in a gap
// or outside the recorded range.
func Active(segments []transcript.Segment, atMs int64) (transcript.Segment, bool) {
	i := sort.Search(len(segments), func(j int) bool {
		return segments[j].End > atMs
	})
	if i < len(segments) && segments[i].Start <= atMs {
		return segments[i], true
	}
	return transcript.Segment{}, false
}

// SnapshotFunc supplies the finalized segments to search. It is called once
// per lookup so an in-flight lookup is never disturbed by reconciliation.
type SnapshotFunc func() []transcript.Segment

// Synchronizer binds a snapshot source to position lookups.
type Synchronizer struct {
	snapshot SnapshotFunc
}

// NewSynchronizer returns a synchronizer reading from snapshot.
func NewSynchronizer(snapshot SnapshotFunc) *Synchronizer {
	return &Synchronizer{snapshot: snapshot}
}

// ActiveSegment returns the segment under the playback position atMs.
func (s *Synchronizer) ActiveSegment(atMs int64) (transcript.Segment, bool) {
	return Active(s.snapshot(), atMs)
}
