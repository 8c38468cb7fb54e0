// Package transcript defines the segment model and the in-memory store that
// holds a session's reconciled transcript.
package transcript

import "time"

// SegmentStatus is the lifecycle state of a segment.
type SegmentStatus string

const (
	// Provisional segments carry interim recognition results and may still
	// change text and timing.
	Provisional SegmentStatus = "provisional"
	// Finalized segments have committed text and timing.
	Finalized SegmentStatus = "finalized"
	// Corrected segments are finalized segments that were revised after the
	// fact by a late hypothesis.
	Corrected SegmentStatus = "corrected"
)

// Final reports whether the status is a committed state.
func (s SegmentStatus) Final() bool {
	return s == Finalized || s == Corrected
}

// Segment is one reconciled span of recognized speech. Start and End are
// millisecond offsets from the beginning of the session's audio timeline,
// and Start < End always holds for stored segments.
type Segment struct {
	ID         string
	Text       string
	Start      int64
	End        int64
	Confidence *float64
	Revision   int
	Status     SegmentStatus
}

// Duration returns the segment length in milliseconds.
func (s Segment) Duration() int64 {
	return s.End - s.Start
}

// Session statuses.
const (
	SessionRecording = "recording"
	SessionCompleted = "completed"
)

// Session is the metadata for one recording session.
type Session struct {
	ID        string
	Locale    string
	Device    string
	Audio     string
	Engine    string
	Status    string
	CreatedAt time.Time
	EndedAt   *time.Time
}
