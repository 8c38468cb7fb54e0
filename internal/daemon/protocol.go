// Package daemon implements the verbatim daemon: a Unix-socket NDJSON
// protocol carrying commands, responses, and subscription events, plus the
// server that reconciles hypothesis streams into sessions. The recognition
// engine and the TUI are both clients of the same socket.
package daemon

import (
	"time"

	"verbatim/internal/transcript"
)

// Command is sent from a client to the daemon. Cmd selects the operation;
// the remaining fields apply to specific commands and are omitted otherwise.
type Command struct {
	Cmd    string   `json:"cmd"`
	Locale string   `json:"locale,omitempty"`
	Device string   `json:"device,omitempty"`
	Audio  string   `json:"audio,omitempty"`
	Engine string   `json:"engine,omitempty"`
	Events []string `json:"events,omitempty"`

	// hypothesis delivery
	ID         string   `json:"id,omitempty"`
	Text       string   `json:"text,omitempty"`
	StartMs    *int64   `json:"startMs,omitempty"`
	EndMs      *int64   `json:"endMs,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Revision   int      `json:"revision,omitempty"`
	Final      bool     `json:"final,omitempty"`

	// export and stored-session access
	SessionID string `json:"sessionId,omitempty"`
	Format    string `json:"format,omitempty"`
	Pending   string `json:"pending,omitempty"`
	TimeoutMs *int64 `json:"timeoutMs,omitempty"`
	Path      string `json:"path,omitempty"`
	Bundle    bool   `json:"bundle,omitempty"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK        bool          `json:"ok"`
	SessionID string        `json:"sessionId,omitempty"`
	Recording *bool         `json:"recording,omitempty"`
	Idle      *bool         `json:"idle,omitempty"`
	Segments  *int          `json:"segments,omitempty"`
	Pending   *int          `json:"pending,omitempty"`
	Path      string        `json:"path,omitempty"`
	Snapshot  []WireSegment `json:"snapshot,omitempty"`
	Sessions  []SessionInfo `json:"sessions,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Event is streamed from the daemon to subscribed clients. Event names:
// "partial" (provisional inserted or revised), "segment" (finalized),
// "corrected" (a committed segment changed; Shrunk marks a finalized end
// that moved earlier), "removed" (provisional discarded at session end),
// "status", and "error".
type Event struct {
	Event     string       `json:"event"`
	SessionID string       `json:"sessionId,omitempty"`
	Segment   *WireSegment `json:"segment,omitempty"`
	Prev      *WireSegment `json:"prev,omitempty"`
	Shrunk    *bool        `json:"shrunk,omitempty"`
	Recording *bool        `json:"recording,omitempty"`
	Segments  *int         `json:"segments,omitempty"`
	Message   string       `json:"message,omitempty"`
	Transient *bool        `json:"transient,omitempty"`
}

// WireSegment is the wire form of a transcript segment.
type WireSegment struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	StartMs    int64    `json:"startMs"`
	EndMs      int64    `json:"endMs"`
	Confidence *float64 `json:"confidence,omitempty"`
	Revision   int      `json:"revision"`
	Status     string   `json:"status"`
}

// ToWire converts a transcript segment to its wire form.
func ToWire(seg transcript.Segment) WireSegment {
	return WireSegment{
		ID:         seg.ID,
		Text:       seg.Text,
		StartMs:    seg.Start,
		EndMs:      seg.End,
		Confidence: seg.Confidence,
		Revision:   seg.Revision,
		Status:     string(seg.Status),
	}
}

// Segment converts the wire form back to a transcript segment.
func (w WireSegment) Segment() transcript.Segment {
	return transcript.Segment{
		ID:         w.ID,
		Text:       w.Text,
		Start:      w.StartMs,
		End:        w.EndMs,
		Confidence: w.Confidence,
		Revision:   w.Revision,
		Status:     transcript.SegmentStatus(w.Status),
	}
}

// SessionInfo is one entry of a session listing.
type SessionInfo struct {
	SessionID string    `json:"sessionId"`
	Locale    string    `json:"locale,omitempty"`
	Engine    string    `json:"engine,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Segments  int       `json:"segments"`
	Active    bool      `json:"active,omitempty"`
}

// BoolPtr returns a pointer to a bool value. Convenience for building commands.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to an int value.
func IntPtr(n int) *int { return &n }

// Int64Ptr returns a pointer to an int64 value.
func Int64Ptr(n int64) *int64 { return &n }
