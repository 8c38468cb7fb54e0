// Package export renders a session's committed transcript into interchange
// formats. Encoders are pure: the same session and segments always produce
// the same bytes, so a re-export differs only if a correction landed in
// between.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"verbatim/internal/transcript"
)

// Export errors.
var (
	ErrNoSegments     = errors.New("session has no committed segments")
	ErrUnknownFormat  = errors.New("unknown export format")
	ErrUnknownPolicy  = errors.New("unknown pending policy")
	ErrInvalidText    = errors.New("segment text is not valid UTF-8")
	ErrPendingTimeout = errors.New("timed out waiting for provisional segments to settle")
)

// Format identifies an export codec.
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatTTML Format = "ttml"
	FormatJSON Format = "json"
)

// Formats lists the supported formats in presentation order.
func Formats() []Format {
	return []Format{FormatSRT, FormatVTT, FormatTTML, FormatJSON}
}

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatSRT:
		return FormatSRT, nil
	case FormatVTT:
		return FormatVTT, nil
	case FormatTTML:
		return FormatTTML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension for the format, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type to serve the format under.
func (f Format) ContentType() string {
	switch f {
	case FormatSRT:
		return "application/x-subrip"
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	case FormatTTML:
		return "application/ttml+xml"
	case FormatJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// PendingPolicy selects how an export treats provisional segments still in
// flight when the export is requested.
type PendingPolicy string

const (
	// PendingDrop exports the committed segments only. This is the default.
	PendingDrop PendingPolicy = "drop"
	// PendingAwait waits for provisional segments to resolve before
	// encoding, up to the caller's deadline.
	PendingAwait PendingPolicy = "await"
)

// ParsePendingPolicy maps a user-supplied name to a PendingPolicy. An empty
// string selects PendingDrop.
func ParsePendingPolicy(s string) (PendingPolicy, error) {
	switch PendingPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PendingDrop, "":
		return PendingDrop, nil
	case PendingAwait:
		return PendingAwait, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Encode renders the committed segments of a session in the given format.
// Provisional segments are excluded; use AwaitSettled first for the await
// policy. Segments are re-sorted by start time so the input order cannot
// influence the output bytes.
func Encode(session transcript.Session, segments []transcript.Segment, format Format) ([]byte, error) {
	finals := committed(segments)
	if len(finals) == 0 {
		return nil, ErrNoSegments
	}
	for _, seg := range finals {
		if !utf8.ValidString(seg.Text) {
			return nil, fmt.Errorf("segment %s: %w", seg.ID, ErrInvalidText)
		}
	}

	switch format {
	case FormatSRT:
		return encodeSRT(finals), nil
	case FormatVTT:
		return encodeVTT(finals), nil
	case FormatTTML:
		return encodeTTML(finals), nil
	case FormatJSON:
		return encodeJSON(session, finals)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
}

// AwaitSettled blocks until the store holds no provisional segments or ctx
// is done, in which case ErrPendingTimeout is returned. Use it before
// Encode to honor the PendingAwait policy.
func AwaitSettled(ctx context.Context, store *transcript.Store) error {
	sub := store.Subscribe()
	defer sub.Close()

	if store.Pending() == 0 {
		return nil
	}
	for {
		select {
		case _, ok := <-sub.Changes():
			if !ok {
				// Evicted as a slow subscriber; fall back to one last poll.
				if store.Pending() == 0 {
					return nil
				}
				return fmt.Errorf("change feed closed with %d provisional segments", store.Pending())
			}
			if store.Pending() == 0 {
				return nil
			}
		case <-ctx.Done():
			return ErrPendingTimeout
		}
	}
}

// WriteFile writes data to path through a temporary file in the same
// directory and an atomic rename, so a failed export never leaves a
// truncated artifact behind.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename export into place: %w", err)
	}
	return nil
}

// committed filters to finalized and corrected segments, sorted by start.
func committed(segments []transcript.Segment) []transcript.Segment {
	out := make([]transcript.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.Status.Final() {
			out = append(out, seg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

// formatTimestamp renders a millisecond offset as HH:MM:SS<sep>mmm. The
// hour field widens past two digits for very long sessions.
func formatTimestamp(ms int64, sep byte) string {
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	frac := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, frac)
}
