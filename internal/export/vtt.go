package export

import (
	"fmt"
	"strings"

	"verbatim/internal/transcript"
)

// encodeVTT renders segments as WebVTT: the WEBVTT header, then cues in the
// same shape as SRT but without cue numbers and with a period millisecond
// separator.
func encodeVTT(segments []transcript.Segment) []byte {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range segments {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			formatTimestamp(seg.Start, '.'),
			formatTimestamp(seg.End, '.'),
			seg.Text)
	}
	return []byte(b.String())
}
