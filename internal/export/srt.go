package export

import (
	"fmt"
	"strings"

	"verbatim/internal/transcript"
)

// encodeSRT renders segments as SubRip text: 1-based cue numbers, comma
// millisecond separator, a blank line after every cue. Text is emitted
// as-is; line wrapping belongs to the player, not the codec.
func encodeSRT(segments []transcript.Segment) []byte {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatTimestamp(seg.Start, ','),
			formatTimestamp(seg.End, ','),
			seg.Text)
	}
	return []byte(b.String())
}
