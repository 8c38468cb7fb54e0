package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"verbatim/internal/transcript"
)

// encodeTTML renders segments as a minimal TTML document: one <p> per
// segment with clock-time begin/end attributes. Text content is XML-escaped;
// Encode has already verified it is valid UTF-8.
func encodeTTML(segments []transcript.Segment) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<tt xmlns=\"http://www.w3.org/ns/ttml\">\n")
	b.WriteString("  <body>\n")
	b.WriteString("    <div>\n")
	for _, seg := range segments {
		fmt.Fprintf(&b, "      <p begin=\"%s\" end=\"%s\">%s</p>\n",
			formatTimestamp(seg.Start, '.'),
			formatTimestamp(seg.End, '.'),
			escapeXML(seg.Text))
	}
	b.WriteString("    </div>\n")
	b.WriteString("  </body>\n")
	b.WriteString("</tt>\n")
	return []byte(b.String())
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
