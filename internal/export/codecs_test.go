package export

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"verbatim/internal/transcript"
)

func testSession() transcript.Session {
	return transcript.Session{
		ID:        "sess_test",
		Locale:    "en_US",
		Audio:     "meeting.wav",
		Engine:    "whisper-large-v3",
		Status:    transcript.SessionCompleted,
		CreatedAt: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
	}
}

func cseg(id, text string, start, end int64) transcript.Segment {
	return transcript.Segment{ID: id, Text: text, Start: start, End: end, Revision: 1, Status: transcript.Finalized}
}

func TestFormatTimestamp(t *testing.T) {
	if got := formatTimestamp(61234, ','); got != "00:01:01,234" {
		t.Errorf("srt = %q, want %q", got, "00:01:01,234")
	}
	if got := formatTimestamp(65000, ','); got != "00:01:05,000" {
		t.Errorf("srt = %q, want %q", got, "00:01:05,000")
	}
	if got := formatTimestamp(61234, '.'); got != "00:01:01.234" {
		t.Errorf("vtt = %q, want %q", got, "00:01:01.234")
	}
	if got := formatTimestamp(0, ','); got != "00:00:00,000" {
		t.Errorf("zero = %q, want %q", got, "00:00:00,000")
	}
	// Hours widen past two digits rather than wrapping.
	if got := formatTimestamp(90061234, ','); got != "25:01:01,234" {
		t.Errorf("long = %q, want %q", got, "25:01:01,234")
	}
}

func TestEncodeSRT(t *testing.T) {
	segs := []transcript.Segment{
		cseg("a", "hello world", 0, 1500),
		cseg("b", "second line", 61234, 65000),
	}

	data, err := Encode(testSession(), segs, FormatSRT)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := "1\n" +
		"00:00:00,000 --> 00:00:01,500\n" +
		"hello world\n" +
		"\n" +
		"2\n" +
		"00:01:01,234 --> 00:01:05,000\n" +
		"second line\n" +
		"\n"
	if string(data) != want {
		t.Errorf("srt output:\n%q\nwant:\n%q", data, want)
	}
}

func TestEncodeVTT(t *testing.T) {
	segs := []transcript.Segment{
		cseg("a", "hello world", 0, 1500),
		cseg("b", "second line", 61234, 65000),
	}

	data, err := Encode(testSession(), segs, FormatVTT)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := "WEBVTT\n" +
		"\n" +
		"00:00:00.000 --> 00:00:01.500\n" +
		"hello world\n" +
		"\n" +
		"00:01:01.234 --> 00:01:05.000\n" +
		"second line\n" +
		"\n"
	if string(data) != want {
		t.Errorf("vtt output:\n%q\nwant:\n%q", data, want)
	}
}

func TestEncodeTTMLWellFormed(t *testing.T) {
	segs := []transcript.Segment{
		cseg("a", "tags <b> & ampersands", 0, 1500),
		cseg("b", "plain", 61234, 65000),
	}

	data, err := Encode(testSession(), segs, FormatTTML)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var doc struct {
		XMLName xml.Name `xml:"tt"`
		Body    struct {
			Div struct {
				Paragraphs []struct {
					Begin string `xml:"begin,attr"`
					End   string `xml:"end,attr"`
					Text  string `xml:",chardata"`
				} `xml:"p"`
			} `xml:"div"`
		} `xml:"body"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("ttml is not well-formed: %v\n%s", err, data)
	}

	ps := doc.Body.Div.Paragraphs
	if len(ps) != 2 {
		t.Fatalf("paragraphs = %d, want 2", len(ps))
	}
	if ps[0].Text != "tags <b> & ampersands" {
		t.Errorf("text = %q, want round-tripped original", ps[0].Text)
	}
	if ps[1].Begin != "00:01:01.234" || ps[1].End != "00:01:05.000" {
		t.Errorf("timing = %s/%s, want 00:01:01.234/00:01:05.000", ps[1].Begin, ps[1].End)
	}
	if !strings.Contains(string(data), "&lt;b&gt;") {
		t.Errorf("raw markup not escaped:\n%s", data)
	}
}

func TestEncodeJSONRoundTrip(t *testing.T) {
	conf := 0.92
	segs := []transcript.Segment{
		cseg("a", "hello world", 0, 1500),
		{ID: "b", Text: "second", Start: 61234, End: 65000, Confidence: &conf, Revision: 2, Status: transcript.Corrected},
	}
	session := testSession()

	data, err := Encode(session, segs, FormatJSON)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	gotSession, gotSegs, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotSession.ID != session.ID || gotSession.Locale != session.Locale {
		t.Errorf("session = %+v, want %+v", gotSession, session)
	}
	if !gotSession.CreatedAt.Equal(session.CreatedAt) {
		t.Errorf("createdAt = %v, want %v", gotSession.CreatedAt, session.CreatedAt)
	}
	if len(gotSegs) != len(segs) {
		t.Fatalf("segments = %d, want %d", len(gotSegs), len(segs))
	}
	for i := range segs {
		if gotSegs[i].ID != segs[i].ID || gotSegs[i].Text != segs[i].Text ||
			gotSegs[i].Start != segs[i].Start || gotSegs[i].End != segs[i].End {
			t.Errorf("segment %d = %+v, want %+v", i, gotSegs[i], segs[i])
		}
	}
	if gotSegs[1].Confidence == nil || *gotSegs[1].Confidence != conf {
		t.Errorf("confidence = %v, want %v", gotSegs[1].Confidence, conf)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	segs := []transcript.Segment{
		cseg("a", "hello", 0, 1000),
		cseg("b", "world", 1000, 2000),
	}
	session := testSession()

	for _, format := range Formats() {
		first, err := Encode(session, segs, format)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		second, err := Encode(session, segs, format)
		if err != nil {
			t.Fatalf("%s again: %v", format, err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("%s: repeated encode produced different bytes", format)
		}
	}
}

func TestEncodeSortsByStartTime(t *testing.T) {
	segs := []transcript.Segment{
		cseg("b", "second", 61234, 65000),
		cseg("a", "first", 0, 1500),
	}

	data, err := Encode(testSession(), segs, FormatSRT)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasPrefix(string(data), "1\n00:00:00,000") {
		t.Errorf("cues not sorted by start:\n%s", data)
	}
}
