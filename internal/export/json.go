package export

import (
	"encoding/json"
	"fmt"
	"time"

	"verbatim/internal/transcript"
)

// Document is the JSON export shape: session metadata plus the committed
// segment sequence with integer millisecond offsets.
type Document struct {
	Metadata Metadata          `json:"metadata"`
	Segments []DocumentSegment `json:"segments"`
}

// Metadata carries the session fields of a JSON export.
type Metadata struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
	Locale    string    `json:"locale,omitempty"`
	Audio     string    `json:"audio,omitempty"`
	Engine    string    `json:"engine,omitempty"`
}

// DocumentSegment is one committed segment in a JSON export.
type DocumentSegment struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	StartTimeMs int64    `json:"startTimeMs"`
	EndTimeMs   int64    `json:"endTimeMs"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

func encodeJSON(session transcript.Session, segments []transcript.Segment) ([]byte, error) {
	doc := Document{
		Metadata: Metadata{
			SessionID: session.ID,
			CreatedAt: session.CreatedAt,
			Locale:    session.Locale,
			Audio:     session.Audio,
			Engine:    session.Engine,
		},
		Segments: make([]DocumentSegment, 0, len(segments)),
	}
	for _, seg := range segments {
		doc.Segments = append(doc.Segments, DocumentSegment{
			ID:          seg.ID,
			Text:        seg.Text,
			StartTimeMs: seg.Start,
			EndTimeMs:   seg.End,
			Confidence:  seg.Confidence,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal session document: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeJSON parses a JSON export back into a session and its segment
// sequence. Decoded segments carry Finalized status; the export format does
// not distinguish finalized from corrected.
func DecodeJSON(data []byte) (transcript.Session, []transcript.Segment, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return transcript.Session{}, nil, fmt.Errorf("parse session document: %w", err)
	}

	session := transcript.Session{
		ID:        doc.Metadata.SessionID,
		Locale:    doc.Metadata.Locale,
		Audio:     doc.Metadata.Audio,
		Engine:    doc.Metadata.Engine,
		Status:    transcript.SessionCompleted,
		CreatedAt: doc.Metadata.CreatedAt,
	}
	segments := make([]transcript.Segment, 0, len(doc.Segments))
	for _, ds := range doc.Segments {
		segments = append(segments, transcript.Segment{
			ID:         ds.ID,
			Text:       ds.Text,
			Start:      ds.StartTimeMs,
			End:        ds.EndTimeMs,
			Confidence: ds.Confidence,
			Status:     transcript.Finalized,
		})
	}
	return session, segments, nil
}
