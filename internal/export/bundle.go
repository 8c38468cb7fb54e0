package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"verbatim/internal/transcript"
)

// Manifest describes the contents of an export bundle directory.
type Manifest struct {
	SessionID      string    `json:"sessionId"`
	CreatedAt      time.Time `json:"createdAt"`
	Locale         string    `json:"locale,omitempty"`
	Engine         string    `json:"engine,omitempty"`
	Audio          string    `json:"audio,omitempty"`
	Format         string    `json:"format"`
	TranscriptFile string    `json:"transcriptFile"`
	SegmentCount   int       `json:"segmentCount"`
}

// WriteBundle exports a session as a directory pairing the session's audio
// reference with one timing file and a manifest. The audio itself is
// referenced by name, never copied or re-encoded. Files are written
// atomically; on error the directory may exist but holds no partial file.
func WriteBundle(dir string, session transcript.Session, segments []transcript.Segment, format Format) error {
	data, err := Encode(session, segments, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle directory: %w", err)
	}

	transcriptFile := "transcript" + format.Extension()
	if err := WriteFile(filepath.Join(dir, transcriptFile), data); err != nil {
		return err
	}

	manifest := Manifest{
		SessionID:      session.ID,
		CreatedAt:      session.CreatedAt,
		Locale:         session.Locale,
		Engine:         session.Engine,
		Audio:          session.Audio,
		Format:         string(format),
		TranscriptFile: transcriptFile,
		SegmentCount:   len(committed(segments)),
	}
	mdata, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle manifest: %w", err)
	}
	mdata = append(mdata, '\n')
	if err := WriteFile(filepath.Join(dir, "manifest.json"), mdata); err != nil {
		return err
	}
	return nil
}
