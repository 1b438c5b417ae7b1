package api

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Summary formats accepted by the backend
const (
	FormatText     = "text"
	FormatBullet   = "bullet"
	FormatDetailed = "detailed"
)

// Formats lists the accepted summary formats
var Formats = []string{FormatText, FormatBullet, FormatDetailed}

// VideoInfo is the metadata returned by /get_video_info
type VideoInfo struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Thumbnail   string `json:"thumbnail"`
	VideoID     string `json:"video_id"`
	Views       int64  `json:"views"`
	PublishDate string `json:"publish_date"`
	Description string `json:"description"`
	Length      int    `json:"length"` // seconds
	URL         string `json:"url"`
}

// TranscriptShape records which wire shape a transcript arrived in
type TranscriptShape int

const (
	ShapeUnknown   TranscriptShape = iota
	ShapeText                      // plain string
	ShapeFullText                  // object with transcriptionAsText
	ShapeFragments                 // array of caption fragments
)

// Fragment is one caption segment
type Fragment struct {
	Subtitle string `json:"subtitle"`
}

// Transcript accepts all transcript shapes the backend produces
type Transcript struct {
	Text      string
	Fragments []Fragment
	Shape     TranscriptShape
}

// UnmarshalJSON implements json.Unmarshaler. Unrecognized shapes decode
// without error and leave Shape as ShapeUnknown.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	*t = Transcript{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		if err := json.Unmarshal(data, &t.Text); err != nil {
			return err
		}
		t.Shape = ShapeText
	case '{':
		var obj struct {
			TranscriptionAsText string     `json:"transcriptionAsText"`
			Transcription       []Fragment `json:"transcription"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.TranscriptionAsText != "" {
			t.Text = obj.TranscriptionAsText
			t.Fragments = obj.Transcription
			t.Shape = ShapeFullText
		}
	case '[':
		if err := json.Unmarshal(data, &t.Fragments); err != nil {
			return err
		}
		t.Text = joinFragments(t.Fragments)
		t.Shape = ShapeFragments
	}
	return nil
}

func joinFragments(frags []Fragment) string {
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = f.Subtitle
	}
	return strings.Join(parts, " ")
}

// TranscriptResponse is the body of /get_transcript
type TranscriptResponse struct {
	Transcript Transcript `json:"transcript"`
	Source     string     `json:"source"`
}

// SummaryRequest is the body of /generate_summary
type SummaryRequest struct {
	Transcript    string `json:"transcript"`
	Format        string `json:"format"`
	GenerateAudio bool   `json:"generate_audio"`
}

// SummaryResponse is the result of /generate_summary
type SummaryResponse struct {
	Summary   string `json:"summary"`
	AudioURL  string `json:"audio_url,omitempty"`
	Format    string `json:"format"`
	Timestamp string `json:"timestamp"`
}

// errorBody is the failure envelope shared by every endpoint
type errorBody struct {
	Error string `json:"error"`
}
