package stt

import (
	"encoding/json"
	"strings"
)

// Segment is one time-bounded unit of transcribed speech as returned by a
// Whisper-style verbose transcription.
//
// The JSON field names match the verbose_json response format exactly so that
// segments survive a decode/encode round trip unchanged. Only Text is ever
// rewritten by the alignment pipeline; every other field is opaque
// pass-through metadata.
type Segment struct {
	// ID is unique and monotonically increasing within one transcription.
	ID int `json:"id"`

	// Seek is the decoder seek offset reported by the provider.
	Seek int `json:"seek"`

	// Start and End bound the segment in seconds from the start of the audio.
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// Text is the transcribed (and possibly corrected) text.
	Text string `json:"text"`

	Tokens           []int   `json:"tokens"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`

	// textMissing is set when the segment was decoded from JSON that had no
	// text key (or a null one).
	textMissing bool
}

// HasText reports whether the segment carries a text field. Segments built in
// Go code always do; segments decoded from JSON only do when the key was
// present.
func (s Segment) HasText() bool { return !s.textMissing }

// segmentFields has the same layout as Segment but none of its methods.
type segmentFields Segment

// UnmarshalJSON decodes a verbose_json segment and remembers whether the text
// key was present.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw struct {
		segmentFields
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Segment(raw.segmentFields)
	if raw.Text == nil {
		s.Text = ""
		s.textMissing = true
		return nil
	}
	s.Text = *raw.Text
	s.textMissing = false
	return nil
}

// MarshalJSON encodes the segment with the verbose_json field names. A segment
// that was decoded without a text key is encoded without one.
func (s Segment) MarshalJSON() ([]byte, error) {
	if !s.textMissing {
		return json.Marshal(segmentFields(s))
	}
	return json.Marshal(struct {
		segmentFields
		Text *string `json:"text,omitempty"`
	}{segmentFields: segmentFields(s)})
}

// Transcription is the full result of a batch transcription request.
type Transcription struct {
	// Text is the full transcript as reported by the provider.
	Text string `json:"text"`

	// Language is the detected or requested language, when reported.
	Language string `json:"language,omitempty"`

	// Duration is the audio length in seconds, when reported.
	Duration float64 `json:"duration,omitempty"`

	// Segments holds the time-stamped segments in order.
	Segments []Segment `json:"segments"`
}

// FullText returns Text, or the segment texts joined with single spaces when
// the provider did not report a full transcript.
func (t *Transcription) FullText() string {
	if strings.TrimSpace(t.Text) != "" {
		return t.Text
	}
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}
