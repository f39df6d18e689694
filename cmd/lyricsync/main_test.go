package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/lyricsync/internal/timeline"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTimelineCommand(t *testing.T) {
	out, err := execute(t, "", "timeline", "Hello there.", "Well I am fine")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var groups []timeline.PhraseGroup
	if err := json.Unmarshal([]byte(out), &groups); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(groups) != 2 || groups[1].Text != "I am fine" {
		t.Errorf("groups = %+v", groups)
	}
}

func TestTimelineCommand_Stdin(t *testing.T) {
	out, err := execute(t, "so here we go", "timeline")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, `"here we go"`) {
		t.Errorf("out = %s", out)
	}
}

func TestAlignCommand(t *testing.T) {
	dir := t.TempDir()
	lyricsPath := filepath.Join(dir, "lyrics.txt")
	if err := os.WriteFile(lyricsPath, []byte("[Intro]\nI walk a lonely road\n12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	transcript := `{"text":" I walk a lonely rode","segments":[{"id":0,"start":0,"end":3,"text":" I walk a lonely rode"}]}`
	outPath := filepath.Join(dir, "out.json")

	if _, err := execute(t, transcript, "align", "-l", lyricsPath, "-o", outPath); err != nil {
		t.Fatalf("execute: %v", err)
	}
	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc struct {
		Text     string `json:"text"`
		Segments []struct {
			Text string  `json:"text"`
			End  float64 `json:"end"`
		} `json:"segments"`
		SmartTimestamps []timeline.PhraseGroup `json:"smart_timestamps"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Segments) != 1 || doc.Segments[0].Text != "I walk a lonely road" || doc.Segments[0].End != 3 {
		t.Errorf("segments = %+v", doc.Segments)
	}
	if doc.Text != " I walk a lonely rode" {
		t.Errorf("text = %q, want the original transcript text", doc.Text)
	}
	if len(doc.SmartTimestamps) != 1 {
		t.Errorf("smart_timestamps = %+v", doc.SmartTimestamps)
	}
}

func TestAlignCommand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"invalid transcript", "{", []string{"align"}, "decode transcript"},
		{"no segments", `{"text":"x"}`, []string{"align"}, "no segments"},
		{"missing lyrics file", `{"segments":[]}`, []string{"align", "-l", "does-not-exist.txt"}, "read lyrics"},
		{"explicit missing config", "", []string{"timeline", "--config", "does-not-exist.yaml", "x"}, "does-not-exist.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.stdin, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestTranscribeCommand_RequiresProvider(t *testing.T) {
	_, err := execute(t, "", "transcribe", "song.mp3")
	if err == nil {
		t.Fatal("expected an error without an STT provider")
	}
}
