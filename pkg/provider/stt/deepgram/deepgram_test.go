package deepgram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/lyricsync/pkg/provider/stt"
)

const sampleResponse = `{
  "metadata": {"duration": 6.4},
  "results": {
    "channels": [{
      "detected_language": "en",
      "alternatives": [{"transcript": "hello darkness my old friend i've come to talk", "confidence": 0.97}]
    }],
    "utterances": [
      {"start": 0.5, "end": 2.9, "confidence": 0.98, "transcript": "hello darkness my old friend", "id": "a"},
      {"start": 3.1, "end": 6.2, "confidence": 0.95, "transcript": "i've come to talk", "id": "b"}
    ]
  }
}`

// ---- URL / query-param tests ----

func TestBuildURL_Defaults(t *testing.T) {
	p, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.Request{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "language", "en", q.Get("language"))
	assertEqual(t, "punctuate", "true", q.Get("punctuate"))
	assertEqual(t, "utterances", "true", q.Get("utterances"))
}

func TestBuildURL_CustomModel(t *testing.T) {
	p, err := New("key", WithModel("base"), WithLanguage("de-DE"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.Request{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	q := u.Query()

	assertEqual(t, "model", "base", q.Get("model"))
	assertEqual(t, "language", "de-DE", q.Get("language"))
}

func TestBuildURL_LanguageOverriddenByRequest(t *testing.T) {
	p, _ := New("key", WithLanguage("en"))
	rawURL, _ := p.buildURL(stt.Request{Language: "fr"})
	u, _ := url.Parse(rawURL)
	assertEqual(t, "language", "fr", u.Query().Get("language"))
}

func TestBuildURL_Keywords(t *testing.T) {
	p, _ := New("key", WithKeywords(
		KeywordBoost{Keyword: "Garfunkel", Boost: 5},
		KeywordBoost{Keyword: "Simon", Boost: 2.5},
	))
	rawURL, _ := p.buildURL(stt.Request{})
	u, _ := url.Parse(rawURL)

	kws := u.Query()["keywords"]
	if len(kws) != 2 {
		t.Fatalf("expected 2 keywords, got %d: %v", len(kws), kws)
	}
	assertEqual(t, "keyword[0]", "Garfunkel:5", kws[0])
	assertEqual(t, "keyword[1]", "Simon:2.5", kws[1])
}

// ---- response parsing ----

func TestParseDeepgramResponse_Utterances(t *testing.T) {
	tr, err := parseDeepgramResponse([]byte(sampleResponse))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tr.Duration != 6.4 || tr.Language != "en" {
		t.Errorf("metadata = %v/%q", tr.Duration, tr.Language)
	}
	assertEqual(t, "text", "hello darkness my old friend i've come to talk", tr.Text)
	if len(tr.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(tr.Segments))
	}
	seg := tr.Segments[1]
	if seg.ID != 1 || seg.Start != 3.1 || seg.End != 6.2 {
		t.Errorf("segment[1] = %+v", seg)
	}
	assertEqual(t, "segment[1].text", "i've come to talk", seg.Text)
}

func TestParseDeepgramResponse_Empty(t *testing.T) {
	tr, err := parseDeepgramResponse([]byte(`{}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tr.Segments == nil || len(tr.Segments) != 0 {
		t.Errorf("segments = %#v, want empty slice", tr.Segments)
	}
}

func TestParseDeepgramResponse_InvalidJSON(t *testing.T) {
	if _, err := parseDeepgramResponse([]byte(`not-json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

// ---- Transcribe ----

func TestTranscribe_PostsAudio(t *testing.T) {
	var gotAuth, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, sampleResponse)
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "song.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}

	p, _ := New("secret", WithEndpoint(srv.URL+"/v1/listen"))
	tr, err := p.Transcribe(context.Background(), stt.Request{AudioPath: path})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	assertEqual(t, "auth", "Token secret", gotAuth)
	assertEqual(t, "body", "RIFF", gotBody)
	if gotType == "" {
		t.Error("expected a Content-Type header")
	}
	if len(tr.Segments) != 2 {
		t.Errorf("segments = %d, want 2", len(tr.Segments))
	}
}

func TestTranscribe_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_msg":"bad"}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "song.mp3")
	_ = os.WriteFile(path, []byte("ID3"), 0o600)

	p, _ := New("secret", WithEndpoint(srv.URL))
	if _, err := p.Transcribe(context.Background(), stt.Request{AudioPath: path}); err == nil {
		t.Fatal("expected error for HTTP 400")
	}
}

// ---- Constructor tests ----

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	assertEqual(t, "model", defaultModel, p.model)
	assertEqual(t, "language", defaultLanguage, p.language)
	assertEqual(t, "endpoint", deepgramEndpoint, p.endpoint)
}

// ---- helpers ----

func assertEqual(t *testing.T, label, want, got string) {
	t.Helper()
	if want != got {
		t.Errorf("%s: want %q, got %q", label, want, got)
	}
}
