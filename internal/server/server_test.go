package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/lyricsync/internal/app"
	"github.com/MrWong99/lyricsync/internal/config"
	"github.com/MrWong99/lyricsync/internal/health"
	lsmcp "github.com/MrWong99/lyricsync/internal/mcp"
	"github.com/MrWong99/lyricsync/internal/observe"
	"github.com/MrWong99/lyricsync/internal/server"
	storemock "github.com/MrWong99/lyricsync/internal/store/mock"
	"github.com/MrWong99/lyricsync/internal/timeline"
)

func newTestServer(t *testing.T, st *storemock.Store, opts ...server.Option) *httptest.Server {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	appOpts := []app.Option{
		app.WithMetrics(m),
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if st != nil {
		appOpts = append(appOpts, app.WithStore(st))
	}
	a, err := app.New(context.Background(), config.Default(), nil, appOpts...)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	opts = append([]server.Option{
		server.WithMetrics(m),
		server.WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "# metrics\n")
		})),
	}, opts...)
	srv := httptest.NewServer(server.New(a, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

const alignBody = `{
  "segments": [
    {"id": 0, "seek": 0, "start": 0, "end": 2.5, "text": " I walk a lonely rode", "tokens": [1, 2], "temperature": 0, "avg_logprob": -0.2, "compression_ratio": 1.1, "no_speech_prob": 0.01},
    {"id": 1, "seek": 0, "start": 2.5, "end": 4}
  ],
  "lyrics": "[Verse 1]\nI walk a lonely road\n(x2)"
}`

func TestAlign(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	var out struct {
		Segments    []map[string]any `json:"segments"`
		Corrections []map[string]any `json:"corrections"`
		Method      string           `json:"method"`
		Fallback    string           `json:"fallback"`
	}
	if code := postJSON(t, srv.URL+"/v1/align", alignBody, &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got := out.Segments[0]["text"]; got != "I walk a lonely road" {
		t.Errorf("segment 0 text = %v", got)
	}
	if out.Segments[0]["avg_logprob"] != -0.2 || out.Segments[0]["end"] != 2.5 {
		t.Errorf("metadata not preserved: %v", out.Segments[0])
	}
	if _, ok := out.Segments[1]["text"]; ok {
		t.Errorf("segment without text gained a text key: %v", out.Segments[1])
	}
	if len(out.Corrections) != 1 || out.Method != "token_sort" || out.Fallback != "" {
		t.Errorf("out = %+v", out)
	}
}

func TestAlign_Errors(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{"segments": [`, http.StatusBadRequest},
		{"missing segments", `{"lyrics": "a b"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]string
			if code := postJSON(t, srv.URL+"/v1/align", tt.body, &out); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
			if out["error"] == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestAlign_NoLyricsFallsBack(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	var out struct {
		Segments []map[string]any `json:"segments"`
		Fallback string           `json:"fallback"`
	}
	if code := postJSON(t, srv.URL+"/v1/align", `{"segments":[{"id":0,"text":"hello"}]}`, &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out.Fallback == "" || out.Segments[0]["text"] != "hello" {
		t.Errorf("out = %+v", out)
	}
}

func TestTimeline(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	var groups []timeline.PhraseGroup
	if code := postJSON(t, srv.URL+"/v1/timeline", `{"text":"Hello there. Well I am fine"}`, &groups); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(groups) != 2 || groups[0].Text != "Hello there." || groups[1].Start <= groups[0].End {
		t.Errorf("groups = %+v", groups)
	}

	var empty []timeline.PhraseGroup
	if code := postJSON(t, srv.URL+"/v1/timeline", `{"text":""}`, &empty); code != http.StatusOK || empty == nil || len(empty) != 0 {
		t.Errorf("empty text: status %d, groups %v", code, empty)
	}
}

func TestProcessAndGetRun(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &storemock.Store{})

	var out struct {
		Text            string                 `json:"text"`
		Segments        []map[string]any       `json:"segments"`
		SmartTimestamps []timeline.PhraseGroup `json:"smart_timestamps"`
		RunID           string                 `json:"run_id"`
	}
	body := `{"segments":[{"id":0,"text":"I walk a lonely rode"}],"lyrics":"I walk a lonely road","title":"Boulevard"}`
	if code := postJSON(t, srv.URL+"/v1/process", body, &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out.RunID == "" || len(out.SmartTimestamps) != 1 || out.Segments[0]["text"] != "I walk a lonely road" {
		t.Fatalf("out = %+v", out)
	}

	resp, err := http.Get(srv.URL + "/v1/runs/" + out.RunID)
	if err != nil {
		t.Fatalf("GET run: %v", err)
	}
	defer resp.Body.Close()
	var run struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if resp.StatusCode != http.StatusOK || run.ID != out.RunID || run.Title != "Boulevard" {
		t.Errorf("run = %d %+v", resp.StatusCode, run)
	}

	missing, err := http.Get(srv.URL + "/v1/runs/unknown")
	if err != nil {
		t.Fatalf("GET missing run: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing run status = %d", missing.StatusCode)
	}
}

func TestProcess_RequiresSegments(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	if code := postJSON(t, srv.URL+"/v1/process", `{"title":"x"}`, nil); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestGetRun_NoStore(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/runs/abc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestKaraoke(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, server.WithPlaybackSpeed(1000))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/karaoke?text=" +
		"Hello%20there.%20Well%20I%20am%20fine.%20So%20goodbye"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	var got []timeline.PhraseGroup
	for {
		var g timeline.PhraseGroup
		err := wsjson.Read(ctx, conn, &g)
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		got = append(got, g)
	}
	if len(got) != 3 {
		t.Fatalf("received %d groups, want 3: %+v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].End {
			t.Errorf("group %d starts before group %d ends", i, i-1)
		}
	}
	if got[0].Text != "Hello there." || got[2].Text != "goodbye" {
		t.Errorf("groups = %+v", got)
	}
}

func TestKaraoke_RequiresText(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/karaoke")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestProbesAndMetrics(t *testing.T) {
	t.Parallel()

	st := &storemock.Store{PingErr: errors.New("database is locked")}
	srv := newTestServer(t, st, server.WithChecker(health.Checker{
		Name:  "providers",
		Check: func(context.Context) error { return nil },
	}))

	for path, want := range map[string]int{
		"/healthz": http.StatusOK,
		"/readyz":  http.StatusServiceUnavailable,
		"/metrics": http.StatusOK,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("%s status = %d, want %d (%s)", path, resp.StatusCode, want, body)
		}
		if path == "/readyz" && !bytes.Contains(body, []byte("database is locked")) {
			t.Errorf("/readyz body = %s", body)
		}
		if path == "/metrics" && string(body) != "# metrics\n" {
			t.Errorf("/metrics body = %q", body)
		}
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), config.Default(), nil)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.New(a).Serve(ctx, ln, time.Second) }()

	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestMCPOverHTTP(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), config.Default(), nil)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	srv := httptest.NewServer(server.New(a, server.WithMCPHandler(lsmcp.Handler(a))).Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, &mcpsdk.StreamableClientTransport{Endpoint: srv.URL + "/mcp"}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer cs.Close()

	res, err := cs.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "synthesize_timeline",
		Arguments: map[string]any{"text": "one two. three"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %+v", res.Content)
	}
	tc, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok || !strings.Contains(tc.Text, `"one two."`) {
		t.Errorf("content = %+v", res.Content)
	}
}
