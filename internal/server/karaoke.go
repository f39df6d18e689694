package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/lyricsync/internal/observe"
	"github.com/MrWong99/lyricsync/internal/timeline"
)

// handleKaraoke upgrades to a websocket and emits each phrase group of the
// text query parameter as a JSON text message once its synthetic start time
// is reached. The stream ends with a normal closure after the last group.
func (s *Server) handleKaraoke(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	groups := s.app.Timeline(r.Context(), text)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("karaoke: websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	s.metrics.ActiveStreams.Add(r.Context(), 1)
	defer s.metrics.ActiveStreams.Add(context.WithoutCancel(r.Context()), -1)

	// The client never sends; CloseRead cancels ctx when it goes away.
	ctx := conn.CloseRead(r.Context())
	if err := s.play(ctx, conn, groups); err != nil {
		if !errors.Is(err, context.Canceled) {
			observe.Logger(r.Context()).Debug("karaoke: stream ended early", "err", err)
		}
		return
	}
	conn.Close(websocket.StatusNormalClosure, "done")
}

func (s *Server) play(ctx context.Context, conn *websocket.Conn, groups []timeline.PhraseGroup) error {
	start := time.Now()
	for _, g := range groups {
		due := time.Duration(g.Start / s.speed * float64(time.Second))
		if wait := due - time.Since(start); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := wsjson.Write(ctx, conn, g); err != nil {
			return err
		}
	}
	return nil
}
