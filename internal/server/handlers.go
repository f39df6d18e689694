package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrWong99/lyricsync/internal/app"
	"github.com/MrWong99/lyricsync/internal/observe"
	"github.com/MrWong99/lyricsync/internal/store"
	"github.com/MrWong99/lyricsync/internal/transcript"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
)

type alignRequest struct {
	Segments []stt.Segment `json:"segments"`
	Lyrics   string        `json:"lyrics"`
}

type alignResponse struct {
	Segments    []stt.Segment             `json:"segments"`
	Corrections []transcript.Correction   `json:"corrections"`
	Scores      []transcript.SegmentScore `json:"scores,omitempty"`
	Method      string                    `json:"method"`
	Fallback    string                    `json:"fallback,omitempty"`
}

type timelineRequest struct {
	Text string `json:"text"`
}

// processRequest deliberately has no audio path: clients cannot make the
// server read local files.
type processRequest struct {
	Segments []stt.Segment `json:"segments"`
	Text     string        `json:"text"`
	Lyrics   string        `json:"lyrics"`
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
}

type processResponse struct {
	app.Document
	Corrections []transcript.Correction `json:"corrections"`
	Method      string                  `json:"method"`
	Source      string                  `json:"source,omitempty"`
	Fallback    string                  `json:"fallback,omitempty"`
	RunID       string                  `json:"run_id,omitempty"`
}

func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req alignRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.app.Align(r.Context(), req.Segments, req.Lyrics)
	if errors.Is(err, transcript.ErrNoSegments) {
		writeError(w, http.StatusBadRequest, "segments is required")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	resp := alignResponse{
		Segments:    res.Segments,
		Corrections: res.Corrections,
		Scores:      res.Scores,
		Method:      res.Method,
	}
	if res.Fallback != nil {
		resp.Fallback = res.Fallback.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	var req timelineRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.app.Timeline(r.Context(), req.Text))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Segments == nil {
		writeError(w, http.StatusBadRequest, "segments is required")
		return
	}
	resp, err := s.app.Process(r.Context(), app.Request{
		Segments: req.Segments,
		Text:     req.Text,
		Lyrics:   req.Lyrics,
		Title:    req.Title,
		Artist:   req.Artist,
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{
		Document:    resp.Document(),
		Corrections: resp.Corrections,
		Method:      resp.Method,
		Source:      resp.Source,
		Fallback:    resp.FallbackReason(),
		RunID:       resp.RunID,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.app.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %q not found", id))
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	observe.Logger(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decode reads a JSON body into v and answers 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
