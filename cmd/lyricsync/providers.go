package main

import (
	"github.com/MrWong99/lyricsync/internal/config"
	"github.com/MrWong99/lyricsync/pkg/provider/lyrics"
	"github.com/MrWong99/lyricsync/pkg/provider/lyrics/file"
	"github.com/MrWong99/lyricsync/pkg/provider/lyrics/genius"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
	"github.com/MrWong99/lyricsync/pkg/provider/stt/deepgram"
	"github.com/MrWong99/lyricsync/pkg/provider/stt/openai"
	"github.com/MrWong99/lyricsync/pkg/provider/stt/whisper"
)

// Groq serves an OpenAI-compatible transcription endpoint.
const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqDefaultModel = "whisper-large-v3"
)

// registerBuiltinProviders wires every provider that ships with lyricsync
// into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if t := entry.OptionFloat("temperature", -1); t >= 0 {
			opts = append(opts, openai.WithTemperature(t))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterSTT("groq", func(entry config.ProviderEntry) (stt.Provider, error) {
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = groqBaseURL
		}
		model := entry.Model
		if model == "" {
			model = groqDefaultModel
		}
		return openai.New(entry.APIKey, model, openai.WithBaseURL(baseURL))
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if t := entry.OptionFloat("temperature", -1); t >= 0 {
			opts = append(opts, whisper.WithTemperature(t))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// ── Lyrics ────────────────────────────────────────────────────────────────

	reg.RegisterLyrics("genius", func(entry config.ProviderEntry) (lyrics.Provider, error) {
		var opts []genius.Option
		if entry.BaseURL != "" {
			opts = append(opts, genius.WithAPIBaseURL(entry.BaseURL))
		}
		if site := entry.OptionString("site_url", ""); site != "" {
			opts = append(opts, genius.WithSiteBaseURL(site))
		}
		return genius.New(entry.APIKey, opts...)
	})

	reg.RegisterLyrics("file", func(entry config.ProviderEntry) (lyrics.Provider, error) {
		return file.New(entry.OptionString("dir", "lyrics"),
			file.WithExtension(entry.OptionString("extension", ".txt")))
	})
}
