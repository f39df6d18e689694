package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/lyricsync/internal/app"
	"github.com/MrWong99/lyricsync/internal/config"
	"github.com/MrWong99/lyricsync/internal/mcp"
	"github.com/MrWong99/lyricsync/internal/observe"
	"github.com/MrWong99/lyricsync/internal/server"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
)

const shutdownTimeout = 15 * time.Second

// songFlags are shared by the commands that run the full pipeline.
type songFlags struct {
	lyricsPath string
	title      string
	artist     string
	outPath    string
}

func (f *songFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.lyricsPath, "lyrics", "l", "", "reference lyrics file; looked up by title and artist when empty")
	cmd.Flags().StringVar(&f.title, "title", "", "song title for the lyrics lookup")
	cmd.Flags().StringVar(&f.artist, "artist", "", "song artist for the lyrics lookup")
	cmd.Flags().StringVarP(&f.outPath, "out", "o", "-", "output file for the aligned document, - for stdout")
}

// request fills the lyrics part of a pipeline request.
func (f *songFlags) request() (app.Request, error) {
	req := app.Request{Title: f.title, Artist: f.artist}
	if f.lyricsPath != "" {
		raw, err := os.ReadFile(f.lyricsPath)
		if err != nil {
			return req, fmt.Errorf("read lyrics: %w", err)
		}
		req.Lyrics = string(raw)
	}
	return req, nil
}

func newAlignCommand(c *cli) *cobra.Command {
	var (
		song           songFlags
		transcriptPath string
	)
	cmd := &cobra.Command{
		Use:   "align",
		Short: "Correct an existing verbose_json transcript with reference lyrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, err := readTranscript(cmd.InOrStdin(), transcriptPath)
			if err != nil {
				return err
			}
			req, err := song.request()
			if err != nil {
				return err
			}
			req.Segments, req.Text, req.Language = tr.Segments, tr.Text, tr.Language
			return c.process(cmd, req, song.outPath)
		},
	}
	song.register(cmd)
	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "-", "verbose_json transcript file, - for stdin")
	return cmd
}

func newTranscribeCommand(c *cli) *cobra.Command {
	var (
		song     songFlags
		language string
	)
	cmd := &cobra.Command{
		Use:   "transcribe <audio>",
		Short: "Transcribe an audio file and align it with reference lyrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := song.request()
			if err != nil {
				return err
			}
			req.AudioPath, req.Language = args[0], language
			return c.process(cmd, req, song.outPath)
		},
	}
	song.register(cmd)
	cmd.Flags().StringVar(&language, "language", "", "BCP-47 language hint for the STT provider")
	return cmd
}

func newTimelineCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline [text]",
		Short: "Print the synthetic phrase timeline of text, read from stdin when no argument is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(raw)
			}
			a, err := app.New(cmd.Context(), c.cfg, nil)
			if err != nil {
				return err
			}
			defer a.Shutdown(context.WithoutCancel(cmd.Context()))
			return writeJSON(cmd.OutOrStdout(), a.Timeline(cmd.Context(), text))
		},
	}
}

func newServeCommand(c *cli) *cobra.Command {
	var (
		addr  string
		speed float64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = c.cfg.Server.ListenAddr
			}
			return c.serve(cmd.Context(), addr, speed)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.listen_addr")
	cmd.Flags().Float64Var(&speed, "playback-speed", 1, "karaoke feed clock multiplier")
	return cmd
}

func newMCPCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the lyricsync tools over MCP on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Shutdown(context.WithoutCancel(cmd.Context()))
			return mcp.Serve(cmd.Context(), a)
		},
	}
}

// process runs req through the pipeline and writes the aligned document.
func (c *cli) process(cmd *cobra.Command, req app.Request, outPath string) error {
	ctx := cmd.Context()
	a, err := c.newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Shutdown(context.WithoutCancel(ctx))

	resp, err := a.Process(ctx, req)
	if err != nil {
		return err
	}
	slog.Info("alignment finished",
		"segments", len(resp.Transcription.Segments),
		"replaced", len(resp.Corrections),
		"method", resp.Method,
		"source", resp.Source,
		"fallback", resp.FallbackReason(),
		"run_id", resp.RunID,
	)

	if outPath == "" || outPath == "-" {
		return writeJSON(cmd.OutOrStdout(), resp.Document())
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writeJSON(f, resp.Document()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// serve runs the HTTP API until ctx is cancelled. Tuning sections of the
// config file are hot-reloaded.
func (c *cli) serve(ctx context.Context, addr string, speed float64) error {
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: c.cfg.Telemetry.ServiceName})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer tel.Shutdown(context.WithoutCancel(ctx))

	a, err := c.newApp(ctx, tel.Metrics)
	if err != nil {
		return err
	}

	if w := c.watchConfig(a); w != nil {
		defer w.Stop()
	}

	srv := server.New(a,
		server.WithMetrics(tel.Metrics),
		server.WithMetricsHandler(tel.MetricsHandler()),
		server.WithMCPHandler(mcp.Handler(a)),
		server.WithPlaybackSpeed(speed),
	)
	serveErr := srv.ListenAndServe(ctx, addr, shutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("shutting down")
	return errors.Join(serveErr, a.Shutdown(shutdownCtx))
}

// watchConfig starts a hot-reload watcher when the config file exists.
func (c *cli) watchConfig(a *app.App) *config.Watcher {
	if _, err := os.Stat(c.configPath); err != nil {
		return nil
	}
	w, err := config.NewWatcher(c.configPath, func(old, cfg *config.Config) {
		d := config.Diff(old, cfg)
		if d.RestartRequired {
			slog.Warn("config change needs a restart to take effect")
		}
		if !d.Any() {
			return
		}
		if d.LogLevelChanged && !c.verbose {
			c.level.Set(slogLevel(d.NewLogLevel))
		}
		if err := a.ApplyConfig(cfg); err != nil {
			slog.Error("apply reloaded config", "err", err)
			return
		}
		slog.Info("config reloaded",
			"lyrics", d.LyricsChanged,
			"align", d.AlignChanged,
			"timeline", d.TimelineChanged,
			"log_level", d.NewLogLevel,
		)
	})
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
		return nil
	}
	return w
}

func readTranscript(stdin io.Reader, path string) (*stt.Transcription, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open transcript: %w", err)
		}
		defer f.Close()
		r = f
	}
	var tr stt.Transcription
	if err := json.NewDecoder(r).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if tr.Segments == nil {
		return nil, errors.New("transcript has no segments array")
	}
	return &tr, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
