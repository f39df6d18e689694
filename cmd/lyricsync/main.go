// Command lyricsync aligns speech-to-text transcripts of songs with their
// reference lyrics and synthesizes phrase-level karaoke timelines.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrWong99/lyricsync/internal/app"
	"github.com/MrWong99/lyricsync/internal/config"
	"github.com/MrWong99/lyricsync/internal/observe"
)

const defaultConfigPath = "lyricsync.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lyricsync: %v\n", err)
		return 1
	}
	return 0
}

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	verbose    bool

	cfg   *config.Config
	level slog.LevelVar
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "lyricsync",
		Short:         "Align song transcripts with reference lyrics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultConfigPath, "path to the YAML configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newAlignCommand(c),
		newTranscribeCommand(c),
		newTimelineCommand(c),
		newServeCommand(c),
		newMCPCommand(c),
	)
	return root
}

// setup loads the config and installs the default logger. A missing config
// file is only an error when --config was given explicitly.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
	case err != nil:
		return err
	}
	c.cfg = cfg

	c.level.Set(slogLevel(cfg.Server.LogLevel))
	if c.verbose {
		c.level.Set(slog.LevelDebug)
	}
	// The mcp command owns stdout, so logs always go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &c.level})))
	return nil
}

// newApp builds providers from the config and returns the application.
func (c *cli) newApp(ctx context.Context, m *observe.Metrics) (*app.App, error) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := app.BuildProviders(c.cfg.Providers, reg, m)
	if err != nil {
		return nil, err
	}
	logProviders(c.cfg)

	var opts []app.Option
	if m != nil {
		opts = append(opts, app.WithMetrics(m))
	}
	return app.New(ctx, c.cfg, providers, opts...)
}

func logProviders(cfg *config.Config) {
	for kind, e := range map[string]config.ProviderEntry{"stt": cfg.Providers.STT, "lyrics": cfg.Providers.Lyrics} {
		if e.Name == "" {
			slog.Debug("provider not configured", "kind", kind)
			continue
		}
		fallbacks := make([]string, len(e.Fallbacks))
		for i, fb := range e.Fallbacks {
			fallbacks[i] = fb.Name
		}
		slog.Info("provider ready", "kind", kind, "name", e.Name, "model", e.Model, "fallbacks", fallbacks)
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
