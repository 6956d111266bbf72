package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/bundlecfg/internal/assets"
	"github.com/wolfeidau/bundlecfg/internal/bundleconfig"
	"github.com/wolfeidau/bundlecfg/internal/logger"
	"github.com/wolfeidau/bundlecfg/internal/optionsfile"
	"github.com/wolfeidau/bundlecfg/internal/telemetry"
)

type Globals struct {
	Debug   bool
	Version string
	Options string
	Chdir   string
	Stdout  io.Writer
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// workDir returns the directory relative option paths resolve against.
func (g *Globals) workDir() (string, error) {
	if g.Chdir != "" {
		return filepath.Abs(g.Chdir)
	}
	return os.Getwd()
}

// optionsPath resolves the options file against the working directory.
func (g *Globals) optionsPath(workDir string) string {
	if filepath.IsAbs(g.Options) {
		return g.Options
	}
	return filepath.Join(workDir, g.Options)
}

// setupLogger installs the process logger as the global zerolog logger.
func setupLogger(globals *Globals) zerolog.Logger {
	l := logger.Setup(globals.Debug)
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}

// loadBundle reads the options file and generates the bundler configuration.
func loadBundle(globals *Globals, log zerolog.Logger) (*bundleconfig.Config, string, error) {
	workDir, err := globals.workDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve working directory: %w", err)
	}

	path := globals.optionsPath(workDir)
	options, err := optionsfile.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("invalid options in %s: %w", path, err)
	}

	builder, err := bundleconfig.New(workDir, bundleconfig.WithLogger(log))
	if err != nil {
		return nil, "", err
	}

	cfg, err := builder.Build(options)
	if err != nil {
		return nil, "", fmt.Errorf("invalid options in %s: %w", path, err)
	}

	log.Debug().Str("options", path).Str("work_dir", workDir).Msg("Loaded bundle options")
	return cfg, workDir, nil
}

// telemetryBundle describes the pipeline for the telemetry resource.
func telemetryBundle(command string, globals *Globals, workDir string, pipeline *assets.Pipeline) telemetry.Bundle {
	return telemetry.Bundle{
		Command:     command,
		OptionsFile: globals.optionsPath(workDir),
		WorkDir:     workDir,
		OutputPath:  pipeline.OutputDir(),
		Entries:     pipeline.EntryNames(),
	}
}

// startTelemetry initializes OpenTelemetry when enabled and returns a
// function that flushes it.
func startTelemetry(ctx context.Context, enabled bool, globals *Globals, log zerolog.Logger, bundle telemetry.Bundle) func() {
	if !enabled {
		return func() {}
	}

	log.Info().Msg("Tracing is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, "bundlecfg", globals.Version, bundle)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}
