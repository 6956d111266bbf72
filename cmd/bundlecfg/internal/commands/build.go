package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/bundlecfg/internal/assets"
)

// BuildCmd bundles the configured entries.
type BuildCmd struct {
	Minify      bool     `help:"Minify output" default:"false" env:"BUNDLECFG_MINIFY"`
	Precompress bool     `help:"Write .gz and .zst copies of scripts and stylesheets" default:"false"`
	Tracing     bool     `help:"Enable OpenTelemetry tracing and metrics" default:"false" env:"BUNDLECFG_TRACING"`
	TypeCheck   []string `help:"Type checker command, --noEmit --project <tsconfig> is appended" default:"npx,tsc" sep:","`

	checker assets.TypeChecker `kong:"-"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	bundle, workDir, err := loadBundle(globals, log)
	if err != nil {
		return err
	}

	cfg := assets.DefaultConfig(workDir)
	cfg.Minify = c.Minify
	cfg.Precompress = c.Precompress
	cfg.TypeCheckCommand = c.TypeCheck

	opts := []assets.Option{assets.WithLogger(log)}
	if c.checker != nil {
		opts = append(opts, assets.WithTypeChecker(c.checker))
	}
	pipeline := assets.New(cfg, bundle, opts...)

	flush := startTelemetry(ctx, c.Tracing, globals, log, telemetryBundle("build", globals, workDir, pipeline))
	defer flush()

	start := time.Now()
	if err := pipeline.Build(ctx); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	log.Info().Dur("duration", time.Since(start)).Str("outdir", bundle.Output.Path).Msg("Build complete")
	return nil
}
