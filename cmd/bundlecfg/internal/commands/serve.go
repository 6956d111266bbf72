package commands

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/bundlecfg/internal/assets"
	"github.com/wolfeidau/bundlecfg/internal/devserver"
)

// ServeCmd rebuilds on change and serves the output directory.
type ServeCmd struct {
	Host        string   `help:"Host to listen on" default:"localhost" env:"HOST"`
	Port        int      `help:"Port to listen on" default:"8080" env:"PORT"`
	CORSOrigins []string `help:"Allowed CORS origins" env:"BUNDLECFG_CORS_ORIGINS"`
	Title       string   `help:"Page title" default:"bundlecfg"`
	Tracing     bool     `help:"Enable OpenTelemetry tracing and metrics" default:"false" env:"BUNDLECFG_TRACING"`
	TypeCheck   []string `help:"Type checker command, --noEmit --project <tsconfig> is appended" default:"npx,tsc" sep:","`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	bundle, workDir, err := loadBundle(globals, log)
	if err != nil {
		return err
	}

	cfg := assets.DefaultConfig(workDir)
	cfg.TypeCheckCommand = c.TypeCheck
	pipeline := assets.New(cfg, bundle, assets.WithLogger(log))

	flush := startTelemetry(ctx, c.Tracing, globals, log, telemetryBundle("serve", globals, workDir, pipeline))
	defer flush()

	server, err := devserver.New(devserver.Config{
		Host:        c.Host,
		Port:        c.Port,
		CORSOrigins: c.CORSOrigins,
		Title:       c.Title,
	}, pipeline, log)
	if err != nil {
		return fmt.Errorf("failed to create dev server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pipeline.Watch(gctx, func(err error) {
			if err != nil {
				log.Error().Err(err).Msg("Rebuild failed")
			}
			server.Rebuilt(err)
		})
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})
	return g.Wait()
}
