package assets

import (
	"context"
	"errors"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/wolfeidau/bundlecfg/internal/telemetry"
)

// RebuildFunc is called after every build in watch mode with its result.
type RebuildFunc func(err error)

// Watch builds the bundle and rebuilds it whenever an input changes, until
// ctx is cancelled.
func (p *Pipeline) Watch(ctx context.Context, onRebuild RebuildFunc) error {
	opts := p.BuildOptions()
	opts.Plugins = append(opts.Plugins, api.Plugin{
		Name: "bundlecfg-watch",
		Setup: func(build api.PluginBuild) {
			var start time.Time
			build.OnStart(func() (api.OnStartResult, error) {
				start = time.Now()
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				err := p.rebuilt(ctx, result)
				p.logger.Info().Err(err).Dur("duration", time.Since(start)).Msg("Rebuilt assets")
				if onRebuild != nil {
					onRebuild(err)
				}
				return api.OnEndResult{}, nil
			})
		},
	})

	buildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return messagesError(ctxErr.Errors)
	}
	defer buildCtx.Dispose()

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		return err
	}
	p.logger.Info().Strs("entries", p.EntryNames()).Msg("Watching for changes")

	<-ctx.Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (p *Pipeline) rebuilt(ctx context.Context, result *api.BuildResult) error {
	ctx, span := telemetry.Tracer().Start(ctx, "assets.Rebuild")
	defer span.End()

	telemetry.GetMetrics().RebuildsTotal.Add(ctx, 1)

	if err := messagesError(result.Errors); err != nil {
		span.RecordError(err)
		return err
	}
	if err := p.typeCheck(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	if err := p.finish(ctx, result); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
