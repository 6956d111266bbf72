package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/bundlecfg/internal/bundleconfig"
	"github.com/wolfeidau/bundlecfg/internal/telemetry"
)

// SingleEntryName names the entry of a bundle built from one input.
const SingleEntryName = "main"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// EntryNames returns the entry names in declaration order.
func (p *Pipeline) EntryNames() []string {
	if !p.bundle.Entry.IsKeyed() {
		return []string{SingleEntryName}
	}
	names := make([]string, 0, len(p.bundle.Entry.Named))
	for _, named := range p.bundle.Entry.Named {
		names = append(names, named.Name)
	}
	return names
}

// OutputDir returns the directory bundles are written to.
func (p *Pipeline) OutputDir() string {
	return p.bundle.Output.Path
}

func (p *Pipeline) entryModules() map[string][]string {
	if !p.bundle.Entry.IsKeyed() {
		return map[string][]string{SingleEntryName: p.bundle.Entry.Single}
	}
	entries := make(map[string][]string, len(p.bundle.Entry.Named))
	for _, named := range p.bundle.Entry.Named {
		entries[named.Name] = named.Modules
	}
	return entries
}

// outputStem applies the output filename pattern to an entry, without the
// extension esbuild appends.
func (p *Pipeline) outputStem(name string) string {
	stem := strings.TrimSuffix(p.bundle.Output.Filename, filepath.Ext(p.bundle.Output.Filename))
	return strings.ReplaceAll(stem, "[name]", name)
}

// BuildOptions translates the bundle configuration into esbuild options.
func (p *Pipeline) BuildOptions() api.BuildOptions {
	bundle := p.bundle

	entryPoints := make([]api.EntryPoint, 0, len(bundle.Entry.Named)+1)
	for _, name := range p.EntryNames() {
		entryPoints = append(entryPoints, api.EntryPoint{
			InputPath:  entryNamespace + ":" + name,
			OutputPath: p.outputStem(name),
		})
	}

	plugins := []api.Plugin{entryPlugin(p.config.WorkDir, p.entryModules())}
	for _, alias := range slices.Sorted(maps.Keys(bundle.Resolve.Alias)) {
		plugins = append(plugins, aliasPlugin(alias, bundle.Resolve.Alias[alias]))
	}
	if dirs := bundle.IncludeDirs(); len(dirs) > 0 {
		plugins = append(plugins, includePlugin(dirs))
	}

	var loaders map[string]api.Loader
	if raw, ok := bundle.RawRule(); ok {
		loaders = make(map[string]api.Loader, len(raw.Extensions))
		for _, ext := range raw.Extensions {
			loaders["."+ext] = api.LoaderText
		}
	}

	var tsconfig string
	if checker, ok := bundle.Plugin(bundleconfig.PluginTypeChecker); ok {
		tsconfig = checker.TypeChecker.ConfigFile
	}

	return api.BuildOptions{
		EntryPointsAdvanced: entryPoints,
		AbsWorkingDir:       p.config.WorkDir,
		Outdir:              bundle.Output.Path,
		Bundle:              true,
		Write:               false,
		Metafile:            true,
		LogLevel:            api.LogLevelSilent,
		Format:              api.FormatIIFE,
		Platform:            api.PlatformBrowser,
		Target:              api.ES2015,
		ResolveExtensions:   bundle.Resolve.Extensions,
		Loader:              loaders,
		Define:              p.define(),
		Tsconfig:            tsconfig,
		MinifyWhitespace:    p.config.Minify,
		MinifyIdentifiers:   p.config.Minify,
		MinifySyntax:        p.config.Minify,
		TreeShaking:         api.TreeShakingTrue,
		Sourcemap:           cond(bundle.Devtool != "", api.SourceMapLinked, api.SourceMapNone),
		Plugins:             plugins,
	}
}

// define substitutes process.env.NAME for each injected variable. The
// process environment takes precedence over the configured default.
func (p *Pipeline) define() map[string]string {
	env, ok := p.bundle.Plugin(bundleconfig.PluginEnvironment)
	if !ok || env.Environment == nil {
		return nil
	}

	define := make(map[string]string, len(env.Environment.Defaults))
	for name, value := range env.Environment.Defaults {
		if !identifierPattern.MatchString(name) {
			p.logger.Warn().Str("name", name).Msg("Skipping environment variable that is not an identifier")
			continue
		}
		if v, ok := p.lookupEnv(name); ok {
			value = v
		}
		quoted, _ := json.Marshal(value)
		define["process.env."+name] = string(quoted)
	}
	return define
}

// Build type checks and bundles the configured entries, then writes the
// outputs, metafile and manifest.
func (p *Pipeline) Build(ctx context.Context) error {
	ctx, span := telemetry.Tracer().Start(ctx, "assets.Build")
	defer span.End()

	metrics := telemetry.GetMetrics()
	start := time.Now()

	err := p.build(ctx)

	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	metrics.BuildsTotal.Add(ctx, 1, attrs)
	metrics.BuildDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *Pipeline) build(ctx context.Context) error {
	opts := p.BuildOptions()

	p.logger.Info().
		Strs("entries", p.EntryNames()).
		Str("outdir", opts.Outdir).
		Msg("Building assets")

	var result api.BuildResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.typeCheck(gctx)
	})
	g.Go(func() error {
		result = api.Build(opts)
		return messagesError(result.Errors)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return p.finish(ctx, &result)
}

func (p *Pipeline) typeCheck(ctx context.Context) error {
	plugin, ok := p.bundle.Plugin(bundleconfig.PluginTypeChecker)
	if !ok || plugin.TypeChecker == nil {
		return nil
	}

	start := time.Now()
	err := p.checker.Check(ctx, plugin.TypeChecker.ConfigFile)
	telemetry.GetMetrics().TypeCheckDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		if !errors.Is(err, ErrTypeCheck) && ctx.Err() == nil {
			return fmt.Errorf("%w: %w", ErrTypeCheck, err)
		}
		return err
	}
	p.logger.Debug().Str("tsconfig", plugin.TypeChecker.ConfigFile).Dur("duration", time.Since(start)).Msg("Type check passed")
	return nil
}

// finish checks the import graph of a successful esbuild result and writes
// its files.
func (p *Pipeline) finish(ctx context.Context, result *api.BuildResult) error {
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return fmt.Errorf("failed to parse metafile: %w", err)
	}

	if err := p.checkCycles(ctx, &metadata); err != nil {
		return err
	}

	outDir := p.bundle.Output.Path
	files := make(map[string][]byte, len(result.OutputFiles))
	var total int64
	for _, file := range result.OutputFiles {
		if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(file.Path, file.Contents, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		files[file.Path] = file.Contents
		total += int64(len(file.Contents))
		p.logger.Info().Str("file", file.Path).Int("bytes", len(file.Contents)).Msg("Built file")
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(p.outPath(p.config.MetafilePath), []byte(result.Metafile), 0600); err != nil {
		return fmt.Errorf("failed to write metafile: %w", err)
	}

	if p.config.ManifestPath != "" {
		manifest := newManifest(outDir, files, p.outputEntries(&metadata))
		if err := writeJSON(p.outPath(p.config.ManifestPath), manifest); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
		p.logger.Debug().Str("build_id", manifest.BuildID).Int("outputs", len(manifest.Outputs)).Msg("Wrote manifest")
	}

	if p.config.Precompress {
		written, err := precompress(files)
		if err != nil {
			return fmt.Errorf("failed to precompress outputs: %w", err)
		}
		p.logger.Debug().Strs("files", written).Msg("Precompressed outputs")
	}

	metrics := telemetry.GetMetrics()
	metrics.OutputFilesTotal.Add(ctx, int64(len(files)))
	metrics.OutputBytesTotal.Add(ctx, total)

	p.mu.Lock()
	p.metadata = &metadata
	p.mu.Unlock()
	return nil
}

func (p *Pipeline) checkCycles(ctx context.Context, metadata *BuildMetadata) error {
	plugin, ok := p.bundle.Plugin(bundleconfig.PluginCircularDependency)
	if !ok || plugin.CircularDependency == nil {
		return nil
	}

	cycles := FindCycles(metadata, plugin.CircularDependency.Exclude)
	if len(cycles) == 0 {
		return nil
	}
	telemetry.GetMetrics().CyclesFoundTotal.Add(ctx, int64(len(cycles)))

	for _, cycle := range cycles {
		p.logger.Warn().Strs("cycle", cycle).Msg("Circular dependency detected")
	}
	if plugin.CircularDependency.FailOnError {
		return &CycleError{Cycles: cycles}
	}
	return nil
}

// outPath resolves a path against the output directory unless it is absolute.
func (p *Pipeline) outPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.bundle.Output.Path, path)
}

// outputRel converts a metafile output key to a slash separated path
// relative to the output directory.
func (p *Pipeline) outputRel(key string) string {
	abs := filepath.Join(p.config.WorkDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(p.bundle.Output.Path, abs)
	if err != nil {
		return key
	}
	return filepath.ToSlash(rel)
}

// outputEntries maps output paths relative to the output directory to the
// entry they were built from.
func (p *Pipeline) outputEntries(metadata *BuildMetadata) map[string]string {
	entries := make(map[string]string)
	for key, info := range metadata.Outputs {
		if name, ok := strings.CutPrefix(info.EntryPoint, entryNamespace+":"); ok {
			entries[p.outputRel(key)] = name
		}
	}
	return entries
}

// entryOutput finds the script output built for an entry. The caller holds
// p.mu.
func (p *Pipeline) entryOutput(entryName string) (string, OutputInfo, error) {
	if p.metadata == nil {
		return "", OutputInfo{}, ErrNotBuilt
	}
	for key, info := range p.metadata.Outputs {
		// a stylesheet split from a script entry names the same entry point
		if info.EntryPoint != entryNamespace+":"+entryName || strings.HasSuffix(key, ".css") {
			continue
		}
		return key, info, nil
	}
	return "", OutputInfo{}, fmt.Errorf("%w: %s", ErrUnknownEntry, entryName)
}

// Scripts returns the ordered list of script URLs needed for the given entry,
// starting with the entry's own bundle.
func (p *Pipeline) Scripts(entryName string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	key, info, err := p.entryOutput(entryName)
	if err != nil {
		return nil, err
	}
	scripts := []string{"/" + p.outputRel(key)}
	visited := map[string]bool{key: true}
	p.addDependencies(info, &scripts, visited)
	return scripts, nil
}

// Stylesheets returns the URLs of the CSS bundled for the given entry. It is
// empty when the entry imports no stylesheets.
func (p *Pipeline) Stylesheets(entryName string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, info, err := p.entryOutput(entryName)
	if err != nil {
		return nil, err
	}
	if info.CSSBundle == "" {
		return []string{}, nil
	}
	return []string{"/" + p.outputRel(info.CSSBundle)}, nil
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.External || visited[imp.Path] {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, "/"+p.outputRel(imp.Path))

		if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
			p.addDependencies(chunkInfo, scripts, visited)
		}
	}
}

// messagesError joins esbuild messages into one error.
func messagesError(messages []api.Message) error {
	errs := make([]error, 0, len(messages))
	for _, msg := range messages {
		errs = append(errs, errors.New(formatMessage(msg)))
	}
	return errors.Join(errs...)
}

func formatMessage(msg api.Message) string {
	text := msg.Text
	if msg.PluginName != "" {
		text = fmt.Sprintf("[%s] %s", msg.PluginName, text)
	}
	if msg.Location == nil {
		return text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, text)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
