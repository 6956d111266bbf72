// Package bundleconfig builds a bundler configuration from a small set of
// high-level options.
//
// Building is pure: options are validated, a root directory and include
// directories are derived from the entry points, and a Config is assembled.
// Nothing touches the filesystem beyond resolving paths against the working
// directory captured when the Builder was created.
package bundleconfig

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultPolyfills are prepended to every entry point.
var DefaultPolyfills = []string{"raf/polyfill"}

var resolveExtensions = []string{".js", ".jsx", ".ts", ".tsx"}

var (
	babelBasePresets = []Preset{
		{
			Name: "@babel/preset-env",
			Env: &PresetEnvOptions{
				Modules:     false,
				UseBuiltIns: "usage",
				CoreJS:      CoreJS{Version: 3},
			},
		},
		{Name: "@babel/preset-react"},
	}
	babelBasePlugins = []string{
		"@babel/plugin-proposal-class-properties",
		"@babel/plugin-proposal-object-rest-spread",
	}
	babelTypeScriptPresets = append(append([]Preset(nil), babelBasePresets...), Preset{Name: "@babel/preset-typescript"})
	babelTypeScriptPlugins = append(append([]string(nil), babelBasePlugins...), "babel-plugin-const-enum")
)

const (
	scriptPattern     Pattern = `\.jsx?$`
	typeScriptPattern Pattern = `\.tsx?$`
	nodeModules       Pattern = `node_modules`
)

// Builder turns Options into a Config. It holds no per-call state and is
// safe for concurrent use.
type Builder struct {
	workDir   string
	polyfills []string
	logger    zerolog.Logger
}

// Option customises a Builder.
type Option func(*Builder)

// WithPolyfills replaces the modules prepended to every entry point.
func WithPolyfills(polyfills ...string) Option {
	return func(b *Builder) {
		b.polyfills = append([]string(nil), polyfills...)
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New returns a Builder resolving relative paths against workDir.
func New(workDir string, opts ...Option) (*Builder, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	b := &Builder{
		workDir:   abs,
		polyfills: append([]string(nil), DefaultPolyfills...),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build builds a configuration with a Builder rooted at the process working
// directory.
func Build(options *Options) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	b, err := New(wd)
	if err != nil {
		return nil, err
	}
	return b.Build(options)
}

// WorkDir returns the directory relative paths are resolved against.
func (b *Builder) WorkDir() string { return b.workDir }

// Build validates options and returns the configuration they describe.
// On failure no configuration is returned.
func (b *Builder) Build(options *Options) (*Config, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	rootDir, err := b.rootDir(options)
	if err != nil {
		return nil, err
	}
	includeDirs := b.includeDirs(options)

	b.logger.Debug().
		Str("root_dir", rootDir).
		Strs("include_dirs", includeDirs).
		Bool("keyed", options.Input.IsKeyed()).
		Msg("Derived source directories")

	return b.assemble(options, rootDir, includeDirs), nil
}

// resolve mirrors path.resolve: absolute paths are cleaned, relative ones
// are joined onto the working directory.
func (b *Builder) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(b.workDir, p)
}

func (b *Builder) rootDir(options *Options) (string, error) {
	if options.RootDir != "" {
		return b.resolve(options.RootDir), nil
	}

	if !options.Input.IsKeyed() {
		return filepath.Dir(b.resolve(options.Input.Path())), nil
	}

	var root string
	for _, entry := range options.Input.entries {
		dir := filepath.Dir(b.resolve(entry.Path))
		if root == "" {
			root = dir
			continue
		}
		if dir != root {
			return "", NewValidationError(KindAmbiguousRootDir, fmt.Sprintf("%s and %s", root, dir))
		}
	}
	return root, nil
}

func (b *Builder) includeDirs(options *Options) []string {
	dirs := make([]string, 0, len(options.Include)+1)
	for _, include := range options.Include {
		dirs = append(dirs, b.resolve(include))
	}

	if !options.Input.IsKeyed() {
		return append(dirs, filepath.Dir(b.resolve(options.Input.Path())))
	}

	seen := make(map[string]struct{}, len(options.Input.entries))
	for _, entry := range options.Input.entries {
		dir := filepath.Dir(b.resolve(entry.Path))
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

func (b *Builder) entryModules(path string) []string {
	modules := make([]string, 0, len(b.polyfills)+1)
	modules = append(modules, b.polyfills...)
	return append(modules, b.resolve(path))
}

func (b *Builder) assemble(options *Options, rootDir string, includeDirs []string) *Config {
	cfg := &Config{
		Performance: Performance{Hints: false},
		Stats:       "errors-warnings",
		Devtool:     "source-map",
		Output: Output{
			Filename: SingleOutputFilename,
			Path:     b.resolve(options.OutDir),
		},
		Resolve: Resolve{
			Extensions: append([]string(nil), resolveExtensions...),
			Alias:      map[string]string{AliasRoot: rootDir},
		},
	}

	if options.Input.IsKeyed() {
		cfg.Output.Filename = KeyedOutputFilenamePattern
		cfg.Entry.Named = make([]NamedEntry, 0, len(options.Input.entries))
		for _, entry := range options.Input.entries {
			cfg.Entry.Named = append(cfg.Entry.Named, NamedEntry{
				Name:    entry.Name,
				Modules: b.entryModules(entry.Path),
			})
		}
	} else {
		cfg.Entry.Single = b.entryModules(options.Input.Path())
	}

	if rule, ok := rawRule(options.RawFileExtensions); ok {
		cfg.Module.Rules = append(cfg.Module.Rules, rule)
	}
	cfg.Module.Rules = append(cfg.Module.Rules,
		babelRule(scriptPattern, babelBasePresets, babelBasePlugins, includeDirs),
		babelRule(typeScriptPattern, babelTypeScriptPresets, babelTypeScriptPlugins, includeDirs),
	)

	if !options.SkipTypeChecking {
		cfg.Plugins = append(cfg.Plugins, Plugin{
			Name:        PluginTypeChecker,
			TypeChecker: &TypeCheckerOptions{ConfigFile: b.resolve(options.Tsconfig)},
		})
	}
	if !options.SkipCircularDependencyChecking {
		cfg.Plugins = append(cfg.Plugins, Plugin{
			Name: PluginCircularDependency,
			CircularDependency: &CircularDependencyOptions{
				FailOnError: true,
				Exclude:     nodeModules,
				Cwd:         b.workDir,
			},
		})
	}

	env := make(map[string]string, len(options.Env))
	maps.Copy(env, options.Env)
	cfg.Plugins = append(cfg.Plugins, Plugin{
		Name:        PluginEnvironment,
		Environment: &EnvironmentOptions{Defaults: env},
	})

	return cfg
}

func babelRule(test Pattern, presets []Preset, plugins []string, includeDirs []string) Rule {
	return Rule{
		Test: test,
		Use: []Loader{{
			Loader: LoaderBabel,
			Options: &BabelOptions{
				Babelrc: false,
				Presets: copyPresets(presets),
				Plugins: append([]string(nil), plugins...),
			},
		}},
		Include: append([]string(nil), includeDirs...),
	}
}

func copyPresets(presets []Preset) []Preset {
	out := make([]Preset, len(presets))
	for i, p := range presets {
		out[i] = Preset{Name: p.Name}
		if p.Env != nil {
			env := *p.Env
			out[i].Env = &env
		}
	}
	return out
}

// rawRule builds the raw text rule. Each extension is trimmed and loses one
// leading dot; extensions left empty are skipped.
func rawRule(extensions []string) (Rule, bool) {
	exts := make([]string, 0, len(extensions))
	quoted := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			continue
		}
		exts = append(exts, ext)
		quoted = append(quoted, regexp.QuoteMeta(ext))
	}
	if len(exts) == 0 {
		return Rule{}, false
	}

	return Rule{
		Test:       Pattern(`\.(?:` + strings.Join(quoted, "|") + `)$`),
		Use:        []Loader{{Loader: LoaderRaw}},
		Extensions: exts,
	}, true
}
