// Package assets builds bundles described by a bundleconfig.Config with esbuild.
package assets

import (
	"errors"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/bundlecfg/internal/bundleconfig"
)

var (
	// ErrNotBuilt is returned when metadata is requested before a build finished
	ErrNotBuilt = errors.New("assets not built yet, call Build() first")
	// ErrUnknownEntry is returned for entry names the bundle does not define
	ErrUnknownEntry = errors.New("entrypoint not found in metadata")
)

// BuildMetadata is the subset of the esbuild metafile the pipeline reads.
type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes   int          `json:"bytes"`
	Imports []ImportInfo `json:"imports"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle,omitempty"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

// Pipeline manages the asset build process and script loading
type Pipeline struct {
	config    Config
	bundle    *bundleconfig.Config
	checker   TypeChecker
	lookupEnv func(string) (string, bool)
	logger    zerolog.Logger
	metadata  *BuildMetadata
	mu        sync.RWMutex
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithTypeChecker replaces the command based type checker.
func WithTypeChecker(checker TypeChecker) Option {
	return func(p *Pipeline) {
		p.checker = checker
	}
}

// WithLogger sets the logger for build progress. The default discards.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithLookupEnv replaces os.LookupEnv when resolving injected variables.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(p *Pipeline) {
		p.lookupEnv = lookup
	}
}

// New creates a new asset pipeline for the given bundle configuration
func New(config Config, bundle *bundleconfig.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		config:    config,
		bundle:    bundle,
		lookupEnv: os.LookupEnv,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.checker == nil {
		p.checker = &CommandChecker{Command: config.TypeCheckCommand, Dir: config.WorkDir}
	}
	return p
}

// Bundle returns the configuration the pipeline builds.
func (p *Pipeline) Bundle() *bundleconfig.Config {
	return p.bundle
}

// Metadata returns the metadata of the last successful build.
func (p *Pipeline) Metadata() (*BuildMetadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}
	return p.metadata, nil
}
