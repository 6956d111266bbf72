package assets

type Config struct {
	// Directory relative paths in the bundle configuration were resolved against
	WorkDir string
	// Path to metafile (relative to the bundle output directory unless absolute)
	MetafilePath string
	// Path to the build manifest (relative to the bundle output directory unless absolute)
	ManifestPath string
	// Whether to minify output
	Minify bool
	// Whether to write .gz and .zst copies of scripts and stylesheets
	Precompress bool
	// Type checker command, the project flags are appended (e.g., npx tsc)
	TypeCheckCommand []string
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig(workDir string) Config {
	return Config{
		WorkDir:          workDir,
		MetafilePath:     "meta.json",
		ManifestPath:     "manifest.json",
		Minify:           false,
		Precompress:      false,
		TypeCheckCommand: []string{"npx", "tsc"},
	}
}
