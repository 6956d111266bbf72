package optionsfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/bundlecfg/internal/bundleconfig"
)

const base = `"input": "src/index.ts", "outDir": "dist", "tsconfig": "tsconfig.json"`

// documentCases are written as JSON so they run through both decoders.
var documentCases = []struct {
	name string
	doc  string
	want bundleconfig.Kind
}{
	{name: "null options", doc: `null`, want: bundleconfig.KindInvalidOptions},
	{name: "array options", doc: `[]`, want: bundleconfig.KindInvalidOptions},
	{name: "string options", doc: `"src/index.ts"`, want: bundleconfig.KindInvalidOptions},
	{name: "empty document", doc: ``, want: bundleconfig.KindInvalidOptions},
	{name: "no input", doc: `{}`, want: bundleconfig.KindMissingInput},
	{name: "empty input", doc: `{"input": ""}`, want: bundleconfig.KindInvalidInput},
	{name: "null input", doc: `{"input": null}`, want: bundleconfig.KindInvalidInput},
	{name: "array input", doc: `{"input": []}`, want: bundleconfig.KindInvalidInput},
	{name: "number input", doc: `{"input": 0}`, want: bundleconfig.KindInvalidInput},
	{name: "bool input", doc: `{"input": true}`, want: bundleconfig.KindInvalidInput},
	{name: "empty input map", doc: `{"input": {}}`, want: bundleconfig.KindEmptyInputMap},
	{name: "non-string input entry", doc: `{"input": {"frontend": 1}}`, want: bundleconfig.KindInvalidInput},
	{name: "no outDir", doc: `{"input": "src/index.ts"}`, want: bundleconfig.KindMissingOutDir},
	{name: "null outDir", doc: `{"input": "src/index.ts", "outDir": null}`, want: bundleconfig.KindInvalidOutDir},
	{name: "object outDir", doc: `{"input": "src/index.ts", "outDir": {}}`, want: bundleconfig.KindInvalidOutDir},
	{name: "array outDir", doc: `{"input": "src/index.ts", "outDir": []}`, want: bundleconfig.KindInvalidOutDir},
	{name: "empty outDir", doc: `{"input": "src/index.ts", "outDir": ""}`, want: bundleconfig.KindInvalidOutDir},
	{name: "number outDir", doc: `{"input": "src/index.ts", "outDir": 0}`, want: bundleconfig.KindInvalidOutDir},
	{name: "no tsconfig", doc: `{"input": "src/index.ts", "outDir": "dist"}`, want: bundleconfig.KindMissingTsconfig},
	{name: "null tsconfig", doc: `{"input": "src/index.ts", "outDir": "dist", "tsconfig": null}`, want: bundleconfig.KindInvalidTsconfig},
	{name: "array tsconfig", doc: `{"input": "src/index.ts", "outDir": "dist", "tsconfig": []}`, want: bundleconfig.KindInvalidTsconfig},
	{name: "object tsconfig", doc: `{"input": "src/index.ts", "outDir": "dist", "tsconfig": {}}`, want: bundleconfig.KindInvalidTsconfig},
	{name: "empty tsconfig", doc: `{"input": "src/index.ts", "outDir": "dist", "tsconfig": ""}`, want: bundleconfig.KindInvalidTsconfig},
	{name: "null env", doc: `{` + base + `, "env": null}`, want: bundleconfig.KindInvalidEnv},
	{name: "array env", doc: `{` + base + `, "env": []}`, want: bundleconfig.KindInvalidEnv},
	{name: "string env", doc: `{` + base + `, "env": ""}`, want: bundleconfig.KindInvalidEnv},
	{name: "nested env value", doc: `{` + base + `, "env": {"A": {}}}`, want: bundleconfig.KindInvalidEnv},
	{name: "null rawFileExtensions", doc: `{` + base + `, "rawFileExtensions": null}`, want: bundleconfig.KindInvalidRawFileExtensions},
	{name: "object rawFileExtensions", doc: `{` + base + `, "rawFileExtensions": {}}`, want: bundleconfig.KindInvalidRawFileExtensions},
	{name: "string rawFileExtensions", doc: `{` + base + `, "rawFileExtensions": ""}`, want: bundleconfig.KindInvalidRawFileExtensions},
	{name: "non-string extension", doc: `{` + base + `, "rawFileExtensions": ["html", 1]}`, want: bundleconfig.KindInvalidRawFileExtensions},
	{name: "null rootDir", doc: `{` + base + `, "rootDir": null}`, want: bundleconfig.KindInvalidRootDir},
	{name: "empty rootDir", doc: `{` + base + `, "rootDir": ""}`, want: bundleconfig.KindInvalidRootDir},
	{name: "object rootDir", doc: `{` + base + `, "rootDir": {}}`, want: bundleconfig.KindInvalidRootDir},
	{name: "array rootDir", doc: `{` + base + `, "rootDir": []}`, want: bundleconfig.KindInvalidRootDir},
	{name: "null include", doc: `{` + base + `, "include": null}`, want: bundleconfig.KindInvalidInclude},
	{name: "object include", doc: `{` + base + `, "include": {}}`, want: bundleconfig.KindInvalidInclude},
	{name: "empty include", doc: `{` + base + `, "include": ""}`, want: bundleconfig.KindInvalidInclude},
	{name: "empty include array", doc: `{` + base + `, "include": []}`, want: bundleconfig.KindInvalidInclude},
	{name: "include array with empty element", doc: `{` + base + `, "include": ["docs", ""]}`, want: bundleconfig.KindInvalidInclude},
	{name: "string skipTypeChecking", doc: `{` + base + `, "skipTypeChecking": "yes"}`, want: bundleconfig.KindInvalidSkipTypeChecking},
	{name: "number skipCircularDependencyChecking", doc: `{` + base + `, "skipCircularDependencyChecking": 1}`, want: bundleconfig.KindInvalidSkipCircularDependencyChecking},
	{name: "first violation wins", doc: `{"input": {}, "outDir": 0, "env": []}`, want: bundleconfig.KindEmptyInputMap},
	{name: "outDir before env", doc: `{"input": "a.ts", "tsconfig": "", "env": []}`, want: bundleconfig.KindMissingOutDir},
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatJSON} {
		for _, tt := range documentCases {
			t.Run(string(format)+"/"+tt.name, func(t *testing.T) {
				opts, err := Decode([]byte(tt.doc), format)
				require.Error(t, err)
				assert.Nil(t, opts)

				kind, ok := bundleconfig.KindOf(err)
				require.True(t, ok, "expected a validation error, got %v", err)
				assert.Equal(t, tt.want, kind)
			})
		}
	}
}

func TestDecodeYAML(t *testing.T) {
	doc := `
input:
  zeta: src/z.ts
  alpha: src/a.ts
outDir: dist
tsconfig: tsconfig.json
env:
  NODE_ENV: production
  DEBUG: false
  RETRIES: 3
rawFileExtensions: [html, .txt]
rootDir: src
include: examples
skipTypeChecking: true
`
	opts, err := Decode([]byte(doc), FormatYAML)
	require.NoError(t, err)

	require.True(t, opts.Input.IsKeyed())
	assert.Equal(t, []bundleconfig.Entry{
		{Name: "zeta", Path: "src/z.ts"},
		{Name: "alpha", Path: "src/a.ts"},
	}, opts.Input.Entries())
	assert.Equal(t, "dist", opts.OutDir)
	assert.Equal(t, "tsconfig.json", opts.Tsconfig)
	assert.Equal(t, map[string]string{"NODE_ENV": "production", "DEBUG": "false", "RETRIES": "3"}, opts.Env)
	assert.Equal(t, []string{"html", ".txt"}, opts.RawFileExtensions)
	assert.Equal(t, "src", opts.RootDir)
	assert.Equal(t, []string{"examples"}, opts.Include)
	assert.True(t, opts.SkipTypeChecking)
	assert.False(t, opts.SkipCircularDependencyChecking)
	require.NoError(t, opts.Validate())
}

func TestDecodeYAMLAnchors(t *testing.T) {
	doc := `
defaults: &defaults
  outDir: dist
  tsconfig: tsconfig.json
<<: *defaults
input: src/index.ts
`
	opts, err := Decode([]byte(doc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "dist", opts.OutDir)
	assert.Equal(t, "src/index.ts", opts.Input.Path())
}

func TestDecodeYAMLMergeSequence(t *testing.T) {
	doc := `
base: &base
  outDir: build
  tsconfig: tsconfig.base.json
paths: &paths
  outDir: dist
  rootDir: src
<<: [*paths, *base]
input: src/index.ts
`
	opts, err := Decode([]byte(doc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "dist", opts.OutDir, "earlier mappings take precedence")
	assert.Equal(t, "tsconfig.base.json", opts.Tsconfig)
	assert.Equal(t, "src", opts.RootDir)
	assert.Equal(t, "src/index.ts", opts.Input.Path())
}

func TestDecodeYAMLMergeRequiresMappings(t *testing.T) {
	doc := "<<: [a, b]\ninput: src/index.ts\n"
	_, err := Decode([]byte(doc), FormatYAML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge requires a mapping")
}

func TestDecodeJSON(t *testing.T) {
	doc := "{\n\t\"input\": {\"frontend\": \"src/index.ts\", \"admin\": \"src/admin.ts\"},\n\t\"outDir\": \"dist\",\n\t\"tsconfig\": \"tsconfig.json\",\n\t\"include\": [\"examples\", \"docs\"],\n\t\"skipCircularDependencyChecking\": true\n}\n"

	opts, err := Decode([]byte(doc), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []bundleconfig.Entry{
		{Name: "frontend", Path: "src/index.ts"},
		{Name: "admin", Path: "src/admin.ts"},
	}, opts.Input.Entries())
	assert.Equal(t, []string{"examples", "docs"}, opts.Include)
	assert.True(t, opts.SkipCircularDependencyChecking)
	assert.Nil(t, opts.Env)
}

func TestDecodeSyntaxErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		doc    string
	}{
		{name: "yaml", format: FormatYAML, doc: "input: [unterminated"},
		{name: "json", format: FormatJSON, doc: `{"input": }`},
		{name: "json trailing data", format: FormatJSON, doc: `{} {}`},
		{name: "hcl", format: FormatHCL, doc: `input = `},
		{name: "hcl block", format: FormatHCL, doc: "options {\n  input = \"a.ts\"\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc), tt.format)
			require.Error(t, err)
			_, isValidation := bundleconfig.KindOf(err)
			assert.False(t, isValidation)
			assert.Contains(t, err.Error(), "failed to parse options file")
		})
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	_, err := Decode([]byte(`{}`), Format("toml"))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"bundle.yaml":        FormatYAML,
		"bundle.YML":         FormatYAML,
		"config/bundle.json": FormatJSON,
		"bundle.hcl":         FormatHCL,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatFromPath("bundle.toml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input: src/index.ts\noutDir: dist\ntsconfig: tsconfig.json\n"), 0o600))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "src/index.ts", opts.Input.Path())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read options file")
}
