package bundleconfig

import (
	"bytes"
	"encoding/json"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Plugin names as understood by webpack consumers of the configuration.
const (
	PluginTypeChecker          = "fork-ts-checker-webpack-plugin"
	PluginCircularDependency   = "circular-dependency-plugin"
	PluginEnvironment          = "EnvironmentPlugin"
	LoaderBabel                = "babel-loader"
	LoaderRaw                  = "raw-loader"
	AliasRoot                  = "^"
	SingleOutputFilename       = "bundle.js"
	KeyedOutputFilenamePattern = "[name]-bundle.js"
)

// Config is the generated bundler configuration. It is plain data and
// marshals to JSON or YAML with a stable key order.
type Config struct {
	Performance Performance `json:"performance" yaml:"performance"`
	Stats       string      `json:"stats" yaml:"stats"`
	Devtool     string      `json:"devtool" yaml:"devtool"`
	Entry       EntryPoints `json:"entry" yaml:"entry"`
	Output      Output      `json:"output" yaml:"output"`
	Module      Module      `json:"module" yaml:"module"`
	Resolve     Resolve     `json:"resolve" yaml:"resolve"`
	Plugins     []Plugin    `json:"plugins" yaml:"plugins"`
}

type Performance struct {
	Hints bool `json:"hints" yaml:"hints"`
}

type Output struct {
	Filename string `json:"filename" yaml:"filename"`
	Path     string `json:"path" yaml:"path"`
}

type Module struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

type Resolve struct {
	Extensions []string          `json:"extensions" yaml:"extensions"`
	Alias      map[string]string `json:"alias" yaml:"alias"`
}

// NamedEntry is the module list of one keyed entry.
type NamedEntry struct {
	Name    string
	Modules []string
}

// EntryPoints holds either a single module list or named module lists in
// input order. It marshals as an array or an ordered object respectively.
type EntryPoints struct {
	Single []string
	Named  []NamedEntry
}

// IsKeyed reports whether the entry points are named.
func (e EntryPoints) IsKeyed() bool { return e.Named != nil }

// Lookup returns the module list for a named entry.
func (e EntryPoints) Lookup(name string) ([]string, bool) {
	for _, named := range e.Named {
		if named.Name == name {
			return named.Modules, true
		}
	}
	return nil, false
}

func (e EntryPoints) MarshalJSON() ([]byte, error) {
	if !e.IsKeyed() {
		return json.Marshal(e.Single)
	}

	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	for i, named := range e.Named {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(named.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(named.Modules)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e EntryPoints) MarshalYAML() (any, error) {
	if !e.IsKeyed() {
		return e.Single, nil
	}

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, named := range e.Named {
		var val yaml.Node
		if err := val.Encode(named.Modules); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: named.Name},
			&val,
		)
	}
	return node, nil
}

// Pattern is a regular expression over file names, kept as source text.
type Pattern string

// Compile parses the pattern.
func (p Pattern) Compile() (*regexp.Regexp, error) {
	return regexp.Compile(string(p))
}

// MatchString reports whether name matches the pattern. An invalid pattern
// matches nothing.
func (p Pattern) MatchString(name string) bool {
	re, err := p.Compile()
	if err != nil {
		return false
	}
	return re.MatchString(name)
}

// Rule routes files matching Test through the Use loaders. An empty Include
// applies the rule everywhere.
type Rule struct {
	Test    Pattern  `json:"test" yaml:"test"`
	Use     []Loader `json:"use" yaml:"use"`
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`

	// Extensions are the bare extensions a raw rule was built from.
	Extensions []string `json:"-" yaml:"-"`
}

type Loader struct {
	Loader  string        `json:"loader" yaml:"loader"`
	Options *BabelOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

type BabelOptions struct {
	Babelrc bool     `json:"babelrc" yaml:"babelrc"`
	Presets []Preset `json:"presets" yaml:"presets"`
	Plugins []string `json:"plugins" yaml:"plugins"`
}

// Preset is a babel preset, optionally with options. It marshals as the bare
// name, or as a [name, options] pair when options are set.
type Preset struct {
	Name string
	Env  *PresetEnvOptions
}

type PresetEnvOptions struct {
	Modules     bool   `json:"modules" yaml:"modules"`
	UseBuiltIns string `json:"useBuiltIns" yaml:"useBuiltIns"`
	CoreJS      CoreJS `json:"corejs" yaml:"corejs"`
}

type CoreJS struct {
	Version int `json:"version" yaml:"version"`
}

func (p Preset) MarshalJSON() ([]byte, error) {
	if p.Env == nil {
		return json.Marshal(p.Name)
	}
	return json.Marshal([]any{p.Name, p.Env})
}

func (p Preset) MarshalYAML() (any, error) {
	if p.Env == nil {
		return p.Name, nil
	}
	return []any{p.Name, p.Env}, nil
}

// Plugin is one cross-cutting build step. Exactly one of the option fields
// is set, matching Name.
type Plugin struct {
	Name               string                     `json:"name" yaml:"name"`
	TypeChecker        *TypeCheckerOptions        `json:"typeChecker,omitempty" yaml:"typeChecker,omitempty"`
	CircularDependency *CircularDependencyOptions `json:"circularDependency,omitempty" yaml:"circularDependency,omitempty"`
	Environment        *EnvironmentOptions        `json:"environment,omitempty" yaml:"environment,omitempty"`
}

type TypeCheckerOptions struct {
	ConfigFile string `json:"configFile" yaml:"configFile"`
}

type CircularDependencyOptions struct {
	FailOnError bool    `json:"failOnError" yaml:"failOnError"`
	Exclude     Pattern `json:"exclude" yaml:"exclude"`
	Cwd         string  `json:"cwd" yaml:"cwd"`
}

type EnvironmentOptions struct {
	Defaults map[string]string `json:"defaults" yaml:"defaults"`
}

// Plugin returns the first plugin with the given name.
func (c *Config) Plugin(name string) (Plugin, bool) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// RawRule returns the raw text asset rule, if one was generated.
func (c *Config) RawRule() (Rule, bool) {
	for _, r := range c.Module.Rules {
		if len(r.Use) == 1 && r.Use[0].Loader == LoaderRaw {
			return r, true
		}
	}
	return Rule{}, false
}

// IncludeDirs returns the include directories of the transform rules.
func (c *Config) IncludeDirs() []string {
	rules := c.Module.Rules
	if len(rules) == 0 {
		return nil
	}
	return rules[len(rules)-1].Include
}

// MarshalIndentJSON renders the configuration as indented JSON.
func (c *Config) MarshalIndentJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// MarshalYAMLDocument renders the configuration as a YAML document.
func (c *Config) MarshalYAMLDocument() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
