// Package optionsfile loads bundler options from YAML, JSON or HCL files.
//
// Documents are checked against the same ordered rules as
// bundleconfig.Options.Validate, but on the raw document, so wrong types and
// null values are reported with their own kinds rather than being lost in
// decoding.
package optionsfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wolfeidau/bundlecfg/internal/bundleconfig"
)

// Format is an options file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// ErrUnknownFormat is returned for file extensions with no known syntax.
var ErrUnknownFormat = errors.New("unknown options file format")

// FormatFromPath picks the syntax from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Load reads and decodes the options file at path.
func Load(path string) (*bundleconfig.Options, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read options file: %w", err)
	}

	return decode(data, format, path)
}

// Decode parses data in the given format and validates it into Options.
// Syntax errors are wrapped; rule violations are *bundleconfig.ValidationError.
func Decode(data []byte, format Format) (*bundleconfig.Options, error) {
	return decode(data, format, "options."+string(format))
}

func decode(data []byte, format Format, filename string) (*bundleconfig.Options, error) {
	var (
		doc value
		err error
	)
	switch format {
	case FormatYAML:
		doc, err = parseYAML(data)
	case FormatJSON:
		doc, err = parseJSON(data)
	case FormatHCL:
		doc, err = parseHCL(data, filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse options file: %w", err)
	}

	return fromDocument(doc)
}

func invalid(kind bundleconfig.Kind, detail string) error {
	return bundleconfig.NewValidationError(kind, detail)
}

func nonEmptyString(v value) bool {
	return v.kind == kindString && v.text != ""
}

// fromDocument applies the validation rules in order and builds Options.
func fromDocument(doc value) (*bundleconfig.Options, error) {
	if doc.kind != kindMapping {
		return nil, invalid(bundleconfig.KindInvalidOptions, "")
	}

	opts := &bundleconfig.Options{}

	input, ok := doc.lookup("input")
	if !ok {
		return nil, invalid(bundleconfig.KindMissingInput, "")
	}
	switch {
	case nonEmptyString(input):
		opts.Input = bundleconfig.SingleInput(input.text)
	case input.kind == kindMapping:
		fields := input.orderedFields()
		if len(fields) == 0 {
			return nil, invalid(bundleconfig.KindEmptyInputMap, "")
		}
		entries := make([]bundleconfig.Entry, 0, len(fields))
		for _, f := range fields {
			if !nonEmptyString(f.value) {
				return nil, invalid(bundleconfig.KindInvalidInput, fmt.Sprintf("entry %q must be a non-empty string, got %s", f.key, f.value.kind))
			}
			entries = append(entries, bundleconfig.Entry{Name: f.key, Path: f.value.text})
		}
		opts.Input = bundleconfig.KeyedInput(entries...)
	default:
		return nil, invalid(bundleconfig.KindInvalidInput, "")
	}

	outDir, ok := doc.lookup("outDir")
	if !ok {
		return nil, invalid(bundleconfig.KindMissingOutDir, "")
	}
	if !nonEmptyString(outDir) {
		return nil, invalid(bundleconfig.KindInvalidOutDir, "")
	}
	opts.OutDir = outDir.text

	tsconfig, ok := doc.lookup("tsconfig")
	if !ok {
		return nil, invalid(bundleconfig.KindMissingTsconfig, "")
	}
	if !nonEmptyString(tsconfig) {
		return nil, invalid(bundleconfig.KindInvalidTsconfig, "")
	}
	opts.Tsconfig = tsconfig.text

	if env, ok := doc.lookup("env"); ok {
		if env.kind != kindMapping {
			return nil, invalid(bundleconfig.KindInvalidEnv, "")
		}
		opts.Env = make(map[string]string, len(env.fields))
		for _, f := range env.orderedFields() {
			if !f.value.isScalar() {
				return nil, invalid(bundleconfig.KindInvalidEnv, fmt.Sprintf("value of %q must be a scalar, got %s", f.key, f.value.kind))
			}
			opts.Env[f.key] = f.value.text
		}
	}

	if exts, ok := doc.lookup("rawFileExtensions"); ok {
		if exts.kind != kindSequence {
			return nil, invalid(bundleconfig.KindInvalidRawFileExtensions, "")
		}
		opts.RawFileExtensions = make([]string, 0, len(exts.items))
		for i, item := range exts.items {
			if item.kind != kindString {
				return nil, invalid(bundleconfig.KindInvalidRawFileExtensions, fmt.Sprintf("element %d must be a string, got %s", i, item.kind))
			}
			opts.RawFileExtensions = append(opts.RawFileExtensions, item.text)
		}
	}

	if rootDir, ok := doc.lookup("rootDir"); ok {
		if !nonEmptyString(rootDir) {
			return nil, invalid(bundleconfig.KindInvalidRootDir, "")
		}
		opts.RootDir = rootDir.text
	}

	if include, ok := doc.lookup("include"); ok {
		switch {
		case nonEmptyString(include):
			opts.Include = []string{include.text}
		case include.kind == kindSequence && len(include.items) > 0:
			opts.Include = make([]string, 0, len(include.items))
			for i, item := range include.items {
				if !nonEmptyString(item) {
					return nil, invalid(bundleconfig.KindInvalidInclude, fmt.Sprintf("element %d must be a non-empty string", i))
				}
				opts.Include = append(opts.Include, item.text)
			}
		default:
			return nil, invalid(bundleconfig.KindInvalidInclude, "")
		}
	}

	if skip, ok := doc.lookup("skipTypeChecking"); ok {
		if skip.kind != kindBool {
			return nil, invalid(bundleconfig.KindInvalidSkipTypeChecking, "")
		}
		opts.SkipTypeChecking = skip.truth
	}

	if skip, ok := doc.lookup("skipCircularDependencyChecking"); ok {
		if skip.kind != kindBool {
			return nil, invalid(bundleconfig.KindInvalidSkipCircularDependencyChecking, "")
		}
		opts.SkipCircularDependencyChecking = skip.truth
	}

	return opts, nil
}
