package bundleconfig

import "fmt"

// Entry is one named entry point of a keyed input.
type Entry struct {
	Name string
	Path string
}

// Input is either a single entry path or an ordered set of named entries.
// The zero value is an unset input.
type Input struct {
	path    string
	entries []Entry
	keyed   bool
	set     bool
}

// SingleInput returns an input bundling one entry point.
func SingleInput(path string) Input {
	return Input{path: path, set: true}
}

// KeyedInput returns an input with one bundle per entry, in the given order.
func KeyedInput(entries ...Entry) Input {
	return Input{entries: append([]Entry(nil), entries...), keyed: true, set: true}
}

// IsZero reports whether the input was never set.
func (i Input) IsZero() bool { return !i.set }

// IsKeyed reports whether the input is a keyed mapping.
func (i Input) IsKeyed() bool { return i.keyed }

// Path returns the entry path of a single input.
func (i Input) Path() string { return i.path }

// Entries returns a copy of the entries of a keyed input.
func (i Input) Entries() []Entry {
	return append([]Entry(nil), i.entries...)
}

// Options are the high-level inputs to the configuration builder.
type Options struct {
	Input    Input
	OutDir   string
	Tsconfig string

	// Env holds variables injected into the bundle, keyed by name, with
	// their default values.
	Env map[string]string

	// RawFileExtensions lists extensions imported as plain text, with or
	// without a leading dot.
	RawFileExtensions []string

	// RootDir overrides the inferred root used for the "^" alias.
	RootDir string

	// Include adds directories scanned for transformable source, ahead of the
	// directories inferred from the input.
	Include []string

	SkipTypeChecking               bool
	SkipCircularDependencyChecking bool
}

// Validate checks the options against the ordered validation rules and
// returns a *ValidationError for the first rule violated.
//
// A Go zero value cannot be told apart from an absent field, so an empty
// OutDir or Tsconfig is reported as missing.
func (o *Options) Validate() error {
	if o == nil {
		return NewValidationError(KindInvalidOptions, "")
	}

	if o.Input.IsZero() {
		return NewValidationError(KindMissingInput, "")
	}

	if err := o.Input.validate(); err != nil {
		return err
	}

	if o.OutDir == "" {
		return NewValidationError(KindMissingOutDir, "")
	}

	if o.Tsconfig == "" {
		return NewValidationError(KindMissingTsconfig, "")
	}

	for i, include := range o.Include {
		if include == "" {
			return NewValidationError(KindInvalidInclude, fmt.Sprintf("element %d is empty", i))
		}
	}

	return nil
}

func (i Input) validate() error {
	if !i.keyed {
		if i.path == "" {
			return NewValidationError(KindInvalidInput, "")
		}
		return nil
	}

	if len(i.entries) == 0 {
		return NewValidationError(KindEmptyInputMap, "")
	}

	seen := make(map[string]struct{}, len(i.entries))
	for _, entry := range i.entries {
		if entry.Name == "" {
			return NewValidationError(KindInvalidInput, "entry name is empty")
		}
		if entry.Path == "" {
			return NewValidationError(KindInvalidInput, fmt.Sprintf("entry %q has an empty path", entry.Name))
		}
		if _, dup := seen[entry.Name]; dup {
			return NewValidationError(KindInvalidInput, fmt.Sprintf("entry %q is defined more than once", entry.Name))
		}
		seen[entry.Name] = struct{}{}
	}

	return nil
}
