package bundleconfig

import (
	"errors"
	"fmt"
)

// Kind identifies which validation rule an options record violated.
type Kind int

const (
	KindInvalidOptions Kind = iota + 1
	KindMissingInput
	KindInvalidInput
	KindEmptyInputMap
	KindMissingOutDir
	KindInvalidOutDir
	KindMissingTsconfig
	KindInvalidTsconfig
	KindInvalidEnv
	KindInvalidRawFileExtensions
	KindInvalidRootDir
	KindInvalidInclude
	KindInvalidSkipTypeChecking
	KindInvalidSkipCircularDependencyChecking
	KindAmbiguousRootDir
)

var kindNames = map[Kind]string{
	KindInvalidOptions:                        "InvalidOptions",
	KindMissingInput:                          "MissingInput",
	KindInvalidInput:                          "InvalidInput",
	KindEmptyInputMap:                         "EmptyInputMap",
	KindMissingOutDir:                         "MissingOutDir",
	KindInvalidOutDir:                         "InvalidOutDir",
	KindMissingTsconfig:                       "MissingTsconfig",
	KindInvalidTsconfig:                       "InvalidTsconfig",
	KindInvalidEnv:                            "InvalidEnv",
	KindInvalidRawFileExtensions:              "InvalidRawFileExtensions",
	KindInvalidRootDir:                        "InvalidRootDir",
	KindInvalidInclude:                        "InvalidInclude",
	KindInvalidSkipTypeChecking:               "InvalidSkipTypeChecking",
	KindInvalidSkipCircularDependencyChecking: "InvalidSkipCircularDependencyChecking",
	KindAmbiguousRootDir:                      "AmbiguousRootDir",
}

var kindMessages = map[Kind]string{
	KindInvalidOptions:                        "invalid config options - must be an object",
	KindMissingInput:                          `no "input" in config options`,
	KindInvalidInput:                          `invalid "input" option - must be a string or keyed object`,
	KindEmptyInputMap:                         `no keys in "input" option`,
	KindMissingOutDir:                         `no "outDir" in config options`,
	KindInvalidOutDir:                         `invalid "outDir" option - must be a string`,
	KindMissingTsconfig:                       `no "tsconfig" in config options`,
	KindInvalidTsconfig:                       `invalid "tsconfig" in config options - must be a string`,
	KindInvalidEnv:                            `invalid "env" option - must be a keyed object`,
	KindInvalidRawFileExtensions:              `invalid "rawFileExtensions" option - must be an array`,
	KindInvalidRootDir:                        `invalid "rootDir" option - must be a non-empty string`,
	KindInvalidInclude:                        `invalid "include" option - must be a non-empty string or array`,
	KindInvalidSkipTypeChecking:               `invalid "skipTypeChecking" option - must be a boolean`,
	KindInvalidSkipCircularDependencyChecking: `invalid "skipCircularDependencyChecking" option - must be a boolean`,
	KindAmbiguousRootDir:                      `more than one possible root directory - please specify a "rootDir" option`,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ValidationError reports the first rule an options record violated.
type ValidationError struct {
	Kind Kind
	// Detail narrows the failure down (an entry name, an element index) and may be empty.
	Detail string
}

func (e *ValidationError) Error() string {
	msg, ok := kindMessages[e.Kind]
	if !ok {
		msg = "invalid config options"
	}
	if e.Detail != "" {
		return msg + ": " + e.Detail
	}
	return msg
}

// Is matches any ValidationError of the same kind, so the sentinels below
// work with errors.Is regardless of Detail.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidOptions                        = &ValidationError{Kind: KindInvalidOptions}
	ErrMissingInput                          = &ValidationError{Kind: KindMissingInput}
	ErrInvalidInput                          = &ValidationError{Kind: KindInvalidInput}
	ErrEmptyInputMap                         = &ValidationError{Kind: KindEmptyInputMap}
	ErrMissingOutDir                         = &ValidationError{Kind: KindMissingOutDir}
	ErrInvalidOutDir                         = &ValidationError{Kind: KindInvalidOutDir}
	ErrMissingTsconfig                       = &ValidationError{Kind: KindMissingTsconfig}
	ErrInvalidTsconfig                       = &ValidationError{Kind: KindInvalidTsconfig}
	ErrInvalidEnv                            = &ValidationError{Kind: KindInvalidEnv}
	ErrInvalidRawFileExtensions              = &ValidationError{Kind: KindInvalidRawFileExtensions}
	ErrInvalidRootDir                        = &ValidationError{Kind: KindInvalidRootDir}
	ErrInvalidInclude                        = &ValidationError{Kind: KindInvalidInclude}
	ErrInvalidSkipTypeChecking               = &ValidationError{Kind: KindInvalidSkipTypeChecking}
	ErrInvalidSkipCircularDependencyChecking = &ValidationError{Kind: KindInvalidSkipCircularDependencyChecking}
	ErrAmbiguousRootDir                      = &ValidationError{Kind: KindAmbiguousRootDir}
)

// NewValidationError returns a ValidationError of the given kind with an optional detail.
func NewValidationError(kind Kind, detail string) *ValidationError {
	return &ValidationError{Kind: kind, Detail: detail}
}

// KindOf returns the validation kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Kind, true
	}
	return 0, false
}
