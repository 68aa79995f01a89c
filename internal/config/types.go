// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"shmod-cli/internal/shellver"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidScriptExtension is returned when a ScriptExtension value is malformed.
	ErrInvalidScriptExtension = errors.New("invalid script extension")
	// ErrInvalidBaselineVersion is returned when a BaselineVersion value does not parse.
	ErrInvalidBaselineVersion = errors.New("invalid baseline version")
	// ErrInvalidExcludePattern is returned when an exclusion pattern does not compile.
	ErrInvalidExcludePattern = errors.New("invalid exclude pattern")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// ScriptExtension is the file extension that marks a source script.
	// A valid extension is non-empty and starts with a dot.
	ScriptExtension string

	// InvalidScriptExtensionError is returned when a ScriptExtension value is
	// empty or does not start with a dot.
	InvalidScriptExtensionError struct {
		Value ScriptExtension
	}

	// BaselineVersion is the starting point of the minimum-version floor,
	// as a dotted number string (e.g. "2.0").
	BaselineVersion string

	// InvalidBaselineVersionError is returned when a BaselineVersion value
	// cannot be parsed as a dotted number string.
	InvalidBaselineVersionError struct {
		Value BaselineVersion
		Err   error
	}

	// InvalidExcludePatternError is returned when an exclusion pattern is not
	// a valid regular expression.
	InvalidExcludePatternError struct {
		Pattern string
		Err     error
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	// It wraps ErrInvalidUIConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ScriptExtension marks which files are collected as sources.
		ScriptExtension ScriptExtension `json:"script_extension" mapstructure:"script_extension"`
		// PreambleName is the reserved preamble file name.
		PreambleName string `json:"preamble_name" mapstructure:"preamble_name"`
		// PrivateDir is the directory name that marks functions as private.
		PrivateDir string `json:"private_dir" mapstructure:"private_dir"`
		// ExcludePatterns are case-insensitive regular expressions matched
		// against the full slash-normalized path of each candidate file.
		ExcludePatterns []string `json:"exclude_patterns" mapstructure:"exclude_patterns"`
		// BaselineVersion is the minimum-version floor's starting point.
		BaselineVersion BaselineVersion `json:"baseline_version" mapstructure:"baseline_version"`
		// BundleSuffix is the bundle artifact suffix.
		BundleSuffix string `json:"bundle_suffix" mapstructure:"bundle_suffix"`
		// DescriptorSuffix is the descriptor artifact suffix.
		DescriptorSuffix string `json:"descriptor_suffix" mapstructure:"descriptor_suffix"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ScriptExtension.
func (x ScriptExtension) String() string { return string(x) }

// IsValid returns whether the ScriptExtension is non-empty and dot-prefixed.
func (x ScriptExtension) IsValid() (bool, []error) {
	if !strings.HasPrefix(string(x), ".") || len(x) < 2 {
		return false, []error{&InvalidScriptExtensionError{Value: x}}
	}
	return true, nil
}

// Error implements the error interface for InvalidScriptExtensionError.
func (e *InvalidScriptExtensionError) Error() string {
	return fmt.Sprintf("invalid script extension %q: must start with a dot", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidScriptExtensionError) Unwrap() error { return ErrInvalidScriptExtension }

// String returns the string representation of the BaselineVersion.
func (b BaselineVersion) String() string { return string(b) }

// Parse returns the BaselineVersion as a shellver.Version.
func (b BaselineVersion) Parse() (shellver.Version, error) {
	return shellver.Parse(string(b))
}

// IsValid returns whether the BaselineVersion parses as a dotted number string.
func (b BaselineVersion) IsValid() (bool, []error) {
	if _, err := b.Parse(); err != nil {
		return false, []error{&InvalidBaselineVersionError{Value: b, Err: err}}
	}
	return true, nil
}

// Error implements the error interface for InvalidBaselineVersionError.
func (e *InvalidBaselineVersionError) Error() string {
	return fmt.Sprintf("invalid baseline version %q: %v", e.Value, e.Err)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidBaselineVersionError) Unwrap() error { return ErrInvalidBaselineVersion }

// Error implements the error interface for InvalidExcludePatternError.
func (e *InvalidExcludePatternError) Error() string {
	return fmt.Sprintf("invalid exclude pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidExcludePatternError) Unwrap() error { return ErrInvalidExcludePattern }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to ScriptExtension.IsValid(), BaselineVersion.IsValid(),
// per-pattern regexp compilation, and UI.IsValid(). It also rejects a
// bundle suffix equal to the script extension, which would make the build
// collect its own output.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ScriptExtension.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.BaselineVersion.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, pattern := range c.ExcludePatterns {
		if _, err := compileExclude(pattern); err != nil {
			errs = append(errs, &InvalidExcludePatternError{Pattern: pattern, Err: err})
		}
	}
	if c.BundleSuffix == string(c.ScriptExtension) {
		errs = append(errs, fmt.Errorf("bundle suffix %q must differ from the script extension", c.BundleSuffix))
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// CompiledExcludes compiles every exclusion pattern case-insensitively.
func (c Config) CompiledExcludes() ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(c.ExcludePatterns))
	for _, pattern := range c.ExcludePatterns {
		re, err := compileExclude(pattern)
		if err != nil {
			return nil, &InvalidExcludePatternError{Pattern: pattern, Err: err}
		}
		res = append(res, re)
	}
	return res, nil
}

// Baseline returns the configured baseline as a shellver.Version.
func (c Config) Baseline() (shellver.Version, error) {
	v, err := c.BaselineVersion.Parse()
	if err != nil {
		return shellver.Version{}, &InvalidBaselineVersionError{Value: c.BaselineVersion, Err: err}
	}
	return v, nil
}

func compileExclude(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ScriptExtension: ".sh",
		PreambleName:    "_prelude.sh",
		PrivateDir:      "private",
		ExcludePatterns: []string{
			"exclude",
			"tests",
			`(^|/)build\.sh$`,
			`\.deploy\.sh$`,
		},
		BaselineVersion:  "2.0",
		BundleSuffix:     ".shlib",
		DescriptorSuffix: ".shmod.toml",
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
