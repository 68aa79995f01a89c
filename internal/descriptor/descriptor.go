// SPDX-License-Identifier: MPL-2.0

// Package descriptor persists module descriptors as TOML key-value files.
//
// The store is deliberately generic: descriptors are loaded into and saved
// from a Fields map, so keys this engine does not own round-trip through a
// rebuild untouched. The engine-owned keys are validated against an
// embedded CUE schema on load; a descriptor that fails validation is
// treated as unreadable, never silently repaired.
package descriptor

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
)

// Engine-owned descriptor keys. Everything else passes through untouched.
const (
	// KeyEntryPoint is the bundle artifact file name.
	KeyEntryPoint = "entry_point"
	// KeyMinShellVersion is the descriptor's declared version floor.
	KeyMinShellVersion = "min_shell_version"
	// KeyExportedFunctions is the public declaration name list.
	KeyExportedFunctions = "exported_functions"
	// KeyReleaseNotes is the cumulative free-text release notes.
	KeyReleaseNotes = "release_notes"
)

//go:embed descriptor_schema.cue
var schemaSource string

// Fields is a descriptor's key-value content.
type Fields map[string]any

// LoadError reports an existing descriptor that could not be read,
// decoded or validated. Fatal: the engine never auto-repairs.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load descriptor %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// WriteError reports an I/O failure while persisting a descriptor.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write descriptor %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Exists reports whether a descriptor file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads and validates the descriptor at path.
func Load(path string) (Fields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	fields := Fields{}
	if err := toml.Unmarshal(data, &fields); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	if err := validate(fields); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	return fields, nil
}

// Save persists fields to path, overwriting any existing descriptor.
func Save(path string, fields Fields) error {
	data, err := toml.Marshal(fields)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// validate unifies the loaded fields with the embedded schema. The schema
// constrains the engine-owned keys only; unknown keys are allowed.
func validate(fields Fields) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile descriptor schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Descriptor"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("descriptor schema missing #Descriptor: %w", err)
	}

	value := ctx.Encode(map[string]any(fields))
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode descriptor fields: %w", err)
	}

	if err := def.Unify(value).Validate(); err != nil {
		return fmt.Errorf("descriptor schema violation: %w", err)
	}
	return nil
}

// String returns the string value for key, or "" when absent or not a
// string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Strings returns the string list for key. TOML decoding yields []any,
// so both []string and []any element forms are accepted.
func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
