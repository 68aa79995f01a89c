// SPDX-License-Identifier: MPL-2.0

// Package registry enforces the bundle-wide flat namespace: one name, one
// definition, regardless of which file declares it.
package registry

import (
	"fmt"

	"shmod-cli/internal/extract"
)

// DuplicateError reports a name declared by two files. Both contenders
// are named so the author can locate either definition directly.
type DuplicateError struct {
	// Name is the colliding declaration name.
	Name string
	// First is the file that registered the name initially.
	First string
	// Second is the file whose registration was rejected.
	Second string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate declaration %q: first defined in %s, redefined in %s",
		e.Name, e.First, e.Second)
}

// Registry accumulates declarations across all files of a build run.
// Insertion of a duplicate name is a hard failure, never an overwrite.
type Registry struct {
	byName map[string]extract.Declaration
	order  []string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byName: make(map[string]extract.Declaration)}
}

// Register inserts d, failing with *DuplicateError if the name is taken.
func (r *Registry) Register(d extract.Declaration) error {
	if prev, ok := r.byName[d.Name]; ok {
		return &DuplicateError{Name: d.Name, First: prev.File, Second: d.File}
	}
	r.byName[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Public returns the non-private declaration names in first-seen order.
func (r *Registry) Public() []string {
	return r.names(false)
}

// Private returns the private declaration names in first-seen order.
func (r *Registry) Private() []string {
	return r.names(true)
}

// Len returns the total number of registered declarations.
func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) names(private bool) []string {
	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.byName[name].Private == private {
			out = append(out, name)
		}
	}
	return out
}
