// SPDX-License-Identifier: MPL-2.0

// Package collect discovers the shell source files that make up a module.
//
// Collection is deterministic: both the preamble list and the script list
// are sorted by slash-normalized full path, so the same tree produces the
// same ordering on every run and on every operating system. The rest of
// the build pipeline (extraction, bundling) consumes this single ordered
// list and never re-sorts.
package collect

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Options configures a collection pass.
type Options struct {
	// Root is the source directory to walk. Must exist.
	Root string

	// Extension is the script file extension including the leading dot
	// (e.g., ".sh"). Matched against filepath.Ext, so ".sh" does not
	// match ".shlib".
	Extension string

	// PreambleName is the reserved file name whose occurrences are
	// emitted first in the bundle (e.g., "_prelude.sh"). Preamble files
	// are never treated as script files and contribute no declarations.
	PreambleName string

	// PrivateDir marks files as private: a file is private iff any
	// directory segment between Root and the file equals PrivateDir
	// case-insensitively.
	PrivateDir string

	// Exclude patterns are matched against the slash-normalized full
	// path of each candidate script file. Callers compile them
	// case-insensitively (see config.CompiledExcludes).
	Exclude []*regexp.Regexp
}

// File is one collected source file. Immutable once read.
type File struct {
	// Path is the absolute path of the file.
	Path string
	// Content is the raw file text, read exactly once at collection time.
	Content []byte
	// Private reports whether the file lives under a private directory.
	Private bool
}

// Set is the result of a collection pass.
type Set struct {
	// Preamble files, sorted by full path. May be empty.
	Preamble []File
	// Scripts are the eligible script files, sorted by full path.
	Scripts []File
}

// PathNotFoundError reports a missing or non-directory source root.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("source path not found: %s", e.Path)
}

// Collect walks opts.Root and returns the ordered preamble and script
// file lists. It fails with *PathNotFoundError when the root does not
// exist or is not a directory, and propagates I/O errors from the walk.
func Collect(opts Options) (*Set, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve source root %q: %w", opts.Root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &PathNotFoundError{Path: opts.Root}
		}
		return nil, fmt.Errorf("stat source root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, &PathNotFoundError{Path: opts.Root}
	}

	var preamblePaths, scriptPaths []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		switch {
		case name == opts.PreambleName:
			preamblePaths = append(preamblePaths, path)
		case filepath.Ext(name) == opts.Extension:
			if excluded(path, opts.Exclude) {
				slog.Debug("excluding script file", "path", path)
				return nil
			}
			scriptPaths = append(scriptPaths, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk source tree %q: %w", root, walkErr)
	}

	sortByFullPath(preamblePaths)
	sortByFullPath(scriptPaths)

	set := &Set{}
	for _, p := range preamblePaths {
		f, err := readFile(root, p, opts.PrivateDir)
		if err != nil {
			return nil, err
		}
		set.Preamble = append(set.Preamble, f)
	}
	for _, p := range scriptPaths {
		f, err := readFile(root, p, opts.PrivateDir)
		if err != nil {
			return nil, err
		}
		set.Scripts = append(set.Scripts, f)
	}

	slog.Debug("collected source files",
		"root", root,
		"preamble", len(set.Preamble),
		"scripts", len(set.Scripts))

	return set, nil
}

// sortByFullPath orders paths by their slash-normalized form so the
// ordering matches across operating systems.
func sortByFullPath(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		return filepath.ToSlash(paths[i]) < filepath.ToSlash(paths[j])
	})
}

func excluded(path string, patterns []*regexp.Regexp) bool {
	normalized := filepath.ToSlash(path)
	for _, pat := range patterns {
		if pat.MatchString(normalized) {
			return true
		}
	}
	return false
}

func readFile(root, path, privateDir string) (File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read source file %q: %w", path, err)
	}
	return File{
		Path:    path,
		Content: content,
		Private: isPrivate(root, path, privateDir),
	}, nil
}

// isPrivate checks the directory segments between root and the file for
// the private marker. The file name itself is not a segment: a file
// named "private.sh" in a public directory stays public.
func isPrivate(root, path, privateDir string) bool {
	if privateDir == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
		if strings.EqualFold(seg, privateDir) {
			return true
		}
	}
	return false
}
