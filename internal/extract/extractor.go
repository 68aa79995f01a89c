// SPDX-License-Identifier: MPL-2.0

// Package extract parses shell source files and pulls out their top-level
// function declarations plus any declared minimum shell version.
//
// Extraction is syntax-tree based via mvdan.cc/sh. Text occurrences of
// declaration-like syntax inside strings, heredocs or comments are never
// misread as declarations, and function definitions nested inside other
// functions are not extracted.
package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"

	"mvdan.cc/sh/v3/syntax"

	"shmod-cli/internal/collect"
	"shmod-cli/internal/shellver"
)

// Declaration is one top-level function definition found in a source file.
type Declaration struct {
	// Name is the declared function name.
	Name string
	// Private is inherited from the owning file's directory classification.
	Private bool
	// File is the owning file's path. Diagnostic back-reference only.
	File string
}

// FileReport is the extraction result for a single file.
type FileReport struct {
	// Decls are the top-level declarations in source order.
	Decls []Declaration
	// MinVersion is the highest minimum shell version the file declares
	// via requires directives. Zero when the file declares none.
	MinVersion shellver.Version
}

// ParseError is fatal for the whole build: a file that does not parse
// produces no bundle and no descriptor.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// requiresDirective recognizes minimum-version comments such as
//
//	# requires -version 4.2
//
// The match is case-insensitive and anchored to the whole comment, so a
// mention of the directive in prose or in a string literal does not count.
var requiresDirective = regexp.MustCompile(`(?i)^\s*requires\s+-version\s+([0-9]+(?:\.[0-9]+)*)\s*$`)

// ScanFile parses one collected file and reports its top-level function
// declarations and declared minimum shell version.
func ScanFile(f collect.File) (*FileReport, error) {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(true),
	)

	prog, err := parser.Parse(bytes.NewReader(f.Content), f.Path)
	if err != nil {
		return nil, &ParseError{File: f.Path, Err: err}
	}

	report := &FileReport{}

	// Only direct children of the file are candidate declarations.
	for _, stmt := range prog.Stmts {
		fd, ok := stmt.Cmd.(*syntax.FuncDecl)
		if !ok {
			continue
		}
		report.Decls = append(report.Decls, Declaration{
			Name:    fd.Name.Value,
			Private: f.Private,
			File:    f.Path,
		})
	}

	// Directive comments may appear anywhere in the file, including after
	// the last statement, so walk the whole tree for them.
	floor := shellver.NewFloor(shellver.Version{})
	syntax.Walk(prog, func(node syntax.Node) bool {
		c, ok := node.(*syntax.Comment)
		if !ok {
			return true
		}
		m := requiresDirective.FindStringSubmatch(c.Text)
		if m == nil {
			return true
		}
		v, parseErr := shellver.Parse(m[1])
		if parseErr != nil {
			// Unreachable given the directive pattern, but stay loud.
			slog.Warn("ignoring malformed requires directive", "file", f.Path, "text", c.Text)
			return true
		}
		floor.Observe(v)
		return true
	})
	report.MinVersion = floor.Value()

	slog.Debug("extracted declarations",
		"file", f.Path,
		"declarations", len(report.Decls),
		"min_version", report.MinVersion.String())

	return report, nil
}
