// SPDX-License-Identifier: MPL-2.0

// Package assemble runs the build pipeline: collect source files, extract
// declarations, enforce the flat namespace, aggregate the version floor,
// write the bundle and reconcile the descriptor.
//
// The pipeline is fully sequential and all-or-nothing. Every file is
// collected, parsed and registered — and any pre-existing descriptor is
// loaded — before either artifact is written, so a failing run leaves the
// target directory exactly as it found it.
package assemble

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"shmod-cli/internal/collect"
	"shmod-cli/internal/descriptor"
	"shmod-cli/internal/extract"
	"shmod-cli/internal/registry"
	"shmod-cli/internal/shellver"
)

// Options are the named build inputs. Callers construct this explicitly;
// there is no dynamic forwarding of host parameters into the descriptor.
type Options struct {
	// SourceDir is the root to scan. Required.
	SourceDir string
	// TargetDir receives both artifacts. Defaults to SourceDir; created
	// if missing.
	TargetDir string
	// Name is the module name. Defaults to the source directory's base
	// name. The bundle is written as <Name><BundleSuffix> and the
	// descriptor as <Name><DescriptorSuffix>.
	Name string
	// Notes are the release notes to record for this run, flattened to
	// one text block, newest-first relative to prior notes.
	Notes []string

	// Extension is the script file extension (default ".sh").
	Extension string
	// PreambleName is the reserved preamble file name (default "_prelude.sh").
	PreambleName string
	// PrivateDir is the private directory marker (default "private").
	PrivateDir string
	// Exclude patterns filter script files by full path.
	Exclude []*regexp.Regexp
	// Baseline is the version floor's starting point (default 2.0).
	Baseline shellver.Version
	// BundleSuffix is the bundle artifact suffix (default ".shlib").
	// It must differ from Extension so the artifact is never collected
	// as a source on a later run.
	BundleSuffix string
	// DescriptorSuffix is the descriptor artifact suffix
	// (default ".shmod.toml").
	DescriptorSuffix string
}

// Result summarizes a completed (or, for Check, simulated) run.
type Result struct {
	Name           string
	SourceDir      string
	TargetDir      string
	BundlePath     string
	DescriptorPath string
	MinVersion     shellver.Version
	PublicNames    []string
	PrivateNames   []string
	// ReleaseNotes is the combined notes text as reconciled into the
	// descriptor (new notes first, then prior notes).
	ReleaseNotes string
	// FileCount is the number of script files in the bundle, preamble
	// excluded.
	FileCount int
}

// Assembler executes the pipeline for one fixed set of Options.
type Assembler struct {
	opts Options
}

// New validates and normalizes opts. SourceDir existence is checked at
// run time, not here, so Check and Run report PathNotFound themselves.
func New(opts Options) (*Assembler, error) {
	if opts.SourceDir == "" {
		return nil, fmt.Errorf("source directory is required")
	}

	abs, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolve source directory %q: %w", opts.SourceDir, err)
	}
	opts.SourceDir = abs

	if opts.TargetDir == "" {
		opts.TargetDir = opts.SourceDir
	} else if opts.TargetDir, err = filepath.Abs(opts.TargetDir); err != nil {
		return nil, fmt.Errorf("resolve target directory: %w", err)
	}

	if opts.Name == "" {
		opts.Name = filepath.Base(opts.SourceDir)
	}
	if opts.Extension == "" {
		opts.Extension = ".sh"
	}
	if opts.PreambleName == "" {
		opts.PreambleName = "_prelude.sh"
	}
	if opts.PrivateDir == "" {
		opts.PrivateDir = "private"
	}
	if opts.Baseline.IsZero() {
		opts.Baseline = shellver.MustParse("2.0")
	}
	if opts.BundleSuffix == "" {
		opts.BundleSuffix = ".shlib"
	}
	if opts.DescriptorSuffix == "" {
		opts.DescriptorSuffix = ".shmod.toml"
	}

	if opts.BundleSuffix == opts.Extension {
		return nil, fmt.Errorf("bundle suffix %q must differ from the script extension", opts.BundleSuffix)
	}

	return &Assembler{opts: opts}, nil
}

// BundlePath returns the bundle artifact path for the configured options.
func (a *Assembler) BundlePath() string {
	return filepath.Join(a.opts.TargetDir, a.opts.Name+a.opts.BundleSuffix)
}

// DescriptorPath returns the descriptor artifact path.
func (a *Assembler) DescriptorPath() string {
	return filepath.Join(a.opts.TargetDir, a.opts.Name+a.opts.DescriptorSuffix)
}

// Run executes the full pipeline and writes both artifacts.
func (a *Assembler) Run() (*Result, error) {
	state, err := a.analyze()
	if err != nil {
		return nil, err
	}

	// All validation passed; only now touch the filesystem.
	if err := os.MkdirAll(a.opts.TargetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create target directory %s: %w", a.opts.TargetDir, err)
	}

	if err := writeBundle(state.result.BundlePath, renderBundle(state.set)); err != nil {
		return nil, err
	}
	slog.Info("bundle written", "path", state.result.BundlePath, "files", state.result.FileCount)

	if err := descriptor.Save(state.result.DescriptorPath, state.fields); err != nil {
		return nil, err
	}
	slog.Info("descriptor written",
		"path", state.result.DescriptorPath,
		"version", state.result.MinVersion.String(),
		"exported", len(state.result.PublicNames))

	return state.result, nil
}

// Check executes every validation stage of the pipeline without writing
// anything. The returned Result reports what Run would produce.
func (a *Assembler) Check() (*Result, error) {
	state, err := a.analyze()
	if err != nil {
		return nil, err
	}
	return state.result, nil
}

// runState carries the validated intermediate products between the
// analysis and write phases.
type runState struct {
	set    *collect.Set
	fields descriptor.Fields
	result *Result
}

func (a *Assembler) analyze() (*runState, error) {
	set, err := collect.Collect(collect.Options{
		Root:         a.opts.SourceDir,
		Extension:    a.opts.Extension,
		PreambleName: a.opts.PreambleName,
		PrivateDir:   a.opts.PrivateDir,
		Exclude:      a.opts.Exclude,
	})
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	floor := shellver.NewFloor(a.opts.Baseline)

	// Extraction consumes the collector's order; bundling reuses the
	// same Set, so declared names and bundle content cannot diverge.
	for _, f := range set.Scripts {
		report, err := extract.ScanFile(f)
		if err != nil {
			return nil, err
		}
		for _, d := range report.Decls {
			if err := reg.Register(d); err != nil {
				return nil, err
			}
		}
		floor.Observe(report.MinVersion)
	}

	bundleName := a.opts.Name + a.opts.BundleSuffix
	descriptorPath := a.DescriptorPath()

	// Loading the prior descriptor is part of validation: a corrupt
	// descriptor must abort before the bundle is written.
	var existing descriptor.Fields
	var priorVersion shellver.Version
	var priorVersionText string
	if descriptor.Exists(descriptorPath) {
		existing, err = descriptor.Load(descriptorPath)
		if err != nil {
			return nil, err
		}
		if prior := existing.String(descriptor.KeyMinShellVersion); prior != "" {
			v, parseErr := shellver.Parse(prior)
			if parseErr != nil {
				return nil, &descriptor.LoadError{Path: descriptorPath, Err: parseErr}
			}
			priorVersion, priorVersionText = v, prior
		}
	}

	// The recorded version never goes down. When the prior descriptor
	// already holds the maximum, its exact string is kept, so finer
	// segments ("3.0.5") survive the major.minor rendering of computed
	// floors.
	minVersion := floor.Value()
	minVersionText := minVersion.String()
	if priorVersionText != "" && minVersion.Compare(priorVersion) <= 0 {
		minVersion = priorVersion
		minVersionText = priorVersionText
	}

	fields, combinedNotes := a.reconcile(existing, bundleName, minVersionText, reg.Public())

	return &runState{
		set:    set,
		fields: fields,
		result: &Result{
			Name:           a.opts.Name,
			SourceDir:      a.opts.SourceDir,
			TargetDir:      a.opts.TargetDir,
			BundlePath:     a.BundlePath(),
			DescriptorPath: descriptorPath,
			MinVersion:     minVersion,
			PublicNames:    reg.Public(),
			PrivateNames:   reg.Private(),
			ReleaseNotes:   combinedNotes,
			FileCount:      len(set.Scripts),
		},
	}, nil
}

// reconcile merges this run's computed values into the prior descriptor
// fields. Exported names are replaced wholesale; release notes accumulate
// newest-first; every key the engine does not own passes through.
func (a *Assembler) reconcile(existing descriptor.Fields, bundleName, minVersion string, exported []string) (descriptor.Fields, string) {
	fields := descriptor.Fields{}
	for k, v := range existing {
		fields[k] = v
	}

	newNotes := strings.Join(a.opts.Notes, "\n")
	combined := newNotes
	if prior := existing.String(descriptor.KeyReleaseNotes); prior != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += prior
	}

	fields[descriptor.KeyEntryPoint] = bundleName
	fields[descriptor.KeyMinShellVersion] = minVersion
	fields[descriptor.KeyExportedFunctions] = exported
	if combined != "" {
		fields[descriptor.KeyReleaseNotes] = combined
	}

	return fields, combined
}
