// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"shmod-cli/internal/collect"
	"shmod-cli/internal/descriptor"
	"shmod-cli/internal/extract"
	"shmod-cli/internal/registry"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newAssembler(t *testing.T, opts Options) *Assembler {
	t.Helper()
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestRunPublicPrivateScenario(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"Public/Foo.sh":  "Get-Foo() {\n\techo foo\n}\n",
		"Private/Bar.sh": "Set-Bar() {\n\techo bar\n}\n",
	})

	a := newAssembler(t, Options{SourceDir: src, Name: "mylib"})
	result, err := a.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.PublicNames) != 1 || result.PublicNames[0] != "Get-Foo" {
		t.Errorf("PublicNames = %v, want [Get-Foo]", result.PublicNames)
	}
	if len(result.PrivateNames) != 1 || result.PrivateNames[0] != "Set-Bar" {
		t.Errorf("PrivateNames = %v, want [Set-Bar]", result.PrivateNames)
	}

	bundle, err := os.ReadFile(result.BundlePath)
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	// Path order: Private/Bar.sh sorts before Public/Foo.sh.
	barIdx := bytes.Index(bundle, []byte("Set-Bar()"))
	fooIdx := bytes.Index(bundle, []byte("Get-Foo()"))
	if barIdx < 0 || fooIdx < 0 || barIdx > fooIdx {
		t.Errorf("bundle content out of path order: bar@%d foo@%d", barIdx, fooIdx)
	}

	fields, err := descriptor.Load(result.DescriptorPath)
	if err != nil {
		t.Fatalf("load descriptor: %v", err)
	}
	exported := fields.Strings(descriptor.KeyExportedFunctions)
	if len(exported) != 1 || exported[0] != "Get-Foo" {
		t.Errorf("exported_functions = %v, want [Get-Foo]", exported)
	}
	if got := fields.String(descriptor.KeyEntryPoint); got != "mylib.shlib" {
		t.Errorf("entry_point = %q, want mylib.shlib", got)
	}
	if got := fields.String(descriptor.KeyMinShellVersion); got != "2.0" {
		t.Errorf("min_shell_version = %q, want baseline 2.0", got)
	}
}

func TestRunDuplicateAbortsWithNoArtifacts(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a/dup.sh": "Get-Foo() { :; }\n",
		"b/dup.sh": "Get-Foo() { :; }\n",
	})

	a := newAssembler(t, Options{SourceDir: src, Name: "mylib"})
	_, err := a.Run()

	var dup *registry.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("Run() error = %v, want *registry.DuplicateError", err)
	}
	if dup.Name != "Get-Foo" {
		t.Errorf("duplicate name = %s, want Get-Foo", dup.Name)
	}

	if _, statErr := os.Stat(a.BundlePath()); !os.IsNotExist(statErr) {
		t.Error("bundle artifact exists after duplicate abort")
	}
	if _, statErr := os.Stat(a.DescriptorPath()); !os.IsNotExist(statErr) {
		t.Error("descriptor artifact exists after duplicate abort")
	}
}

func TestRunParseErrorLeavesExistingArtifactsUntouched(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"ok.sh": "ok() { :; }\n"})

	a := newAssembler(t, Options{SourceDir: src, Name: "mylib"})
	if _, err := a.Run(); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	before, err := os.ReadFile(a.BundlePath())
	if err != nil {
		t.Fatal(err)
	}

	// Introduce a file that cannot parse; the rerun must abort without
	// touching the previously written artifacts.
	writeTree(t, src, map[string]string{"broken.sh": "broken() {\n"})

	_, err = a.Run()
	var pe *extract.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("second Run() error = %v, want *extract.ParseError", err)
	}

	after, err := os.ReadFile(a.BundlePath())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("bundle changed despite aborted run")
	}
}

func TestRunMergeKeepsHigherVersionAndPrependsNotes(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"f.sh": "# requires -version 2.0\nGet-F() { :; }\n"})

	a := newAssembler(t, Options{SourceDir: src, Name: "mylib"})

	// Pre-existing descriptor declares a higher version and prior notes.
	if err := descriptor.Save(a.DescriptorPath(), descriptor.Fields{
		descriptor.KeyMinShellVersion: "3.0",
		descriptor.KeyReleaseNotes:    "v1 notes",
		"author":                      "someone",
	}); err != nil {
		t.Fatal(err)
	}

	result, err := newAssembler(t, Options{
		SourceDir: src,
		Name:      "mylib",
		Notes:     []string{"v2 notes"},
	}).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := result.MinVersion.String(); got != "3.0" {
		t.Errorf("MinVersion = %s, want 3.0 (never lowered)", got)
	}

	fields, err := descriptor.Load(result.DescriptorPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := fields.String(descriptor.KeyMinShellVersion); got != "3.0" {
		t.Errorf("min_shell_version = %q, want 3.0", got)
	}
	if got := fields.String(descriptor.KeyReleaseNotes); got != "v2 notes\nv1 notes" {
		t.Errorf("release_notes = %q, want new notes before old", got)
	}
	if got := fields.String("author"); got != "someone" {
		t.Errorf("foreign key author = %q, want passthrough", got)
	}
}

func TestRunMergePreservesFinerVersionSegments(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"f.sh": "Get-F() { :; }\n"})

	a := newAssembler(t, Options{SourceDir: src, Name: "mylib"})

	// A prior descriptor may record more segments than the major.minor
	// rendering of computed floors. When it still holds the maximum, its
	// exact string must survive the merge, or every rebuild would quietly
	// lower "3.0.5" to "3.0".
	if err := descriptor.Save(a.DescriptorPath(), descriptor.Fields{
		descriptor.KeyMinShellVersion: "3.0.5",
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	fields, err := descriptor.Load(a.DescriptorPath())
	if err != nil {
		t.Fatal(err)
	}
	if got := fields.String(descriptor.KeyMinShellVersion); got != "3.0.5" {
		t.Errorf("min_shell_version = %q, want 3.0.5 preserved verbatim", got)
	}

	// A higher requirement from the sources still overrides it.
	writeTree(t, src, map[string]string{"g.sh": "# requires -version 4.2\nGet-G() { :; }\n"})
	if _, err := a.Run(); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	fields, err = descriptor.Load(a.DescriptorPath())
	if err != nil {
		t.Fatal(err)
	}
	if got := fields.String(descriptor.KeyMinShellVersion); got != "4.2" {
		t.Errorf("min_shell_version = %q, want 4.2", got)
	}
}

func TestRunExportedReplacementIsTotal(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"keep.sh": "Get-Keep() { :; }\n"})

	a := newAssembler(t, Options{SourceDir: src, Name: "mylib"})
	if err := descriptor.Save(a.DescriptorPath(), descriptor.Fields{
		descriptor.KeyExportedFunctions: []string{"Get-Removed", "Get-Keep"},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := a.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	fields, err := descriptor.Load(result.DescriptorPath)
	if err != nil {
		t.Fatal(err)
	}
	exported := fields.Strings(descriptor.KeyExportedFunctions)
	if len(exported) != 1 || exported[0] != "Get-Keep" {
		t.Errorf("exported_functions = %v, want wholesale replacement [Get-Keep]", exported)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"_prelude.sh":   "set -u\n",
		"Public/one.sh": "# requires -version 4.1\nGet-One() { :; }\n",
		"Public/two.sh": "Get-Two() { :; }\n",
	})
	target := t.TempDir()

	opts := Options{SourceDir: src, TargetDir: target, Name: "mylib"}

	first, err := newAssembler(t, opts).Run()
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	bundleOne, err := os.ReadFile(first.BundlePath)
	if err != nil {
		t.Fatal(err)
	}
	descOne, err := os.ReadFile(first.DescriptorPath)
	if err != nil {
		t.Fatal(err)
	}

	second, err := newAssembler(t, opts).Run()
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	bundleTwo, err := os.ReadFile(second.BundlePath)
	if err != nil {
		t.Fatal(err)
	}
	descTwo, err := os.ReadFile(second.DescriptorPath)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(bundleOne, bundleTwo) {
		t.Error("bundle not byte-identical across identical runs")
	}
	if !bytes.Equal(descOne, descTwo) {
		t.Error("descriptor changed across identical runs with no new notes")
	}
	if got := second.MinVersion.String(); got != "4.1" {
		t.Errorf("MinVersion = %s, want 4.1", got)
	}
}

func TestRunPreambleComesFirst(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"_prelude.sh":  "set -euo pipefail\n",
		"aaa/first.sh": "first() { :; }\n",
	})

	result, err := newAssembler(t, Options{SourceDir: src, Name: "mylib"}).Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	bundle, err := os.ReadFile(result.BundlePath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(bundle, []byte("set -euo pipefail\n")) {
		t.Errorf("bundle does not start with preamble: %q", bundle[:min(len(bundle), 40)])
	}
}

func TestRunCorruptDescriptorAborts(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"f.sh": "f() { :; }\n"})

	a := newAssembler(t, Options{SourceDir: src, Name: "mylib"})
	if err := os.WriteFile(a.DescriptorPath(), []byte("not = valid = toml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := a.Run()
	var le *descriptor.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Run() error = %v, want *descriptor.LoadError", err)
	}

	if _, statErr := os.Stat(a.BundlePath()); !os.IsNotExist(statErr) {
		t.Error("bundle written despite descriptor load failure")
	}
}

func TestRunMissingSource(t *testing.T) {
	t.Parallel()

	a := newAssembler(t, Options{SourceDir: filepath.Join(t.TempDir(), "gone")})
	_, err := a.Run()
	var pnf *collect.PathNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatalf("Run() error = %v, want *collect.PathNotFoundError", err)
	}
}

func TestCheckWritesNothing(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"Public/f.sh": "Get-F() { :; }\n"})
	target := t.TempDir()

	a := newAssembler(t, Options{SourceDir: src, TargetDir: target, Name: "mylib"})
	result, err := a.Check()
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(result.PublicNames) != 1 || result.PublicNames[0] != "Get-F" {
		t.Errorf("PublicNames = %v, want [Get-F]", result.PublicNames)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Check() wrote into target dir: %v", entries)
	}
}

func TestBundleArtifactNeverCollected(t *testing.T) {
	t.Parallel()

	// Target inside source: the .shlib artifact must not be swept up as
	// a script on the next run.
	src := t.TempDir()
	writeTree(t, src, map[string]string{"f.sh": "f() { :; }\n"})

	opts := Options{SourceDir: src, Name: "mylib"}
	if _, err := newAssembler(t, opts).Run(); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	result, err := newAssembler(t, opts).Run()
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if result.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1 (artifact collected as source?)", result.FileCount)
	}
}

func TestNewRejectsMatchingSuffixes(t *testing.T) {
	t.Parallel()

	_, err := New(Options{SourceDir: t.TempDir(), BundleSuffix: ".sh"})
	if err == nil {
		t.Fatal("New() accepted bundle suffix equal to script extension")
	}
}
