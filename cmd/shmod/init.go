// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	initForce bool

	// initCmd scaffolds a new module layout.
	initCmd = &cobra.Command{
		Use:   "init [name]",
		Short: "Scaffold a new module layout",
		Long: `Scaffold a new module layout in a directory named after the module.

Creates Public/ and Private/ directories, a preamble file, and sample
function files to get started quickly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
)

const (
	initPreamble = `# Shared preamble. This file is emitted first in the bundle.
set -u
`

	initPublicSample = `# requires -version 2.0

# Sample exported function. Everything declared outside the private
# directory is listed in the descriptor's exported_functions.
Get-Greeting() {
	echo "Hello from %s"
}
`

	initPrivateSample = `# Sample helper. Functions under the private directory are bundled
# but not exported.
format_output() {
	printf '%s\n' "$1"
}
`
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "scaffold into an existing directory")
}

func runInit(cmd *cobra.Command, args []string) error {
	name := "mylib"
	if len(args) > 0 {
		name = args[0]
	}

	if _, err := os.Stat(name); err == nil && !initForce {
		return fmt.Errorf("directory '%s' already exists. Use --force to scaffold into it", name)
	}

	files := map[string]string{
		"_prelude.sh":          initPreamble,
		"Public/Greeting.sh":   fmt.Sprintf(initPublicSample, name),
		"Private/Internals.sh": initPrivateSample,
	}

	for rel, content := range files {
		path := filepath.Join(name, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
	}

	absPath, _ := filepath.Abs(name)
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "%s Created %s\n", SuccessStyle.Render("✓"), absPath)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, SubtitleStyle.Render("Next steps:"))
	fmt.Fprintln(stdout, "  1. Add function files under Public/ and Private/")
	fmt.Fprintf(stdout, "  2. Run 'shmod build -s %s' to bundle the module\n", name)
	fmt.Fprintf(stdout, "  3. Run 'shmod validate -s %s' to check without building\n", name)

	return nil
}
