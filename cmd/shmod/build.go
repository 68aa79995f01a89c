// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"shmod-cli/internal/assemble"
	"shmod-cli/internal/config"
	"shmod-cli/internal/watch"

	"github.com/spf13/cobra"
)

var (
	buildSource      string
	buildTarget      string
	buildName        string
	buildNotes       []string
	buildEmitSummary bool
	buildWatch       bool

	// buildCmd bundles a source directory into a module.
	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Bundle a script directory into a module",
		Long: `Bundle a script directory into a module.

The build collects every script file under the source directory, extracts
the top-level function declarations, concatenates the files into a single
bundle, and writes (or updates) the module descriptor next to it. The run
is all-or-nothing: any collection, parse, duplicate-name or descriptor
error aborts the build before artifacts are touched.

Examples:
  shmod build                          Bundle the current directory
  shmod build -s ./scripts -t ./dist   Bundle ./scripts into ./dist
  shmod build -n mylib --notes "fix"   Name the module and record notes
  shmod build -w                       Rebuild on every source change`,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildSource, "source", "s", ".", "source directory to bundle")
	buildCmd.Flags().StringVarP(&buildTarget, "target", "t", "", "target directory for artifacts (default: source directory)")
	buildCmd.Flags().StringVarP(&buildName, "name", "n", "", "module name (default: source directory base name)")
	buildCmd.Flags().StringArrayVar(&buildNotes, "notes", nil, "release notes to record for this build (repeatable)")
	buildCmd.Flags().BoolVar(&buildEmitSummary, "emit-summary", false, "print a detailed build summary")
	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "watch the source directory and rebuild on changes")
}

// assembleOptions builds the pipeline options from the loaded configuration
// and the build flags.
func assembleOptions() (assemble.Options, error) {
	cfg, err := config.Load()
	if err != nil {
		return assemble.Options{}, err
	}

	excludes, err := cfg.CompiledExcludes()
	if err != nil {
		return assemble.Options{}, err
	}

	baseline, err := cfg.Baseline()
	if err != nil {
		return assemble.Options{}, err
	}

	return assemble.Options{
		SourceDir:        buildSource,
		TargetDir:        buildTarget,
		Name:             buildName,
		Notes:            buildNotes,
		Extension:        string(cfg.ScriptExtension),
		PreambleName:     cfg.PreambleName,
		PrivateDir:       cfg.PrivateDir,
		Exclude:          excludes,
		Baseline:         baseline,
		BundleSuffix:     cfg.BundleSuffix,
		DescriptorSuffix: cfg.DescriptorSuffix,
	}, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts, err := assembleOptions()
	if err != nil {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		renderBuildError(cmd.ErrOrStderr(), err, verbose)
		return &ExitError{Code: 1, Err: err}
	}

	asm, err := assemble.New(opts)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	if buildWatch {
		return runBuildWatch(cmd, asm, opts)
	}

	result, runErr := asm.Run()
	if runErr != nil {
		cmd.SilenceErrors = true
		renderBuildError(cmd.ErrOrStderr(), runErr, verbose)
		return &ExitError{Code: 1, Err: runErr}
	}

	printBuildResult(cmd, result)
	return nil
}

// watchIgnores returns ignore patterns for the build's own artifacts. The
// watcher's built-in ignores cover the default suffixes only, so the
// configured suffixes must be passed explicitly or a rebuild's artifact
// write would retrigger the watch forever.
func watchIgnores(opts assemble.Options) []string {
	var ignore []string
	if opts.BundleSuffix != "" {
		ignore = append(ignore, "**/*"+opts.BundleSuffix)
	}
	if opts.DescriptorSuffix != "" {
		ignore = append(ignore, "**/*"+opts.DescriptorSuffix)
	}
	return ignore
}

// runBuildWatch performs an initial build and then rebuilds on every source
// change. Build failures are reported but do not stop the watch loop; the
// user can fix the sources and save again.
func runBuildWatch(cmd *cobra.Command, asm *assemble.Assembler, opts assemble.Options) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	rebuild := func() {
		result, err := asm.Run()
		if err != nil {
			renderBuildError(stderr, err, verbose)
			return
		}
		printBuildResult(cmd, result)
	}

	fmt.Fprintf(stdout, "%s Watch mode: initial build\n", VerboseHighlightStyle.Render("→"))
	rebuild()

	fmt.Fprintf(stdout, "\n%s Watching for changes (Ctrl+C to stop)...\n\n", VerboseHighlightStyle.Render("→"))

	w, err := watch.New(watch.Config{
		BaseDir:  buildSource,
		Patterns: []string{"**/*"},
		Ignore:   watchIgnores(opts),
		OnChange: func(_ context.Context, changed []string) error {
			fmt.Fprintf(stdout, "%s Detected %d change(s). Rebuilding...\n",
				VerboseHighlightStyle.Render("→"), len(changed))
			rebuild()
			fmt.Fprintf(stdout, "\n%s Watching for changes...\n\n", VerboseHighlightStyle.Render("→"))
			return nil
		},
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	return w.Run(cmd.Context())
}

// printBuildResult prints a one-line confirmation, or the full summary when
// --emit-summary is set.
func printBuildResult(cmd *cobra.Command, result *assemble.Result) {
	stdout := cmd.OutOrStdout()

	fmt.Fprintf(stdout, "%s Built %s (%d file(s), %d exported, min version %s)\n",
		SuccessStyle.Render("✓"),
		CmdStyle.Render(result.Name),
		result.FileCount,
		len(result.PublicNames),
		result.MinVersion.String(),
	)

	if !buildEmitSummary {
		return
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "%s %s\n", labelStyle.Render("Bundle:"), valueStyle.Render(result.BundlePath))
	fmt.Fprintf(stdout, "%s %s\n", labelStyle.Render("Descriptor:"), valueStyle.Render(result.DescriptorPath))
	fmt.Fprintf(stdout, "%s %s\n", labelStyle.Render("Min shell version:"), valueStyle.Render(result.MinVersion.String()))

	fmt.Fprintf(stdout, "%s\n", labelStyle.Render("Exported functions:"))
	if len(result.PublicNames) == 0 {
		fmt.Fprintf(stdout, "  %s\n", SubtitleStyle.Render("(none)"))
	}
	for _, name := range result.PublicNames {
		fmt.Fprintf(stdout, "  %s\n", CmdStyle.Render(name))
	}

	if len(result.PrivateNames) > 0 {
		fmt.Fprintf(stdout, "%s\n", labelStyle.Render("Private functions:"))
		for _, name := range result.PrivateNames {
			fmt.Fprintf(stdout, "  %s\n", VerboseStyle.Render(name))
		}
	}

	if result.ReleaseNotes != "" {
		fmt.Fprintf(stdout, "%s\n%s\n", labelStyle.Render("Release notes:"), valueStyle.Render(result.ReleaseNotes))
	}
}
