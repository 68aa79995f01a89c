// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"shmod-cli/internal/assemble"
	"shmod-cli/internal/collect"
	"shmod-cli/internal/config"
	"shmod-cli/internal/descriptor"
	"shmod-cli/internal/extract"
	"shmod-cli/internal/issue"
	"shmod-cli/internal/registry"
)

// classifyBuildError maps a pipeline error to its issue catalog Id so the
// CLI can render remediation guidance. Returns 0 for errors with no
// catalog entry.
func classifyBuildError(err error) issue.Id {
	var (
		pathNotFound *collect.PathNotFoundError
		parseErr     *extract.ParseError
		dupErr       *registry.DuplicateError
		loadErr      *descriptor.LoadError
		writeErr     *descriptor.WriteError
		bundleErr    *assemble.WriteError
	)

	switch {
	case errors.As(err, &pathNotFound):
		return issue.SourcePathNotFoundId
	case errors.As(err, &parseErr):
		return issue.ScriptParseErrorId
	case errors.As(err, &dupErr):
		return issue.DuplicateFunctionId
	case errors.As(err, &loadErr):
		return issue.DescriptorLoadFailedId
	case errors.As(err, &writeErr):
		return issue.DescriptorWriteFailedId
	case errors.As(err, &bundleErr):
		return issue.BundleWriteFailedId
	case errors.Is(err, config.ErrInvalidExcludePattern):
		return issue.InvalidExcludePatternId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	default:
		return 0
	}
}

// renderBuildError prints the error message and, when the error maps to a
// catalog entry, its rendered Markdown guidance. The guidance is shown only
// in verbose mode to keep default output terse.
func renderBuildError(stderr io.Writer, err error, verboseMode bool) {
	fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verboseMode))

	if !verboseMode {
		fmt.Fprintln(stderr, SubtitleStyle.Render("Run with --verbose for remediation guidance."))
		return
	}

	id := classifyBuildError(err)
	if id == 0 {
		return
	}

	if catalogEntry := issue.Get(id); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render("dark")
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}
