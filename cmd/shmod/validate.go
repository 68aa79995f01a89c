// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"shmod-cli/internal/assemble"

	"github.com/spf13/cobra"
)

// validateCmd runs every validation stage of the build without writing
// artifacts.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check sources without writing artifacts",
	Long: `Check sources without writing artifacts.

Runs the full build pipeline — collection, parsing, duplicate detection,
version aggregation, and descriptor loading — but writes nothing. The exit
code is non-zero when the sources would not build.

Examples:
  shmod validate               Validate the current directory
  shmod validate -s ./scripts  Validate ./scripts`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&buildSource, "source", "s", ".", "source directory to validate")
	validateCmd.Flags().StringVarP(&buildTarget, "target", "t", "", "target directory the build would use")
	validateCmd.Flags().StringVarP(&buildName, "name", "n", "", "module name (default: source directory base name)")
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	result, checkErr := asm.Check()
	if checkErr != nil {
		cmd.SilenceErrors = true
		renderBuildError(cmd.ErrOrStderr(), checkErr, verbose)
		return &ExitError{Code: 1, Err: checkErr}
	}

	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "%s %s is valid: %d file(s), %d exported, %d private, min version %s\n",
		SuccessStyle.Render("✓"),
		CmdStyle.Render(result.Name),
		result.FileCount,
		len(result.PublicNames),
		len(result.PrivateNames),
		result.MinVersion.String(),
	)
	return nil
}
