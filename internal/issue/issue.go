// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	SourcePathNotFoundId Id = iota + 1
	ScriptParseErrorId
	DuplicateFunctionId
	DescriptorLoadFailedId
	DescriptorWriteFailedId
	BundleWriteFailedId
	ConfigLoadFailedId
	InvalidExcludePatternId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	sourcePathNotFoundIssue = &Issue{
		id: SourcePathNotFoundId,
		mdMsg: `
# Source directory not found!

The path you asked shmod to build does not exist or is not a directory.

## Things you can try:
- Check the path for typos:
~~~
$ shmod build --source ./scripts
~~~

- Scaffold a fresh module layout:
~~~
$ shmod init mylib
~~~

- Run from the directory that contains your module:
~~~
$ cd /path/to/your/module
$ shmod build
~~~`,
	}

	scriptParseErrorIssue = &Issue{
		id: ScriptParseErrorId,
		mdMsg: `
# Failed to parse a script!

One of your source files contains shell syntax the parser cannot accept,
so no artifacts were written.

## Common issues:
- Unterminated function body (missing closing brace)
- Unclosed quote or heredoc
- Stray control operators

## Things you can try:
- Check the error message above for the file, line and column
- Run the file through your shell's own checker:
~~~
$ bash -n path/to/file.sh
~~~

- Validate without writing anything:
~~~
$ shmod validate
~~~`,
	}

	duplicateFunctionIssue = &Issue{
		id: DuplicateFunctionId,
		mdMsg: `
# Duplicate function name!

Two source files declare a function with the same name. All functions in a
module share one flat namespace, so the build was aborted and no artifacts
were written.

## Things you can try:
- Rename one of the two functions (both files are named in the error above)
- Exclude one of the files via your config:
~~~toml
exclude_patterns = ["legacy"]
~~~

- Keep in mind the namespace is flat: a private function still collides
  with a public one of the same name`,
	}

	descriptorLoadFailedIssue = &Issue{
		id: DescriptorLoadFailedId,
		mdMsg: `
# Failed to load the module descriptor!

An existing descriptor was found next to the bundle but it could not be
read, parsed or validated. The build refuses to overwrite a descriptor it
cannot understand.

## Common issues:
- Invalid TOML syntax
- ` + "`min_shell_version`" + ` that is not a dotted number string
- ` + "`exported_functions`" + ` that is not a list of strings

## Things you can try:
- Fix the descriptor by hand; unknown keys are fine and pass through
- Or delete it and let the build regenerate it (custom keys are lost):
~~~
$ rm mylib.shmod.toml
$ shmod build
~~~`,
	}

	descriptorWriteFailedIssue = &Issue{
		id: DescriptorWriteFailedId,
		mdMsg: `
# Failed to write the module descriptor!

The bundle was assembled but the descriptor could not be written.

## Common causes:
- Target directory is not writable
- Disk full
- Descriptor file is locked by another process

## Things you can try:
- Check permissions on the target directory
- Point the build at a directory you own:
~~~
$ shmod build --target ./dist
~~~`,
	}

	bundleWriteFailedIssue = &Issue{
		id: BundleWriteFailedId,
		mdMsg: `
# Failed to write the bundle!

All sources were collected and validated but the bundle file could not
be written.

## Common causes:
- Target directory is not writable
- Disk full

## Things you can try:
- Check permissions on the target directory
- Point the build at a directory you own:
~~~
$ shmod build --target ./dist
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the shmod configuration file.

## Configuration file locations:
- Linux: ~/.config/shmod/config.toml
- macOS: ~/Library/Application Support/shmod/config.toml
- Windows: %APPDATA%\shmod\config.toml

## Things you can try:
- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/shmod/config.toml
~~~

## Example configuration:
~~~toml
script_extension = ".sh"
preamble_name = "_prelude.sh"
private_dir = "private"
baseline_version = "2.0"
exclude_patterns = ["exclude", "tests"]

[ui]
verbose = false
~~~`,
	}

	invalidExcludePatternIssue = &Issue{
		id: InvalidExcludePatternId,
		mdMsg: `
# Invalid exclusion pattern!

One of your ` + "`exclude_patterns`" + ` entries is not a valid regular expression.

## Things you can try:
- Check the pattern named in the error above
- Remember patterns are matched case-insensitively against the full path
  with forward slashes, so plain substrings work fine:
~~~toml
exclude_patterns = ["exclude", "tests", "\\.deploy\\.sh$"]
~~~`,
	}

	issues = map[Id]*Issue{
		sourcePathNotFoundIssue.Id():    sourcePathNotFoundIssue,
		scriptParseErrorIssue.Id():      scriptParseErrorIssue,
		duplicateFunctionIssue.Id():     duplicateFunctionIssue,
		descriptorLoadFailedIssue.Id():  descriptorLoadFailedIssue,
		descriptorWriteFailedIssue.Id(): descriptorWriteFailedIssue,
		bundleWriteFailedIssue.Id():     bundleWriteFailedIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		invalidExcludePatternIssue.Id(): invalidExcludePatternIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
