// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"bytes"
	"fmt"
	"os"

	"shmod-cli/internal/collect"
)

// renderBundle concatenates preamble blocks then script blocks, in
// collector order, with no content transformation. A newline is inserted
// after a block only when the block itself does not end with one, so two
// files never fuse on a shared line; re-running on identical input yields
// identical bytes.
func renderBundle(set *collect.Set) []byte {
	var buf bytes.Buffer
	for _, f := range set.Preamble {
		writeBlock(&buf, f.Content)
	}
	for _, f := range set.Scripts {
		writeBlock(&buf, f.Content)
	}
	return buf.Bytes()
}

func writeBlock(buf *bytes.Buffer, content []byte) {
	buf.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		buf.WriteByte('\n')
	}
}

// WriteError reports a failed bundle write. The descriptor is not written
// after a failed bundle write, so the prior descriptor stays intact.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write bundle %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// writeBundle persists the rendered bundle, creating or overwriting the
// artifact at path.
func writeBundle(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
