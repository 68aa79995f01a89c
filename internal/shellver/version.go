// SPDX-License-Identifier: MPL-2.0

// Package shellver models minimum shell version requirements and the
// running floor a build accumulates across source files.
//
// Versions are dot-separated numeric segments ("4", "4.2", "5.1.3").
// Comparison is strictly numeric segment-by-segment; "10.0" is newer
// than "9.9" even though it sorts lower lexicographically.
package shellver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an immutable shell version requirement.
type Version struct {
	segs []int
}

// Parse converts a dot-separated numeric string into a Version.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	parts := strings.Split(trimmed, ".")
	segs := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: segment %q is not a non-negative integer", s, part)
		}
		segs = append(segs, n)
	}

	return Version{segs: segs}, nil
}

// MustParse is Parse that panics on invalid input. Intended for constants
// and test fixtures.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v is the zero Version (no segments at all).
// The zero Version is distinct from "0.0": it means "no requirement".
func (v Version) IsZero() bool {
	return len(v.segs) == 0
}

// Major returns the first segment, or 0 for the zero Version.
func (v Version) Major() int {
	if len(v.segs) == 0 {
		return 0
	}
	return v.segs[0]
}

// Minor returns the second segment, or 0 when absent.
func (v Version) Minor() int {
	if len(v.segs) < 2 {
		return 0
	}
	return v.segs[1]
}

// Compare returns -1, 0 or +1 ordering v against other numerically.
// Missing segments compare as zero, so "4" == "4.0".
func (v Version) Compare(other Version) int {
	n := len(v.segs)
	if len(other.segs) > n {
		n = len(other.segs)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.segs) {
			a = v.segs[i]
		}
		if i < len(other.segs) {
			b = other.segs[i]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// String renders the version as "major.minor", the format persisted in
// descriptors. Finer segments participate in comparison but not display.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

// Floor tracks the maximum minimum-version requirement observed during a
// build. It starts at a baseline and only ever moves up.
type Floor struct {
	cur Version
}

// NewFloor creates a Floor starting at the given baseline.
func NewFloor(baseline Version) *Floor {
	return &Floor{cur: baseline}
}

// Observe raises the floor to v if v is higher. Zero Versions (no
// requirement) are ignored. Observe never lowers the floor.
func (f *Floor) Observe(v Version) {
	if v.IsZero() {
		return
	}
	if f.cur.IsZero() || v.Compare(f.cur) > 0 {
		f.cur = v
	}
}

// Value returns the current floor.
func (f *Floor) Value() Version {
	return f.cur
}
