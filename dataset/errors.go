// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import "fmt"

// MissingColumnError reports a required column absent from a table header.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: missing column %q", e.Table, e.Column)
}

// LineError reports a malformed line of a table.
type LineError struct {
	Table  string
	Line   int    // 1-based, the header is line 1
	Column string // empty when the whole line is at fault
	Err    error
}

func (e *LineError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s:%d: %v", e.Table, e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: column %q: %v", e.Table, e.Line, e.Column, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// JetRefError reports a track pointing at a jet row that does not exist.
type JetRefError struct {
	Line    int
	Ref     float64
	NumJets int
}

func (e *JetRefError) Error() string {
	return fmt.Sprintf("tracks:%d: jet reference %v out of range [0, %d)", e.Line, e.Ref, e.NumJets)
}

type fieldCountError struct {
	expected int
	got      int
}

func (e *fieldCountError) Error() string {
	return fmt.Sprintf("field count mismatch (expected: %d, got: %d)", e.expected, e.got)
}

type emptyTableError struct{}

func (e *emptyTableError) Error() string {
	return "no header line"
}

type duplicateColumnError struct {
	column string
}

func (e *duplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column %q", e.column)
}
