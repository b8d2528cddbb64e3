// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Table is a fully parsed named-column table of numbers.
type Table struct {
	name  string
	cols  map[string]int
	rows  [][]float64
	lines []int // source line of every row
}

// ReadTable parses a whitespace separated table whose first non-blank line holds the column names.
// Blank lines and lines starting with '#' are skipped. The name only labels errors.
func ReadTable(name string, r io.Reader) (*Table, error) {
	t := &Table{name: name}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var header []string
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)

		if header == nil {
			header = fields
			t.cols = make(map[string]int, len(fields))
			for i, col := range fields {
				if _, dup := t.cols[col]; dup {
					return nil, &LineError{Table: name, Line: line, Err: &duplicateColumnError{col}}
				}
				t.cols[col] = i
			}
			continue
		}

		if len(fields) != len(header) {
			return nil, &LineError{Table: name, Line: line, Err: &fieldCountError{len(header), len(fields)}}
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, &LineError{Table: name, Line: line, Column: header[i], Err: err}
			}
			row[i] = v
		}
		t.rows = append(t.rows, row)
		t.lines = append(t.lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, &LineError{Table: name, Line: line, Err: &emptyTableError{}}
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the values of row i, in header order.
func (t *Table) Row(i int) []float64 {
	return t.rows[i]
}

// Line returns the source line of row i.
func (t *Table) Line(i int) int {
	return t.lines[i]
}

// Has reports whether the table carries a column.
func (t *Table) Has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// Column returns the index of a required column.
func (t *Table) Column(col string) (int, error) {
	i, ok := t.cols[col]
	if !ok {
		return -1, &MissingColumnError{Table: t.name, Column: col}
	}
	return i, nil
}

// Columns resolves several required columns at once.
func (t *Table) Columns(cols ...string) ([]int, error) {
	idx := make([]int, len(cols))
	for i, col := range cols {
		var err error
		if idx[i], err = t.Column(col); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Optional returns the index of a column, or -1 when absent.
func (t *Table) Optional(col string) int {
	if i, ok := t.cols[col]; ok {
		return i
	}
	return -1
}

// lookup returns row[i], or def for an absent column.
func lookup(row []float64, i int, def float64) float64 {
	if i < 0 {
		return def
	}
	return row[i]
}

// TableWriter writes a named-column table readable by Read.
type TableWriter struct {
	w    *bufio.Writer
	cols int
	buf  []byte
}

// NewTableWriter writes the header line and returns a writer for the rows.
func NewTableWriter(w io.Writer, columns []string) (*TableWriter, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(columns, " ") + "\n"); err != nil {
		return nil, err
	}
	return &TableWriter{w: bw, cols: len(columns)}, nil
}

// Write appends a row. It panics if the number of values does not match the header.
func (tw *TableWriter) Write(values ...float64) error {
	if len(values) != tw.cols {
		panic("dataset: row length mismatch")
	}
	tw.buf = tw.buf[:0]
	for i, v := range values {
		if i > 0 {
			tw.buf = append(tw.buf, ' ')
		}
		tw.buf = strconv.AppendFloat(tw.buf, v, 'g', -1, 64)
	}
	tw.buf = append(tw.buf, '\n')
	_, err := tw.w.Write(tw.buf)
	return err
}

// Flush writes any buffered rows to the underlying writer.
func (tw *TableWriter) Flush() error {
	return tw.w.Flush()
}
