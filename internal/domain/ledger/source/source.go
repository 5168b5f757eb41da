// Package source reads the semi-structured delimited export that feeds the
// pipeline. Every physical line of the input, header included, is wrapped in
// one redundant pair of double quotes that must be stripped before the line
// is split on commas.
package source

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ivyfin/ivy-ledger/internal/domain/common"
)

// RowSet holds the raw string rows of one input file, keyed by normalized
// header names.
type RowSet struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// ReadRows parses the input into raw string rows. Header names are
// lower-cased with spaces replaced by underscores so downstream field keys
// are stable regardless of source formatting. A missing header or a row
// whose length disagrees with the header is a MalformedInputError: ragged
// input is reported, never silently truncated or padded.
func ReadRows(r io.Reader) (*RowSet, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var rs *RowSet
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := splitLine(line)

		if rs == nil {
			header, err := normalizeHeader(fields, lineNum)
			if err != nil {
				return nil, err
			}
			rs = &RowSet{Header: header, index: make(map[string]int, len(header))}
			for i, name := range header {
				rs.index[name] = i
			}
			continue
		}

		// The exporter pads some rows with trailing commas. Extra fields
		// are dropped only when empty; anything else is a real mismatch.
		for len(fields) > len(rs.Header) && fields[len(fields)-1] == "" {
			fields = fields[:len(fields)-1]
		}
		if len(fields) != len(rs.Header) {
			return nil, &common.MalformedInputError{
				Line:   lineNum,
				Reason: fmt.Sprintf("row has %d fields, header has %d", len(fields), len(rs.Header)),
			}
		}
		rs.Rows = append(rs.Rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	if rs == nil {
		return nil, &common.MalformedInputError{Reason: "input has no header row"}
	}
	return rs, nil
}

// Field returns the named column of a row, or "" if the column does not
// exist in this file.
func (rs *RowSet) Field(row []string, name string) string {
	i, ok := rs.index[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// HasColumn reports whether the input file carries the named column.
func (rs *RowSet) HasColumn(name string) bool {
	_, ok := rs.index[name]
	return ok
}

// splitLine strips the single layer of wrapping quotes and splits on commas.
func splitLine(line string) []string {
	if len(line) >= 2 && strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`) {
		line = line[1 : len(line)-1]
	}
	return strings.Split(line, ",")
}

func normalizeHeader(fields []string, lineNum int) ([]string, error) {
	header := make([]string, len(fields))
	nonEmpty := 0
	for i, h := range fields {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.ReplaceAll(name, " ", "_")
		header[i] = name
		if name != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return nil, &common.MalformedInputError{Line: lineNum, Reason: "header row is empty"}
	}
	return header, nil
}
