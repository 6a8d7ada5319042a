package frame

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrNoColumns is returned by ReadCSV when the input has no header row.
var ErrNoColumns = errors.New("no columns to parse from input")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// missingTokens are read as missing values, as pandas does by default.
var missingTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

// isMissing reports whether a raw CSV cell denotes a missing value.
func isMissing(s string) bool {
	return missingTokens[s]
}

// ReadCSV parses a CSV document with a header row. A leading UTF-8 byte
// order mark is skipped. Each column's kind is inferred from its non-missing
// cells: all base-10 integers give Int, all numbers give Float, all
// YYYY-MM-DD dates give Date, anything else String. A column with no
// non-missing cells is Null. Empty cells and the NA tokens listed in
// missingTokens are missing.
func ReadCSV(r io.Reader) (*Frame, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoColumns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	f := &Frame{
		Columns: make([]Column, len(header)),
		Rows:    make([][]any, len(records)),
	}
	for i := range f.Rows {
		f.Rows[i] = make([]any, len(header))
	}

	for j, name := range header {
		kind := inferKind(records, j)
		f.Columns[j] = Column{Name: name, Kind: kind}
		for i, rec := range records {
			f.Rows[i][j] = parseCell(rec[j], kind)
		}
	}
	return f, nil
}

func inferKind(records [][]string, j int) Kind {
	kind := Null
	for _, rec := range records {
		s := rec[j]
		if isMissing(s) {
			continue
		}
		kind = Unify(kind, cellKind(s))
		if kind == String {
			break
		}
	}
	return kind
}

func cellKind(s string) Kind {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return Float
	}
	if _, ok := ParseDate(s); ok {
		return Date
	}
	return String
}

func parseCell(s string, kind Kind) any {
	if isMissing(s) {
		return nil
	}
	switch kind {
	case Int:
		n, _ := strconv.ParseInt(s, 10, 64)
		return n
	case Float:
		x, _ := strconv.ParseFloat(s, 64)
		return x
	case Date:
		d, _ := ParseDate(s)
		return d
	default:
		return s
	}
}

// WriteCSV serializes f with a header row. Missing cells are written empty.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(f.Columns))
	for _, row := range f.Rows {
		for j, v := range row {
			record[j] = FormatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
