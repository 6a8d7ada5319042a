// Package frame is the in-memory tabular model shared by the reshape,
// combine and type-inference stages.
//
// A Frame is a list of typed columns plus row-major cells. Cell values are
// nil (missing), int64 (or *big.Int for integers read from wider warehouse
// types), float64, time.Time (a UTC date) or string, matching
// the column's Kind.
package frame

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the textual form of Date cells and of date column labels.
const DateLayout = "2006-01-02"

// Kind is the logical type of a column.
type Kind int

// Column kinds, ordered from least to most general.
const (
	Null Kind = iota
	Int
	Float
	Date
	String
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Int:
		return "int"
	case Float:
		return "float"
	case Date:
		return "date"
	case String:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Unify returns the narrowest kind able to hold values of both a and b.
func Unify(a, b Kind) Kind {
	switch {
	case a == b:
		return a
	case a == Null:
		return b
	case b == Null:
		return a
	case (a == Int && b == Float) || (a == Float && b == Int):
		return Float
	default:
		return String
	}
}

// Column describes one column of a Frame.
type Column struct {
	Name string
	Kind Kind
}

// Frame is a rectangular table. Every row has len(Columns) cells.
type Frame struct {
	Columns []Column
	Rows    [][]any
}

// New returns an empty frame with the given columns.
func New(cols ...Column) *Frame {
	return &Frame{Columns: cols}
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	return len(f.Rows)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Append adds a row. The row must have one cell per column.
func (f *Frame) Append(row ...any) {
	f.Rows = append(f.Rows, row)
}

// Value returns the cell at row i of the named column.
func (f *Frame) Value(i int, name string) (any, bool) {
	j := f.ColumnIndex(name)
	if j < 0 || i < 0 || i >= len(f.Rows) {
		return nil, false
	}
	return f.Rows[i][j], true
}

// LowercaseHeaders lowercases every column name in place.
func (f *Frame) LowercaseHeaders() {
	for i := range f.Columns {
		f.Columns[i].Name = strings.ToLower(f.Columns[i].Name)
	}
}

// Coerce converts v to the representation used by kind k. Values that
// cannot be represented become their string form (k == String) or nil.
func Coerce(v any, k Kind) any {
	if v == nil {
		return nil
	}
	switch k {
	case Int:
		if n, ok := v.(int64); ok {
			return n
		}
	case Float:
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	case Date:
		if d, ok := v.(time.Time); ok {
			return d
		}
	case String:
		return FormatValue(v)
	}
	return nil
}

// FormatValue renders a cell the way it is written to CSV. Missing values
// render as the empty string and floats always carry a decimal point.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case time.Time:
		return x.Format(DateLayout)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// ParseDate parses a YYYY-MM-DD label. ok is false when s does not conform.
func ParseDate(s string) (time.Time, bool) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
