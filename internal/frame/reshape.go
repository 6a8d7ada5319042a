package frame

import "fmt"

const (
	// DateColumn names the column holding the former column labels after a reshape.
	DateColumn = "date"

	regionTypeColumn = "regiontype"
	excludedRegion   = "country"
)

// MissingColumnError reports an identifier column absent from the input.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing identifier column %q", e.Column)
}

// Reshape turns a wide frame (one column per date) into a long frame with one
// row per (source row, date column) pair.
//
// Rows whose regiontype is "country" are dropped first. Every column not in
// idColumns becomes a value column: its label is parsed as a YYYY-MM-DD date
// (missing when it does not conform) and its cells land in a column named
// valueLabel. Output columns are idColumns, then "date", then valueLabel.
// Rows are emitted column-major: all rows of the first value column, then the
// second, and so on, so a frame with r surviving rows and k value columns
// yields r*k rows.
func Reshape(f *Frame, idColumns []string, valueLabel string) (*Frame, error) {
	idIdx := make([]int, len(idColumns))
	isID := make(map[int]bool, len(idColumns))
	for i, name := range idColumns {
		j := f.ColumnIndex(name)
		if j < 0 {
			return nil, &MissingColumnError{Column: name}
		}
		idIdx[i] = j
		isID[j] = true
	}

	rows := f.Rows
	if rt := f.ColumnIndex(regionTypeColumn); rt >= 0 {
		rows = make([][]any, 0, len(f.Rows))
		for _, row := range f.Rows {
			if s, ok := row[rt].(string); ok && s == excludedRegion {
				continue
			}
			rows = append(rows, row)
		}
	}

	var valueIdx []int
	valueKind := Null
	for j, c := range f.Columns {
		if isID[j] {
			continue
		}
		valueIdx = append(valueIdx, j)
		valueKind = Unify(valueKind, c.Kind)
	}

	out := &Frame{Columns: make([]Column, 0, len(idColumns)+2)}
	for _, j := range idIdx {
		out.Columns = append(out.Columns, f.Columns[j])
	}
	out.Columns = append(out.Columns,
		Column{Name: DateColumn, Kind: Date},
		Column{Name: valueLabel, Kind: valueKind},
	)

	out.Rows = make([][]any, 0, len(rows)*len(valueIdx))
	for _, j := range valueIdx {
		var date any
		if d, ok := ParseDate(f.Columns[j].Name); ok {
			date = d
		}
		for _, row := range rows {
			rec := make([]any, 0, len(out.Columns))
			for _, k := range idIdx {
				rec = append(rec, row[k])
			}
			rec = append(rec, date, Coerce(row[j], valueKind))
			out.Rows = append(out.Rows, rec)
		}
	}
	return out, nil
}
