package frame

// Concat stacks frames vertically, matching columns by name. The result has
// the union of all column names in order of first appearance; cells for
// columns a frame lacks are missing. Each column's kind is the unification
// of its kinds across the inputs.
func Concat(frames ...*Frame) *Frame {
	out := &Frame{}
	pos := make(map[string]int)
	total := 0

	for _, f := range frames {
		if f == nil {
			continue
		}
		total += len(f.Rows)
		for _, c := range f.Columns {
			j, ok := pos[c.Name]
			if !ok {
				pos[c.Name] = len(out.Columns)
				out.Columns = append(out.Columns, c)
				continue
			}
			out.Columns[j].Kind = Unify(out.Columns[j].Kind, c.Kind)
		}
	}

	out.Rows = make([][]any, 0, total)
	for _, f := range frames {
		if f == nil {
			continue
		}
		mapping := make([]int, len(f.Columns))
		for i, c := range f.Columns {
			mapping[i] = pos[c.Name]
		}
		for _, row := range f.Rows {
			rec := make([]any, len(out.Columns))
			for i, v := range row {
				j := mapping[i]
				rec[j] = Coerce(v, out.Columns[j].Kind)
			}
			out.Rows = append(out.Rows, rec)
		}
	}
	return out
}
