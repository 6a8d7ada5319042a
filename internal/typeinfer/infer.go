// Package typeinfer classifies integer columns of a combined metrics file as
// INT or BIGINT so the warehouse table can use the narrowest type that fits.
package typeinfer

import (
	"math"
	"math/big"
	"sort"

	"github.com/leapstack-labs/zillowetl/internal/frame"
)

// SQLType is an integer SQL column type.
type SQLType string

// Integer column types.
const (
	Int    SQLType = "INT"
	BigInt SQLType = "BIGINT"
)

// Classification maps integer column names to their SQL type. Columns that
// are not integer-typed are absent.
type Classification map[string]SQLType

// Columns returns the classified column names, sorted.
func (c Classification) Columns() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infer classifies every Int column of f: INT when all values fit in a signed
// 32-bit integer, BIGINT otherwise. Missing cells are ignored. Int cells may
// be int64 or, for values read from wider integer types, *big.Int; any
// *big.Int cell makes the column BIGINT.
func Infer(f *frame.Frame) Classification {
	cls := make(Classification)
	for j, col := range f.Columns {
		if col.Kind != frame.Int {
			continue
		}
		b := bounds(f, j)
		switch {
		case b.overflow:
			cls[col.Name] = BigInt
		case b.seen:
			cls[col.Name] = Classify(b.min, b.max)
		}
	}
	return cls
}

// Classify returns INT when [minV, maxV] lies within the int32 range.
func Classify(minV, maxV int64) SQLType {
	if minV >= math.MinInt32 && maxV <= math.MaxInt32 {
		return Int
	}
	return BigInt
}

type intBounds struct {
	min, max int64
	seen     bool
	overflow bool
}

func bounds(f *frame.Frame, j int) intBounds {
	var b intBounds
	for _, row := range f.Rows {
		switch v := row[j].(type) {
		case int64:
			if !b.seen {
				b.min, b.max, b.seen = v, v, true
				continue
			}
			b.min = min(b.min, v)
			b.max = max(b.max, v)
		case *big.Int:
			b.overflow = true
		}
	}
	return b
}
