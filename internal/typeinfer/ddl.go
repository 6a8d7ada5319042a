package typeinfer

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/zillowetl/internal/frame"
	"github.com/leapstack-labs/zillowetl/pkg/adapter"
)

// VarcharWidth is the width given to text columns in generated DDL.
const VarcharWidth = 256

// CreateTableDDL renders a CREATE TABLE statement for a table holding f.
// Integer columns take their type from cls (BIGINT when unclassified), the
// rest map from the column kind. All columns are nullable.
func CreateTableDDL(table string, f *frame.Frame, cls Classification) (string, error) {
	if err := adapter.ValidateTableName(table); err != nil {
		return "", err
	}
	if len(f.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", table)
	}

	cols := make([]string, 0, len(f.Columns))
	for _, c := range f.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("column with empty name in table %s", table)
		}
		cols = append(cols, name+" "+sqlType(c, cls))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", table, strings.Join(cols, ",\n  ")), nil
}

func sqlType(c frame.Column, cls Classification) string {
	switch c.Kind {
	case frame.Int:
		if t, ok := cls[c.Name]; ok {
			return string(t)
		}
		return string(BigInt)
	case frame.Float:
		return "DOUBLE PRECISION"
	case frame.Date:
		return "DATE"
	default:
		return fmt.Sprintf("VARCHAR(%d)", VarcharWidth)
	}
}
