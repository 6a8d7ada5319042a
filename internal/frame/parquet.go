package frame

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetParallelism is the number of goroutines the parquet writer uses to
// encode a row group.
const parquetParallelism = 4

// ParquetSchema returns the CSV-writer schema entries for f's columns. Every
// column is OPTIONAL so missing cells round-trip as nulls. Null-kind columns
// are written as UTF8 strings.
func ParquetSchema(f *Frame) []string {
	meta := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		name := strings.NewReplacer(",", "_", "=", "_", " ", "_").Replace(c.Name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}
		switch c.Kind {
		case Int:
			meta[i] = fmt.Sprintf("name=%s, type=INT64, repetitiontype=OPTIONAL", name)
		case Float:
			meta[i] = fmt.Sprintf("name=%s, type=DOUBLE, repetitiontype=OPTIONAL", name)
		case Date:
			meta[i] = fmt.Sprintf("name=%s, type=INT32, convertedtype=DATE, repetitiontype=OPTIONAL", name)
		default:
			meta[i] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", name)
		}
	}
	return meta
}

// WriteParquet writes f to path as a snappy-compressed Parquet file.
func WriteParquet(path string, f *Frame) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file %s: %w", path, err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close parquet file %s: %w", path, cerr))
		}
	}()

	pw, err := writer.NewCSVWriter(ParquetSchema(f), fw, parquetParallelism)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	rec := make([]*string, len(f.Columns))
	for _, row := range f.Rows {
		for j, v := range row {
			rec[j] = parquetCell(v)
		}
		if err := pw.WriteString(rec); err != nil {
			return fmt.Errorf("failed to write parquet row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

const secondsPerDay = 86400

func parquetCell(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		secs := x.Unix()
		days := secs / secondsPerDay
		if secs%secondsPerDay < 0 {
			days--
		}
		s = strconv.FormatInt(days, 10)
	case float64:
		s = strconv.FormatFloat(x, 'g', -1, 64)
	default:
		s = FormatValue(v)
	}
	return &s
}
