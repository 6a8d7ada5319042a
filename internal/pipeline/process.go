package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/leapstack-labs/zillowetl/internal/frame"
	"github.com/leapstack-labs/zillowetl/internal/objstore"
)

// FileStatus is the outcome of processing one source file.
type FileStatus string

// File statuses.
const (
	FileWritten FileStatus = "written"
	FileSkipped FileStatus = "skipped"
)

// Reasons a file is skipped.
const (
	ReasonEmptyInput  = "empty input"
	ReasonEmptyOutput = "empty output"
)

// FileResult reports what happened to one source file.
type FileResult struct {
	// Key is the source object key.
	Key string `json:"key"`
	// Dest is the staged object key (empty when skipped).
	Dest string `json:"dest,omitempty"`
	// Label is the metric label the values were stored under.
	Label  string     `json:"label"`
	Rows   int        `json:"rows"`
	Status FileStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// ProcessReport is the completion signal of the process stage.
type ProcessReport struct {
	Files    []FileResult  `json:"files"`
	Written  int           `json:"written"`
	Skipped  int           `json:"skipped"`
	Rows     int64         `json:"rows"`
	Duration time.Duration `json:"duration_ns"`
	// Complete is set once every listed file has been handled.
	Complete bool `json:"complete"`
}

// Process reshapes every object under the raw prefix and writes the result to
// the staging area. Listing, read, parse and reshape failures abort the batch;
// files that are empty or reshape to zero rows are skipped.
func (p *Pipeline) Process(ctx context.Context) (*ProcessReport, error) {
	start := time.Now()
	p.logger.Info("processing source files",
		slog.String("bucket", p.cfg.RawBucket),
		slog.String("prefix", p.cfg.RawPrefix))

	objects, err := p.store.List(ctx, p.cfg.RawBucket, p.cfg.RawPrefix)
	if err != nil {
		return nil, stageErr(StageProcess, "", err)
	}

	report := &ProcessReport{Files: make([]FileResult, 0, len(objects))}
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, stageErr(StageProcess, obj.Key, err)
		}

		res, err := p.processFile(ctx, obj.Key)
		if err != nil {
			return nil, stageErr(StageProcess, obj.Key, err)
		}
		report.Files = append(report.Files, res)

		switch res.Status {
		case FileWritten:
			report.Written++
			report.Rows += int64(res.Rows)
			p.logger.Info("processed file",
				slog.String("key", res.Key),
				slog.String("dest", res.Dest),
				slog.String("label", res.Label),
				slog.Int("rows", res.Rows))
		case FileSkipped:
			report.Skipped++
			p.logger.Warn("skipped file", slog.String("key", res.Key), slog.String("reason", res.Reason))
		}
	}

	report.Complete = true
	report.Duration = time.Since(start)
	p.logger.Info("process stage complete",
		slog.Int("written", report.Written),
		slog.Int("skipped", report.Skipped),
		slog.Int64("rows", report.Rows))
	return report, nil
}

func (p *Pipeline) processFile(ctx context.Context, key string) (FileResult, error) {
	res := FileResult{Key: key, Label: p.catalog.Resolve(key)}

	data, err := p.store.Get(ctx, objstore.Location{Bucket: p.cfg.RawBucket, Key: key})
	if err != nil {
		return res, err
	}

	wide, err := frame.ReadCSV(bytes.NewReader(data))
	if errors.Is(err, frame.ErrNoColumns) {
		res.Status, res.Reason = FileSkipped, ReasonEmptyInput
		return res, nil
	}
	if err != nil {
		return res, err
	}
	wide.LowercaseHeaders()

	long, err := frame.Reshape(wide, p.cfg.IDColumns, res.Label)
	if err != nil {
		return res, err
	}
	if long.NumRows() == 0 {
		res.Status, res.Reason = FileSkipped, ReasonEmptyOutput
		return res, nil
	}

	var buf bytes.Buffer
	if err := frame.WriteCSV(&buf, long); err != nil {
		return res, err
	}

	res.Dest = p.stagedKey(key)
	if err := p.store.Put(ctx, objstore.Location{Bucket: p.cfg.StagingBucket, Key: res.Dest}, buf.Bytes()); err != nil {
		return res, err
	}

	res.Status = FileWritten
	res.Rows = long.NumRows()
	return res, nil
}
