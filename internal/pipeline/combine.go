package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/zillowetl/internal/frame"
	"github.com/leapstack-labs/zillowetl/internal/objstore"
)

// Outcome is the result of a stage that may legitimately have nothing to do.
type Outcome string

// Stage outcomes.
const (
	OutcomeWritten Outcome = "written"
	OutcomeNoData  Outcome = "no_data"
	OutcomeLoaded  Outcome = "loaded"
	OutcomeSkipped Outcome = "skipped"
)

// CombineReport is the completion signal of the combine stage.
type CombineReport struct {
	Outcome Outcome `json:"outcome"`
	// Files are the staged keys that were combined.
	Files   []string `json:"files"`
	Rows    int64    `json:"rows"`
	Columns []string `json:"columns"`
	// Location and URI address the combined file when Outcome is OutcomeWritten.
	Location objstore.Location `json:"-"`
	URI      string            `json:"uri,omitempty"`
	Duration time.Duration     `json:"duration_ns"`
}

// Combine concatenates every staged CSV into one Parquet file. Columns are
// matched by name and the result holds their union, so rows from one metric
// file have missing values in the other metrics' columns. With no staged
// files the outcome is OutcomeNoData and nothing is written.
func (p *Pipeline) Combine(ctx context.Context, upstream *ProcessReport) (*CombineReport, error) {
	if upstream == nil || !upstream.Complete {
		return nil, fmt.Errorf("%s: %w", StageCombine, ErrUpstreamIncomplete)
	}

	start := time.Now()
	p.logger.Info("combining staged files",
		slog.String("bucket", p.cfg.StagingBucket),
		slog.String("prefix", p.cfg.StagingPrefix))

	objects, err := p.store.List(ctx, p.cfg.StagingBucket, p.cfg.StagingPrefix)
	if err != nil {
		return nil, stageErr(StageCombine, "", err)
	}

	report := &CombineReport{}
	var frames []*frame.Frame
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Key, ".csv") {
			continue
		}
		f, err := p.readStaged(ctx, obj.Key)
		if err != nil {
			return nil, stageErr(StageCombine, obj.Key, err)
		}
		p.logger.Debug("loaded staged file", slog.String("key", obj.Key), slog.Int("rows", f.NumRows()))
		frames = append(frames, f)
		report.Files = append(report.Files, obj.Key)
	}

	if len(frames) == 0 {
		report.Outcome = OutcomeNoData
		report.Duration = time.Since(start)
		p.logger.Warn("no staged files found; nothing combined")
		return report, nil
	}

	combined := frame.Concat(frames...)
	data, err := encodeParquet(combined)
	if err != nil {
		return nil, stageErr(StageCombine, p.cfg.CombinedKey, err)
	}

	loc := p.CombinedLocation()
	if err := p.store.Put(ctx, loc, data); err != nil {
		return nil, stageErr(StageCombine, loc.Key, err)
	}

	report.Outcome = OutcomeWritten
	report.Rows = int64(combined.NumRows())
	report.Columns = combined.Names()
	report.Location = loc
	report.URI = p.store.URI(loc)
	report.Duration = time.Since(start)

	p.logger.Info("combine stage complete",
		slog.Int("files", len(report.Files)),
		slog.Int64("rows", report.Rows),
		slog.Int("columns", len(report.Columns)),
		slog.String("uri", report.URI))
	return report, nil
}

func (p *Pipeline) readStaged(ctx context.Context, key string) (*frame.Frame, error) {
	data, err := p.store.Get(ctx, objstore.Location{Bucket: p.cfg.StagingBucket, Key: key})
	if err != nil {
		return nil, err
	}
	return frame.ReadCSV(bytes.NewReader(data))
}

// encodeParquet serializes f through a temporary file, since the parquet
// writer needs a seekable sink.
func encodeParquet(f *frame.Frame) ([]byte, error) {
	dir, err := os.MkdirTemp("", "zillowetl-combine-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "combined.parquet")
	if err := frame.WriteParquet(path, f); err != nil {
		return nil, err
	}
	return os.ReadFile(path) //nolint:gosec // path is inside our temp dir
}
