package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/zillowetl/pkg/adapter"
)

// ErrLoadDisabled is returned by Load when no warehouse is configured.
var ErrLoadDisabled = errors.New("warehouse loading is not configured")

// copyFormat is the format of the combined artifact handed to the warehouse.
const copyFormat = "PARQUET"

// LoadReport is the completion signal of the load stage.
type LoadReport struct {
	Outcome  Outcome       `json:"outcome"`
	Target   string        `json:"target"`
	Table    string        `json:"table"`
	Source   string        `json:"source,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Load bulk-loads the combined file into the configured warehouse table with
// a single copy command. It does nothing when the combine stage found no data.
func (p *Pipeline) Load(ctx context.Context, upstream *CombineReport) (report *LoadReport, err error) {
	if upstream == nil {
		return nil, fmt.Errorf("%s: %w", StageLoad, ErrUpstreamIncomplete)
	}
	wh := p.cfg.Warehouse
	if wh == nil {
		return nil, ErrLoadDisabled
	}

	start := time.Now()
	report = &LoadReport{Target: wh.Adapter.Type, Table: wh.Table}

	if upstream.Outcome == OutcomeNoData {
		report.Outcome = OutcomeSkipped
		report.Duration = time.Since(start)
		p.logger.Warn("combine produced no data; skipping load", slog.String("table", wh.Table))
		return report, nil
	}
	if upstream.Outcome != OutcomeWritten || upstream.URI == "" {
		return nil, fmt.Errorf("%s: %w", StageLoad, ErrUpstreamIncomplete)
	}
	report.Source = upstream.URI

	db, err := p.newAdapter(wh.Adapter, p.logger)
	if err != nil {
		return nil, stageErr(StageLoad, "", err)
	}
	if err := db.Connect(ctx, wh.Adapter); err != nil {
		return nil, stageErr(StageLoad, "", fmt.Errorf("failed to connect to %s: %w", wh.Adapter.Type, err))
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close warehouse connection: %w", cerr))
		}
	}()

	p.logger.Info("loading combined file",
		slog.String("target", wh.Adapter.Type),
		slog.String("table", wh.Table),
		slog.String("source", upstream.URI))

	spec := adapter.CopySpec{
		Table:      wh.Table,
		Source:     upstream.URI,
		Credential: wh.IAMRole,
		Format:     copyFormat,
	}
	if err := db.CopyFrom(ctx, spec); err != nil {
		return nil, stageErr(StageLoad, upstream.Location.Key, err)
	}

	report.Outcome = OutcomeLoaded
	report.Duration = time.Since(start)
	p.logger.Info("load stage complete",
		slog.String("table", wh.Table),
		slog.Duration("duration", report.Duration))
	return report, nil
}
