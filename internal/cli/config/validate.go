package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/zillowetl/pkg/adapter"
	"github.com/robfig/cron/v3"
)

// DefaultSchemaForType returns the default schema for a warehouse type.
func DefaultSchemaForType(dbType string) string {
	switch strings.ToLower(dbType) {
	case "duckdb":
		return "main"
	case "redshift":
		return "public"
	default:
		return ""
	}
}

func applyWarehouseDefaults(w *WarehouseConfig) {
	w.Type = strings.ToLower(w.Type)
	if w.Schema == "" {
		w.Schema = DefaultSchemaForType(w.Type)
	}
	if w.Type == "redshift" && w.Port == 0 {
		w.Port = 5439
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (want text or json)", c.LogFormat)
	}

	switch strings.ToLower(c.Storage.Type) {
	case "s3":
	case "local":
		if c.Storage.Root == "" {
			return fmt.Errorf("storage.root is required for local storage")
		}
	default:
		return fmt.Errorf("invalid storage.type %q (want s3 or local)", c.Storage.Type)
	}

	if c.Pipeline.RawBucket == "" || c.Pipeline.StagingBucket == "" {
		return fmt.Errorf("pipeline.raw_bucket and pipeline.staging_bucket are required")
	}

	if err := c.Pipeline.checkLayout(); err != nil {
		return err
	}

	for i, m := range c.Metrics {
		if m.File == "" || m.Label == "" {
			return fmt.Errorf("metrics[%d]: file and label are required", i)
		}
	}

	if c.Warehouse.Enabled {
		if err := c.Warehouse.Validate(); err != nil {
			return fmt.Errorf("invalid warehouse configuration: %w", err)
		}
	}

	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("invalid schedule.cron %q: %w", c.Schedule.Cron, err)
	}
	return nil
}

// checkLayout rejects a raw location that overlaps the staged files or the
// combined artifact, which process would otherwise read back as sources.
func (p PipelineConfig) checkLayout() error {
	if p.RawBucket != p.StagingBucket {
		return nil
	}
	overlaps := func(a, b string) bool { return strings.HasPrefix(a, b) || strings.HasPrefix(b, a) }
	switch {
	case overlaps(p.RawPrefix, p.StagingPrefix):
		return fmt.Errorf("pipeline.raw_prefix %q overlaps pipeline.staging_prefix %q in bucket %s",
			p.RawPrefix, p.StagingPrefix, p.RawBucket)
	case strings.HasPrefix(p.CombinedKey, p.RawPrefix):
		return fmt.Errorf("pipeline.combined_key %q is under pipeline.raw_prefix %q in bucket %s",
			p.CombinedKey, p.RawPrefix, p.RawBucket)
	}
	return nil
}

// Validate checks the warehouse settings needed by the load stage.
func (w *WarehouseConfig) Validate() error {
	if w.Type == "" {
		return fmt.Errorf("warehouse type is required")
	}
	if !adapter.IsRegistered(w.Type) {
		return &adapter.UnknownAdapterError{Type: w.Type, Available: adapter.ListAdapters()}
	}
	if err := adapter.ValidateTableName(w.Table); err != nil {
		return err
	}
	if w.Type == "redshift" {
		if w.Host == "" {
			return fmt.Errorf("warehouse.host is required for redshift")
		}
		if w.IAMRole == "" {
			return fmt.Errorf("warehouse.iam_role is required for redshift")
		}
	}
	return nil
}
