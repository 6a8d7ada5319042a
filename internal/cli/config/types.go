// Package config provides configuration management for the zillowetl CLI.
//
// Configuration is layered with koanf: built-in defaults, then zillowetl.yaml,
// then ZILLOWETL_* environment variables, then explicitly set flags. The
// loaded Config is translated into the option structs of the pipeline,
// object store and warehouse adapter packages.
package config

import (
	"github.com/leapstack-labs/zillowetl/internal/catalog"
	"github.com/leapstack-labs/zillowetl/internal/objstore"
	"github.com/leapstack-labs/zillowetl/internal/pipeline"
	"github.com/leapstack-labs/zillowetl/pkg/adapter"
)

// Default configuration values.
const (
	DefaultStateFile     = ".zillowetl/state.db"
	DefaultEnv           = "dev"
	DefaultLogFormat     = "text"
	DefaultStorageType   = "s3"
	DefaultRegion        = "us-east-1"
	DefaultRawBucket     = "zillow-raw"
	DefaultRawPrefix     = "raw-data/"
	DefaultStagingBucket = "zillow-staging"
	DefaultStagingPrefix = "processed-data/"
	DefaultCombinedKey   = "combined-data/combined.parquet"
	DefaultWarehouseType = "redshift"
	DefaultTable         = "zillow_data"
	DefaultCron          = "@daily"
)

// Config holds all CLI configuration options.
type Config struct {
	Environment string          `koanf:"environment"`
	Verbose     bool            `koanf:"verbose"`
	LogFormat   string          `koanf:"log_format"`
	StatePath   string          `koanf:"state_path"`
	Storage     StorageConfig   `koanf:"storage"`
	Pipeline    PipelineConfig  `koanf:"pipeline"`
	Metrics     []MetricConfig  `koanf:"metrics"`
	Warehouse   WarehouseConfig `koanf:"warehouse"`
	Schedule    ScheduleConfig  `koanf:"schedule"`
}

// StorageConfig selects the object store backend.
type StorageConfig struct {
	Type            string `koanf:"type"` // s3 or local
	Root            string `koanf:"root"` // local only
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	PathStyle       bool   `koanf:"path_style"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

// PipelineConfig locates the raw, staged and combined files.
type PipelineConfig struct {
	RawBucket     string   `koanf:"raw_bucket"`
	RawPrefix     string   `koanf:"raw_prefix"`
	StagingBucket string   `koanf:"staging_bucket"`
	StagingPrefix string   `koanf:"staging_prefix"`
	CombinedKey   string   `koanf:"combined_key"`
	IDColumns     []string `koanf:"id_columns"`
}

// MetricConfig maps a source file name to a metric label. Entries override
// or extend the built-in catalog.
type MetricConfig struct {
	File  string `koanf:"file"`
	Label string `koanf:"label"`
}

// WarehouseConfig configures the load stage.
type WarehouseConfig struct {
	Enabled  bool              `koanf:"enabled"`
	Type     string            `koanf:"type"` // redshift or duckdb
	Database string            `koanf:"database"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Table    string            `koanf:"table"`
	IAMRole  string            `koanf:"iam_role"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// ScheduleConfig configures the schedule command.
type ScheduleConfig struct {
	Cron string `koanf:"cron"`
}

// ObjectStore returns the object store options.
func (c *Config) ObjectStore() objstore.Config {
	return objstore.Config{
		Type:            c.Storage.Type,
		Root:            c.Storage.Root,
		Region:          c.Storage.Region,
		Endpoint:        c.Storage.Endpoint,
		PathStyle:       c.Storage.PathStyle,
		AccessKeyID:     c.Storage.AccessKeyID,
		SecretAccessKey: c.Storage.SecretAccessKey,
	}
}

// Catalog returns the built-in metric catalog extended with configured entries.
func (c *Config) Catalog() *catalog.Catalog {
	cat := catalog.Default()
	if len(c.Metrics) == 0 {
		return cat
	}
	overrides := make(map[string]string, len(c.Metrics))
	for _, m := range c.Metrics {
		overrides[m.File] = m.Label
	}
	return cat.With(overrides)
}

// AdapterConfig returns the warehouse connection options.
func (w *WarehouseConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     w.Type,
		Path:     w.Database,
		Host:     w.Host,
		Port:     w.Port,
		Database: w.Database,
		Username: w.User,
		Password: w.Password,
		Schema:   w.Schema,
		Options:  w.Options,
		Params:   w.Params,
	}
}

// PipelineConfig returns the pipeline options. The warehouse is attached
// only when loading is enabled.
func (c *Config) PipelineConfig() pipeline.Config {
	pc := pipeline.Config{
		RawBucket:     c.Pipeline.RawBucket,
		RawPrefix:     c.Pipeline.RawPrefix,
		StagingBucket: c.Pipeline.StagingBucket,
		StagingPrefix: c.Pipeline.StagingPrefix,
		CombinedKey:   c.Pipeline.CombinedKey,
		IDColumns:     c.Pipeline.IDColumns,
		Catalog:       c.Catalog(),
	}
	if c.Warehouse.Enabled {
		pc.Warehouse = &pipeline.WarehouseConfig{
			Adapter: c.Warehouse.AdapterConfig(),
			Table:   c.Warehouse.Table,
			IAMRole: c.Warehouse.IAMRole,
		}
	}
	return pc
}
