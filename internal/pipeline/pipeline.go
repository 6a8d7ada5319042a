// Package pipeline implements the Zillow metrics ETL: reshape raw wide files
// into long staged files, combine the staged files into one Parquet file, and
// bulk-load that file into a warehouse.
//
// Each stage takes the previous stage's report as its input, so the order
// process → combine → load is part of the API rather than a property of how
// the stages happen to be scheduled.
package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/zillowetl/internal/catalog"
	"github.com/leapstack-labs/zillowetl/internal/objstore"
	"github.com/leapstack-labs/zillowetl/pkg/adapter"
)

// Stage names a pipeline stage.
type Stage string

// Pipeline stages in execution order.
const (
	StageProcess Stage = "process"
	StageCombine Stage = "combine"
	StageLoad    Stage = "load"
)

// DefaultIDColumns are the identifier columns kept when reshaping Zillow metro files.
var DefaultIDColumns = []string{"regionid", "sizerank", "regionname", "regiontype", "statename"}

// Config holds pipeline configuration.
type Config struct {
	// RawBucket and RawPrefix locate the source files.
	RawBucket string
	RawPrefix string

	// StagingBucket receives reshaped files under StagingPrefix and the
	// combined file at CombinedKey.
	StagingBucket string
	StagingPrefix string
	CombinedKey   string

	// IDColumns are carried through the reshape unchanged (DefaultIDColumns if empty).
	IDColumns []string

	// Catalog maps source file names to metric labels (catalog.Default if nil).
	Catalog *catalog.Catalog

	// Warehouse configures the load stage. Nil disables loading.
	Warehouse *WarehouseConfig

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// WarehouseConfig describes the load target.
type WarehouseConfig struct {
	Adapter adapter.Config
	// Table is the (optionally schema-qualified) table to load into.
	Table string
	// IAMRole authorizes the warehouse to read from the object store.
	IAMRole string
}

// AdapterFactory builds a warehouse adapter; adapter.NewAdapter by default.
type AdapterFactory func(cfg adapter.Config, logger *slog.Logger) (adapter.Adapter, error)

// Pipeline runs the ETL stages against an object store.
type Pipeline struct {
	cfg        Config
	store      objstore.Store
	catalog    *catalog.Catalog
	logger     *slog.Logger
	newAdapter AdapterFactory
}

// New validates cfg and returns a pipeline reading and writing through store.
func New(cfg Config, store objstore.Store) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if cfg.RawBucket == "" {
		return nil, fmt.Errorf("raw bucket not specified")
	}
	if cfg.StagingBucket == "" {
		return nil, fmt.Errorf("staging bucket not specified")
	}
	if cfg.CombinedKey == "" {
		return nil, fmt.Errorf("combined key not specified")
	}
	if strings.HasPrefix(cfg.CombinedKey, cfg.StagingPrefix) && strings.HasSuffix(cfg.CombinedKey, ".csv") {
		return nil, fmt.Errorf("combined key %q would be picked up as a staged file", cfg.CombinedKey)
	}
	if len(cfg.IDColumns) == 0 {
		cfg.IDColumns = DefaultIDColumns
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	return &Pipeline{
		cfg:        cfg,
		store:      store,
		catalog:    cat,
		logger:     logger,
		newAdapter: adapter.NewAdapter,
	}, nil
}

// SetAdapterFactory replaces the warehouse adapter constructor.
func (p *Pipeline) SetAdapterFactory(f AdapterFactory) {
	p.newAdapter = f
}

// CombinedLocation is where the combine stage writes its output.
func (p *Pipeline) CombinedLocation() objstore.Location {
	return objstore.Location{Bucket: p.cfg.StagingBucket, Key: p.cfg.CombinedKey}
}

// LoadEnabled reports whether a warehouse is configured.
func (p *Pipeline) LoadEnabled() bool {
	return p.cfg.Warehouse != nil
}

// stagedKey maps a source key to its staged key: the base name with ".csv"
// replaced by "_transformed.csv", under the staging prefix.
func (p *Pipeline) stagedKey(sourceKey string) string {
	loc := objstore.Location{Key: sourceKey}
	return p.cfg.StagingPrefix + strings.ReplaceAll(loc.Base(), ".csv", "_transformed.csv")
}
