// Package adapter provides the warehouse adapter contract and registry
// used by the load stage.
//
// Concrete adapter implementations live in pkg/adapters/ subdirectories and
// register themselves from init(). Core types are defined in pkg/core and
// aliased here so callers only need one import.
package adapter

import (
	"github.com/leapstack-labs/zillowetl/pkg/core"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// CopySpec is an alias for core.CopySpec.
	CopySpec = core.CopySpec

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows

	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter
)
