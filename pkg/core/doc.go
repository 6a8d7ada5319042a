// Package core defines the shared language of zillowetl.
//
// This package contains:
//   - Run bookkeeping (Run, StageRun and their statuses)
//   - Service interfaces (Adapter, Store)
//   - Warehouse configuration and copy types (AdapterConfig, CopySpec)
//
// pkg/core imports only the standard library. All other packages depend on
// core, not the reverse.
package core
