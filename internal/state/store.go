// Package state records pipeline runs and stage executions in SQLite.
//
// Besides run history, the store is how a standalone stage invocation finds
// out whether its upstream stage has completed: the latest finished stage
// run says whether it succeeded and carries the outcome and artifact the
// downstream stage needs.
package state

import (
	"errors"

	"github.com/leapstack-labs/zillowetl/pkg/core"
)

// Type aliases for the persisted types defined in pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// Run is an alias for core.Run.
	Run = core.Run

	// StageRunStatus is an alias for core.StageRunStatus.
	StageRunStatus = core.StageRunStatus

	// StageRun is an alias for core.StageRun.
	StageRun = core.StageRun
)

// ErrNotFound is returned when a requested run or stage run does not exist.
var ErrNotFound = errors.New("not found")

var _ Store = (*SQLiteStore)(nil)
