package pipeline

import (
	"errors"
	"fmt"
)

// ErrUpstreamIncomplete is returned when a stage is asked to run without a
// completion signal from the stage it depends on.
var ErrUpstreamIncomplete = errors.New("upstream stage has not completed")

// StageError is a fatal failure of a stage. Key names the object being
// handled when the failure happened, if any.
type StageError struct {
	Stage Stage
	Key   string
	Err   error
}

func (e *StageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s stage failed on %s: %v", e.Stage, e.Key, e.Err)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, key string, err error) error {
	return &StageError{Stage: stage, Key: key, Err: err}
}
