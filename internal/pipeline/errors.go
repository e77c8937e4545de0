package pipeline

import (
	"errors"
	"fmt"

	"github.com/sells-group/siterisk/internal/source"
)

// ErrSourceNotFound means the caller supplied no readable workbook. Process
// returns it (wrapped) with a nil result; match it with errors.Is.
var ErrSourceNotFound = source.ErrNotFound

// ErrIncidentSheetMissing means the workbook has no operations sheet to reconcile.
var ErrIncidentSheetMissing = errors.New("operations sheet missing")

// Stage names reported in PipelineError and stage logs.
const (
	StageOpen     = "open"
	StageWorkbook = "workbook"
	StageResolve  = "resolve"
	StageLoad     = "load"
	StageMerge    = "merge"
	StageMetrics  = "metrics"
)

// PipelineError wraps any failure other than a missing source, including
// recovered panics, with the stage it happened in.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
