package lifecycle

import (
	"errors"
	"fmt"
	"sort"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/week"
)

// TaskRef identifies a task touched by a batch operation. SourceID is set
// for copies and points at the row the copy was made from.
type TaskRef struct {
	TaskID   uint
	SourceID uint
	Title    string
	Week     week.Week
}

type Failure struct {
	TaskID uint
	Err    error
}

type RolloverReport struct {
	UserID      uint
	From        week.Week
	To          week.Week
	Moved       []TaskRef
	Reinstanced []TaskRef
	Failures    []Failure
}

// Err is nil when every task succeeded and a PartialBatchFailure otherwise.
func (r *RolloverReport) Err() error {
	return batchError("rollover", r.From, r.To, len(r.Moved)+len(r.Reinstanced), r.Failures)
}

type MigrationReport struct {
	UserID   uint
	From     week.Week
	To       week.Week
	Moved    []TaskRef
	Copied   []TaskRef
	Failures []Failure
}

func (r *MigrationReport) Err() error {
	return batchError("migration", r.From, r.To, len(r.Moved)+len(r.Copied), r.Failures)
}

func batchError(op string, from, to week.Week, succeeded int, failures []Failure) error {
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, fmt.Errorf("task %d: %w", f.TaskID, f.Err))
	}
	msg := fmt.Sprintf("%s %s -> %s: %d of %d tasks failed", op, from, to, len(failures), succeeded+len(failures))
	return apperr.NewError(apperr.PartialBatchFailure, msg, errors.Join(errs...))
}

func sortRefs(refs []TaskRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].TaskID < refs[j].TaskID })
}

func sortFailures(failures []Failure) {
	sort.Slice(failures, func(i, j int) bool { return failures[i].TaskID < failures[j].TaskID })
}
