package lifecycle

import (
	"context"
	"fmt"
	"time"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

// RolloverWeek carries week from into week to for one user:
//   - unfinished plain tasks are moved (same row, new week); done ones stay;
//   - recurring templates get a todo completion row for week to, unless
//     one exists already.
//
// Rerunning with the same weeks changes nothing. Item failures do not stop
// the batch; they are listed in the report and summarised by the returned
// PartialBatchFailure error. Concurrent calls for the same arguments share
// one run. The shared run is not cancelled with any single caller; a caller
// whose ctx ends stops waiting and gets ctx.Err() while the run completes.
func (e *Engine) RolloverWeek(ctx context.Context, userID uint, from, to week.Week) (*RolloverReport, error) {
	if !from.Before(to) {
		return nil, apperr.NewError(apperr.InvalidArgument, fmt.Sprintf("rollover target %s is not after %s", to, from), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("rollover:%d:%s:%s", userID, from, to)
	runCtx := context.WithoutCancel(ctx)
	ch := e.flight.DoChan(key, func() (any, error) {
		return e.rollover(runCtx, userID, from, to)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		report := res.Val.(*RolloverReport)
		return report, report.Err()
	}
}

func (e *Engine) rollover(ctx context.Context, userID uint, from, to week.Week) (*RolloverReport, error) {
	start := time.Now()
	defer func() {
		batchDuration.WithLabelValues("rollover").Observe(time.Since(start).Seconds())
	}()

	weekTasks, err := e.tasks.GetTasksForWeek(ctx, userID, from)
	if err != nil {
		return nil, fmt.Errorf("load week %s: %w", from, err)
	}
	recurring, err := e.tasks.ListRecurring(ctx, userID, from)
	if err != nil {
		return nil, fmt.Errorf("load recurring tasks: %w", err)
	}

	candidates := make([]model.Task, 0, len(weekTasks)+len(recurring))
	for _, task := range weekTasks {
		if task.Recurring() {
			continue // picked up by ListRecurring
		}
		if task.Status == model.StatusDone {
			batchItemsTotal.WithLabelValues("rollover", "kept").Inc()
			continue
		}
		candidates = append(candidates, task)
	}
	candidates = append(candidates, recurring...)

	report := &RolloverReport{UserID: userID, From: from, To: to}
	outcomes := e.runBatch(ctx, candidates, func(ctx context.Context, task model.Task) (itemResult, error) {
		if task.Recurring() {
			return e.reinstance(ctx, task, to)
		}
		return e.carryForward(ctx, task, from, to)
	})

	for _, o := range outcomes {
		switch {
		case o.err != nil:
			e.logger.Warn("rollover item failed", "user_id", userID, "task_id", o.task.ID, "error", o.err)
			report.Failures = append(report.Failures, Failure{TaskID: o.task.ID, Err: o.err})
			batchItemsTotal.WithLabelValues("rollover", "failed").Inc()
		case !o.result.applied:
			batchItemsTotal.WithLabelValues("rollover", "skipped").Inc()
		case o.task.Recurring():
			report.Reinstanced = append(report.Reinstanced, o.result.ref)
			batchItemsTotal.WithLabelValues("rollover", "reinstanced").Inc()
		default:
			report.Moved = append(report.Moved, o.result.ref)
			batchItemsTotal.WithLabelValues("rollover", "moved").Inc()
		}
	}
	sortRefs(report.Moved)
	sortRefs(report.Reinstanced)
	sortFailures(report.Failures)

	e.logger.Info("rollover finished",
		"user_id", userID, "from", from.String(), "to", to.String(),
		"moved", len(report.Moved), "reinstanced", len(report.Reinstanced), "failed", len(report.Failures))
	return report, nil
}

func (e *Engine) carryForward(ctx context.Context, task model.Task, from, to week.Week) (itemResult, error) {
	moved, err := e.tasks.MoveTask(ctx, task.ID, from, to)
	if err != nil {
		return itemResult{}, err
	}
	return itemResult{
		ref:     TaskRef{TaskID: task.ID, Title: task.Title, Week: to},
		applied: moved,
	}, nil
}

func (e *Engine) reinstance(ctx context.Context, task model.Task, to week.Week) (itemResult, error) {
	key := model.CompletionKey{TaskID: task.ID, UserID: task.UserID, Week: to}
	created, err := e.completions.EnsureWeeklyCompletion(ctx, key, map[string]any{
		"status":           model.StatusTodo,
		"progress_current": 0,
	})
	if err != nil {
		return itemResult{}, err
	}
	return itemResult{
		ref:     TaskRef{TaskID: task.ID, Title: task.Title, Week: to},
		applied: created,
	}, nil
}
