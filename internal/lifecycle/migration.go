package lifecycle

import (
	"context"
	"fmt"
	"time"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

// MigrationCandidate reports whether a task of an older week can be pulled
// into the current one. Recurring tasks never are.
func MigrationCandidate(task model.Task) bool {
	if task.Recurring() {
		return false
	}
	return task.Status == model.StatusTodo || task.Status == model.StatusInProgress
}

// MigrateWeek pulls unfinished work of week from into current, which must be
// later. todo tasks are moved; in_progress tasks stay in from with their
// history and a fresh todo copy is created in current.
func (e *Engine) MigrateWeek(ctx context.Context, userID uint, from, current week.Week) (*MigrationReport, error) {
	if !from.Before(current) {
		return nil, apperr.NewError(apperr.InvalidArgument, fmt.Sprintf("source week %s is not before %s", from, current), nil)
	}

	start := time.Now()
	defer func() {
		batchDuration.WithLabelValues("migration").Observe(time.Since(start).Seconds())
	}()

	tasks, err := e.tasks.GetTasksForWeek(ctx, userID, from)
	if err != nil {
		return nil, fmt.Errorf("load week %s: %w", from, err)
	}
	candidates := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if MigrationCandidate(task) {
			candidates = append(candidates, task)
		}
	}

	report := &MigrationReport{UserID: userID, From: from, To: current}
	outcomes := e.runBatch(ctx, candidates, func(ctx context.Context, task model.Task) (itemResult, error) {
		if task.Status == model.StatusInProgress {
			return e.copyForward(ctx, task, current)
		}
		return e.carryForward(ctx, task, from, current)
	})

	for _, o := range outcomes {
		switch {
		case o.err != nil:
			e.logger.Warn("migration item failed", "user_id", userID, "task_id", o.task.ID, "error", o.err)
			report.Failures = append(report.Failures, Failure{TaskID: o.task.ID, Err: o.err})
			batchItemsTotal.WithLabelValues("migration", "failed").Inc()
		case !o.result.applied:
			batchItemsTotal.WithLabelValues("migration", "skipped").Inc()
		case o.task.Status == model.StatusInProgress:
			report.Copied = append(report.Copied, o.result.ref)
			batchItemsTotal.WithLabelValues("migration", "copied").Inc()
		default:
			report.Moved = append(report.Moved, o.result.ref)
			batchItemsTotal.WithLabelValues("migration", "moved").Inc()
		}
	}
	sortRefs(report.Moved)
	sortRefs(report.Copied)
	sortFailures(report.Failures)

	e.logger.Info("migration finished",
		"user_id", userID, "from", from.String(), "to", current.String(),
		"moved", len(report.Moved), "copied", len(report.Copied), "failed", len(report.Failures))
	return report, report.Err()
}

func (e *Engine) copyForward(ctx context.Context, task model.Task, to week.Week) (itemResult, error) {
	dup := CopyTask(task, to)
	if err := e.tasks.CreateTask(ctx, &dup); err != nil {
		return itemResult{}, err
	}
	return itemResult{
		ref:     TaskRef{TaskID: dup.ID, SourceID: task.ID, Title: dup.Title, Week: to},
		applied: true,
	}, nil
}

// CopyTask builds the fresh actionable duplicate of task for week to: same
// identity fields and progress target, status todo, no progress, subtasks
// unchecked.
func CopyTask(task model.Task, to week.Week) model.Task {
	dup := model.Task{
		UserID:           task.UserID,
		Category:         task.Category,
		Title:            task.Title,
		Description:      task.Description,
		Status:           model.StatusTodo,
		Priority:         task.Priority,
		DueDate:          task.DueDate,
		ProgressCurrent:  0,
		WeekYear:         to.Year,
		WeekNumber:       to.Number,
		AutoProgress:     task.AutoProgress,
		WeightedProgress: task.WeightedProgress,
	}
	if task.ProgressTotal != nil {
		total := *task.ProgressTotal
		dup.ProgressTotal = &total
	}
	if len(task.Subtasks) > 0 {
		dup.Subtasks = make([]model.Subtask, len(task.Subtasks))
		for i, st := range task.Subtasks {
			dup.Subtasks[i] = model.Subtask{
				Title:    st.Title,
				Weight:   st.Weight,
				Position: st.Position,
			}
		}
	}
	return dup
}
