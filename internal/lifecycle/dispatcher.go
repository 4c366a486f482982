package lifecycle

import (
	"context"
	"fmt"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

type TargetKind string

const (
	TargetTask       TargetKind = "task"
	TargetCompletion TargetKind = "completion"
)

// StatusTarget names the record a status change for a task must be written to.
type StatusTarget struct {
	Kind   TargetKind
	TaskID uint
	UserID uint
	Week   week.Week // set only for TargetCompletion
}

func (t StatusTarget) CompletionKey() model.CompletionKey {
	return model.CompletionKey{TaskID: t.TaskID, UserID: t.UserID, Week: t.Week}
}

// ResolveStatusTarget decides where the status of task lives for week wk:
// recurring templates keep it in a per-week completion row, plain tasks on
// their own row.
func ResolveStatusTarget(task model.Task, wk week.Week) StatusTarget {
	if task.Recurring() {
		return StatusTarget{Kind: TargetCompletion, TaskID: task.ID, UserID: task.UserID, Week: wk}
	}
	return StatusTarget{Kind: TargetTask, TaskID: task.ID, UserID: task.UserID}
}

// NextStatus is the single-click cycle todo -> in_progress -> done -> todo.
// blocked leads back to todo and is never produced by the cycle.
func NextStatus(s model.Status) model.Status {
	switch s {
	case model.StatusTodo:
		return model.StatusInProgress
	case model.StatusInProgress:
		return model.StatusDone
	default:
		return model.StatusTodo
	}
}

// DispatchResult carries whichever record was written.
type DispatchResult struct {
	Kind       TargetKind
	Task       *model.Task
	Completion *model.WeeklyTaskCompletion
}

func (r DispatchResult) Status() model.Status {
	if r.Kind == TargetCompletion && r.Completion != nil {
		return r.Completion.Status
	}
	if r.Task != nil {
		return r.Task.Status
	}
	return ""
}

// Effective returns task as seen in the completion's week: for recurring
// tasks the completion row, when present, overrides status and progress.
func Effective(task model.Task, completion *model.WeeklyTaskCompletion) model.Task {
	if !task.Recurring() || completion == nil {
		return task
	}
	task.Status = completion.Status
	task.ProgressCurrent = completion.ProgressCurrent
	return task
}

// AdvanceStatus moves the task one step along NextStatus in week current.
func (e *Engine) AdvanceStatus(ctx context.Context, userID, taskID uint, current week.Week) (*DispatchResult, error) {
	task, err := e.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	status := task.Status
	if task.Recurring() {
		completion, err := e.completions.GetWeeklyCompletion(ctx, model.CompletionKey{TaskID: task.ID, UserID: task.UserID, Week: current})
		if err != nil {
			return nil, err
		}
		status = Effective(*task, completion).Status
	}
	return e.dispatch(ctx, task, NextStatus(status), current)
}

// SetStatus assigns status explicitly. This is the only way to reach blocked.
func (e *Engine) SetStatus(ctx context.Context, userID, taskID uint, status model.Status, current week.Week) (*DispatchResult, error) {
	if !status.Valid() {
		return nil, apperr.NewError(apperr.InvalidArgument, fmt.Sprintf("unknown status %q", status), nil)
	}
	task, err := e.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return e.dispatch(ctx, task, status, current)
}

func (e *Engine) dispatch(ctx context.Context, task *model.Task, status model.Status, current week.Week) (*DispatchResult, error) {
	target := ResolveStatusTarget(*task, current)
	statusChangesTotal.WithLabelValues(string(target.Kind)).Inc()

	switch target.Kind {
	case TargetCompletion:
		completion, err := e.completions.UpsertWeeklyCompletion(ctx, target.CompletionKey(), map[string]any{"status": status})
		if err != nil {
			return nil, err
		}
		e.logger.Debug("recurring status set", "task_id", task.ID, "week", current.String(), "status", status)
		return &DispatchResult{Kind: TargetCompletion, Task: task, Completion: completion}, nil
	default:
		updated, err := e.tasks.UpdateTask(ctx, task.ID, map[string]any{"status": status})
		if err != nil {
			return nil, err
		}
		e.logger.Debug("task status set", "task_id", task.ID, "status", status)
		return &DispatchResult{Kind: TargetTask, Task: updated}, nil
	}
}
