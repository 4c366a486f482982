package lifecycle

import (
	"context"

	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

// TaskStore is the task side of the persistence boundary.
type TaskStore interface {
	GetTask(ctx context.Context, userID, taskID uint) (*model.Task, error)
	GetTasksForWeek(ctx context.Context, userID uint, wk week.Week) ([]model.Task, error)
	// ListRecurring returns recurring templates created on or before through.
	ListRecurring(ctx context.Context, userID uint, through week.Week) ([]model.Task, error)
	UpdateTask(ctx context.Context, taskID uint, fields map[string]any) (*model.Task, error)
	// MoveTask changes the task's week only if it is still in from, as a
	// single conditional write. moved is false when the task already left from.
	MoveTask(ctx context.Context, taskID uint, from, to week.Week) (moved bool, err error)
	CreateTask(ctx context.Context, task *model.Task) error
}

// CompletionStore persists per-week state of recurring tasks. Both writes
// must be a single atomic statement on the completion key, never a read
// followed by a write.
//
// fields uses column names: "status", "progress_current".
type CompletionStore interface {
	// UpsertWeeklyCompletion inserts the row or overwrites the given fields
	// of the existing one.
	UpsertWeeklyCompletion(ctx context.Context, key model.CompletionKey, fields map[string]any) (*model.WeeklyTaskCompletion, error)
	// EnsureWeeklyCompletion inserts the row unless one exists already.
	EnsureWeeklyCompletion(ctx context.Context, key model.CompletionKey, fields map[string]any) (created bool, err error)
	// GetWeeklyCompletion returns nil, nil when no row exists.
	GetWeeklyCompletion(ctx context.Context, key model.CompletionKey) (*model.WeeklyTaskCompletion, error)
}
