package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

var completionKeyColumns = []clause.Column{
	{Name: "task_id"},
	{Name: "user_id"},
	{Name: "week_year"},
	{Name: "week_number"},
}

// CompletionRepository stores per-week state of recurring tasks. Every write
// is one INSERT ... ON CONFLICT statement on the completion key.
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

func newCompletionRow(key model.CompletionKey, fields map[string]any) (*model.WeeklyTaskCompletion, error) {
	row := &model.WeeklyTaskCompletion{
		TaskID:     key.TaskID,
		UserID:     key.UserID,
		WeekYear:   key.Week.Year,
		WeekNumber: key.Week.Number,
		Status:     model.StatusTodo,
	}
	for name, value := range fields {
		switch name {
		case "status":
			status, ok := value.(model.Status)
			if !ok || !status.Valid() {
				return nil, apperr.NewError(apperr.InvalidArgument, fmt.Sprintf("invalid status %v", value), nil)
			}
			row.Status = status
		case "progress_current":
			current, ok := value.(int)
			if !ok {
				return nil, apperr.NewError(apperr.InvalidArgument, fmt.Sprintf("invalid progress %v", value), nil)
			}
			row.ProgressCurrent = current
		default:
			return nil, apperr.NewError(apperr.InvalidArgument, fmt.Sprintf("unknown completion field %q", name), nil)
		}
	}
	return row, nil
}

func (r *CompletionRepository) UpsertWeeklyCompletion(ctx context.Context, key model.CompletionKey, fields map[string]any) (*model.WeeklyTaskCompletion, error) {
	row, err := newCompletionRow(key, fields)
	if err != nil {
		return nil, err
	}

	assignments := map[string]any{"updated_at": time.Now()}
	for name, value := range fields {
		assignments[name] = value
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: completionKeyColumns, DoUpdates: clause.Assignments(assignments)}).
		Create(row).Error
	if err != nil {
		return nil, apperr.WrapStorageWriteError("weekly completion", err)
	}

	stored, err := r.GetWeeklyCompletion(ctx, key)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, apperr.NewError(apperr.Internal, "weekly completion vanished after upsert", nil)
	}
	return stored, nil
}

func (r *CompletionRepository) EnsureWeeklyCompletion(ctx context.Context, key model.CompletionKey, fields map[string]any) (bool, error) {
	row, err := newCompletionRow(key, fields)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: completionKeyColumns, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, apperr.WrapStorageWriteError("weekly completion", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *CompletionRepository) GetWeeklyCompletion(ctx context.Context, key model.CompletionKey) (*model.WeeklyTaskCompletion, error) {
	var rows []model.WeeklyTaskCompletion
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ? AND week_year = ? AND week_number = ?",
			key.TaskID, key.UserID, key.Week.Year, key.Week.Number).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.WrapStorageReadError("weekly completion", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListForWeek returns the user's completion rows of wk keyed by task ID.
func (r *CompletionRepository) ListForWeek(ctx context.Context, userID uint, wk week.Week) (map[uint]model.WeeklyTaskCompletion, error) {
	var rows []model.WeeklyTaskCompletion
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND week_year = ? AND week_number = ?", userID, wk.Year, wk.Number).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.WrapStorageReadError("weekly completions", err)
	}
	byTask := make(map[uint]model.WeeklyTaskCompletion, len(rows))
	for _, row := range rows {
		byTask[row.TaskID] = row
	}
	return byTask, nil
}
