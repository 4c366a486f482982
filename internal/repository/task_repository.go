package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

// TaskRepository handles tasks and their subtasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func orderedSubtasks(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

// CreateTask stores the task together with its subtasks.
func (r *TaskRepository) CreateTask(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return apperr.WrapStorageWriteError("task", err)
	}
	return nil
}

func (r *TaskRepository) GetTask(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("Subtasks", orderedSubtasks).
		Where("user_id = ? AND id = ?", userID, taskID).
		First(&task).Error
	if err != nil {
		return nil, apperr.WrapStorageReadError("task", err)
	}
	return &task, nil
}

func (r *TaskRepository) GetTasksForWeek(ctx context.Context, userID uint, wk week.Week) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("Subtasks", orderedSubtasks).
		Where("user_id = ? AND week_year = ? AND week_number = ?", userID, wk.Year, wk.Number).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, apperr.WrapStorageReadError("tasks", err)
	}
	return tasks, nil
}

func (r *TaskRepository) ListRecurring(ctx context.Context, userID uint, through week.Week) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("Subtasks", orderedSubtasks).
		Where("user_id = ? AND is_recurring = ?", userID, true).
		Where("week_year < ? OR (week_year = ? AND week_number <= ?)", through.Year, through.Year, through.Number).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, apperr.WrapStorageReadError("recurring tasks", err)
	}
	return tasks, nil
}

// UpdateTask applies fields (column name -> value) and returns the fresh row.
func (r *TaskRepository) UpdateTask(ctx context.Context, taskID uint, fields map[string]any) (*model.Task, error) {
	db := r.db.WithContext(ctx)
	var task model.Task
	if err := db.First(&task, taskID).Error; err != nil {
		return nil, apperr.WrapStorageReadError("task", err)
	}
	if err := db.Model(&task).Updates(fields).Error; err != nil {
		return nil, apperr.WrapStorageWriteError("task", err)
	}
	return r.GetTask(ctx, task.UserID, task.ID)
}

func (r *TaskRepository) MoveTask(ctx context.Context, taskID uint, from, to week.Week) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&model.Task{}).
		Where("id = ? AND week_year = ? AND week_number = ?", taskID, from.Year, from.Number).
		Updates(map[string]any{"week_year": to.Year, "week_number": to.Number})
	if res.Error != nil {
		return false, apperr.WrapStorageWriteError("task", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := db.Model(&model.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
		return false, apperr.WrapStorageReadError("task", err)
	}
	if count == 0 {
		return false, apperr.NewError(apperr.NotFound, "task not found", nil)
	}
	return false, nil
}

// Delete removes a task with its subtasks, log and weekly completions.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
		if res.Error != nil {
			return fmt.Errorf("delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NewError(apperr.NotFound, "task not found", nil)
		}
		for _, child := range []any{&model.Subtask{}, &model.TaskUpdate{}, &model.WeeklyTaskCompletion{}} {
			if err := tx.Where("task_id = ?", taskID).Delete(child).Error; err != nil {
				return fmt.Errorf("delete task children: %w", err)
			}
		}
		return nil
	})
	if err != nil && apperr.CodeOf(err) == apperr.Unknown {
		return apperr.WrapStorageWriteError("task", err)
	}
	return err
}

// AddSubtask appends a subtask after the task's last one.
func (r *TaskRepository) AddSubtask(ctx context.Context, taskID uint, title string, weight int) (*model.Subtask, error) {
	if weight < model.MinSubtaskWeight || weight > model.MaxSubtaskWeight {
		return nil, apperr.NewError(apperr.InvalidArgument,
			fmt.Sprintf("weight must be between %d and %d", model.MinSubtaskWeight, model.MaxSubtaskWeight), nil)
	}

	subtask := model.Subtask{TaskID: taskID, Title: title, Weight: weight}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last struct{ Max *int }
		if err := tx.Model(&model.Subtask{}).Select("MAX(position) AS max").Where("task_id = ?", taskID).Scan(&last).Error; err != nil {
			return err
		}
		if last.Max != nil {
			subtask.Position = *last.Max + 1
		}
		return tx.Create(&subtask).Error
	})
	if err != nil {
		return nil, apperr.WrapStorageWriteError("subtask", err)
	}
	return &subtask, nil
}

// FindSubtask returns the subtask only if its task belongs to userID.
func (r *TaskRepository) FindSubtask(ctx context.Context, userID, subtaskID uint) (*model.Subtask, error) {
	var subtask model.Subtask
	err := r.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = subtasks.task_id").
		Where("subtasks.id = ? AND tasks.user_id = ?", subtaskID, userID).
		First(&subtask).Error
	if err != nil {
		return nil, apperr.WrapStorageReadError("subtask", err)
	}
	return &subtask, nil
}

// SetSubtaskCompleted checks or unchecks a subtask owned by userID.
func (r *TaskRepository) SetSubtaskCompleted(ctx context.Context, userID, subtaskID uint, completed bool) (*model.Subtask, error) {
	subtask, err := r.FindSubtask(ctx, userID, subtaskID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(subtask).Update("is_completed", completed).Error; err != nil {
		return nil, apperr.WrapStorageWriteError("subtask", err)
	}
	return subtask, nil
}
