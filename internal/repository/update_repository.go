package repository

import (
	"context"

	"gorm.io/gorm"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/model"
)

// UpdateRepository keeps the append-only task activity log.
type UpdateRepository struct {
	db *gorm.DB
}

func NewUpdateRepository(db *gorm.DB) *UpdateRepository {
	return &UpdateRepository{db: db}
}

func (r *UpdateRepository) Append(ctx context.Context, update *model.TaskUpdate) error {
	if err := r.db.WithContext(ctx).Create(update).Error; err != nil {
		return apperr.WrapStorageWriteError("task update", err)
	}
	return nil
}

// ListByTask returns the newest entries first; limit <= 0 means all.
func (r *UpdateRepository) ListByTask(ctx context.Context, taskID uint, limit int) ([]model.TaskUpdate, error) {
	q := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var updates []model.TaskUpdate
	if err := q.Find(&updates).Error; err != nil {
		return nil, apperr.WrapStorageReadError("task updates", err)
	}
	return updates, nil
}
