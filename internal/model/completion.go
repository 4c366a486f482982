package model

import (
	"time"

	"weekly-planner/internal/week"
)

// WeeklyTaskCompletion is the per-week state of a recurring task. The
// (task, user, year, week) tuple is unique; writes must upsert on it.
type WeeklyTaskCompletion struct {
	ID              uint   `gorm:"primaryKey"`
	TaskID          uint   `gorm:"uniqueIndex:idx_completion_key,priority:1"`
	UserID          uint   `gorm:"uniqueIndex:idx_completion_key,priority:2;index"`
	WeekYear        int    `gorm:"uniqueIndex:idx_completion_key,priority:3"`
	WeekNumber      int    `gorm:"uniqueIndex:idx_completion_key,priority:4"`
	Status          Status `gorm:"size:16;default:todo"`
	ProgressCurrent int    `gorm:"default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (c WeeklyTaskCompletion) Week() week.Week {
	return week.Week{Year: c.WeekYear, Number: c.WeekNumber}
}

// CompletionKey is the uniqueness tuple of WeeklyTaskCompletion.
type CompletionKey struct {
	TaskID uint
	UserID uint
	Week   week.Week
}

func (c WeeklyTaskCompletion) Key() CompletionKey {
	return CompletionKey{TaskID: c.TaskID, UserID: c.UserID, Week: c.Week()}
}
