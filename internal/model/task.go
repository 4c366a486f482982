package model

import (
	"time"

	"gorm.io/gorm"

	"weekly-planner/internal/week"
)

// Task represents a single item in the planner. Plain tasks live in exactly
// one week; recurring tasks are templates whose weekly state is stored in
// WeeklyTaskCompletion.
type Task struct {
	ID               uint     `gorm:"primaryKey"`
	UserID           uint     `gorm:"index;index:idx_task_user_week,priority:1"`
	Category         Category `gorm:"size:32;default:life_admin"`
	Title            string   `gorm:"not null"`
	Description      string
	Status           Status   `gorm:"size:16;default:todo"`
	Priority         Priority `gorm:"size:16;default:medium"`
	DueDate          *time.Time
	IsRecurring      bool `gorm:"default:false"`
	ProgressCurrent  int  `gorm:"default:0"`
	ProgressTotal    *int
	WeekYear         int  `gorm:"index:idx_task_user_week,priority:2"`
	WeekNumber       int  `gorm:"index:idx_task_user_week,priority:3"`
	AutoProgress     bool `gorm:"default:false"`
	WeightedProgress bool `gorm:"default:false"`
	Subtasks         []Subtask    `gorm:"foreignKey:TaskID"`
	Updates          []TaskUpdate `gorm:"foreignKey:TaskID"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (t Task) Week() week.Week {
	return week.Week{Year: t.WeekYear, Number: t.WeekNumber}
}

// Recurring reports whether the task is a weekly template, by flag or by category.
func (t Task) Recurring() bool {
	return t.IsRecurring || t.Category == CategoryWeeklyRecurring
}

// BeforeCreate keeps the recurring flag and the category in agreement.
func (t *Task) BeforeCreate(_ *gorm.DB) error {
	if t.Category == CategoryWeeklyRecurring {
		t.IsRecurring = true
	}
	return nil
}

// Subtask is a checklist item of a Task. Position only orders display.
type Subtask struct {
	ID          uint   `gorm:"primaryKey"`
	TaskID      uint   `gorm:"index"`
	Title       string `gorm:"not null"`
	IsCompleted bool   `gorm:"default:false"`
	Weight      int    `gorm:"default:1"`
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	MinSubtaskWeight = 1
	MaxSubtaskWeight = 10
)

// TaskUpdate is an append-only activity log entry.
type TaskUpdate struct {
	ID            uint   `gorm:"primaryKey"`
	TaskID        uint   `gorm:"index"`
	Text          string `gorm:"not null"`
	ProgressValue *int
	CreatedAt     time.Time
}
