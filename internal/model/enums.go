package model

// Category groups tasks by area. weekly_recurring marks a task template whose
// completion is tracked per week.
type Category string

const (
	CategoryLifeAdmin       Category = "life_admin"
	CategoryWork            Category = "work"
	CategoryWeeklyRecurring Category = "weekly_recurring"
)

var Categories = []Category{CategoryLifeAdmin, CategoryWork, CategoryWeeklyRecurring}

func (c Category) Valid() bool {
	switch c {
	case CategoryLifeAdmin, CategoryWork, CategoryWeeklyRecurring:
		return true
	}
	return false
}

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone, StatusBlocked}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusBlocked:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities for display, high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}
