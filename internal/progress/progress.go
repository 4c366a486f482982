// Package progress projects a task onto a completion percentage.
package progress

import (
	"math"

	"weekly-planner/internal/model"
)

// Compute returns the task's completion percentage in [0,100].
//
// Subtasks win when AutoProgress is on (weighted or by count), then explicit
// ProgressCurrent/ProgressTotal counters, then a fixed mapping from status.
func Compute(task model.Task) int {
	if len(task.Subtasks) > 0 && task.AutoProgress {
		if task.WeightedProgress {
			return weighted(task.Subtasks)
		}
		completed := 0
		for _, st := range task.Subtasks {
			if st.IsCompleted {
				completed++
			}
		}
		return percent(completed, len(task.Subtasks))
	}

	if task.ProgressTotal != nil {
		if *task.ProgressTotal <= 0 {
			return 0
		}
		return percent(task.ProgressCurrent, *task.ProgressTotal)
	}

	return StatusPercent(task.Status)
}

// StatusPercent is the fallback used when a task has nothing to count.
func StatusPercent(status model.Status) int {
	switch status {
	case model.StatusInProgress:
		return 50
	case model.StatusBlocked:
		return 25
	case model.StatusDone:
		return 100
	default:
		return 0
	}
}

// EffectiveWeight reads an unset weight as 1.
func EffectiveWeight(st model.Subtask) int {
	if st.Weight < model.MinSubtaskWeight {
		return model.MinSubtaskWeight
	}
	return st.Weight
}

func weighted(subtasks []model.Subtask) int {
	var done, total int
	for _, st := range subtasks {
		w := EffectiveWeight(st)
		total += w
		if st.IsCompleted {
			done += w
		}
	}
	return percent(done, total)
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	value := int(math.Round(100 * float64(part) / float64(whole)))
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	}
	return value
}
