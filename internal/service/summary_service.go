package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"weekly-planner/internal/lifecycle"
	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

// SummaryService builds the human-readable weekly overview.
type SummaryService struct {
	tasks *TaskService
}

func NewSummaryService(tasks *TaskService) *SummaryService {
	return &SummaryService{tasks: tasks}
}

// WeeklySummary renders wk for user as Telegram HTML.
func (s *SummaryService) WeeklySummary(ctx context.Context, user *model.User, wk week.Week) (string, error) {
	views, err := s.tasks.ListWeek(ctx, user, wk)
	if err != nil {
		return "", err
	}

	var plain, recurring []TaskView
	done, total := 0, 0
	for _, v := range views {
		if v.Target == lifecycle.TargetCompletion {
			recurring = append(recurring, v)
		} else {
			plain = append(plain, v)
		}
		total += v.Progress
		if v.Task.Status == model.StatusDone {
			done++
		}
	}

	monday := wk.Monday()
	now := s.tasks.now().In(s.tasks.loc)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Week %s</b>\n", wk))
	builder.WriteString(fmt.Sprintf("🗓 %s – %s\n", monday.Format("02.01.2006"), monday.AddDate(0, 0, 6).Format("02.01.2006")))
	if len(views) > 0 {
		builder.WriteString(fmt.Sprintf("✅ %d/%d done · ⌀ %d%%\n", done, len(views), total/len(views)))
	}

	builder.WriteString("\n🔥 <b>Tasks</b>\n")
	if len(plain) == 0 {
		builder.WriteString("— nothing planned\n")
	} else {
		for _, v := range plain {
			builder.WriteString(formatTask(v, now))
		}
	}

	builder.WriteString("\n♻️ <b>Recurring</b>\n")
	if len(recurring) == 0 {
		builder.WriteString("— no recurring tasks\n")
	} else {
		for _, v := range recurring {
			builder.WriteString(formatTask(v, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

var statusIcons = map[model.Status]string{
	model.StatusTodo:       "⚪",
	model.StatusInProgress: "🟡",
	model.StatusDone:       "🟢",
	model.StatusBlocked:    "⛔",
}

func formatTask(v TaskView, now time.Time) string {
	task := v.Task
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s #%d %s", statusIcons[task.Status], task.ID, html.EscapeString(strings.TrimSpace(task.Title))))
	sb.WriteString(fmt.Sprintf(" <i>(%s, %s)</i> %d%%", task.Category, task.Priority, v.Progress))

	if task.DueDate != nil && task.Status != model.StatusDone {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, <b>overdue</b>", d.Format("2006-01-02")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · ≈%d d left", d.Format("2006-01-02"), daysLeft))
		}
	}

	if len(task.Subtasks) > 0 {
		checked := 0
		for _, st := range task.Subtasks {
			if st.IsCompleted {
				checked++
			}
		}
		sb.WriteString(fmt.Sprintf("\n   ☑️ %d/%d subtasks", checked, len(task.Subtasks)))
	}

	sb.WriteByte('\n')
	return sb.String()
}
