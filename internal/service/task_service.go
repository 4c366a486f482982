package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/lifecycle"
	"weekly-planner/internal/model"
	"weekly-planner/internal/repository"
	"weekly-planner/internal/week"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title            string
	Description      string
	Category         model.Category
	Priority         model.Priority
	DueDate          *time.Time
	IsRecurring      bool
	ProgressTotal    *int
	AutoProgress     bool
	WeightedProgress bool
	// Week defaults to the current week.
	Week week.Week
}

// TaskView is a task as seen in one week: recurring tasks carry that week's
// status and progress counter.
type TaskView struct {
	Task     model.Task
	Progress int
	Target   lifecycle.TargetKind
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks       *repository.TaskRepository
	completions *repository.CompletionRepository
	updates     *repository.UpdateRepository
	engine      *lifecycle.Engine
	loc         *time.Location
	now         func() time.Time
}

func NewTaskService(
	tasks *repository.TaskRepository,
	completions *repository.CompletionRepository,
	updates *repository.UpdateRepository,
	engine *lifecycle.Engine,
	loc *time.Location,
) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{
		tasks:       tasks,
		completions: completions,
		updates:     updates,
		engine:      engine,
		loc:         loc,
		now:         time.Now,
	}
}

// CurrentWeek is the ISO week of the service clock in the configured timezone.
func (s *TaskService) CurrentWeek() week.Week {
	return week.Of(s.now().In(s.loc))
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.NewError(apperr.InvalidArgument, "title is required", nil)
	}
	if input.Category == "" {
		input.Category = model.CategoryLifeAdmin
	}
	if !input.Category.Valid() {
		return nil, apperr.NewError(apperr.InvalidArgument, fmt.Sprintf("unknown category %q", input.Category), nil)
	}
	if input.Priority == "" {
		input.Priority = model.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperr.NewError(apperr.InvalidArgument, fmt.Sprintf("unknown priority %q", input.Priority), nil)
	}
	if input.ProgressTotal != nil && *input.ProgressTotal < 0 {
		return nil, apperr.NewError(apperr.InvalidArgument, "progress total must not be negative", nil)
	}
	wk := input.Week
	if wk.IsZero() {
		wk = s.CurrentWeek()
	}
	if !wk.Valid() {
		return nil, apperr.NewError(apperr.InvalidDate, fmt.Sprintf("invalid week %s", wk), nil)
	}

	task := model.Task{
		UserID:           user.ID,
		Category:         input.Category,
		Title:            title,
		Description:      strings.TrimSpace(input.Description),
		Status:           model.StatusTodo,
		Priority:         input.Priority,
		DueDate:          input.DueDate,
		IsRecurring:      input.IsRecurring,
		ProgressTotal:    input.ProgressTotal,
		AutoProgress:     input.AutoProgress,
		WeightedProgress: input.WeightedProgress,
		WeekYear:         wk.Year,
		WeekNumber:       wk.Number,
	}
	if err := s.tasks.CreateTask(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListWeek returns the plain tasks of wk followed by every recurring task
// that exists by then, each with its effective status for wk.
func (s *TaskService) ListWeek(ctx context.Context, user *model.User, wk week.Week) ([]TaskView, error) {
	inWeek, err := s.tasks.GetTasksForWeek(ctx, user.ID, wk)
	if err != nil {
		return nil, err
	}
	recurring, err := s.tasks.ListRecurring(ctx, user.ID, wk)
	if err != nil {
		return nil, err
	}
	completions, err := s.completions.ListForWeek(ctx, user.ID, wk)
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(inWeek)+len(recurring))
	for _, task := range inWeek {
		if task.Recurring() {
			continue
		}
		views = append(views, s.view(task, nil, wk))
	}
	sortViews(views)

	recurringViews := make([]TaskView, 0, len(recurring))
	for _, task := range recurring {
		var completion *model.WeeklyTaskCompletion
		if c, ok := completions[task.ID]; ok {
			completion = &c
		}
		recurringViews = append(recurringViews, s.view(task, completion, wk))
	}
	sortViews(recurringViews)

	return append(views, recurringViews...), nil
}

// GetTaskView returns one task as seen in the current week.
func (s *TaskService) GetTaskView(ctx context.Context, user *model.User, taskID uint) (*TaskView, error) {
	task, err := s.tasks.GetTask(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}
	wk := s.CurrentWeek()
	var completion *model.WeeklyTaskCompletion
	if task.Recurring() {
		completion, err = s.completions.GetWeeklyCompletion(ctx, model.CompletionKey{TaskID: task.ID, UserID: user.ID, Week: wk})
		if err != nil {
			return nil, err
		}
	}
	view := s.view(*task, completion, wk)
	return &view, nil
}

func (s *TaskService) view(task model.Task, completion *model.WeeklyTaskCompletion, wk week.Week) TaskView {
	effective := lifecycle.Effective(task, completion)
	return TaskView{
		Task:     effective,
		Progress: s.engine.ComputeProgress(effective),
		Target:   lifecycle.ResolveStatusTarget(task, wk).Kind,
	}
}

// sortViews orders open work first, then by priority and due date.
func sortViews(views []TaskView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].Task, views[j].Task
		if (a.Status == model.StatusDone) != (b.Status == model.StatusDone) {
			return b.Status == model.StatusDone
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return a.ID < b.ID
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		default:
			return a.DueDate.Before(*b.DueDate)
		}
	})
}

// Advance moves the task one step along the status cycle in the current week.
func (s *TaskService) Advance(ctx context.Context, user *model.User, taskID uint) (*lifecycle.DispatchResult, error) {
	return s.engine.AdvanceStatus(ctx, user.ID, taskID, s.CurrentWeek())
}

func (s *TaskService) SetStatus(ctx context.Context, user *model.User, taskID uint, status model.Status) (*lifecycle.DispatchResult, error) {
	return s.engine.SetStatus(ctx, user.ID, taskID, status, s.CurrentWeek())
}

// AddSubtask appends a checklist item. The first subtask of a task without
// an explicit total switches the task to subtask-driven progress.
func (s *TaskService) AddSubtask(ctx context.Context, user *model.User, taskID uint, title string, weight int) (*model.Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.NewError(apperr.InvalidArgument, "subtask title is required", nil)
	}
	task, err := s.tasks.GetTask(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}
	subtask, err := s.tasks.AddSubtask(ctx, task.ID, title, weight)
	if err != nil {
		return nil, err
	}
	if len(task.Subtasks) == 0 && !task.AutoProgress && task.ProgressTotal == nil {
		fields := map[string]any{"auto_progress": true, "weighted_progress": weight != model.MinSubtaskWeight}
		if _, err := s.tasks.UpdateTask(ctx, task.ID, fields); err != nil {
			return nil, err
		}
	} else if task.AutoProgress && !task.WeightedProgress && weight != model.MinSubtaskWeight {
		if _, err := s.tasks.UpdateTask(ctx, task.ID, map[string]any{"weighted_progress": true}); err != nil {
			return nil, err
		}
	}
	return subtask, nil
}

// ToggleSubtask flips the completion of a subtask.
func (s *TaskService) ToggleSubtask(ctx context.Context, user *model.User, subtaskID uint) (*model.Subtask, error) {
	subtask, err := s.tasks.FindSubtask(ctx, user.ID, subtaskID)
	if err != nil {
		return nil, err
	}
	return s.tasks.SetSubtaskCompleted(ctx, user.ID, subtaskID, !subtask.IsCompleted)
}

// SetProgress records the explicit counter. For recurring tasks current is
// stored for the current week only; total always lives on the task.
func (s *TaskService) SetProgress(ctx context.Context, user *model.User, taskID uint, current int, total *int) (*TaskView, error) {
	if current < 0 {
		return nil, apperr.NewError(apperr.InvalidArgument, "progress must not be negative", nil)
	}
	if total != nil && *total < 0 {
		return nil, apperr.NewError(apperr.InvalidArgument, "progress total must not be negative", nil)
	}
	task, err := s.tasks.GetTask(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if total != nil {
		fields["progress_total"] = *total
	}
	if task.Recurring() {
		key := model.CompletionKey{TaskID: task.ID, UserID: user.ID, Week: s.CurrentWeek()}
		if _, err := s.completions.UpsertWeeklyCompletion(ctx, key, map[string]any{"progress_current": current}); err != nil {
			return nil, err
		}
	} else {
		fields["progress_current"] = current
	}
	if len(fields) > 0 {
		if _, err := s.tasks.UpdateTask(ctx, task.ID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetTaskView(ctx, user, taskID)
}

// AddNote appends an activity entry carrying the progress at that moment.
func (s *TaskService) AddNote(ctx context.Context, user *model.User, taskID uint, text string) (*model.TaskUpdate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.NewError(apperr.InvalidArgument, "note text is required", nil)
	}
	view, err := s.GetTaskView(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	progress := view.Progress
	update := model.TaskUpdate{TaskID: taskID, Text: text, ProgressValue: &progress}
	if err := s.updates.Append(ctx, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

func (s *TaskService) ListNotes(ctx context.Context, user *model.User, taskID uint, limit int) ([]model.TaskUpdate, error) {
	if _, err := s.tasks.GetTask(ctx, user.ID, taskID); err != nil {
		return nil, err
	}
	return s.updates.ListByTask(ctx, taskID, limit)
}

// DeleteTask removes a task completely (for both one-time and recurring tasks).
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) error {
	return s.tasks.Delete(ctx, user.ID, taskID)
}

// Migrate pulls unfinished work from an older week into the current one.
func (s *TaskService) Migrate(ctx context.Context, user *model.User, from week.Week) (*lifecycle.MigrationReport, error) {
	return s.engine.MigrateWeek(ctx, user.ID, from, s.CurrentWeek())
}

// Rollover carries the previous week into the current one for user.
func (s *TaskService) Rollover(ctx context.Context, user *model.User) (*lifecycle.RolloverReport, error) {
	current := s.CurrentWeek()
	return s.engine.RolloverWeek(ctx, user.ID, current.Prev(), current)
}
