package lifecycle

import (
	"context"
	"errors"
	"sort"
	"sync"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

var errInjected = errors.New("injected write failure")

// memStore is an in-memory TaskStore and CompletionStore. failMove and
// failCreate make writes for the listed task ids fail. onWeekLoad, when set,
// runs at the start of every GetTasksForWeek call.
type memStore struct {
	mu          sync.Mutex
	nextID      uint
	tasks       map[uint]model.Task
	completions map[model.CompletionKey]model.WeeklyTaskCompletion
	failMove    map[uint]bool
	failEnsure  map[uint]bool
	failCreate  map[string]bool // by title
	panicMove   map[uint]bool
	onWeekLoad  func()
}

func newMemStore() *memStore {
	return &memStore{
		nextID:      100,
		tasks:       make(map[uint]model.Task),
		completions: make(map[model.CompletionKey]model.WeeklyTaskCompletion),
		failMove:    make(map[uint]bool),
		failEnsure:  make(map[uint]bool),
		failCreate:  make(map[string]bool),
		panicMove:   make(map[uint]bool),
	}
}

func (s *memStore) put(task model.Task) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.Status == "" {
		task.Status = model.StatusTodo
	}
	if task.Category == model.CategoryWeeklyRecurring {
		task.IsRecurring = true
	}
	s.tasks[task.ID] = task
	return task
}

func (s *memStore) task(id uint) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id]
}

func (s *memStore) weekTasks(userID uint, wk week.Week) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.UserID == userID && t.Week() == wk {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) completionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completions)
}

func (s *memStore) completion(key model.CompletionKey) (model.WeeklyTaskCompletion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.completions[key]
	return c, ok
}

func (s *memStore) GetTask(_ context.Context, userID, taskID uint) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, apperr.NewError(apperr.NotFound, "task not found", nil)
	}
	return &t, nil
}

func (s *memStore) GetTasksForWeek(_ context.Context, userID uint, wk week.Week) ([]model.Task, error) {
	if s.onWeekLoad != nil {
		s.onWeekLoad()
	}
	return s.weekTasks(userID, wk), nil
}

func (s *memStore) ListRecurring(_ context.Context, userID uint, through week.Week) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.UserID == userID && t.IsRecurring && t.Week().Compare(through) <= 0 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateTask(_ context.Context, taskID uint, fields map[string]any) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, apperr.NewError(apperr.NotFound, "task not found", nil)
	}
	for k, v := range fields {
		switch k {
		case "status":
			t.Status = v.(model.Status)
		case "progress_current":
			t.ProgressCurrent = v.(int)
		}
	}
	s.tasks[taskID] = t
	return &t, nil
}

func (s *memStore) MoveTask(_ context.Context, taskID uint, from, to week.Week) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicMove[taskID] {
		panic("move exploded")
	}
	if s.failMove[taskID] {
		return false, errInjected
	}
	t, ok := s.tasks[taskID]
	if !ok {
		return false, apperr.NewError(apperr.NotFound, "task not found", nil)
	}
	if t.Week() != from {
		return false, nil
	}
	t.WeekYear, t.WeekNumber = to.Year, to.Number
	s.tasks[taskID] = t
	return true, nil
}

func (s *memStore) CreateTask(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate[task.Title] {
		return errInjected
	}
	s.nextID++
	task.ID = s.nextID
	for i := range task.Subtasks {
		task.Subtasks[i].TaskID = task.ID
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *memStore) UpsertWeeklyCompletion(_ context.Context, key model.CompletionKey, fields map[string]any) (*model.WeeklyTaskCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.completions[key]
	if !ok {
		c = model.WeeklyTaskCompletion{TaskID: key.TaskID, UserID: key.UserID, WeekYear: key.Week.Year, WeekNumber: key.Week.Number, Status: model.StatusTodo}
	}
	applyCompletionFields(&c, fields)
	s.completions[key] = c
	return &c, nil
}

func (s *memStore) EnsureWeeklyCompletion(_ context.Context, key model.CompletionKey, fields map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failEnsure[key.TaskID] {
		return false, errInjected
	}
	if _, ok := s.completions[key]; ok {
		return false, nil
	}
	c := model.WeeklyTaskCompletion{TaskID: key.TaskID, UserID: key.UserID, WeekYear: key.Week.Year, WeekNumber: key.Week.Number}
	applyCompletionFields(&c, fields)
	s.completions[key] = c
	return true, nil
}

func (s *memStore) GetWeeklyCompletion(_ context.Context, key model.CompletionKey) (*model.WeeklyTaskCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.completions[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func applyCompletionFields(c *model.WeeklyTaskCompletion, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "status":
			c.Status = v.(model.Status)
		case "progress_current":
			c.ProgressCurrent = v.(int)
		}
	}
}
