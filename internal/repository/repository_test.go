package repository

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/lifecycle"
	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

var (
	w10 = week.Week{Year: 2025, Number: 10}
	w11 = week.Week{Year: 2025, Number: 11}
)

var (
	_ lifecycle.TaskStore       = (*TaskRepository)(nil)
	_ lifecycle.CompletionStore = (*CompletionRepository)(nil)
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := NewDB("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user, err := NewUserRepository(db).UpsertFromTelegram(context.Background(), 1001, "Ada", "", "ada")
	require.NoError(t, err)
	return user
}

func TestIsPostgresDSN(t *testing.T) {
	assert.True(t, isPostgresDSN("postgres://planner@localhost/planner"))
	assert.True(t, isPostgresDSN("host=localhost user=planner dbname=planner"))
	assert.False(t, isPostgresDSN("data/weekly_planner.db"))
	assert.False(t, isPostgresDSN("file:test?mode=memory&cache=shared"))
}

func TestTaskRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	repo := NewTaskRepository(db)

	task := &model.Task{
		UserID:     user.ID,
		Title:      "Gym",
		Category:   model.CategoryWeeklyRecurring,
		WeekYear:   w10.Year,
		WeekNumber: w10.Number,
		Subtasks: []model.Subtask{
			{Title: "second", Weight: 2, Position: 1},
			{Title: "first", Weight: 1, Position: 0},
		},
	}
	require.NoError(t, repo.CreateTask(ctx, task))
	require.NotZero(t, task.ID)

	got, err := repo.GetTask(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRecurring, "weekly_recurring category implies the flag")
	assert.Equal(t, model.StatusTodo, got.Status)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	require.Len(t, got.Subtasks, 2)
	assert.Equal(t, "first", got.Subtasks[0].Title)
	assert.Equal(t, "second", got.Subtasks[1].Title)

	_, err = repo.GetTask(ctx, user.ID+1, task.ID)
	assert.True(t, apperr.IsCode(err, apperr.NotFound))
}

func TestTaskRepositoryWeekQueries(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	repo := NewTaskRepository(db)

	seed := []model.Task{
		{UserID: user.ID, Title: "plain w10", WeekYear: 2025, WeekNumber: 10},
		{UserID: user.ID, Title: "plain w11", WeekYear: 2025, WeekNumber: 11},
		{UserID: user.ID, Title: "recurring 2024", Category: model.CategoryWeeklyRecurring, WeekYear: 2024, WeekNumber: 52},
		{UserID: user.ID, Title: "recurring w10", IsRecurring: true, WeekYear: 2025, WeekNumber: 10},
		{UserID: user.ID, Title: "recurring w12", IsRecurring: true, WeekYear: 2025, WeekNumber: 12},
	}
	for i := range seed {
		require.NoError(t, repo.CreateTask(ctx, &seed[i]))
	}

	inWeek, err := repo.GetTasksForWeek(ctx, user.ID, w10)
	require.NoError(t, err)
	titles := make([]string, 0, len(inWeek))
	for _, task := range inWeek {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"plain w10", "recurring w10"}, titles)

	recurring, err := repo.ListRecurring(ctx, user.ID, w11)
	require.NoError(t, err)
	titles = titles[:0]
	for _, task := range recurring {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"recurring 2024", "recurring w10"}, titles)
}

func TestTaskRepositoryMoveTask(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	repo := NewTaskRepository(db)

	task := &model.Task{UserID: user.ID, Title: "report", WeekYear: w10.Year, WeekNumber: w10.Number}
	require.NoError(t, repo.CreateTask(ctx, task))

	moved, err := repo.MoveTask(ctx, task.ID, w10, w11)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.MoveTask(ctx, task.ID, w10, w11)
	require.NoError(t, err)
	assert.False(t, moved, "a task that already left the source week is not moved again")

	got, err := repo.GetTask(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, w11, got.Week())

	_, err = repo.MoveTask(ctx, 999, w10, w11)
	assert.True(t, apperr.IsCode(err, apperr.NotFound))
}

func TestTaskRepositoryUpdateTask(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	repo := NewTaskRepository(db)

	task := &model.Task{UserID: user.ID, Title: "taxes", WeekYear: w10.Year, WeekNumber: w10.Number}
	require.NoError(t, repo.CreateTask(ctx, task))

	got, err := repo.UpdateTask(ctx, task.ID, map[string]any{"status": model.StatusBlocked, "progress_current": 3})
	require.NoError(t, err)
	assert.Equal(t, model.StatusBlocked, got.Status)
	assert.Equal(t, 3, got.ProgressCurrent)

	_, err = repo.UpdateTask(ctx, 999, map[string]any{"status": model.StatusDone})
	assert.True(t, apperr.IsCode(err, apperr.NotFound))
}

func TestTaskRepositorySubtasks(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	repo := NewTaskRepository(db)

	task := &model.Task{UserID: user.ID, Title: "move flat", WeekYear: w10.Year, WeekNumber: w10.Number}
	require.NoError(t, repo.CreateTask(ctx, task))

	first, err := repo.AddSubtask(ctx, task.ID, "pack", 3)
	require.NoError(t, err)
	second, err := repo.AddSubtask(ctx, task.ID, "clean", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)

	_, err = repo.AddSubtask(ctx, task.ID, "heavy", 11)
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
	_, err = repo.AddSubtask(ctx, task.ID, "weightless", 0)
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))

	checked, err := repo.SetSubtaskCompleted(ctx, user.ID, first.ID, true)
	require.NoError(t, err)
	assert.True(t, checked.IsCompleted)

	_, err = repo.SetSubtaskCompleted(ctx, user.ID+1, first.ID, true)
	assert.True(t, apperr.IsCode(err, apperr.NotFound), "subtasks of other users are invisible")

	got, err := repo.GetTask(ctx, user.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, got.Subtasks, 2)
	assert.True(t, got.Subtasks[0].IsCompleted)
	assert.False(t, got.Subtasks[1].IsCompleted)
}

func TestTaskRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	repo := NewTaskRepository(db)
	completions := NewCompletionRepository(db)
	updates := NewUpdateRepository(db)

	task := &model.Task{UserID: user.ID, Title: "gym", IsRecurring: true, WeekYear: w10.Year, WeekNumber: w10.Number,
		Subtasks: []model.Subtask{{Title: "warm up"}}}
	require.NoError(t, repo.CreateTask(ctx, task))
	key := model.CompletionKey{TaskID: task.ID, UserID: user.ID, Week: w11}
	_, err := completions.UpsertWeeklyCompletion(ctx, key, map[string]any{"status": model.StatusDone})
	require.NoError(t, err)
	require.NoError(t, updates.Append(ctx, &model.TaskUpdate{TaskID: task.ID, Text: "started"}))

	assert.True(t, apperr.IsCode(repo.Delete(ctx, user.ID+1, task.ID), apperr.NotFound))
	require.NoError(t, repo.Delete(ctx, user.ID, task.ID))

	_, err = repo.GetTask(ctx, user.ID, task.ID)
	assert.True(t, apperr.IsCode(err, apperr.NotFound))
	c, err := completions.GetWeeklyCompletion(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, c)
	log, err := updates.ListByTask(ctx, task.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, log)
	var subtasks int64
	require.NoError(t, db.Model(&model.Subtask{}).Where("task_id = ?", task.ID).Count(&subtasks).Error)
	assert.Zero(t, subtasks)
}

func TestCompletionRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewCompletionRepository(db)
	key := model.CompletionKey{TaskID: 4, UserID: 7, Week: w11}

	absent, err := repo.GetWeeklyCompletion(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, absent)

	c, err := repo.UpsertWeeklyCompletion(ctx, key, map[string]any{"status": model.StatusInProgress, "progress_current": 2})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, c.Status)
	assert.Equal(t, 2, c.ProgressCurrent)

	c, err = repo.UpsertWeeklyCompletion(ctx, key, map[string]any{"status": model.StatusDone})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, c.Status)
	assert.Equal(t, 2, c.ProgressCurrent, "fields not named are left alone")

	var rows int64
	require.NoError(t, db.Model(&model.WeeklyTaskCompletion{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	_, err = repo.UpsertWeeklyCompletion(ctx, key, map[string]any{"title": "x"})
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
	_, err = repo.UpsertWeeklyCompletion(ctx, key, map[string]any{"status": model.Status("paused")})
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
}

func TestCompletionRepositoryEnsureKeepsExistingRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewCompletionRepository(db)
	key := model.CompletionKey{TaskID: 4, UserID: 7, Week: w11}
	reset := map[string]any{"status": model.StatusTodo, "progress_current": 0}

	created, err := repo.EnsureWeeklyCompletion(ctx, key, reset)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = repo.UpsertWeeklyCompletion(ctx, key, map[string]any{"status": model.StatusDone})
	require.NoError(t, err)

	created, err = repo.EnsureWeeklyCompletion(ctx, key, reset)
	require.NoError(t, err)
	assert.False(t, created)

	c, err := repo.GetWeeklyCompletion(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, model.StatusDone, c.Status)

	byTask, err := repo.ListForWeek(ctx, 7, w11)
	require.NoError(t, err)
	assert.Len(t, byTask, 1)
	assert.Equal(t, model.StatusDone, byTask[4].Status)
}

func TestCompletionRepositoryConcurrentWritesOnOneKey(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := NewCompletionRepository(db)
	key := model.CompletionKey{TaskID: 4, UserID: 7, Week: w11}

	const writers = 32
	var (
		g       errgroup.Group
		created atomic.Int32
	)
	for i := 0; i < writers; i++ {
		if i%2 == 0 {
			g.Go(func() error {
				ok, err := repo.EnsureWeeklyCompletion(ctx, key, map[string]any{"status": model.StatusTodo, "progress_current": 0})
				if ok {
					created.Add(1)
				}
				return err
			})
			continue
		}
		g.Go(func() error {
			_, err := repo.UpsertWeeklyCompletion(ctx, key, map[string]any{"status": model.StatusDone})
			return err
		})
	}
	require.NoError(t, g.Wait())

	var rows int64
	require.NoError(t, db.Model(&model.WeeklyTaskCompletion{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
	assert.LessOrEqual(t, created.Load(), int32(1))

	c, err := repo.GetWeeklyCompletion(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, model.StatusDone, c.Status, "ensure never overwrites an upserted status")
}

func TestCompletionKeyIncludesYear(t *testing.T) {
	ctx := context.Background()
	repo := NewCompletionRepository(newTestDB(t))

	_, err := repo.UpsertWeeklyCompletion(ctx, model.CompletionKey{TaskID: 1, UserID: 7, Week: week.Week{Year: 2024, Number: 10}},
		map[string]any{"status": model.StatusDone})
	require.NoError(t, err)

	c, err := repo.GetWeeklyCompletion(ctx, model.CompletionKey{TaskID: 1, UserID: 7, Week: w10})
	require.NoError(t, err)
	assert.Nil(t, c, "the same week number of another year is a different row")
}

func TestUserRepositoryUpsertFromTelegram(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	first, err := repo.UpsertFromTelegram(ctx, 42, "Ada", "", "ada")
	require.NoError(t, err)
	second, err := repo.UpsertFromTelegram(ctx, 42, "Ada", "Lovelace", "ada")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Lovelace", second.LastName)

	users, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = repo.FindByTelegramID(ctx, 43)
	assert.True(t, apperr.IsCode(err, apperr.NotFound))
}

func TestUpdateRepositoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewUpdateRepository(newTestDB(t))

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Append(ctx, &model.TaskUpdate{TaskID: 1, Text: text}))
	}
	log, err := repo.ListByTask(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "three", log[0].Text)
	assert.Equal(t, "two", log[1].Text)
}

func TestEngineOverSQLite(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	tasks := NewTaskRepository(db)
	completions := NewCompletionRepository(db)
	engine := lifecycle.New(tasks, completions)

	seed := []model.Task{
		{UserID: user.ID, Title: "A", Status: model.StatusTodo},
		{UserID: user.ID, Title: "B", Status: model.StatusInProgress, ProgressCurrent: 2},
		{UserID: user.ID, Title: "C", Status: model.StatusDone},
		{UserID: user.ID, Title: "D", Category: model.CategoryWeeklyRecurring},
	}
	for i := range seed {
		seed[i].WeekYear, seed[i].WeekNumber = w10.Year, w10.Number
		require.NoError(t, tasks.CreateTask(ctx, &seed[i]))
	}

	report, err := engine.RolloverWeek(ctx, user.ID, w10, w11)
	require.NoError(t, err)
	assert.Len(t, report.Moved, 2)
	assert.Len(t, report.Reinstanced, 1)

	_, err = engine.AdvanceStatus(ctx, user.ID, seed[3].ID, w11)
	require.NoError(t, err)

	again, err := engine.RolloverWeek(ctx, user.ID, w10, w11)
	require.NoError(t, err)
	assert.Empty(t, again.Moved)

	c, err := completions.GetWeeklyCompletion(ctx, model.CompletionKey{TaskID: seed[3].ID, UserID: user.ID, Week: w11})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, model.StatusInProgress, c.Status, "a rerun does not reset the advanced week")

	inW11, err := tasks.GetTasksForWeek(ctx, user.ID, w11)
	require.NoError(t, err)
	assert.Len(t, inW11, 2)
	template, err := tasks.GetTask(ctx, user.ID, seed[3].ID)
	require.NoError(t, err)
	assert.Equal(t, w10, template.Week())
	assert.Equal(t, model.StatusTodo, template.Status, "recurring status lives in the completion row")
}
