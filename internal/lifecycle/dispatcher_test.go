package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

var w10 = week.Week{Year: 2025, Number: 10}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, model.StatusInProgress, NextStatus(model.StatusTodo))
	assert.Equal(t, model.StatusDone, NextStatus(model.StatusInProgress))
	assert.Equal(t, model.StatusTodo, NextStatus(model.StatusDone))
	assert.Equal(t, model.StatusTodo, NextStatus(model.StatusBlocked))

	s := model.StatusTodo
	for i := 0; i < 30; i++ {
		s = NextStatus(s)
		assert.NotEqual(t, model.StatusBlocked, s)
	}
}

func TestResolveStatusTarget(t *testing.T) {
	plain := model.Task{ID: 1, UserID: 7, Category: model.CategoryWork}
	target := ResolveStatusTarget(plain, w10)
	assert.Equal(t, TargetTask, target.Kind)
	assert.Equal(t, uint(1), target.TaskID)

	recurring := model.Task{ID: 2, UserID: 7, Category: model.CategoryWeeklyRecurring}
	target = ResolveStatusTarget(recurring, w10)
	assert.Equal(t, TargetCompletion, target.Kind)
	assert.Equal(t, model.CompletionKey{TaskID: 2, UserID: 7, Week: w10}, target.CompletionKey())

	flagged := model.Task{ID: 3, UserID: 7, Category: model.CategoryLifeAdmin, IsRecurring: true}
	assert.Equal(t, TargetCompletion, ResolveStatusTarget(flagged, w10).Kind)
}

func TestAdvanceStatusPlainTask(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.put(model.Task{ID: 1, UserID: 7, Category: model.CategoryWork, WeekYear: 2025, WeekNumber: 10})
	engine := New(store, store)

	want := []model.Status{model.StatusInProgress, model.StatusDone, model.StatusTodo}
	for _, status := range want {
		res, err := engine.AdvanceStatus(ctx, 7, 1, w10)
		require.NoError(t, err)
		assert.Equal(t, TargetTask, res.Kind)
		assert.Equal(t, status, res.Status())
		assert.Equal(t, status, store.task(1).Status)
	}
	assert.Zero(t, store.completionCount())
}

func TestSetStatusRecurringWritesCompletionOnly(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.put(model.Task{ID: 4, UserID: 7, Category: model.CategoryWeeklyRecurring, Status: model.StatusTodo, WeekYear: 2025, WeekNumber: 8})
	engine := New(store, store)

	res, err := engine.SetStatus(ctx, 7, 4, model.StatusDone, w10)
	require.NoError(t, err)
	assert.Equal(t, TargetCompletion, res.Kind)
	require.NotNil(t, res.Completion)
	assert.Equal(t, model.StatusDone, res.Completion.Status)
	assert.Equal(t, w10, res.Completion.Week())

	assert.Equal(t, model.StatusTodo, store.task(4).Status, "template status must not change")

	// a second write for the same week updates the same row
	_, err = engine.SetStatus(ctx, 7, 4, model.StatusBlocked, w10)
	require.NoError(t, err)
	assert.Equal(t, 1, store.completionCount())
	c, ok := store.completion(model.CompletionKey{TaskID: 4, UserID: 7, Week: w10})
	require.True(t, ok)
	assert.Equal(t, model.StatusBlocked, c.Status)

	// another week gets its own row
	_, err = engine.SetStatus(ctx, 7, 4, model.StatusInProgress, w10.Next())
	require.NoError(t, err)
	assert.Equal(t, 2, store.completionCount())
	assert.Equal(t, model.StatusTodo, store.task(4).Status)
}

func TestAdvanceStatusRecurringUsesWeekState(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.put(model.Task{ID: 4, UserID: 7, Category: model.CategoryWeeklyRecurring, Status: model.StatusTodo, WeekYear: 2025, WeekNumber: 10})
	engine := New(store, store)

	res, err := engine.AdvanceStatus(ctx, 7, 4, w10)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, res.Status())

	res, err = engine.AdvanceStatus(ctx, 7, 4, w10)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, res.Status())

	// week 11 has no completion yet and starts from the template's status
	res, err = engine.AdvanceStatus(ctx, 7, 4, w10.Next())
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, res.Status())
	assert.Equal(t, model.StatusTodo, store.task(4).Status)
}

func TestDispatchErrors(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.put(model.Task{ID: 1, UserID: 7, WeekYear: 2025, WeekNumber: 10})
	engine := New(store, store)

	_, err := engine.AdvanceStatus(ctx, 7, 99, w10)
	assert.True(t, apperr.IsCode(err, apperr.NotFound))

	_, err = engine.SetStatus(ctx, 8, 1, model.StatusDone, w10)
	assert.True(t, apperr.IsCode(err, apperr.NotFound), "other users' tasks do not resolve")

	_, err = engine.SetStatus(ctx, 7, 1, model.Status("archived"), w10)
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
}

func TestEffective(t *testing.T) {
	task := model.Task{ID: 4, Category: model.CategoryWeeklyRecurring, Status: model.StatusTodo}
	got := Effective(task, &model.WeeklyTaskCompletion{Status: model.StatusDone, ProgressCurrent: 3})
	assert.Equal(t, model.StatusDone, got.Status)
	assert.Equal(t, 3, got.ProgressCurrent)

	assert.Equal(t, model.StatusTodo, Effective(task, nil).Status)

	plain := model.Task{ID: 1, Status: model.StatusInProgress}
	assert.Equal(t, model.StatusInProgress, Effective(plain, &model.WeeklyTaskCompletion{Status: model.StatusDone}).Status)
}
