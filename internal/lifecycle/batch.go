package lifecycle

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"weekly-planner/internal/model"
)

type itemResult struct {
	ref     TaskRef
	applied bool
}

type itemFunc func(ctx context.Context, task model.Task) (itemResult, error)

type outcome struct {
	task   model.Task
	result itemResult
	err    error
}

// runBatch applies fn to every task on a bounded pool. Items are independent:
// an error or panic in one is recorded and never stops the others.
func (e *Engine) runBatch(ctx context.Context, tasks []model.Task, fn itemFunc) []outcome {
	var (
		mu       sync.Mutex
		outcomes = make([]outcome, 0, len(tasks))
	)

	p := pool.New().WithMaxGoroutines(e.workers)
	for _, task := range tasks {
		p.Go(func() {
			res, err := safeItem(ctx, task, fn)
			mu.Lock()
			outcomes = append(outcomes, outcome{task: task, result: res, err: err})
			mu.Unlock()
		})
	}
	p.Wait()
	return outcomes
}

func safeItem(ctx context.Context, task model.Task, fn itemFunc) (itemResult, error) {
	if err := ctx.Err(); err != nil {
		return itemResult{}, err
	}
	var (
		catcher panics.Catcher
		res     itemResult
		err     error
	)
	catcher.Try(func() {
		res, err = fn(ctx, task)
	})
	if err != nil {
		return itemResult{}, err
	}
	if rerr := catcher.Recovered().AsError(); rerr != nil {
		return itemResult{}, rerr
	}
	return res, nil
}
