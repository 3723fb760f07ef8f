package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"switchboard/internal/domain"
)

// defaultMaxParallel bounds task fan-out when no limit is configured.
const defaultMaxParallel = 5

// TaskRunner performs the full per-task pipeline: capability selection,
// tool execution, generation. A panic inside a runner is recovered into a
// failed TaskResult for that task.
type TaskRunner func(ctx context.Context, task domain.Task) domain.TaskResult

// ParallelDispatcher executes tasks concurrently and collects one result
// per task. Result order always matches input order regardless of which
// task settles first.
type ParallelDispatcher struct {
	maxParallel int
	logger      *slog.Logger
}

// NewParallelDispatcher creates a dispatcher. A non-positive limit falls
// back to the default fan-out bound.
func NewParallelDispatcher(maxParallel int, logger *slog.Logger) *ParallelDispatcher {
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	return &ParallelDispatcher{maxParallel: maxParallel, logger: logger}
}

// Execute dispatches every task through run and waits for all of them.
// A panicking runner becomes a failed TaskResult for that task only;
// sibling tasks are unaffected. A single-task input follows the same path.
func (d *ParallelDispatcher) Execute(ctx context.Context, tasks []domain.Task, run TaskRunner) []domain.TaskResult {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]domain.TaskResult, len(tasks))
	sem := make(chan struct{}, d.maxParallel)

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t domain.Task) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[idx] = domain.TaskResult{
						Task: t,
						Err:  fmt.Sprintf("task runner panicked: %v", r),
					}
					d.logger.Error("task runner panicked",
						"task", idx, "agent", t.AgentName, "panic", r)
				}
			}()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = run(ctx, t)
		}(i, task)
	}
	wg.Wait()

	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	d.logger.Info("parallel execution complete",
		"tasks", len(tasks), "successful", successful)
	return results
}
