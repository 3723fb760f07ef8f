package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"switchboard/internal/domain"
)

func makeTasks(n int) []domain.Task {
	tasks := make([]domain.Task, n)
	for i := range tasks {
		tasks[i] = domain.Task{
			Query:     fmt.Sprintf("task %d", i),
			AgentID:   "a",
			AgentName: "A",
			Index:     i,
		}
	}
	return tasks
}

func TestExecutePreservesOrder(t *testing.T) {
	d := NewParallelDispatcher(8, newTestLogger())
	tasks := makeTasks(8)

	// Later tasks finish first; results must still line up with input.
	results := d.Execute(context.Background(), tasks, func(_ context.Context, task domain.Task) domain.TaskResult {
		time.Sleep(time.Duration(len(tasks)-task.Index) * time.Millisecond)
		return domain.TaskResult{Task: task, Response: task.Query, Success: true}
	})

	if len(results) != len(tasks) {
		t.Fatalf("results = %d, want %d", len(results), len(tasks))
	}
	for i, r := range results {
		if r.Task != tasks[i] {
			t.Errorf("results[%d].Task = %+v, want %+v", i, r.Task, tasks[i])
		}
	}
}

func TestExecuteRecoversPanics(t *testing.T) {
	d := NewParallelDispatcher(4, newTestLogger())
	tasks := makeTasks(3)

	results := d.Execute(context.Background(), tasks, func(_ context.Context, task domain.Task) domain.TaskResult {
		if task.Index == 1 {
			panic("runner exploded")
		}
		return domain.TaskResult{Task: task, Response: "ok", Success: true}
	})

	if results[0].Success != true || results[2].Success != true {
		t.Error("sibling tasks affected by panicking runner")
	}
	if results[1].Success {
		t.Error("panicking task reported success")
	}
	if results[1].Err == "" || results[1].Task != tasks[1] {
		t.Errorf("panic not captured into result: %+v", results[1])
	}
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	const limit = 2
	d := NewParallelDispatcher(limit, newTestLogger())
	tasks := makeTasks(10)

	var active, peak atomic.Int32
	d.Execute(context.Background(), tasks, func(_ context.Context, task domain.Task) domain.TaskResult {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return domain.TaskResult{Task: task, Success: true}
	})

	if peak.Load() > limit {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), limit)
	}
}

func TestExecuteSingleTask(t *testing.T) {
	d := NewParallelDispatcher(4, newTestLogger())
	tasks := makeTasks(1)

	results := d.Execute(context.Background(), tasks, func(_ context.Context, task domain.Task) domain.TaskResult {
		return domain.TaskResult{Task: task, Response: "solo", Success: true}
	})
	if len(results) != 1 || results[0].Response != "solo" {
		t.Errorf("results = %+v", results)
	}
}

func TestExecuteEmptyTasks(t *testing.T) {
	d := NewParallelDispatcher(4, newTestLogger())

	if results := d.Execute(context.Background(), nil, nil); results != nil {
		t.Errorf("results = %v, want nil", results)
	}
}
