package usecase

import (
	"testing"
)

func newTestDecomposer(t *testing.T) *TaskDecomposer {
	t.Helper()
	return NewTaskDecomposer(newTestRouter(t), newTestLogger())
}

func TestNeedsParallelExecution(t *testing.T) {
	d := newTestDecomposer(t)

	tests := []struct {
		query string
		want  bool
	}{
		// Two cities, one task class.
		{"What's the weather in Paris and London", false},
		// Weather plus price: two classes.
		{"What's the weather in Paris and what's the price of bitcoin", true},
		{"weather in Hanoi, and how much does the tour cost", true},
		// Conjunction but no recognized classes.
		{"I like tea and coffee", false},
		// Two classes but no conjunction.
		{"weather in Paris. price of gold", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := d.NeedsParallelExecution(tt.query); got != tt.want {
			t.Errorf("NeedsParallelExecution(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestDecomposeSplitsBeforeClauseVerb(t *testing.T) {
	d := newTestDecomposer(t)

	tasks := d.Decompose("What is the weather in Paris and what is the price of bitcoin")
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	if tasks[0].Query != "What is the weather in Paris" {
		t.Errorf("first query = %q", tasks[0].Query)
	}
	if tasks[1].Query != "what is the price of bitcoin" {
		t.Errorf("second query = %q", tasks[1].Query)
	}
	if tasks[0].AgentID != "meteo" || tasks[1].AgentID != "scout" {
		t.Errorf("agents = %s, %s, want meteo, scout", tasks[0].AgentID, tasks[1].AgentID)
	}
	if tasks[0].Index != 0 || tasks[1].Index != 1 {
		t.Errorf("indexes = %d, %d", tasks[0].Index, tasks[1].Index)
	}
}

func TestDecomposeCommaAndFallback(t *testing.T) {
	d := newTestDecomposer(t)

	tasks := d.Decompose("check the weather in Rome, and look up bitcoin news")
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2: %+v", len(tasks), tasks)
	}
}

func TestDecomposePeriodFallback(t *testing.T) {
	d := newTestDecomposer(t)

	tasks := d.Decompose("Weather in Rome please. Bitcoin price please.")
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2: %+v", len(tasks), tasks)
	}
}

func TestDecomposeSingleQuery(t *testing.T) {
	d := newTestDecomposer(t)

	tasks := d.Decompose("what is the weather in Paris")
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Query != "what is the weather in Paris" {
		t.Errorf("query = %q, want whole query", tasks[0].Query)
	}
}

func TestDecomposeDropsShortSegments(t *testing.T) {
	d := newTestDecomposer(t)

	// The trailing period split leaves "Ok" which is under the minimum
	// segment length.
	tasks := d.Decompose("Weather in Rome please. Ok.")
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1: %+v", len(tasks), tasks)
	}
}

func TestDecomposeIsIdempotent(t *testing.T) {
	d := newTestDecomposer(t)

	tasks := d.Decompose("What is the weather in Paris and what is the price of bitcoin")
	for _, task := range tasks {
		again := d.Decompose(task.Query)
		if len(again) != 1 {
			t.Errorf("re-decomposing %q yields %d tasks, want 1", task.Query, len(again))
		}
	}
}

func TestRegisterClassifierExtendsDetection(t *testing.T) {
	d := newTestDecomposer(t)

	query := "play some jazz and check the weather in Paris"
	if d.NeedsParallelExecution(query) {
		t.Fatal("query should be single-class before registration")
	}

	d.RegisterClassifier(regexClassifier("music", `play\s+(?:some\s+)?\w+`))
	if !d.NeedsParallelExecution(query) {
		t.Error("registered classifier not consulted")
	}
}
