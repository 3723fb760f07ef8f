package domain

// ToolKind identifies an auxiliary capability category.
type ToolKind string

const (
	ToolRetrieval ToolKind = "retrieval"
	ToolWeather   ToolKind = "weather"
	ToolWebSearch ToolKind = "web_search"
)

// Task is one decomposed sub-query bound to exactly one agent.
// Index defines aggregation order and is stable across concurrent execution.
type Task struct {
	Query     string `json:"query"`
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Index     int    `json:"index"`
}

// ToolInvocationResult is the outcome of a single tool call for one task.
// It is never shared across tasks.
type ToolInvocationResult struct {
	Kind    ToolKind `json:"kind"`
	Content string   `json:"content,omitempty"`
	OK      bool     `json:"ok"`
	Err     string   `json:"error,omitempty"`
}

// Contributed reports whether the invocation produced usable grounding text.
func (r ToolInvocationResult) Contributed() bool {
	return r.OK && r.Content != ""
}

// TaskResult is the outcome of running one task's full pipeline.
// After dispatch, results[i].Task equals tasks[i] for all i regardless of
// completion order.
type TaskResult struct {
	Task      Task       `json:"task"`
	Response  string     `json:"response,omitempty"`
	ToolsUsed []ToolKind `json:"tools_used,omitempty"`
	Success   bool       `json:"success"`
	Err       string     `json:"error,omitempty"`
}
