package usecase

import (
	"log/slog"
	"regexp"
	"strings"

	"switchboard/internal/domain"
)

// multiTaskIndicators are conjunctions that often join independent requests.
// An indicator alone is not enough to decompose; the query must also span
// more than one task class.
var multiTaskIndicators = []string{
	" and ", " also ", " plus ", " as well as ",
	" additionally ", " along with ", " together with ",
	". also ", ". and ", ", and ",
}

// conjunctionVerbSplit matches an "and" followed by an interrogative or
// action verb that starts a new clause. The verb is captured so the split
// can keep it with the segment it introduces.
var conjunctionVerbSplit = regexp.MustCompile(`(?i)\s+and\s+(the|what|where|how|tell|get|find|show)\s`)

// commaAndSplit is the second split layer.
var commaAndSplit = regexp.MustCompile(`(?i),\s*and\s+`)

// minSegmentLen drops fragments too short to be a meaningful request.
const minSegmentLen = 5

// TaskClassifier pairs a task-class name with its matcher. Classifiers are
// consulted in registration order.
type TaskClassifier struct {
	Name    string
	Matches func(query string) bool
}

func regexClassifier(name string, patterns ...string) TaskClassifier {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + p)
	}
	return TaskClassifier{
		Name: name,
		Matches: func(query string) bool {
			for _, re := range compiled {
				if re.MatchString(query) {
					return true
				}
			}
			return false
		},
	}
}

// DefaultClassifiers returns the built-in task-class registry.
func DefaultClassifiers() []TaskClassifier {
	return []TaskClassifier{
		regexClassifier("weather", `weather\s+(?:in|for|of|at)\s+\w+`, `temperature\s+(?:in|of)\s+\w+`),
		regexClassifier("contact", `contact\s+(?:number|info|details)`, `phone\s+(?:number|of)`, `call\s+`),
		regexClassifier("booking", `book\s+(?:a|the)?`, `reserve\s+`, `reservation\s+`),
		regexClassifier("price", `price\s+(?:of|for)`, `cost\s+(?:of|for)`, `how\s+much`),
		regexClassifier("location", `where\s+is`, `address\s+(?:of|for)`, `location\s+(?:of|for)`),
		regexClassifier("hours", `(?:open|opening|business)\s+hours`, `when\s+(?:is|does)\s+\w+\s+open`),
		regexClassifier("info", `tell\s+me\s+about`, `what\s+is`, `who\s+is`, `information\s+(?:about|on)`),
	}
}

// TaskDecomposer detects multi-intent queries and splits them into
// independently routable tasks.
type TaskDecomposer struct {
	router      *KeywordRouter
	classifiers []TaskClassifier
	logger      *slog.Logger
}

// NewTaskDecomposer creates a decomposer with the default classifier
// registry.
func NewTaskDecomposer(router *KeywordRouter, logger *slog.Logger) *TaskDecomposer {
	return &TaskDecomposer{
		router:      router,
		classifiers: DefaultClassifiers(),
		logger:      logger,
	}
}

// RegisterClassifier appends a task classifier to the registry. New classes
// extend decomposition without touching the dispatch control flow.
func (d *TaskDecomposer) RegisterClassifier(c TaskClassifier) {
	d.classifiers = append(d.classifiers, c)
}

// NeedsParallelExecution reports whether the query should be decomposed.
// Both conditions must hold: a conjunction indicator is present AND the
// classifiers detect at least two distinct task classes. A compound sentence
// about a single topic (two cities' weather) stays a single task.
func (d *TaskDecomposer) NeedsParallelExecution(query string) bool {
	q := strings.ToLower(query)
	for _, indicator := range multiTaskIndicators {
		if strings.Contains(q, indicator) {
			if len(d.detectTaskClasses(q)) > 1 {
				return true
			}
		}
	}
	return false
}

func (d *TaskDecomposer) detectTaskClasses(query string) []string {
	var detected []string
	for _, c := range d.classifiers {
		if c.Matches(query) {
			detected = append(detected, c.Name)
		}
	}
	return detected
}

// Decompose splits the query into an ordered task list, routing each
// segment independently. A query that no split strategy can divide comes
// back as a single task covering the whole query. Decompose is idempotent:
// an already-atomic segment never splits further.
func (d *TaskDecomposer) Decompose(query string) []domain.Task {
	segments := splitByConjunctions(query)

	var tasks []domain.Task
	if len(segments) <= 1 {
		agent := d.router.Route(query)
		tasks = append(tasks, domain.Task{
			Query:     query,
			AgentID:   agent.ID,
			AgentName: agent.Name,
			Index:     0,
		})
		return tasks
	}

	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if len(segment) < minSegmentLen {
			continue
		}
		agent := d.router.Route(segment)
		tasks = append(tasks, domain.Task{
			Query:     segment,
			AgentID:   agent.ID,
			AgentName: agent.Name,
			Index:     len(tasks),
		})
	}

	if len(tasks) > 1 {
		d.logger.Info("decomposed query", "tasks", len(tasks))
		for _, t := range tasks {
			d.logger.Debug("task assigned", "agent", t.AgentName, "query", t.Query)
		}
	}
	return tasks
}

// splitByConjunctions applies the layered split strategy: conjunction
// followed by a clause verb, then ", and ", then sentence periods.
func splitByConjunctions(query string) []string {
	if segments := splitBeforeClauseVerb(query); len(segments) > 1 {
		return segments
	}
	if segments := commaAndSplit.Split(query, -1); len(segments) > 1 {
		return segments
	}

	var segments []string
	for _, s := range strings.Split(query, ".") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// splitBeforeClauseVerb cuts the query at each "and <verb>" boundary,
// keeping the verb with the segment it introduces.
func splitBeforeClauseVerb(query string) []string {
	matches := conjunctionVerbSplit.FindAllStringSubmatchIndex(query, -1)
	if len(matches) == 0 {
		return []string{query}
	}

	var segments []string
	prev := 0
	for _, m := range matches {
		// m[0] is the match start ("and" with surrounding space),
		// m[2] is where the captured verb begins.
		segments = append(segments, query[prev:m[0]])
		prev = m[2]
	}
	segments = append(segments, query[prev:])
	return segments
}
