package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"switchboard/internal/domain"
)

func okResult(agent, response string, tools ...domain.ToolKind) domain.TaskResult {
	return domain.TaskResult{
		Task:      domain.Task{AgentID: agent, AgentName: agent},
		Response:  response,
		ToolsUsed: tools,
		Success:   true,
	}
}

func failedResult(agent string) domain.TaskResult {
	return domain.TaskResult{
		Task: domain.Task{AgentID: agent, AgentName: agent},
		Err:  "it broke",
	}
}

func TestAggregateEmpty(t *testing.T) {
	var agg ResponseAggregator
	assert.Equal(t, "I couldn't process your request.", agg.Aggregate(nil))
}

func TestAggregateSingle(t *testing.T) {
	var agg ResponseAggregator

	assert.Equal(t, "It is sunny.", agg.Aggregate([]domain.TaskResult{okResult("a", "It is sunny.")}))
	assert.Equal(t, "I encountered an error.", agg.Aggregate([]domain.TaskResult{failedResult("a")}))
}

func TestAggregateTwoJoinsWithAlso(t *testing.T) {
	var agg ResponseAggregator

	got := agg.Aggregate([]domain.TaskResult{
		okResult("a", "It is sunny in Paris."),
		okResult("b", "Bitcoin trades at $60k."),
	})
	assert.Equal(t, "It is sunny in Paris. Also, bitcoin trades at $60k.", got)
}

func TestAggregateTwoKeepsLowercaseLead(t *testing.T) {
	var agg ResponseAggregator

	got := agg.Aggregate([]domain.TaskResult{
		okResult("a", "It is sunny."),
		okResult("b", "about $60k right now."),
	})
	assert.Equal(t, "It is sunny. Also, about $60k right now.", got)
}

func TestAggregateDropsFailed(t *testing.T) {
	var agg ResponseAggregator

	got := agg.Aggregate([]domain.TaskResult{
		failedResult("a"),
		okResult("b", "Only me."),
	})
	assert.Equal(t, "Only me.", got)
}

func TestAggregateDropsEmptyResponses(t *testing.T) {
	var agg ResponseAggregator

	got := agg.Aggregate([]domain.TaskResult{
		okResult("a", "   "),
		okResult("b", "Still here."),
	})
	assert.Equal(t, "Still here.", got)
}

func TestAggregateAllFailed(t *testing.T) {
	var agg ResponseAggregator

	got := agg.Aggregate([]domain.TaskResult{failedResult("a"), failedResult("b")})
	assert.Equal(t, "I encountered errors processing your requests.", got)
}

func TestAggregateThreeJoinsWithSpaces(t *testing.T) {
	var agg ResponseAggregator

	got := agg.Aggregate([]domain.TaskResult{
		okResult("a", "One."),
		okResult("b", "Two."),
		okResult("c", "Three."),
	})
	assert.Equal(t, "One. Two. Three.", got)
}

func TestAllToolsUsed(t *testing.T) {
	results := []domain.TaskResult{
		okResult("a", "x", domain.ToolWeather, domain.ToolRetrieval),
		okResult("b", "y", domain.ToolWeather, domain.ToolWebSearch),
	}
	assert.Equal(t,
		[]domain.ToolKind{domain.ToolRetrieval, domain.ToolWeather, domain.ToolWebSearch},
		AllToolsUsed(results))
}

func TestAllAgentsUsedSingleton(t *testing.T) {
	results := []domain.TaskResult{okResult("Meteo", "x")}
	assert.Equal(t, []string{"Meteo"}, AllAgentsUsed(results))
}

func TestAllAgentsUsedDeduplicates(t *testing.T) {
	results := []domain.TaskResult{
		okResult("Scout", "x"),
		okResult("Meteo", "y"),
		okResult("Scout", "z"),
	}
	assert.Equal(t, []string{"Meteo", "Scout"}, AllAgentsUsed(results))
}
