package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullBlock(t *testing.T) {
	p := NewStepParser()

	step := p.Parse("Thought: I should check the database first\nAction: check_service\nAction Input: {\"service\": \"db\", \"verbose\": true}")

	assert.Equal(t, "I should check the database first", step.Thought)
	assert.Equal(t, "check_service", step.Action)
	assert.Equal(t, map[string]any{"service": "db", "verbose": true}, step.ActionInput)
}

func TestParseIgnoresNoneAction(t *testing.T) {
	p := NewStepParser()

	step := p.Parse("Thought: nothing to do\nAction: None")

	assert.Equal(t, "nothing to do", step.Thought)
	assert.Empty(t, step.Action)
}

func TestParseMarkersAreCaseInsensitive(t *testing.T) {
	p := NewStepParser()

	step := p.Parse("thought: lowered marker\naction: check_service\naction input: {}")

	assert.Equal(t, "lowered marker", step.Thought)
	assert.Equal(t, "check_service", step.Action)
}

func TestParseRepairsSingleQuotedInput(t *testing.T) {
	p := NewStepParser()

	step := p.Parse("Action: check_service\nAction Input: {'service': 'db'}")

	require.NotNil(t, step.ActionInput)
	assert.Equal(t, "db", step.ActionInput["service"])
}

func TestParseWrapsUnrepairableInput(t *testing.T) {
	p := NewStepParser()

	step := p.Parse("Action: check_service\nAction Input: just check the db please")

	assert.Equal(t, map[string]any{"input": "just check the db please"}, step.ActionInput)
}

func TestParseEmptyInputIsNil(t *testing.T) {
	p := NewStepParser()

	step := p.Parse("Action: check_service\nAction Input:")

	assert.Nil(t, step.ActionInput)
}

func TestParseFinalAnswer(t *testing.T) {
	p := NewStepParser()

	answer, ok := p.ParseFinalAnswer("Thought: done\nFinal Answer: the database is healthy\nand responding within 5ms")

	require.True(t, ok)
	assert.Equal(t, "the database is healthy\nand responding within 5ms", answer)
}

func TestParseFinalAnswerCaseInsensitive(t *testing.T) {
	p := NewStepParser()

	answer, ok := p.ParseFinalAnswer("final answer: all clear")

	require.True(t, ok)
	assert.Equal(t, "all clear", answer)
}

func TestParseFinalAnswerAbsent(t *testing.T) {
	p := NewStepParser()

	_, ok := p.ParseFinalAnswer("Thought: still working\nAction: check_service\nAction Input: {}")

	assert.False(t, ok)
}
