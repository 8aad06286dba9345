package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/varekai/opsmind/internal/core/domain"
)

// reactInstructions is the fixed-format contract between the engine and the
// model: the model emits Thought/Action/Action Input and stops; the engine
// fills in Observation.
const reactInstructions = `You use the ReAct pattern: Thought → Action → Observation → ... → Final Answer.

FORMAT (tool call):
Thought: <reasoning>
Action: <EXACT tool name from the list above>
Action Input: <single-line JSON object with parameters>

FORMAT (direct answer):
Thought: <reasoning>
Final Answer: <answer>

RULES:
1. Always start with "Thought:".
2. Use the EXACT tool name from the Available Tools list. Do not invent tool names.
3. Action Input must be a single-line JSON object. Use {} for tools without parameters.
4. After "Action Input:", STOP. The system executes the tool and shows you "Observation: <result>".
5. Never write "Observation:" yourself.
6. When you have enough information, answer with "Final Answer:".`

// BuildReActPrompt assembles the per-iteration prompt: catalog, format
// instructions, the full transcript so far, and the question.
func BuildReActPrompt(tools []domain.Tool, transcript []domain.ReActStep, question string) string {
	var b strings.Builder
	b.WriteString("You are an operations diagnostics assistant with access to remote tools.\n\n")
	b.WriteString(domain.FormatToolsForPrompt(tools))
	b.WriteString("\n")
	b.WriteString(reactInstructions)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n")
	if len(transcript) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderTranscript(transcript))
	}
	b.WriteString("\nThought:")
	return b.String()
}

// RenderTranscript renders steps as alternating Thought/Action/Action
// Input/Observation blocks. The rendering round-trips: re-parsing it
// reproduces the same thought/action/observation fields.
func RenderTranscript(transcript []domain.ReActStep) string {
	var b strings.Builder
	for _, step := range transcript {
		b.WriteString(RenderStep(step))
	}
	return b.String()
}

// RenderStep renders one step in the wire format the parser reads back.
func RenderStep(step domain.ReActStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thought: %s\n", step.Thought)
	if step.Action != "" {
		fmt.Fprintf(&b, "Action: %s\n", step.Action)
		fmt.Fprintf(&b, "Action Input: %s\n", marshalActionInput(step.ActionInput))
	}
	if step.Observation != "" {
		fmt.Fprintf(&b, "Observation: %s\n", step.Observation)
	}
	if step.IsFinal {
		fmt.Fprintf(&b, "Final Answer: %s\n", step.FinalAnswer)
	}
	return b.String()
}

func marshalActionInput(args map[string]any) string {
	if args == nil {
		return "{}"
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// BuildPlanPrompt asks for the initial concise execution instruction. Shared
// context from earlier tasks is rendered sorted for deterministic prompts.
func BuildPlanPrompt(intent, description string, sharedCtx map[string]string, tools []domain.Tool) string {
	var b strings.Builder
	b.WriteString("Based on the intent, create a CONCISE execution instruction (2-3 sentences max).\n\n")
	fmt.Fprintf(&b, "Intent: %s\n", intent)
	if description != "" {
		fmt.Fprintf(&b, "Description: %s\n", description)
	}
	b.WriteString("\nAvailable context:\n")
	if len(sharedCtx) == 0 {
		b.WriteString("None\n")
	} else {
		keys := make([]string, 0, len(sharedCtx))
		for k := range sharedCtx {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, sharedCtx[k])
		}
	}
	b.WriteString("\n")
	b.WriteString(domain.FormatToolsForPrompt(tools))
	b.WriteString("\nProvide a BRIEF, direct instruction that names the tool to use, the parameters to pass, and the expected outcome. Maximum 3 sentences:")
	return b.String()
}

// BuildRefinePrompt asks for an alternative approach, bounded to the last two
// attempts so the prompt does not grow with the iteration count.
func BuildRefinePrompt(intent string, attempts []domain.TaskAttempt, toolNames []string, needs string) string {
	start := len(attempts) - 2
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	b.WriteString("Previous attempts did not satisfy the goal. Provide a BRIEF alternative approach (1-2 sentences).\n\n")
	fmt.Fprintf(&b, "Intent: %s\n\n", intent)
	fmt.Fprintf(&b, "Available tools: %s\n\n", strings.Join(toolNames, ", "))
	b.WriteString("Previous attempts:\n")
	for _, a := range attempts[start:] {
		fmt.Fprintf(&b, "Try %d: %s\n", a.Iteration, truncate(a.Result, 80))
	}
	if needs != "" {
		fmt.Fprintf(&b, "\nStill needed:\n%s\n", truncate(needs, 500))
	}
	b.WriteString("\nWhat to try differently (be CONCISE):")
	return b.String()
}

// BuildEvaluatePrompt asks whether a result satisfies the intent, answered
// with a SATISFIED / NOT_SATISFIED token.
func BuildEvaluatePrompt(intent, result string, iteration int) string {
	var b strings.Builder
	b.WriteString("Evaluate if the following result satisfies the intended goal.\n\n")
	fmt.Fprintf(&b, "Intent/Goal: %s\n\n", intent)
	fmt.Fprintf(&b, "Current Result:\n%s\n\n", result)
	fmt.Fprintf(&b, "Iteration: %d\n\n", iteration)
	b.WriteString("Answer in this format:\nStatus: [SATISFIED/NOT_SATISFIED]\nReason: [your explanation]")
	return b.String()
}

// BuildNeedsPrompt asks what additional information or tool calls would help,
// feeding the next refinement round.
func BuildNeedsPrompt(intent, result, evaluation string, tools []domain.Tool) string {
	var b strings.Builder
	b.WriteString("Based on the evaluation, determine what additional information or actions are needed.\n\n")
	fmt.Fprintf(&b, "Intent: %s\n\n", intent)
	fmt.Fprintf(&b, "Current Result:\n%s\n\n", result)
	fmt.Fprintf(&b, "Evaluation:\n%s\n\n", evaluation)
	b.WriteString(domain.FormatToolsForPrompt(tools))
	b.WriteString("\nBe specific about which tools to use, what parameters to provide, and what to look for in the results:")
	return b.String()
}

// BuildSummaryPrompt asks for a markdown execution report for one task.
func BuildSummaryPrompt(result domain.TaskResult, intent, description string) string {
	output := truncate(result.Output, 1500)

	var b strings.Builder
	b.WriteString("Generate a concise task execution report in Markdown.\n\n")
	fmt.Fprintf(&b, "Task: %s\n", result.TaskName)
	if description != "" {
		fmt.Fprintf(&b, "Description: %s\n", description)
	}
	fmt.Fprintf(&b, "Intent: %s\n", intent)
	fmt.Fprintf(&b, "Iterations: %d\n", result.Iterations)
	fmt.Fprintf(&b, "Status: %s\n\n", result.Status)
	fmt.Fprintf(&b, "Result:\n%s\n\n", output)
	b.WriteString("Sections: Overview, Objective, Execution Process (2-3 points), Key Findings, Summary. Output ONLY the Markdown:")
	return b.String()
}

// FallbackSummary is the deterministic report used when summary generation
// through the completion provider fails.
func FallbackSummary(result domain.TaskResult, intent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Task Report: %s\n\n", result.TaskName)
	fmt.Fprintf(&b, "## Objective\n%s\n\n", intent)
	b.WriteString("## Status\n")
	fmt.Fprintf(&b, "- Status: %s\n", result.Status)
	fmt.Fprintf(&b, "- Iterations: %d\n\n", result.Iterations)
	fmt.Fprintf(&b, "## Result\n```\n%s\n```\n", result.Output)
	return b.String()
}
