package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/varekai/opsmind/internal/core/domain"
)

const (
	// completionAttempts bounds the retry budget for completion calls.
	completionAttempts = 3
	// maxConsecutiveFailures aborts a run that keeps failing tool calls:
	// the path is clearly broken and further calls are wasted.
	maxConsecutiveFailures = 3
)

// ReActEngine drives one reasoning run: it builds prompts from the
// accumulated transcript, requests completions, parses them, invokes tools,
// and appends observations until a final answer, the step budget, or a guard
// condition stops it.
type ReActEngine struct {
	logger  *slog.Logger
	llm     domain.CompletionProvider
	catalog *ToolCatalog
	invoker *ToolInvoker
	parser  *StepParser
	guard   *LoopGuard
	sink    domain.EventSink
	tracer  *TraceCollector
	cfg     domain.EngineConfig
	sleep   func(time.Duration) // swapped in tests
}

// NewReActEngine wires the engine. sink and tracer may be nil.
func NewReActEngine(
	logger *slog.Logger,
	llm domain.CompletionProvider,
	catalog *ToolCatalog,
	invoker *ToolInvoker,
	sink domain.EventSink,
	tracer *TraceCollector,
	cfg domain.EngineConfig,
) *ReActEngine {
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &ReActEngine{
		logger:  logger,
		llm:     llm,
		catalog: catalog,
		invoker: invoker,
		parser:  NewStepParser(),
		guard:   NewLoopGuard(),
		sink:    sink,
		tracer:  tracer,
		cfg:     cfg,
		sleep:   time.Sleep,
	}
}

// ExecuteQuestion runs the ReAct loop for one question. The returned
// RunResult always carries the transcript accumulated so far, whatever the
// terminal state; the error is non-nil only when the completion provider is
// exhausted (reasoning cannot proceed without the model).
func (e *ReActEngine) ExecuteQuestion(ctx context.Context, question string) (domain.RunResult, error) {
	runID := uuid.New().String()
	runCtx, agentSpanID := e.startAgentSpan(ctx, runID, question)
	result, err := e.run(runCtx, runID, question)
	e.endAgentSpan(agentSpanID, result, err)
	return result, err
}

func (e *ReActEngine) run(ctx context.Context, runID, question string) (domain.RunResult, error) {
	result := domain.RunResult{Question: question}
	tools := e.catalog.Tools()
	consecutiveFailures := 0

	e.logger.Info("starting reasoning run", "run_id", runID, "question", truncate(question, 120))

	for stepNum := 1; stepNum <= e.cfg.MaxSteps; stepNum++ {
		if ctx.Err() != nil {
			return e.finish(result, domain.RunStatusCancelled, result.LastObservation()), nil
		}

		e.sink.Publish(domain.EngineEvent{
			Type:       domain.EventStepStarted,
			RunID:      runID,
			StepNumber: stepNum,
			Status:     domain.StepStatusInProgress,
			Timestamp:  time.Now(),
		})

		prompt := BuildReActPrompt(tools, result.Steps, question)
		response, err := e.complete(ctx, prompt, stepNum)
		if err != nil {
			e.logger.Error("completion failed, ending run", "run_id", runID, "step", stepNum, "error", err)
			result.Status = domain.RunStatusAborted
			return result, err
		}

		// Final answer ends the run immediately.
		if answer, ok := e.parser.ParseFinalAnswer(response); ok {
			parsed := e.parser.Parse(response)
			step := domain.ReActStep{
				StepNumber:  stepNum,
				Thought:     parsed.Thought,
				Status:      domain.StepStatusCompleted,
				IsFinal:     true,
				FinalAnswer: answer,
			}
			result.Steps = append(result.Steps, step)
			e.publishStepCompleted(runID, step)
			e.logger.Info("final answer reached", "run_id", runID, "step", stepNum)
			return e.finish(result, domain.RunStatusCompleted, answer), nil
		}

		parsed := e.parser.Parse(response)

		// A stuck run gets a forced, best-effort answer instead of an
		// empty result.
		if e.guard.ShouldForceStop(result.Steps, parsed.Thought) {
			e.logger.Warn("loop detected, forcing stop", "run_id", runID, "step", stepNum)
			answer := e.synthesizeAnswer(result)
			step := domain.ReActStep{
				StepNumber:  stepNum,
				Thought:     parsed.Thought,
				Status:      domain.StepStatusCompleted,
				IsFinal:     true,
				FinalAnswer: answer,
			}
			result.Steps = append(result.Steps, step)
			e.publishStepCompleted(runID, step)
			return e.finish(result, domain.RunStatusForced, answer), nil
		}

		step := domain.ReActStep{
			StepNumber: stepNum,
			Thought:    parsed.Thought,
			Status:     domain.StepStatusCompleted,
		}

		if parsed.Action != "" {
			if ctx.Err() != nil {
				return e.finish(result, domain.RunStatusCancelled, result.LastObservation()), nil
			}

			step.Action = parsed.Action
			step.ActionInput = parsed.ActionInput

			toolCtx, toolSpanID := e.startToolSpan(ctx, parsed.Action, parsed.ActionInput)
			started := time.Now()
			obs, ok := e.invoker.Call(toolCtx, parsed.Action, parsed.ActionInput)
			step.ExecutionTime = time.Since(started)
			step.Observation = obs

			if ok {
				consecutiveFailures = 0
				e.endToolSpan(toolSpanID, domain.SpanStatusOK, obs, "")
			} else {
				consecutiveFailures++
				step.Status = domain.StepStatusFailed
				step.Error = obs
				e.endToolSpan(toolSpanID, domain.SpanStatusError, obs, obs)
			}

			e.sink.Publish(domain.EngineEvent{
				Type:       domain.EventToolCalled,
				RunID:      runID,
				StepNumber: stepNum,
				Tool:       parsed.Action,
				Status:     step.Status,
				Timestamp:  time.Now(),
			})
		} else {
			// A completed thought-only step breaks a failure chain.
			consecutiveFailures = 0
		}

		result.Steps = append(result.Steps, step)
		e.publishStepCompleted(runID, step)

		// When the failure threshold lands exactly on the step budget, the
		// budget wins and the run ends incomplete rather than aborted.
		if consecutiveFailures >= maxConsecutiveFailures && stepNum < e.cfg.MaxSteps {
			e.logger.Warn("aborting run after consecutive failures", "run_id", runID, "failures", consecutiveFailures)
			return e.finish(result, domain.RunStatusAborted, result.LastObservation()), nil
		}
	}

	// Step budget exhausted: the last observation is the de facto answer.
	e.logger.Warn("step budget exhausted", "run_id", runID, "max_steps", e.cfg.MaxSteps)
	return e.finish(result, domain.RunStatusIncomplete, result.LastObservation()), nil
}

// complete requests one completion with bounded exponential-backoff retry.
func (e *ReActEngine) complete(ctx context.Context, prompt string, stepNum int) (string, error) {
	llmCtx, spanID := e.startLLMSpan(ctx, stepNum, prompt)

	var lastErr error
	for attempt := 0; attempt < completionAttempts; attempt++ {
		if attempt > 0 {
			e.sleep(time.Duration(1<<attempt) * time.Second)
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		callCtx, cancel := context.WithTimeout(llmCtx, e.cfg.StepTimeout)
		response, err := e.llm.Complete(callCtx, prompt)
		cancel()
		if err == nil {
			e.endLLMSpan(spanID, domain.SpanStatusOK, response)
			return response, nil
		}
		lastErr = err
		e.logger.Warn("completion attempt failed", "attempt", attempt+1, "error", err)
	}

	e.endLLMSpan(spanID, domain.SpanStatusError, "")
	return "", fmt.Errorf("%w: %v", domain.ErrCompletionUnavailable, lastErr)
}

// synthesizeAnswer builds the forced answer from the most recent successful
// observation.
func (e *ReActEngine) synthesizeAnswer(result domain.RunResult) string {
	if obs := result.LastObservation(); obs != "" {
		return "Based on the information gathered so far: " + obs
	}
	return "The reasoning loop was stopped before any tool produced a usable result."
}

func (e *ReActEngine) finish(result domain.RunResult, status domain.RunStatus, answer string) domain.RunResult {
	result.Status = status
	result.Answer = answer
	return result
}

func (e *ReActEngine) publishStepCompleted(runID string, step domain.ReActStep) {
	e.sink.Publish(domain.EngineEvent{
		Type:       domain.EventStepCompleted,
		RunID:      runID,
		StepNumber: step.StepNumber,
		Tool:       step.Action,
		Status:     step.Status,
		Timestamp:  time.Now(),
	})
}

// --- trace helpers (no-ops when the tracer is absent) ---

func (e *ReActEngine) startAgentSpan(ctx context.Context, runID, question string) (context.Context, domain.SpanID) {
	if e.tracer == nil {
		return ctx, ""
	}
	spanCtx, spanID := e.tracer.StartSpan(ctx, "agent.run", domain.SpanKindAgent, map[string]string{"run_id": runID})
	e.tracer.SetSpanInput(spanID, question)
	return spanCtx, spanID
}

func (e *ReActEngine) endAgentSpan(spanID domain.SpanID, result domain.RunResult, err error) {
	if e.tracer == nil {
		return
	}
	status := domain.SpanStatusOK
	errMsg := ""
	switch {
	case err != nil:
		status = domain.SpanStatusError
		errMsg = err.Error()
	case result.Status == domain.RunStatusCancelled:
		status = domain.SpanStatusCancelled
	case result.Status == domain.RunStatusAborted:
		status = domain.SpanStatusError
		errMsg = result.Answer
	}
	e.tracer.EndSpan(spanID, status, result.Answer, errMsg)
}

func (e *ReActEngine) startLLMSpan(ctx context.Context, stepNum int, prompt string) (context.Context, domain.SpanID) {
	if e.tracer == nil {
		return ctx, ""
	}
	spanCtx, spanID := e.tracer.StartSpan(ctx, fmt.Sprintf("llm.complete (step %d)", stepNum), domain.SpanKindLLM, nil)
	e.tracer.SetSpanInput(spanID, prompt)
	return spanCtx, spanID
}

func (e *ReActEngine) startToolSpan(ctx context.Context, tool string, args map[string]any) (context.Context, domain.SpanID) {
	if e.tracer == nil {
		return ctx, ""
	}
	spanCtx, spanID := e.tracer.StartSpan(ctx, "tool."+tool, domain.SpanKindTool, map[string]string{"tool": tool})
	e.tracer.SetSpanInput(spanID, marshalActionInput(args))
	return spanCtx, spanID
}

func (e *ReActEngine) endToolSpan(spanID domain.SpanID, status domain.SpanStatus, output, errMsg string) {
	if e.tracer == nil {
		return
	}
	e.tracer.EndSpan(spanID, status, output, errMsg)
}

func (e *ReActEngine) endLLMSpan(spanID domain.SpanID, status domain.SpanStatus, output string) {
	if e.tracer == nil {
		return
	}
	e.tracer.EndSpan(spanID, status, output, "")
}
