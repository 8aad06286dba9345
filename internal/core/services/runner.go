package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/varekai/opsmind/internal/core/domain"
	"github.com/varekai/opsmind/internal/core/ports"
)

// sharedContextBudget bounds how much of a task's output is carried into
// later tasks' planning prompts.
const sharedContextBudget = 300

// TaskRunner executes a sequence of declared tasks. For each task it plans an
// instruction, drives the reasoning engine, evaluates the outcome against the
// intent, and refines the plan until the intent is satisfied or the iteration
// budget runs out. Outputs flow forward through a shared context map so later
// tasks can build on earlier results.
type TaskRunner struct {
	logger  *slog.Logger
	llm     domain.CompletionProvider
	engine  *ReActEngine
	catalog *ToolCatalog
	tracer  *TraceCollector
	repo    ports.Repository // optional; nil disables persistence
	cfg     domain.EngineConfig
}

// NewTaskRunner wires the runner. tracer and repo may be nil.
func NewTaskRunner(
	logger *slog.Logger,
	llm domain.CompletionProvider,
	engine *ReActEngine,
	catalog *ToolCatalog,
	tracer *TraceCollector,
	repo ports.Repository,
	cfg domain.EngineConfig,
) *TaskRunner {
	return &TaskRunner{
		logger:  logger,
		llm:     llm,
		engine:  engine,
		catalog: catalog,
		tracer:  tracer,
		repo:    repo,
		cfg:     cfg,
	}
}

// RunTasks executes tasks sequentially, carrying a shared context across them.
// It returns a result per executed task; a cancelled context stops the
// sequence and returns the results so far together with the context error.
func (r *TaskRunner) RunTasks(ctx context.Context, specs []domain.TaskSpec) ([]domain.TaskResult, error) {
	results := make([]domain.TaskResult, 0, len(specs))
	sharedCtx := make(map[string]string)

	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		name := spec.Name
		if name == "" {
			name = domain.SlugifyTaskName(spec.Intent, i+1)
		}

		result := r.runTask(ctx, name, spec, sharedCtx)
		results = append(results, result)

		sharedCtx[name] = truncate(result.Output, sharedContextBudget)

		if r.repo != nil {
			if err := r.repo.SaveTaskResult(ctx, result); err != nil {
				r.logger.Warn("failed to persist task result", "task", name, "error", err)
			}
		}
	}

	return results, nil
}

// runTask drives one task through the plan/execute/evaluate/refine loop.
func (r *TaskRunner) runTask(ctx context.Context, name string, spec domain.TaskSpec, sharedCtx map[string]string) domain.TaskResult {
	result := domain.TaskResult{
		TaskName:  name,
		Status:    domain.TaskStatusFailed,
		StartedAt: time.Now(),
	}

	taskCtx := ctx
	var traceID domain.TraceID
	if r.tracer != nil {
		taskCtx, traceID, _ = r.tracer.StartTrace(ctx, "task."+name, map[string]string{"intent": truncate(spec.Intent, 200)})
		r.tracer.SetTraceTask(traceID, name)
	}

	r.logger.Info("starting task", "task", name, "intent", truncate(spec.Intent, 120))

	tools := r.catalog.Tools()
	plan := r.plan(taskCtx, spec, sharedCtx, tools)

	for iteration := 1; iteration <= r.cfg.MaxRefinementIterations; iteration++ {
		if ctx.Err() != nil {
			result.Status = domain.TaskStatusPartial
			break
		}

		result.Iterations = iteration

		run, err := r.engine.ExecuteQuestion(taskCtx, condensePlan(plan))
		if err != nil {
			// The model is unreachable; refinement cannot help.
			r.logger.Error("task execution failed", "task", name, "iteration", iteration, "error", err)
			result.Output = "Execution failed: " + err.Error()
			result.Status = domain.TaskStatusFailed
			result.Attempts = append(result.Attempts, domain.TaskAttempt{
				Iteration: iteration,
				Plan:      plan,
				Result:    result.Output,
			})
			break
		}

		result.Output = run.Answer
		result.Attempts = append(result.Attempts, domain.TaskAttempt{
			Iteration: iteration,
			Plan:      plan,
			Result:    run.Answer,
		})

		if run.Status == domain.RunStatusCancelled {
			result.Status = domain.TaskStatusPartial
			break
		}

		satisfied, verdict := r.evaluate(taskCtx, spec.Intent, run.Answer, iteration)
		if satisfied {
			result.Status = domain.TaskStatusSuccess
			break
		}

		if iteration == r.cfg.MaxRefinementIterations {
			// Budget exhausted with output in hand: partial, not failed.
			result.Status = domain.TaskStatusPartial
			break
		}

		needs := r.identifyNeeds(taskCtx, spec.Intent, run.Answer, verdict, tools)
		plan = r.refine(taskCtx, spec.Intent, result.Attempts, tools, needs, plan)
	}

	result.FinishedAt = time.Now()
	result.Summary = r.summarize(taskCtx, result, spec)

	if r.tracer != nil {
		status := domain.SpanStatusOK
		errMsg := ""
		switch {
		case result.Status == domain.TaskStatusFailed:
			status = domain.SpanStatusError
			errMsg = truncate(result.Output, 500)
		case ctx.Err() != nil:
			status = domain.SpanStatusCancelled
		}
		r.tracer.EndTrace(traceID, status, errMsg)
	}

	r.logger.Info("task finished",
		"task", name,
		"status", result.Status,
		"iterations", result.Iterations,
		"duration", result.FinishedAt.Sub(result.StartedAt))

	return result
}

// plan asks the model for the initial execution instruction. When planning
// fails the intent itself is a workable instruction.
func (r *TaskRunner) plan(ctx context.Context, spec domain.TaskSpec, sharedCtx map[string]string, tools []domain.Tool) string {
	prompt := BuildPlanPrompt(spec.Intent, spec.Description, sharedCtx, tools)
	plan, err := r.llm.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(plan) == "" {
		r.logger.Warn("planning failed, falling back to raw intent", "error", err)
		return spec.Intent
	}
	return strings.TrimSpace(plan)
}

// evaluate asks whether the result satisfies the intent, returning the raw
// verdict text for needs identification. Evaluation fails open: an
// unreachable or unparseable evaluator accepts the result rather than
// burning refinement iterations on a broken judge.
func (r *TaskRunner) evaluate(ctx context.Context, intent, output string, iteration int) (bool, string) {
	if strings.TrimSpace(output) == "" {
		return false, ""
	}

	prompt := BuildEvaluatePrompt(intent, output, iteration)
	verdict, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		r.logger.Warn("evaluation unavailable, accepting result", "error", err)
		return true, ""
	}

	upper := strings.ToUpper(verdict)
	if strings.Contains(upper, "NOT_SATISFIED") {
		return false, verdict
	}
	if strings.Contains(upper, "SATISFIED") {
		return true, verdict
	}

	r.logger.Warn("evaluation verdict unrecognized, accepting result", "verdict", truncate(verdict, 120))
	return true, verdict
}

// identifyNeeds asks what additional information or tool calls the next
// attempt should gather. Best effort; refinement proceeds without it.
func (r *TaskRunner) identifyNeeds(ctx context.Context, intent, output, verdict string, tools []domain.Tool) string {
	prompt := BuildNeedsPrompt(intent, output, verdict, tools)
	needs, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		r.logger.Warn("needs identification failed", "error", err)
		return ""
	}
	return strings.TrimSpace(needs)
}

// refine asks for an alternative approach based on past attempts. When
// refinement fails the previous plan is retried as-is.
func (r *TaskRunner) refine(ctx context.Context, intent string, attempts []domain.TaskAttempt, tools []domain.Tool, needs, previousPlan string) string {
	prompt := BuildRefinePrompt(intent, attempts, domain.ToolNames(tools), needs)
	refined, err := r.llm.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(refined) == "" {
		r.logger.Warn("refinement failed, retrying previous plan", "error", err)
		return previousPlan
	}
	return strings.TrimSpace(refined)
}

// condensePlan reduces a generated plan to a single instruction line: models
// pad plans with preamble and numbered lists, and the engine reasons better
// over one concrete directive. First usable line wins; oversized plans are
// truncated outright.
func condensePlan(plan string) string {
	for _, line := range strings.Split(plan, "\n") {
		trimmed := strings.Trim(strings.TrimSpace(line), "-*# ")
		trimmed = strings.TrimLeft(trimmed, "0123456789. )")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == "" {
			continue
		}
		if len(trimmed) <= sharedContextBudget {
			return trimmed
		}
		return truncate(trimmed, sharedContextBudget)
	}
	return truncate(strings.TrimSpace(plan), sharedContextBudget)
}

// summarize produces the markdown report for one task, falling back to a
// deterministic template when generation fails.
func (r *TaskRunner) summarize(ctx context.Context, result domain.TaskResult, spec domain.TaskSpec) string {
	prompt := BuildSummaryPrompt(result, spec.Intent, spec.Description)
	summary, err := r.llm.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("summary generation failed, using fallback", "task", result.TaskName, "error", err)
		}
		return FallbackSummary(result, spec.Intent)
	}
	return strings.TrimSpace(summary)
}
