package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/varekai/opsmind/internal/adapters/duckdb"
	"github.com/varekai/opsmind/internal/adapters/llm"
	"github.com/varekai/opsmind/internal/adapters/mcp"
	"github.com/varekai/opsmind/internal/config"
	"github.com/varekai/opsmind/internal/core/domain"
	"github.com/varekai/opsmind/internal/core/ports"
	"github.com/varekai/opsmind/internal/core/services"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <tasks.yaml>",
		Short: "Execute a task file and print per-task reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd.Context(), args[0])
		},
	}
}

func runTasks(parent context.Context, taskFile string) error {
	logger := newLogger()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	tasks, err := config.LoadTaskFile(taskFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime, err := buildRuntime(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer runtime.close()

	results, err := runtime.runner.RunTasks(ctx, tasks)
	for _, result := range results {
		printReport(result)
	}
	if err != nil {
		return fmt.Errorf("task run interrupted: %w", err)
	}

	for _, result := range results {
		if result.Status == domain.TaskStatusFailed {
			return fmt.Errorf("task %s failed", result.TaskName)
		}
	}
	return nil
}

func printReport(result domain.TaskResult) {
	fmt.Printf("\n=== %s [%s] (%d iteration(s), %s) ===\n\n",
		result.TaskName,
		result.Status,
		result.Iterations,
		result.FinishedAt.Sub(result.StartedAt).Round(1e7))
	fmt.Println(result.Summary)
}

// runtime bundles everything a command needs to drive tasks.
type runtime struct {
	runner    *services.TaskRunner
	catalog   *services.ToolCatalog
	mcpClient *mcp.Client
	repo      *duckdb.Repository
}

func (r *runtime) close() {
	if r.mcpClient != nil {
		_ = r.mcpClient.Close()
	}
	if r.repo != nil {
		_ = r.repo.Close()
	}
}

// buildRuntime wires adapters and services from config. The tool catalog is
// loaded here: an unreachable provider fails startup rather than the first
// task.
func buildRuntime(ctx context.Context, logger *slog.Logger, cfg config.Config) (*runtime, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	mcpClient, err := mcp.Dial(ctx, logger, mcp.Config{
		Address: cfg.MCP.Address,
		Token:   cfg.MCP.Token,
		Timeout: cfg.MCP.Timeout.Std(),
	})
	if err != nil {
		return nil, err
	}

	catalog := services.NewToolCatalog(logger, mcpClient)
	if _, err := catalog.Load(ctx); err != nil {
		_ = mcpClient.Close()
		return nil, err
	}

	completion := llm.NewClient(logger, cfg.LLM.APIHost, cfg.LLM.APIKey, llm.Options{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout.Std(),
	})

	var repo *duckdb.Repository
	var portRepo ports.Repository
	var traceRepo services.TraceRepository
	if cfg.Storage.Path != "" {
		repo, err = duckdb.NewRepository(cfg.Storage.Path)
		if err != nil {
			_ = mcpClient.Close()
			return nil, err
		}
		portRepo = repo
		traceRepo = repo
	}

	tracer := services.NewTraceCollector(logger, traceRepo)
	bus := services.NewEventBus(logger)
	invoker := services.NewToolInvoker(logger, catalog, mcpClient, engineCfg.StepTimeout, engineCfg.EnableToolValidation)
	engine := services.NewReActEngine(logger, completion, catalog, invoker, bus, tracer, engineCfg)
	runner := services.NewTaskRunner(logger, completion, engine, catalog, tracer, portRepo, engineCfg)

	return &runtime{
		runner:    runner,
		catalog:   catalog,
		mcpClient: mcpClient,
		repo:      repo,
	}, nil
}
