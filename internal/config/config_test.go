package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.APIHost)
	assert.Equal(t, "localhost:8901", cfg.MCP.Address)

	engine, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, engine.MaxSteps)
	assert.Equal(t, 30*time.Second, engine.StepTimeout)
	assert.Equal(t, 5, engine.MaxRefinementIterations)
	assert.True(t, engine.EnableToolValidation)
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  api_host: https://api.example.com/v1
  api_key: sk-test
  model: gpt-4o
  timeout: 90s
mcp:
  address: tools.internal:9000
  token: t-123
  timeout: 45s
engine:
  max_steps: 12
  step_timeout: 20s
  max_refinement_iterations: 3
  enable_tool_validation: false
storage:
  path: /var/lib/opsmind/opsmind.db
report:
  listen: ":9100"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", cfg.LLM.APIHost)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout.Std())
	assert.Equal(t, "tools.internal:9000", cfg.MCP.Address)
	assert.Equal(t, 45*time.Second, cfg.MCP.Timeout.Std())
	assert.Equal(t, "/var/lib/opsmind/opsmind.db", cfg.Storage.Path)
	assert.Equal(t, ":9100", cfg.Report.Listen)

	engine, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 12, engine.MaxSteps)
	assert.Equal(t, 20*time.Second, engine.StepTimeout)
	assert.Equal(t, 3, engine.MaxRefinementIterations)
	assert.False(t, engine.EnableToolValidation)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  api_host: https://file.example.com/v1
mcp:
  address: file.internal:9000
`)
	t.Setenv("OPSMIND_LLM_API_HOST", "https://env.example.com/v1")
	t.Setenv("OPSMIND_MCP_TOKEN", "env-token")
	t.Setenv("OPSMIND_ENGINE_MAX_STEPS", "7")
	t.Setenv("OPSMIND_ENGINE_STEP_TIMEOUT", "15s")
	t.Setenv("OPSMIND_ENGINE_TOOL_VALIDATION", "false")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/v1", cfg.LLM.APIHost)
	assert.Equal(t, "file.internal:9000", cfg.MCP.Address, "env does not clobber file values it does not set")
	assert.Equal(t, "env-token", cfg.MCP.Token)

	engine, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, engine.MaxSteps)
	assert.Equal(t, 15*time.Second, engine.StepTimeout)
	assert.False(t, engine.EnableToolValidation)
}

func TestLoadRejectsMissingEndpoints(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  api_host: ""
`)
	t.Setenv("OPSMIND_LLM_API_HOST", "")

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.api_host")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  timeout: soon
`)

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadTaskFile(t *testing.T) {
	path := writeFile(t, "tasks.yaml", `
tasks:
  - name: db-health
    intent: verify the database is healthy
    description: checks replication and latency
  - intent: summarize recent error logs
`)

	tasks, err := LoadTaskFile(path)

	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "db-health", tasks[0].Name)
	assert.Equal(t, "checks replication and latency", tasks[0].Description)
	assert.Empty(t, tasks[1].Name)
	assert.Equal(t, "summarize recent error logs", tasks[1].Intent)
}

func TestLoadTaskFileRejectsMissingIntent(t *testing.T) {
	path := writeFile(t, "tasks.yaml", `
tasks:
  - name: nameless
`)

	_, err := LoadTaskFile(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no intent")
}

func TestLoadTaskFileRejectsEmptyList(t *testing.T) {
	path := writeFile(t, "tasks.yaml", "tasks: []\n")

	_, err := LoadTaskFile(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tasks")
}
