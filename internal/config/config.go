package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/varekai/opsmind/internal/core/domain"
)

// Duration wraps time.Duration so YAML accepts "30s"-style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full process configuration: the two remote endpoints, the
// engine budgets, storage, and the report surface.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	MCP     MCPConfig     `yaml:"mcp"`
	Engine  EngineConfig  `yaml:"engine"`
	Storage StorageConfig `yaml:"storage"`
	Report  ReportConfig  `yaml:"report"`
}

// LLMConfig locates the completion endpoint.
type LLMConfig struct {
	APIHost     string   `yaml:"api_host"`
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Temperature float64  `yaml:"temperature"`
	Timeout     Duration `yaml:"timeout"`
}

// MCPConfig locates the tool provider.
type MCPConfig struct {
	Address string   `yaml:"address"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"`
}

// EngineConfig carries the reasoning budgets.
type EngineConfig struct {
	MaxSteps                int      `yaml:"max_steps"`
	StepTimeout             Duration `yaml:"step_timeout"`
	MaxRefinementIterations int      `yaml:"max_refinement_iterations"`
	EnableToolValidation    *bool    `yaml:"enable_tool_validation"` // pointer so "absent" defaults to true
}

// StorageConfig locates the DuckDB file. Empty disables persistence.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ReportConfig configures the HTTP report surface.
type ReportConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when no file or overrides are given.
func Default() Config {
	engine := domain.DefaultEngineConfig()
	validation := engine.EnableToolValidation
	return Config{
		LLM: LLMConfig{
			APIHost: "http://localhost:11434/v1",
			Model:   "qwen2.5:latest",
			Timeout: Duration(120 * time.Second),
		},
		MCP: MCPConfig{
			Address: "localhost:8901",
			Timeout: Duration(30 * time.Second),
		},
		Engine: EngineConfig{
			MaxSteps:                engine.MaxSteps,
			StepTimeout:             Duration(engine.StepTimeout),
			MaxRefinementIterations: engine.MaxRefinementIterations,
			EnableToolValidation:    &validation,
		},
		Report: ReportConfig{
			Listen: ":8920",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// OPSMIND_* environment overrides, and validates. Environment wins over file;
// file wins over defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.LLM.APIHost, "OPSMIND_LLM_API_HOST")
	setString(&cfg.LLM.APIKey, "OPSMIND_LLM_API_KEY")
	setString(&cfg.LLM.Model, "OPSMIND_LLM_MODEL")
	setDuration(&cfg.LLM.Timeout, "OPSMIND_LLM_TIMEOUT")

	setString(&cfg.MCP.Address, "OPSMIND_MCP_ADDRESS")
	setString(&cfg.MCP.Token, "OPSMIND_MCP_TOKEN")
	setDuration(&cfg.MCP.Timeout, "OPSMIND_MCP_TIMEOUT")

	setInt(&cfg.Engine.MaxSteps, "OPSMIND_ENGINE_MAX_STEPS")
	setDuration(&cfg.Engine.StepTimeout, "OPSMIND_ENGINE_STEP_TIMEOUT")
	setInt(&cfg.Engine.MaxRefinementIterations, "OPSMIND_ENGINE_MAX_REFINEMENT_ITERATIONS")
	if v, ok := os.LookupEnv("OPSMIND_ENGINE_TOOL_VALIDATION"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Engine.EnableToolValidation = &b
		}
	}

	setString(&cfg.Storage.Path, "OPSMIND_STORAGE_PATH")
	setString(&cfg.Report.Listen, "OPSMIND_REPORT_LISTEN")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// Validate rejects configurations the engine cannot start on.
func (c Config) Validate() error {
	if c.LLM.APIHost == "" {
		return fmt.Errorf("llm.api_host is required")
	}
	if c.MCP.Address == "" {
		return fmt.Errorf("mcp.address is required")
	}
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	return nil
}

// EngineConfig converts to the domain budgets, filling defaults for absent
// values and validating the result.
func (c Config) EngineConfig() (domain.EngineConfig, error) {
	out := domain.DefaultEngineConfig()
	if c.Engine.MaxSteps > 0 {
		out.MaxSteps = c.Engine.MaxSteps
	}
	if c.Engine.StepTimeout > 0 {
		out.StepTimeout = c.Engine.StepTimeout.Std()
	}
	if c.Engine.MaxRefinementIterations > 0 {
		out.MaxRefinementIterations = c.Engine.MaxRefinementIterations
	}
	if c.Engine.EnableToolValidation != nil {
		out.EnableToolValidation = *c.Engine.EnableToolValidation
	}
	if err := out.Validate(); err != nil {
		return domain.EngineConfig{}, fmt.Errorf("engine config: %w", err)
	}
	return out, nil
}
